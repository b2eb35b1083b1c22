package completion

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/yeti47/eight/common"
	"github.com/yeti47/eight/faults"
	"github.com/yeti47/eight/gate"
	"github.com/yeti47/eight/metrics"
)

type Kind int

const (
	Pending Kind = iota
	Valid
	Invalid
)

func (k Kind) String() string {
	switch k {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "pending"
	}
}

// Source names the path that produced an outcome
type Source string

const (
	SourceFinalize Source = "finalize"
	SourceFallback Source = "fallback"
)

// Outcome is the verdict on one recording's output file
type Outcome struct {
	Kind      Kind
	SizeBytes int64
	// Err is a faults.FileNotFound or faults.FileTooSmall error for Invalid outcomes
	Err     error
	Source  Source
	Elapsed time.Duration
}

func (o Outcome) IsValid() bool {
	return o.Kind == Valid
}

// FinalizeEvent is the recorder's "stop processed" signal. Err is a hint only.
type FinalizeEvent struct {
	Err error
}

// Request describes a stopped recording to resolve
type Request struct {
	Path           string
	FirstRecording bool
	// Finalized delivers the recorder's finalize signal. It may never fire, fire
	// more than once, or be nil; only the first event is used.
	Finalized <-chan FinalizeEvent
}

// Detector decides whether a just-stopped recording produced a usable file
type Detector struct {
	policy Policy
	stat   func(string) (os.FileInfo, error)
	logger common.Logger
}

// NewDetector creates a detector using policy
func NewDetector(policy Policy, logger common.Logger) *Detector {
	return &Detector{
		policy: policy,
		stat:   os.Stat,
		logger: common.LoggerOrNop(logger),
	}
}

// Policy returns the timings this detector uses
func (d *Detector) Policy() Policy {
	return d.policy
}

// Detect races the finalize path against the fallback timer and returns exactly one
// outcome. A Valid outcome is returned as soon as either path sees a valid file;
// Invalid only after both paths have given up. Detect returns within
// Policy.Budget unless ctx ends first, in which case the outcome is Invalid with ctx's error.
func (d *Detector) Detect(ctx context.Context, req Request) Outcome {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result gate.Once[Outcome]
	var signalled atomic.Bool
	verdicts := make(chan Outcome, 2)
	fallbackDone := make(chan struct{})

	go func() {
		var ev FinalizeEvent
		select {
		case e, ok := <-req.Finalized:
			if ok {
				ev = e
			}
			signalled.Store(true)
		case <-fallbackDone:
			verdicts <- Outcome{}
			return
		case <-result.Done():
			verdicts <- Outcome{}
			return
		case <-ctx.Done():
			verdicts <- Outcome{}
			return
		}

		if ev.Err != nil {
			d.logger.Debug("Finalize reported an error, waiting longer before checking", "path", req.Path, "error", ev.Err)
		}
		delay := d.policy.InitialDelay(req.FirstRecording, ev.Err != nil)
		verdicts <- d.checkWithRetry(ctx, &result, req.Path, delay, SourceFinalize)
	}()

	go func() {
		defer close(fallbackDone)
		if !d.sleep(ctx, &result, d.policy.FallbackDelay(req.FirstRecording)) {
			verdicts <- Outcome{}
			return
		}
		if signalled.Load() {
			verdicts <- Outcome{}
			return
		}
		d.logger.Debug("No finalize signal received, checking file from fallback", "path", req.Path)
		verdicts <- d.checkWithRetry(ctx, &result, req.Path, 0, SourceFallback)
	}()

	var invalid *Outcome
	for i := 0; i < 2; i++ {
		v := <-verdicts
		if v.Kind == Invalid && (invalid == nil || v.Source == SourceFinalize) {
			invalid = &v
		}
	}

	if !result.IsSet() {
		if invalid != nil {
			result.Set(*invalid)
		} else {
			result.Set(Outcome{
				Kind: Invalid,
				Err:  faults.New(faults.FileNotFound, "detect completion", fmt.Errorf("detection aborted: %w", context.Cause(ctx))),
			})
		}
	}

	outcome, _ := result.Value()
	outcome.Elapsed = time.Since(start)
	if outcome.Source != "" {
		metrics.ObserveCompletion(string(outcome.Source), outcome.Elapsed)
	}
	d.logger.Debug("Recording outcome resolved", "path", req.Path, "outcome", outcome.Kind.String(),
		"source", outcome.Source, "size", outcome.SizeBytes, "elapsed", outcome.Elapsed)
	return outcome
}

// checkWithRetry waits initialDelay, checks the file, and re-checks once after
// RetryDelay. A valid result is published to the gate immediately. The returned
// outcome is Pending when the wait was cut short.
func (d *Detector) checkWithRetry(ctx context.Context, result *gate.Once[Outcome], path string, initialDelay time.Duration, source Source) Outcome {
	if !d.sleep(ctx, result, initialDelay) {
		return Outcome{}
	}
	outcome := d.Check(path)
	outcome.Source = source
	if outcome.IsValid() {
		result.Set(outcome)
		return outcome
	}

	d.logger.Debug("Recorded file not ready, retrying", "path", path, "source", source, "error", outcome.Err)
	if !d.sleep(ctx, result, d.policy.RetryDelay) {
		return Outcome{}
	}
	outcome = d.Check(path)
	outcome.Source = source
	if outcome.IsValid() {
		result.Set(outcome)
	}
	return outcome
}

// Check inspects path once: it must exist and exceed the minimum size
func (d *Detector) Check(path string) Outcome {
	info, err := d.stat(path)
	if err != nil {
		return Outcome{Kind: Invalid, Err: faults.New(faults.FileNotFound, "check recording", err)}
	}
	if info.Size() <= d.policy.MinSizeBytes {
		return Outcome{
			Kind:      Invalid,
			SizeBytes: info.Size(),
			Err:       faults.Newf(faults.FileTooSmall, "check recording", "%d bytes", info.Size()),
		}
	}
	return Outcome{Kind: Valid, SizeBytes: info.Size()}
}

// sleep waits d unless ctx ends or an outcome is already published
func (d *Detector) sleep(ctx context.Context, result *gate.Once[Outcome], wait time.Duration) bool {
	if wait <= 0 {
		select {
		case <-ctx.Done():
			return false
		case <-result.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-result.Done():
		return false
	}
}
