package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/yeti47/eight/completion"
	"github.com/yeti47/eight/recording"
)

var recordFlags struct {
	backend     string
	camera      string
	audio       string
	maxZoom     float64
	previewFile string
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record clips from the camera",
	Long: "Opens the camera and records clips interactively. Press Enter to start and stop a recording, " +
		"type 'z <factor>' to zoom and 'q' to quit. Every valid recording is printed as a path ready for 'eight edit'.",
	Args: cobra.NoArgs,
	RunE: runRecord,
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordFlags.backend, "backend", "", "Capture backend: ffmpeg or gocv (overrides config)")
	f.StringVar(&recordFlags.camera, "camera", "", "Camera device (overrides config)")
	f.StringVar(&recordFlags.audio, "audio", "", "Audio device, 'none' to record without sound (overrides config)")
	f.Float64Var(&recordFlags.maxZoom, "max-zoom", 0, "Upper zoom factor (overrides config)")
	f.StringVar(&recordFlags.previewFile, "preview-file", "", "Keep the latest preview frame in this JPEG file (gocv backend)")
}

func runRecord(cmd *cobra.Command, _ []string) error {
	base := flags.overrides()
	base.CaptureBackend = &recordFlags.backend
	base.CameraDevice = &recordFlags.camera
	base.AudioDevice = &recordFlags.audio
	base.MaxZoom = &recordFlags.maxZoom

	a, err := newApp("record", base)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.current()
	a.files.CleanupTempDirectory(staleTempAge)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.watchConfig(ctx)

	device, err := recording.NewDevice(cfg, a.logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	session := recording.NewSession(device, recording.SessionOptions{
		Settings: recording.NewSettingsProvider(a.settings),
		Detector: completion.NewDetector(completion.DefaultPolicy(), a.logger),
		Files:    a.files,
		Logger:   a.logger,
		OnStatus: statusPrinter(out),
	})
	defer session.Close()

	if err := session.Start(ctx); err != nil {
		return err
	}
	if err := session.WaitReady(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Ready. Press Enter to record.")

	if recordFlags.previewFile != "" {
		if frames := device.Preview(); frames != nil {
			go writePreviews(ctx, frames, recordFlags.previewFile, a)
		} else {
			fmt.Fprintln(out, "This capture backend has no preview.")
		}
	}

	go printResults(out, session.Results())
	return commandLoop(ctx, cmd.InOrStdin(), out, session)
}

// commandLoop reads one command per line until quit, EOF or ctx ends
func commandLoop(ctx context.Context, in io.Reader, out io.Writer, session *recording.Session) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}

		switch fields := strings.Fields(line); {
		case len(fields) == 0:
			if session.State() == recording.Recording {
				session.StopRecording()
			} else if _, err := session.StartRecording(); err != nil {
				fmt.Fprintln(out, "Cannot record:", err)
			}
		case fields[0] == "q" || fields[0] == "quit":
			return nil
		case fields[0] == "z" && len(fields) == 2:
			factor, err := strconv.ParseFloat(fields[1], 64)
			if err != nil {
				fmt.Fprintln(out, "Zoom factor must be a number")
				continue
			}
			applied, err := session.SetZoom(factor)
			if err != nil {
				fmt.Fprintln(out, "Zoom failed:", err)
				continue
			}
			fmt.Fprintf(out, "Zoom %.1fx\n", applied)
		default:
			fmt.Fprintln(out, "Commands: <Enter> start/stop, z <factor>, q")
		}
	}
}

func statusPrinter(out io.Writer) func(recording.Status) {
	var last recording.State = -1
	return func(st recording.Status) {
		if st.State == last {
			return
		}
		last = st.State
		if st.Message != "" {
			fmt.Fprintf(out, "[%s] %s\n", st.State, st.Message)
			return
		}
		fmt.Fprintf(out, "[%s]\n", st.State)
	}
}

func printResults(out io.Writer, results <-chan recording.Result) {
	for r := range results {
		if r.Outcome.IsValid() {
			fmt.Fprintf(out, "Recorded %s (%.1fs, %d bytes)\n  edit with: eight edit %s\n",
				r.Attempt.OutputPath, r.Attempt.Duration().Seconds(), r.Outcome.SizeBytes, r.Attempt.OutputPath)
			continue
		}
		fmt.Fprintf(out, "Recording failed: %v\n", r.Outcome.Err)
	}
}

func writePreviews(ctx context.Context, frames <-chan recording.PreviewFrame, path string, a *app) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			if err := renameio.WriteFile(path, frame.JPEG, 0644); err != nil {
				a.logger.Warn("Failed to write preview frame", "path", path, "error", err)
				return
			}
		}
	}
}
