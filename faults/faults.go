package faults

import (
	"errors"
	"fmt"
)

// Kind classifies the failures the capture and export pipeline surfaces to its callers.
type Kind int

const (
	Unknown Kind = iota
	PermissionDenied
	DeviceUnavailable
	SessionNotReady
	OutputCreationFailed
	FileNotFound
	FileTooSmall
	NoMediaTrack
	EncodeFailed
)

func (k Kind) String() string {
	switch k {
	case PermissionDenied:
		return "permission_denied"
	case DeviceUnavailable:
		return "device_unavailable"
	case SessionNotReady:
		return "session_not_ready"
	case OutputCreationFailed:
		return "output_creation_failed"
	case FileNotFound:
		return "file_not_found"
	case FileTooSmall:
		return "file_too_small"
	case NoMediaTrack:
		return "no_media_track"
	case EncodeFailed:
		return "encode_failed"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure. Op names the operation that failed,
// Reason carries detail such as an encoder message, Err the underlying cause.
type Error struct {
	Kind   Kind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match against any *Error of the same kind, so the sentinels
// below work with errors.Is regardless of Op or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil && t.Reason == ""
}

var (
	ErrPermissionDenied     = &Error{Kind: PermissionDenied}
	ErrDeviceUnavailable    = &Error{Kind: DeviceUnavailable}
	ErrSessionNotReady      = &Error{Kind: SessionNotReady}
	ErrOutputCreationFailed = &Error{Kind: OutputCreationFailed}
	ErrFileNotFound         = &Error{Kind: FileNotFound}
	ErrFileTooSmall         = &Error{Kind: FileTooSmall}
	ErrNoMediaTrack         = &Error{Kind: NoMediaTrack}
	ErrEncodeFailed         = &Error{Kind: EncodeFailed}
)

// New creates a classified error for op wrapping err.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf creates a classified error for op with a formatted reason.
func Newf(kind Kind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Reason: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message maps err onto the short text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch KindOf(err) {
	case PermissionDenied:
		return "Camera permission denied"
	case DeviceUnavailable:
		return "Camera not available"
	case SessionNotReady:
		return "Camera session is not ready. Please wait a moment."
	case OutputCreationFailed:
		return "Failed to create output file"
	case FileNotFound:
		return "Recorded file not found"
	case FileTooSmall:
		return "Recorded file is invalid"
	case NoMediaTrack:
		return "Video has no playable track"
	case EncodeFailed:
		return "Export failed"
	default:
		return "Something went wrong"
	}
}
