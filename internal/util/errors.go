package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrPermission indicates filesystem access was denied. On macOS this
	// usually means the terminal lacks Full Disk Access.
	ErrPermission = errors.New("permission denied")

	// ErrNotReady indicates a file is still being written and failed its
	// readiness checks
	ErrNotReady = errors.New("file not ready")

	// ErrNoTable indicates no qualifying recording table exists in the
	// metadata store
	ErrNoTable = errors.New("no recording table found")

	// ErrTranscription indicates the external transcription tool failed
	ErrTranscription = errors.New("transcription failed")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
