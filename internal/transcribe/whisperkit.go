// Package transcribe invokes the WhisperKit CLI to turn an audio file into
// transcript text
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/franz/memoscribe/internal/util"
)

// Transcriber produces transcript text for an audio file. The label is a
// human-readable name used only for logging and error messages.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, label string) (string, error)
}

// Options configures the WhisperKit invocation
type Options struct {
	Binary    string   // executable name or path, default "whisperkit-cli"
	Model     string   // model identifier
	Language  string   // optional language hint
	ExtraArgs []string // passed through verbatim
}

// WhisperKit shells out to the WhisperKit CLI for each transcription
type WhisperKit struct {
	cli  string
	opts Options
}

// New resolves the WhisperKit binary and returns a ready transcriber. The
// binary is looked up on PATH first, then treated as a filesystem path.
func New(opts Options) (*WhisperKit, error) {
	if opts.Binary == "" {
		opts.Binary = "whisperkit-cli"
	}

	cli, err := resolveBinary(opts.Binary)
	if err != nil {
		return nil, err
	}

	return &WhisperKit{cli: cli, opts: opts}, nil
}

func resolveBinary(binary string) (string, error) {
	if path, err := exec.LookPath(binary); err == nil {
		return path, nil
	}

	candidate := util.ExpandHome(binary)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: WhisperKit CLI executable %q (install via `brew install whisperkit-cli` or set the binary path)",
		util.ErrNotFound, binary)
}

// Available reports whether a WhisperKit binary can be resolved
func Available(binary string) bool {
	if binary == "" {
		binary = "whisperkit-cli"
	}
	_, err := resolveBinary(binary)
	return err == nil
}

// Transcribe runs the CLI against one audio file and returns the transcript
// text. No timeout is imposed: the subprocess's exit is the only completion
// signal.
func (w *WhisperKit) Transcribe(ctx context.Context, audioPath, label string) (string, error) {
	if label = strings.TrimSpace(label); label == "" {
		label = audioPath
	}

	if _, err := os.Stat(audioPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: audio file for %s", util.ErrNotFound, label)
		}
		return "", fmt.Errorf("failed to stat audio file for %s: %w", label, err)
	}

	args := []string{
		"transcribe",
		"--model", w.opts.Model,
		"--audio-path", audioPath,
	}
	if w.opts.Language != "" {
		args = append(args, "--language", w.opts.Language)
	}
	args = append(args, w.opts.ExtraArgs...)

	util.InfoLog("Transcribing %s with WhisperKit (%s)", label, w.opts.Model)

	cmd := exec.CommandContext(ctx, w.cli, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			util.ErrorLog("WhisperKit CLI failed (%d): %s", exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
			return "", fmt.Errorf("%w: %s (exit code %d): %s",
				util.ErrTranscription, label, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("%w: %s: %v", util.ErrTranscription, label, err)
	}

	return strings.TrimSpace(stdout.String()), nil
}
