package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// ---------------------------------------------------------------------------
// Process Runner — spawns ffmpeg/ffprobe child processes and maps exit codes
// to structured errors. Holds no pipeline knowledge.
// ---------------------------------------------------------------------------

// BinaryKind names one of the external media binaries the runner can invoke.
type BinaryKind string

const (
	BinaryFFmpeg  BinaryKind = "ffmpeg"
	BinaryFFprobe BinaryKind = "ffprobe"
)

// stderrTailLimit bounds how much diagnostic output is kept per invocation.
const stderrTailLimit = 500

// ErrBinaryNotFound is returned by NewRunner when a required binary is neither
// vendored nor on the search path. It is a configuration error: surfaced at
// process start, never mid-pipeline.
var ErrBinaryNotFound = errors.New("media binary not found")

// ProcessError reports a non-zero exit from an external media process, carrying
// the exit code and the truncated tail of its standard error output.
type ProcessError struct {
	Binary     BinaryKind
	ExitCode   int
	StderrTail string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", e.Binary, e.ExitCode, e.StderrTail)
}

// Runner invokes ffmpeg and ffprobe as child processes. Binary paths are
// resolved once at construction and immutable afterward, so tests can point a
// runner at fake binaries.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
}

// NewRunner resolves both binaries. A vendored static binary under vendorDir is
// preferred; otherwise the execution search path is consulted. vendorDir may be
// empty to skip the vendored lookup.
func NewRunner(vendorDir string) (*Runner, error) {
	ffmpeg, err := resolveBinary(vendorDir, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(vendorDir, "ffprobe")
	if err != nil {
		return nil, err
	}
	return &Runner{ffmpegPath: ffmpeg, ffprobePath: ffprobe}, nil
}

// NewRunnerWithPaths builds a runner around explicit binary paths. Used by
// tests to substitute fake binaries without touching the search path.
func NewRunnerWithPaths(ffmpegPath, ffprobePath string) *Runner {
	return &Runner{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

func resolveBinary(vendorDir, name string) (string, error) {
	if vendorDir != "" {
		vendored := filepath.Join(vendorDir, name)
		if info, err := os.Stat(vendored); err == nil && !info.IsDir() {
			return vendored, nil
		}
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not vendored and not on PATH", ErrBinaryNotFound, name)
	}
	return path, nil
}

func (r *Runner) path(kind BinaryKind) string {
	if kind == BinaryFFprobe {
		return r.ffprobePath
	}
	return r.ffmpegPath
}

// Run executes the binary, discarding stdout and keeping a bounded stderr tail
// for diagnostics. One OS process per call; calls never share a process.
func (r *Runner) Run(ctx context.Context, kind BinaryKind, args ...string) error {
	cmd := exec.CommandContext(ctx, r.path(kind), args...)
	tail := &tailBuffer{limit: stderrTailLimit}
	cmd.Stdout = io.Discard
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return r.wrapExit(kind, err, tail.String())
	}
	return nil
}

// Output executes the binary and returns its captured stdout. Used for ffprobe
// queries whose result arrives on stdout.
func (r *Runner) Output(ctx context.Context, kind BinaryKind, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.path(kind), args...)
	var stdout bytes.Buffer
	tail := &tailBuffer{limit: stderrTailLimit}
	cmd.Stdout = &stdout
	cmd.Stderr = tail

	if err := cmd.Run(); err != nil {
		return nil, r.wrapExit(kind, err, tail.String())
	}
	return stdout.Bytes(), nil
}

// Stderr executes the binary and returns its full stderr output. ffmpeg's
// analysis filters (silencedetect and friends) report on stderr, so this
// variant keeps everything instead of the bounded tail.
func (r *Runner) Stderr(ctx context.Context, kind BinaryKind, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.path(kind), args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		out := stderr.String()
		if len(out) > stderrTailLimit {
			out = out[len(out)-stderrTailLimit:]
		}
		return "", r.wrapExit(kind, err, out)
	}
	return stderr.String(), nil
}

func (r *Runner) wrapExit(kind BinaryKind, err error, tail string) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessError{Binary: kind, ExitCode: exitErr.ExitCode(), StderrTail: tail}
	}
	// Spawn failures (missing binary deleted after resolution, permission) keep
	// the same labeled shape with a sentinel exit code.
	return &ProcessError{Binary: kind, ExitCode: -1, StderrTail: err.Error()}
}

// tailBuffer keeps only the last `limit` bytes written to it.
type tailBuffer struct {
	buf   []byte
	limit int
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}
