package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

func TestTailBuffer(t *testing.T) {
	tail := &tailBuffer{limit: 10}
	tail.Write([]byte("0123456789abcdef"))
	if got := tail.String(); got != "6789abcdef" {
		t.Errorf("expected last 10 bytes, got %q", got)
	}

	short := &tailBuffer{limit: 10}
	short.Write([]byte("abc"))
	if got := short.String(); got != "abc" {
		t.Errorf("expected full short write, got %q", got)
	}
}

func TestTailBufferAcrossWrites(t *testing.T) {
	tail := &tailBuffer{limit: 5}
	tail.Write([]byte("hello "))
	tail.Write([]byte("world"))
	if got := tail.String(); got != "world" {
		t.Errorf("expected %q, got %q", "world", got)
	}
}

// fakeBinary writes a shell script that prints msg to stderr and exits with
// the given code.
func fakeBinary(t *testing.T, msg string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho \"" + msg + "\" >&2\nexit " + strconv.Itoa(exitCode) + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	return path
}

func TestRunWrapsExitError(t *testing.T) {
	bin := fakeBinary(t, "something went wrong", 3)
	r := NewRunnerWithPaths(bin, bin)

	err := r.Run(context.Background(), BinaryFFmpeg, "-i", "missing.mp4")
	if err == nil {
		t.Fatal("expected error from non-zero exit")
	}

	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessError, got %T: %v", err, err)
	}
	if procErr.Binary != BinaryFFmpeg {
		t.Errorf("unexpected binary label: %s", procErr.Binary)
	}
	if procErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", procErr.ExitCode)
	}
	if !strings.Contains(procErr.StderrTail, "something went wrong") {
		t.Errorf("expected stderr tail in error, got %q", procErr.StderrTail)
	}
}

func TestRunSpawnFailureSentinelExitCode(t *testing.T) {
	r := NewRunnerWithPaths("/nonexistent/ffmpeg", "/nonexistent/ffprobe")

	err := r.Run(context.Background(), BinaryFFmpeg)
	var procErr *ProcessError
	if !errors.As(err, &procErr) {
		t.Fatalf("expected ProcessError, got %T: %v", err, err)
	}
	if procErr.ExitCode != -1 {
		t.Errorf("expected sentinel exit code -1 for spawn failure, got %d", procErr.ExitCode)
	}
}

func TestStderrCapturesFullOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho \"silence_start: 3.52\" >&2\nexit 0\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}

	r := NewRunnerWithPaths(path, path)
	out, err := r.Stderr(context.Background(), BinaryFFmpeg)
	if err != nil {
		t.Fatalf("Stderr failed: %v", err)
	}
	if !strings.Contains(out, "silence_start: 3.52") {
		t.Errorf("expected analysis output on stderr, got %q", out)
	}
}

func TestNewRunnerPrefersVendoredBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}

	dir := t.TempDir()
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
			t.Fatalf("failed to write fake binary: %v", err)
		}
	}

	r, err := NewRunner(dir)
	if err != nil {
		t.Fatalf("NewRunner failed: %v", err)
	}
	if r.ffmpegPath != filepath.Join(dir, "ffmpeg") {
		t.Errorf("expected vendored ffmpeg, got %s", r.ffmpegPath)
	}
}

func TestNewRunnerMissingBinary(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := NewRunner("")
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("expected ErrBinaryNotFound, got %v", err)
	}
}
