package qa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bobarin/reelsmith/internal/media"
)

// newFakeGate builds a Gate over scripted ffmpeg/ffprobe fakes: the fake
// ffprobe reports the given resolution, the fake ffmpeg's silence scan reports
// a long silent span when silent is set. Returns the gate and a small video
// file to validate.
func newFakeGate(t *testing.T, width, height int, silent bool) (*Gate, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}

	dir := t.TempDir()

	ffprobeScript := fmt.Sprintf(`#!/bin/sh
printf '{"format":{"duration":"10.0"},"streams":[{"codec_type":"video","width":%d,"height":%d}]}'
`, width, height)

	ffmpegScript := "#!/bin/sh\nexit 0\n"
	if silent {
		ffmpegScript = `#!/bin/sh
printf '%s\n' "[silencedetect @ 0x1] silence_start: 2.00" >&2
printf '%s\n' "[silencedetect @ 0x1] silence_end: 5.50 | silence_duration: 3.50" >&2
exit 0
`
	}

	ffmpegPath := filepath.Join(dir, "ffmpeg")
	ffprobePath := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(ffmpegPath, []byte(ffmpegScript), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ffprobePath, []byte(ffprobeScript), 0755); err != nil {
		t.Fatal(err)
	}

	ffmpeg, err := media.NewFFmpeg(media.NewRunnerWithPaths(ffmpegPath, ffprobePath), t.TempDir())
	if err != nil {
		t.Fatalf("failed to build media toolkit: %v", err)
	}

	videoPath := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(videoPath, []byte("mp4"), 0644); err != nil {
		t.Fatal(err)
	}

	return NewGate(ffmpeg), videoPath
}

func TestValidateAllChecksPass(t *testing.T) {
	gate, video := newFakeGate(t, RequiredWidth, RequiredHeight, false)

	res := gate.Validate(context.Background(), video)
	if !res.Passed {
		t.Fatalf("expected pass, failed checks: %v", res.FailedChecks())
	}
	if !res.FileSize.Passed || !res.Resolution.Passed || !res.Silence.Passed {
		t.Errorf("every check must pass individually: %+v", res)
	}
}

func TestValidateResolutionOnlyFailure(t *testing.T) {
	gate, video := newFakeGate(t, 720, 1280, false)

	res := gate.Validate(context.Background(), video)
	if res.Passed {
		t.Fatal("expected failure")
	}
	if !res.FileSize.Passed || !res.Silence.Passed {
		t.Errorf("only resolution may fail, got %+v", res)
	}
	if res.Resolution.Passed || res.Resolution.Detail == "" {
		t.Errorf("resolution check must fail with detail, got %+v", res.Resolution)
	}
}

func TestValidateSilenceOnlyFailure(t *testing.T) {
	gate, video := newFakeGate(t, RequiredWidth, RequiredHeight, true)

	res := gate.Validate(context.Background(), video)
	if res.Passed {
		t.Fatal("expected failure")
	}
	if !res.FileSize.Passed || !res.Resolution.Passed {
		t.Errorf("only silence may fail, got %+v", res)
	}
	if res.Silence.Passed || res.Silence.Detail == "" {
		t.Errorf("silence check must fail with detail, got %+v", res.Silence)
	}
}

func TestValidateFileSizeOnlyFailure(t *testing.T) {
	gate, video := newFakeGate(t, RequiredWidth, RequiredHeight, false)

	// Grow the file past the ceiling without writing real bytes; Stat reports
	// the logical size.
	if err := os.Truncate(video, MaxFileSizeBytes+1); err != nil {
		t.Fatalf("failed to grow file: %v", err)
	}

	res := gate.Validate(context.Background(), video)
	if res.Passed {
		t.Fatal("expected failure")
	}
	if !res.Resolution.Passed || !res.Silence.Passed {
		t.Errorf("only file size may fail, got %+v", res)
	}
	if res.FileSize.Passed || res.FileSize.Detail == "" {
		t.Errorf("file size check must fail with detail, got %+v", res.FileSize)
	}
}

func TestValidateChecksNeverShortCircuit(t *testing.T) {
	gate, video := newFakeGate(t, 720, 1280, true)
	if err := os.Truncate(video, MaxFileSizeBytes+1); err != nil {
		t.Fatal(err)
	}

	// Every check fails independently and every failure is reported.
	res := gate.Validate(context.Background(), video)
	if got := res.FailedChecks(); len(got) != 3 {
		t.Errorf("expected all three checks reported, got %v", got)
	}
}
