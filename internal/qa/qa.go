package qa

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/bobarin/reelsmith/internal/media"
)

// ---------------------------------------------------------------------------
// Quality Gate — validates a finished video against platform acceptance rules.
// Three independent checks, all evaluated even when one fails, so a single
// report carries every problem. A failed gate fails the run; it is never
// downgraded to a warning.
// ---------------------------------------------------------------------------

const (
	// MaxFileSizeBytes is the platform upload ceiling: 287 MiB.
	MaxFileSizeBytes = 287 << 20

	// Required output resolution: portrait 9:16.
	RequiredWidth  = 1080
	RequiredHeight = 1920

	// No continuous silent span this long or longer, below this threshold,
	// anywhere in the audio track.
	SilenceThresholdDB = -50
	SilenceMaxGapSec   = 2.0
)

// Check is one validation outcome with optional human-readable detail on
// failure.
type Check struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Result is the full gate report. Passed is the AND of the three checks.
type Result struct {
	Passed     bool  `json:"passed"`
	FileSize   Check `json:"file_size"`
	Resolution Check `json:"resolution"`
	Silence    Check `json:"silence"`
}

// FailedChecks names the checks that did not pass.
func (r *Result) FailedChecks() []string {
	var failed []string
	if !r.FileSize.Passed {
		failed = append(failed, "fileSize")
	}
	if !r.Resolution.Passed {
		failed = append(failed, "resolution")
	}
	if !r.Silence.Passed {
		failed = append(failed, "silence")
	}
	return failed
}

// GateError is the dedicated error kind for a failed gate, distinct from
// provider and process errors. It carries the full per-check report.
type GateError struct {
	Result *Result
}

func (e *GateError) Error() string {
	details := make([]string, 0, 3)
	for _, name := range e.Result.FailedChecks() {
		var detail string
		switch name {
		case "fileSize":
			detail = e.Result.FileSize.Detail
		case "resolution":
			detail = e.Result.Resolution.Detail
		case "silence":
			detail = e.Result.Silence.Detail
		}
		details = append(details, fmt.Sprintf("%s (%s)", name, detail))
	}
	return "quality gate failed: " + strings.Join(details, "; ")
}

// Gate runs the three checks against a composed video file.
type Gate struct {
	ffmpeg *media.FFmpeg
}

func NewGate(ffmpeg *media.FFmpeg) *Gate {
	return &Gate{ffmpeg: ffmpeg}
}

// Validate evaluates all three checks and returns the combined report. Checks
// never short-circuit: a probing or scan failure fails its own check with
// detail, it does not abort the others.
func (g *Gate) Validate(ctx context.Context, videoPath string) *Result {
	res := &Result{
		FileSize:   g.checkFileSize(videoPath),
		Resolution: g.checkResolution(ctx, videoPath),
		Silence:    g.checkSilence(ctx, videoPath),
	}
	res.Passed = res.FileSize.Passed && res.Resolution.Passed && res.Silence.Passed

	log.Printf("[QA] %s: passed=%v fileSize=%v resolution=%v silence=%v",
		videoPath, res.Passed, res.FileSize.Passed, res.Resolution.Passed, res.Silence.Passed)

	return res
}

func (g *Gate) checkFileSize(videoPath string) Check {
	info, err := os.Stat(videoPath)
	if err != nil {
		return Check{Detail: fmt.Sprintf("cannot stat file: %v", err)}
	}
	if info.Size() > MaxFileSizeBytes {
		return Check{Detail: fmt.Sprintf("file is %d bytes, ceiling is %d bytes (287 MiB)", info.Size(), int64(MaxFileSizeBytes))}
	}
	return Check{Passed: true}
}

func (g *Gate) checkResolution(ctx context.Context, videoPath string) Check {
	info, err := g.ffmpeg.Probe(ctx, videoPath)
	if err != nil {
		return Check{Detail: fmt.Sprintf("probe failed: %v", err)}
	}
	if info.Width != RequiredWidth || info.Height != RequiredHeight {
		return Check{Detail: fmt.Sprintf("resolution is %dx%d, expected exactly %dx%d", info.Width, info.Height, RequiredWidth, RequiredHeight)}
	}
	return Check{Passed: true}
}

func (g *Gate) checkSilence(ctx context.Context, videoPath string) Check {
	spans, err := g.ffmpeg.DetectSilence(ctx, videoPath, SilenceThresholdDB, SilenceMaxGapSec)
	if err != nil {
		return Check{Detail: fmt.Sprintf("silence scan failed: %v", err)}
	}
	if len(spans) > 0 {
		first := spans[0]
		if first.DurationSec < 0 {
			return Check{Detail: fmt.Sprintf("silent through end of file starting at %.2fs (threshold %ddB)", first.StartSec, SilenceThresholdDB)}
		}
		return Check{Detail: fmt.Sprintf("%d silent span(s) >= %.0fs, first at %.2fs lasting %.2fs (threshold %ddB)",
			len(spans), SilenceMaxGapSec, first.StartSec, first.DurationSec, SilenceThresholdDB)}
	}
	return Check{Passed: true}
}
