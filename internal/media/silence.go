package media

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// SilenceSpan is one continuous quiet region found in an audio track.
type SilenceSpan struct {
	StartSec    float64
	DurationSec float64
}

// DetectSilence scans the whole audio track of a file for continuous spans at
// least minDurationSec long below thresholdDB. It is a streaming scan of the
// full file, not a sampled subset; ffmpeg's silencedetect reports on stderr.
func (f *FFmpeg) DetectSilence(ctx context.Context, path string, thresholdDB int, minDurationSec float64) ([]SilenceSpan, error) {
	stderr, err := f.run.Stderr(ctx, BinaryFFmpeg,
		"-hide_banner",
		"-nostats",
		"-i", path,
		"-af", fmt.Sprintf("silencedetect=noise=%ddB:d=%g", thresholdDB, minDurationSec),
		"-f", "null", "-",
	)
	if err != nil {
		return nil, fmt.Errorf("silence scan failed: %w", err)
	}

	return parseSilenceSpans(stderr), nil
}

// parseSilenceSpans extracts spans from silencedetect output lines of the form:
//
//	[silencedetect @ ...] silence_start: 3.52
//	[silencedetect @ ...] silence_end: 7.04 | silence_duration: 3.52
func parseSilenceSpans(output string) []SilenceSpan {
	var spans []SilenceSpan
	var pendingStart *float64

	for _, line := range strings.Split(output, "\n") {
		if idx := strings.Index(line, "silence_start:"); idx >= 0 {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[idx+len("silence_start:"):]), 64)
			if err == nil {
				pendingStart = &v
			}
			continue
		}
		if idx := strings.Index(line, "silence_duration:"); idx >= 0 {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[idx+len("silence_duration:"):]), 64)
			if err != nil || pendingStart == nil {
				continue
			}
			spans = append(spans, SilenceSpan{StartSec: *pendingStart, DurationSec: v})
			pendingStart = nil
		}
	}

	// A silence_start with no matching end means the file ends silent; report
	// it as an open span so the gate still sees it.
	if pendingStart != nil {
		spans = append(spans, SilenceSpan{StartSec: *pendingStart, DurationSec: -1})
	}

	return spans
}
