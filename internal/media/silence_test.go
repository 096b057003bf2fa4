package media

import "testing"

func TestParseSilenceSpans(t *testing.T) {
	output := `[silencedetect @ 0x5567] silence_start: 3.52
[silencedetect @ 0x5567] silence_end: 7.04 | silence_duration: 3.52
[silencedetect @ 0x5567] silence_start: 12.1
[silencedetect @ 0x5567] silence_end: 14.6 | silence_duration: 2.5
size=N/A time=00:00:20.00 bitrate=N/A speed= 512x
`

	spans := parseSilenceSpans(output)
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].StartSec != 3.52 || spans[0].DurationSec != 3.52 {
		t.Errorf("unexpected first span: %+v", spans[0])
	}
	if spans[1].StartSec != 12.1 || spans[1].DurationSec != 2.5 {
		t.Errorf("unexpected second span: %+v", spans[1])
	}
}

func TestParseSilenceSpansNoSilence(t *testing.T) {
	output := `Input #0, mp4, from 'final.mp4':
size=N/A time=00:00:20.00 bitrate=N/A speed= 512x
`
	if spans := parseSilenceSpans(output); len(spans) != 0 {
		t.Errorf("expected no spans, got %+v", spans)
	}
}

func TestParseSilenceSpansOpenEnded(t *testing.T) {
	// The file ends while still silent: silence_start with no matching end.
	output := `[silencedetect @ 0x5567] silence_start: 18.2
`
	spans := parseSilenceSpans(output)
	if len(spans) != 1 {
		t.Fatalf("expected 1 open span, got %d", len(spans))
	}
	if spans[0].StartSec != 18.2 || spans[0].DurationSec != -1 {
		t.Errorf("expected open span with DurationSec=-1, got %+v", spans[0])
	}
}

func TestParseSilenceSpansIgnoresGarbage(t *testing.T) {
	output := `[silencedetect @ 0x5567] silence_start: not-a-number
[silencedetect @ 0x5567] silence_end: 7.04 | silence_duration: 3.52
`
	// A duration with no preceding valid start is dropped.
	if spans := parseSilenceSpans(output); len(spans) != 0 {
		t.Errorf("expected no spans, got %+v", spans)
	}
}
