package media

import (
	"strings"
	"testing"
)

func TestParseEffectKnownTags(t *testing.T) {
	tags := []string{
		"static", "zoom_in", "zoom_out", "pan_left", "pan_right",
		"tilt_up", "tilt_down", "glitch", "flash_in", "fade_in_out",
	}
	for _, tag := range tags {
		if got := ParseEffect(tag); string(got) != tag {
			t.Errorf("ParseEffect(%q) = %q", tag, got)
		}
	}
}

func TestParseEffectUnknownFallsBackToStatic(t *testing.T) {
	for _, tag := range []string{"", "spin", "ZOOM_IN", "ken_burns"} {
		if got := ParseEffect(tag); got != EffectStatic {
			t.Errorf("ParseEffect(%q) = %q, want static", tag, got)
		}
	}
}

func TestBuildMotionFilterShape(t *testing.T) {
	filter := buildMotionFilter(EffectZoomIn, 3.0)

	// Prescale to 2x, then zoompan down to the output frame.
	if !strings.Contains(filter, "scale=2160:3840") {
		t.Errorf("expected 2x prescale, got %q", filter)
	}
	if !strings.Contains(filter, "s=1080x1920") {
		t.Errorf("expected output frame size, got %q", filter)
	}
	if !strings.Contains(filter, "d=90") {
		t.Errorf("expected 90 frames for 3s at 30fps, got %q", filter)
	}
	if !strings.HasSuffix(filter, ",format=yuv420p") {
		t.Errorf("expected yuv420p pixel format suffix, got %q", filter)
	}
}

func TestBuildMotionFilterExactShortDuration(t *testing.T) {
	// Sub-second scenes keep their exact length; proportional scene timing
	// depends on clips never being padded.
	filter := buildMotionFilter(EffectStatic, 0.1)
	if !strings.Contains(filter, "d=3:") {
		t.Errorf("expected 3 frames for 0.1s at 30fps, got %q", filter)
	}

	// A degenerate duration still emits one frame rather than none.
	filter = buildMotionFilter(EffectStatic, 0)
	if !strings.Contains(filter, "d=1:") {
		t.Errorf("expected 1 frame floor, got %q", filter)
	}
}

func TestBuildMotionFilterOverlays(t *testing.T) {
	if f := buildMotionFilter(EffectGlitch, 2); !strings.Contains(f, "noise=") {
		t.Errorf("glitch filter missing noise overlay: %q", f)
	}
	if f := buildMotionFilter(EffectFlashIn, 2); !strings.Contains(f, "fade=t=in:st=0:d=0.5:color=white") {
		t.Errorf("flash_in filter missing white fade: %q", f)
	}
	f := buildMotionFilter(EffectFadeInOut, 2)
	if !strings.Contains(f, "fade=t=in") || !strings.Contains(f, "fade=t=out:st=1.50") {
		t.Errorf("fade_in_out filter missing fades: %q", f)
	}
	if f := buildMotionFilter(EffectStatic, 2); strings.Contains(f, "fade=") || strings.Contains(f, "noise=") {
		t.Errorf("static filter must not carry overlays: %q", f)
	}
}
