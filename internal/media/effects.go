package media

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Motion effects — each scene's still image is turned into a moving clip by a
// zoompan filter chain. Output is always portrait 1080x1920 at 30fps.
// ---------------------------------------------------------------------------

// Effect is the fixed enum of motion effects a scene may request.
type Effect string

const (
	EffectStatic    Effect = "static"      // crop-to-frame, no motion
	EffectZoomIn    Effect = "zoom_in"     // slow push toward center
	EffectZoomOut   Effect = "zoom_out"    // starts tight, pulls back wide
	EffectPanLeft   Effect = "pan_left"    // drifts right to left
	EffectPanRight  Effect = "pan_right"   // drifts left to right
	EffectTiltUp    Effect = "tilt_up"     // drifts bottom to top
	EffectTiltDown  Effect = "tilt_down"   // drifts top to bottom
	EffectGlitch    Effect = "glitch"      // static frame with temporal noise
	EffectFlashIn   Effect = "flash_in"    // fade in from white
	EffectFadeInOut Effect = "fade_in_out" // fade in and out from black
)

// Output / rendering constants — portrait 1080x1920 at 30fps.
const (
	OutputWidth  = 1080
	OutputHeight = 1920
	VideoFPS     = 30

	// Images are prescaled to 2x the output frame so pans and zooms have
	// resolution headroom and never upscale past the source.
	scaleWidth  = OutputWidth * 2
	scaleHeight = OutputHeight * 2
)

// ParseEffect maps a plan's effect tag onto the enum. Unknown tags fall back to
// the static crop — a deliberate default, not a failure.
func ParseEffect(tag string) Effect {
	switch Effect(tag) {
	case EffectStatic, EffectZoomIn, EffectZoomOut, EffectPanLeft, EffectPanRight,
		EffectTiltUp, EffectTiltDown, EffectGlitch, EffectFlashIn, EffectFadeInOut:
		return Effect(tag)
	default:
		return EffectStatic
	}
}

// buildMotionFilter constructs the -vf chain for one scene clip:
//
//	image → scale+crop to 2160x3840 → zoompan (motion) → overlay filter → yuv420p
//
// totalFrames fixes the clip length exactly; zoompan emits that many frames
// from the single input image.
func buildMotionFilter(effect Effect, durationSec float64) string {
	totalFrames := int(durationSec*VideoFPS + 0.5)
	if totalFrames < 1 {
		totalFrames = 1
	}

	// Center expressions, reused across effects.
	const (
		cx = "iw/2-(iw/zoom/2)"
		cy = "ih/2-(ih/zoom/2)"
	)

	var zExpr, xExpr, yExpr string
	switch effect {
	case EffectZoomIn:
		zExpr = fmt.Sprintf("1.0+0.25*on/%d", totalFrames)
		xExpr, yExpr = cx, cy
	case EffectZoomOut:
		zExpr = fmt.Sprintf("1.25-0.25*on/%d", totalFrames)
		xExpr, yExpr = cx, cy
	case EffectPanLeft:
		zExpr = "1.2"
		xExpr = fmt.Sprintf("(iw-iw/zoom)*(1-on/%d)", totalFrames)
		yExpr = cy
	case EffectPanRight:
		zExpr = "1.2"
		xExpr = fmt.Sprintf("(iw-iw/zoom)*on/%d", totalFrames)
		yExpr = cy
	case EffectTiltUp:
		zExpr = "1.2"
		xExpr = cx
		yExpr = fmt.Sprintf("(ih-ih/zoom)*(1-on/%d)", totalFrames)
	case EffectTiltDown:
		zExpr = "1.2"
		xExpr = cx
		yExpr = fmt.Sprintf("(ih-ih/zoom)*on/%d", totalFrames)
	default:
		// static, glitch, flash_in, fade_in_out: fixed crop-to-frame. The
		// glitch/fade character comes from the overlay filter below.
		zExpr = "1.0"
		xExpr, yExpr = cx, cy
	}

	zoompan := fmt.Sprintf(
		"zoompan=z='%s':x='%s':y='%s':d=%d:s=%dx%d:fps=%d",
		zExpr, xExpr, yExpr, totalFrames, OutputWidth, OutputHeight, VideoFPS,
	)

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,%s",
		scaleWidth, scaleHeight, scaleWidth, scaleHeight, zoompan,
	)

	switch effect {
	case EffectGlitch:
		filter += ",noise=alls=18:allf=t"
	case EffectFlashIn:
		filter += ",fade=t=in:st=0:d=0.5:color=white"
	case EffectFadeInOut:
		fadeOutStart := durationSec - 0.5
		if fadeOutStart < 0 {
			fadeOutStart = 0
		}
		filter += fmt.Sprintf(",fade=t=in:st=0:d=0.5,fade=t=out:st=%.2f:d=0.5", fadeOutStart)
	}

	return filter + ",format=yuv420p"
}
