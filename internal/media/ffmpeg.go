package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Media Primitives — idempotent file-to-file operations on top of the Runner.
// Each operation creates its output's parent directories as needed.
// ---------------------------------------------------------------------------

// FFmpeg is the library of media primitives the step functions build on.
type FFmpeg struct {
	run     *Runner
	tempDir string
}

// NewFFmpeg wires the primitives around a resolved runner. tempDir holds
// concat manifests and other scratch files.
func NewFFmpeg(run *Runner, tempDir string) (*FFmpeg, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	return &FFmpeg{run: run, tempDir: tempDir}, nil
}

// TempPath returns a path inside the primitives' scratch directory.
func (f *FFmpeg) TempPath(filename string) string {
	return filepath.Join(f.tempDir, filename)
}

// Cleanup removes scratch files, ignoring missing ones.
func (f *FFmpeg) Cleanup(paths ...string) {
	for _, path := range paths {
		os.Remove(path)
	}
}

// ---------------------------------------------------------------------------
// Probing
// ---------------------------------------------------------------------------

// ProbeInfo describes a video file's primary stream.
type ProbeInfo struct {
	DurationSec float64
	Width       int
	Height      int
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe returns duration and resolution of a video file. It fails when the file
// is missing, unreadable, has no video stream with both dimensions, or reports
// a non-positive duration.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*ProbeInfo, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}

	out, err := f.run.Output(ctx, BinaryFFprobe,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", path, err)
	}

	var parsed probeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("probe %s: unparseable ffprobe output: %w", path, err)
	}

	info := &ProbeInfo{}
	for _, st := range parsed.Streams {
		if st.CodecType == "video" && st.Width > 0 && st.Height > 0 {
			info.Width = st.Width
			info.Height = st.Height
			break
		}
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("probe %s: no video stream with dimensions", path)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(parsed.Format.Duration), 64)
	if err != nil || dur <= 0 {
		return nil, fmt.Errorf("probe %s: invalid duration %q", path, parsed.Format.Duration)
	}
	info.DurationSec = dur

	return info, nil
}

// Duration returns the duration in seconds of any media file (audio or video).
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	out, err := f.run.Output(ctx, BinaryFFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("duration probe failed: %w", err)
	}

	dur, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || dur <= 0 {
		return 0, fmt.Errorf("failed to parse duration %q", strings.TrimSpace(string(out)))
	}
	return dur, nil
}

// ---------------------------------------------------------------------------
// Clip synthesis
// ---------------------------------------------------------------------------

// SynthesizeMotion renders a still image into a 1080x1920 30fps video clip of
// exactly durationSec seconds, applying the requested motion effect. Unknown
// effect tags render as a static crop.
func (f *FFmpeg) SynthesizeMotion(ctx context.Context, imagePath string, durationSec float64, effectTag, outputPath string) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	effect := ParseEffect(effectTag)
	vf := buildMotionFilter(effect, durationSec)
	log.Printf("[FFmpeg] Synthesizing motion clip (effect=%s, duration=%.2fs)", effect, durationSec)

	return f.run.Run(ctx, BinaryFFmpeg,
		"-i", imagePath,
		"-vf", vf,
		"-c:v", "libx264",
		"-an",
		"-y",
		outputPath,
	)
}

// ---------------------------------------------------------------------------
// Concatenation
// ---------------------------------------------------------------------------

// ConcatMode selects how segments are joined.
type ConcatMode int

const (
	// ConcatCopy stream-copies the segments — lossless and fast, for audio.
	ConcatCopy ConcatMode = iota
	// ConcatReencode re-encodes the segments — for video whose internal
	// encoding may differ between clips.
	ConcatReencode
)

// Concatenate joins the input files into one output. A single input is a
// direct byte copy, not a concat operation. The concat manifest is always
// removed, on success and failure alike.
func (f *FFmpeg) Concatenate(ctx context.Context, files []string, outputPath string, mode ConcatMode) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to concatenate")
	}
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	if len(files) == 1 {
		return copyFile(files[0], outputPath)
	}

	manifest, err := os.CreateTemp(f.tempDir, "concat_*.txt")
	if err != nil {
		return fmt.Errorf("failed to create concat manifest: %w", err)
	}
	defer os.Remove(manifest.Name())

	for _, path := range files {
		abs, err := filepath.Abs(path)
		if err != nil {
			manifest.Close()
			return fmt.Errorf("failed to resolve concat input %s: %w", path, err)
		}
		fmt.Fprintf(manifest, "file '%s'\n", abs)
	}
	if err := manifest.Close(); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", manifest.Name(),
	}
	switch mode {
	case ConcatCopy:
		args = append(args, "-c", "copy")
	case ConcatReencode:
		args = append(args,
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
			"-r", strconv.Itoa(VideoFPS),
		)
	}
	args = append(args, "-y", outputPath)

	return f.run.Run(ctx, BinaryFFmpeg, args...)
}

// ---------------------------------------------------------------------------
// Audio mixing
// ---------------------------------------------------------------------------

// MixAudio mixes a music bed under the voice track. The music is looped if
// shorter, trimmed to the voice track's exact duration, and attenuated by
// musicVolume (0..1). The output duration always equals the voice input —
// the voice is never truncated by a shorter bed. An empty musicPath copies the
// voice track unchanged.
func (f *FFmpeg) MixAudio(ctx context.Context, voicePath, musicPath, outputPath string, musicVolume float64) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	if musicPath == "" {
		return copyFile(voicePath, outputPath)
	}

	voiceDur, err := f.Duration(ctx, voicePath)
	if err != nil {
		return fmt.Errorf("mix audio: %w", err)
	}

	filter := fmt.Sprintf(
		"[1:a]atrim=0:%.3f,asetpts=PTS-STARTPTS,volume=%.3f[bed];[0:a][bed]amix=inputs=2:duration=first:dropout_transition=2[aout]",
		voiceDur, musicVolume,
	)

	return f.run.Run(ctx, BinaryFFmpeg,
		"-i", voicePath,
		"-stream_loop", "-1",
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-y",
		outputPath,
	)
}

// ---------------------------------------------------------------------------
// Composition
// ---------------------------------------------------------------------------

// Composite muxes one video stream and one audio stream. A captions file, when
// supplied, is burned into the video (not attached as a soft track). Output
// duration is the shorter of the two inputs — the explicit "shortest" policy
// avoids trailing silence or frozen frames from length mismatch.
func (f *FFmpeg) Composite(ctx context.Context, videoPath, audioPath, captionsPath, outputPath string) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	args := []string{
		"-i", videoPath,
		"-i", audioPath,
	}

	if captionsPath != "" {
		log.Printf("[FFmpeg] Burning in captions from %s", captionsPath)
		args = append(args,
			"-vf", fmt.Sprintf("ass='%s'", escapeFilterPath(captionsPath)),
			"-c:v", "libx264",
			"-pix_fmt", "yuv420p",
		)
	} else {
		args = append(args, "-c:v", "copy")
	}

	args = append(args,
		"-map", "0:v",
		"-map", "1:a",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-y",
		outputPath,
	)

	return f.run.Run(ctx, BinaryFFmpeg, args...)
}

// ExtractThumbnail captures one downscaled frame at the given offset.
func (f *FFmpeg) ExtractThumbnail(ctx context.Context, videoPath, outputPath string, offsetSec float64) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	return f.run.Run(ctx, BinaryFFmpeg,
		"-ss", fmt.Sprintf("%.2f", offsetSec),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", "scale=540:-2",
		"-y",
		outputPath,
	)
}

// ---------------------------------------------------------------------------
// Local synthesis — used by the dry-run provider stand-ins
// ---------------------------------------------------------------------------

// SynthesizeTone writes a sine-tone MP3 of the given duration. Deterministic
// and free: the dry-run voice step uses it instead of a paid TTS call while
// still exercising the real concatenation and mixing paths.
func (f *FFmpeg) SynthesizeTone(ctx context.Context, outputPath string, durationSec float64, frequencyHz int) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	return f.run.Run(ctx, BinaryFFmpeg,
		"-f", "lavfi",
		"-i", fmt.Sprintf("sine=frequency=%d:sample_rate=44100:duration=%.3f", frequencyHz, durationSec),
		"-af", "volume=0.5",
		"-c:a", "libmp3lame",
		"-b:a", "192k",
		"-y",
		outputPath,
	)
}

// SynthesizeColorFrame writes a single solid-color 1080x1920 PNG. The dry-run
// image step uses it instead of a paid image-generation call.
func (f *FFmpeg) SynthesizeColorFrame(ctx context.Context, outputPath, hexColor string) error {
	if err := ensureParent(outputPath); err != nil {
		return err
	}

	return f.run.Run(ctx, BinaryFFmpeg,
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=0x%s:s=%dx%d", hexColor, OutputWidth, OutputHeight),
		"-frames:v", "1",
		"-y",
		outputPath,
	)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// escapeFilterPath escapes characters that ffmpeg filter syntax treats
// specially in file paths.
func escapeFilterPath(path string) string {
	path = strings.ReplaceAll(path, "\\", "\\\\")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "'\\''")
	return path
}

func ensureParent(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}
