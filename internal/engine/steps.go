package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bobarin/reelsmith/internal/cache"
	"github.com/bobarin/reelsmith/internal/captions"
	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/qa"
	"golang.org/x/sync/errgroup"
)

// Cache TTLs. Provider results are pure functions of their inputs, so long
// TTLs are safe; they bound Redis growth, nothing else.
const (
	ttsCacheTTL   = 7 * 24 * time.Hour
	alignCacheTTL = 7 * 24 * time.Hour
	imageCacheTTL = 24 * time.Hour
)

// imageConcurrency bounds parallel image generation within one run.
const imageConcurrency = 3

// pipeline carries the intermediate outputs flowing between steps of one run.
type pipeline struct {
	run    *models.Run
	runDir string

	voicePath    string
	words        []models.Word
	imagePaths   []string
	captionsPath string
	musicPath    string // empty = no music bed, a valid outcome
	videoPath    string

	temps []string
}

func (e *Engine) newPipeline(run *models.Run) (*pipeline, error) {
	dir, err := e.artifacts.RunDir(run.ID)
	if err != nil {
		return nil, err
	}
	return &pipeline{run: run, runDir: dir}, nil
}

// temp reserves a scratch path unique to this run and registers it for
// cleanup after the run terminates.
func (st *pipeline) temp(ffmpeg *media.FFmpeg, name string) string {
	path := ffmpeg.TempPath(fmt.Sprintf("%s_%s", st.run.ID, name))
	st.temps = append(st.temps, path)
	return path
}

func (st *pipeline) cleanup(ffmpeg *media.FFmpeg) {
	ffmpeg.Cleanup(st.temps...)
}

// cacheScope partitions cache keys so dry-run stand-in results never serve a
// real run, and vice versa.
func (e *Engine) cacheScope() string {
	if e.opts.DryRun {
		return "dry"
	}
	return "live"
}

// ---------------------------------------------------------------------------
// Step 1 — voice synthesis: per-scene speech, concatenated losslessly into one
// voice-over track.
// ---------------------------------------------------------------------------

func (e *Engine) stepVoice(ctx context.Context, st *pipeline) error {
	segPaths := make([]string, 0, len(st.run.Plan.Scenes))

	for i, scene := range st.run.Plan.Scenes {
		key := cache.Key("tts", e.cacheScope(), scene.Narration)

		audio, ok := e.cache.Get(ctx, key)
		if ok {
			log.Printf("[Engine] Scene %d: voice cache hit", i)
		} else {
			resp, err := e.tts.GenerateSpeech(ctx, scene.Narration)
			if err != nil {
				return fmt.Errorf("scene %d voice synthesis: %w", i, err)
			}
			audio = resp.AudioData
			if err := e.cache.Put(ctx, key, "tts", audio, ttsCacheTTL); err != nil {
				log.Printf("[Engine] WARNING: voice cache write failed: %v", err)
			}
		}

		segPath := st.temp(e.ffmpeg, fmt.Sprintf("voice_%02d.mp3", i))
		if err := os.WriteFile(segPath, audio, 0644); err != nil {
			return fmt.Errorf("scene %d: failed to write voice segment: %w", i, err)
		}
		segPaths = append(segPaths, segPath)
	}

	voicePath := e.artifacts.ArtifactPath(st.run.ID, "voiceover.mp3")
	if err := e.ffmpeg.Concatenate(ctx, segPaths, voicePath, media.ConcatCopy); err != nil {
		return fmt.Errorf("voice concatenation: %w", err)
	}

	st.voicePath = voicePath
	st.run.SetArtifact(models.ArtifactVoiceOver, voicePath)
	return nil
}

// ---------------------------------------------------------------------------
// Step 2 — alignment: word-level timing for the voice-over, keyed by the audio
// content hash so a re-render of identical narration reuses the result.
// ---------------------------------------------------------------------------

func (e *Engine) stepAlign(ctx context.Context, st *pipeline) error {
	audio, err := os.ReadFile(st.voicePath)
	if err != nil {
		return fmt.Errorf("alignment: failed to read voice-over: %w", err)
	}

	script := st.run.Plan.Script()
	sum := sha256.Sum256(audio)
	key := cache.Key("align", e.cacheScope(), hex.EncodeToString(sum[:]))

	if data, ok := e.cache.Get(ctx, key); ok {
		words, err := decodeWords(data)
		if err == nil {
			log.Printf("[Engine] Alignment cache hit (%d words)", len(words))
			st.words = words
			return nil
		}
		// Unparseable cached timing is a miss, never a failure.
		log.Printf("[Engine] WARNING: cached alignment unusable, realigning: %v", err)
	}

	words, err := e.aligner.Align(ctx, audio, script)
	if err != nil {
		return fmt.Errorf("alignment: %w", err)
	}

	if data, err := json.Marshal(words); err == nil {
		if err := e.cache.Put(ctx, key, "align", data, alignCacheTTL); err != nil {
			log.Printf("[Engine] WARNING: alignment cache write failed: %v", err)
		}
	}

	st.words = words
	return nil
}

// decodeWords parses cached word timing. Some historical writers wrapped the
// array in an object; that shape is repaired rather than rejected.
func decodeWords(data []byte) ([]models.Word, error) {
	var words []models.Word
	if err := json.Unmarshal(data, &words); err == nil && len(words) > 0 {
		return words, nil
	}

	var wrapper struct {
		Words []models.Word `json:"words"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && len(wrapper.Words) > 0 {
		return wrapper.Words, nil
	}

	return nil, fmt.Errorf("unrecognized word timing payload")
}

// ---------------------------------------------------------------------------
// Step 3 — image generation: one image per scene, generated in parallel. Each
// request is independent; the first error cancels the rest.
// ---------------------------------------------------------------------------

func (e *Engine) stepImages(ctx context.Context, st *pipeline) error {
	scenes := st.run.Plan.Scenes
	st.imagePaths = make([]string, len(scenes))
	for i := range scenes {
		st.imagePaths[i] = st.temp(e.ffmpeg, fmt.Sprintf("scene_%02d.png", i))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(imageConcurrency)

	for i, scene := range scenes {
		i, scene := i, scene
		g.Go(func() error {
			key := cache.Key("image", e.cacheScope(), scene.ImagePrompt)

			data, ok := e.cache.Get(gctx, key)
			if ok {
				log.Printf("[Engine] Scene %d: image cache hit", i)
			} else {
				var err error
				data, err = e.images.GenerateImage(gctx, scene.ImagePrompt)
				if err != nil {
					return fmt.Errorf("scene %d image generation: %w", i, err)
				}
				if err := e.cache.Put(gctx, key, "image", data, imageCacheTTL); err != nil {
					log.Printf("[Engine] WARNING: image cache write failed: %v", err)
				}
			}

			if err := os.WriteFile(st.imagePaths[i], data, 0644); err != nil {
				return fmt.Errorf("scene %d: failed to write image: %w", i, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// ---------------------------------------------------------------------------
// Step 4 — caption build: the burned-in subtitle track from alignment timing.
// ---------------------------------------------------------------------------

func (e *Engine) stepCaptions(ctx context.Context, st *pipeline) error {
	path := e.artifacts.ArtifactPath(st.run.ID, "captions.ass")
	if err := captions.WriteASS(st.words, path, 0); err != nil {
		return fmt.Errorf("caption build: %w", err)
	}

	st.captionsPath = path
	st.run.SetArtifact(models.ArtifactCaptions, path)
	return nil
}

// ---------------------------------------------------------------------------
// Step 5 — music build: deterministic pick from the niche's local library.
// "None" is a valid, non-error outcome.
// ---------------------------------------------------------------------------

func (e *Engine) stepMusic(ctx context.Context, st *pipeline) error {
	if e.opts.MusicDir == "" {
		log.Printf("[Engine] Run %s: no music library configured, rendering without music", st.run.ID)
		return nil
	}

	track := pickMusicTrack(e.opts.MusicDir, st.run.Plan.Niche)
	if track == "" {
		log.Printf("[Engine] Run %s: no music track for niche %q, rendering without music", st.run.ID, st.run.Plan.Niche)
		return nil
	}

	data, err := os.ReadFile(track)
	if err != nil {
		return fmt.Errorf("music build: failed to read %s: %w", track, err)
	}

	dest := e.artifacts.ArtifactPath(st.run.ID, "music"+filepath.Ext(track))
	if err := e.artifacts.Write(dest, data); err != nil {
		return fmt.Errorf("music build: %w", err)
	}

	st.musicPath = dest
	st.run.SetArtifact(models.ArtifactMusic, dest)
	return nil
}

// pickMusicTrack returns the first audio file (sorted by name) in the niche's
// subdirectory, falling back to the library root. Empty means no music.
func pickMusicTrack(musicDir, niche string) string {
	for _, dir := range []string{filepath.Join(musicDir, niche), musicDir} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.IsDir() && isAudioFile(entry.Name()) {
				names = append(names, entry.Name())
			}
		}
		if len(names) > 0 {
			sort.Strings(names)
			return filepath.Join(dir, names[0])
		}
	}
	return ""
}

func isAudioFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3", ".m4a", ".wav", ".ogg":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Step 6 — composition: motion clips per scene, concatenated, mixed with the
// music bed, and muxed with burned-in captions.
// ---------------------------------------------------------------------------

func (e *Engine) stepCompose(ctx context.Context, st *pipeline) error {
	durations, err := e.sceneDurations(ctx, st)
	if err != nil {
		return fmt.Errorf("composition: %w", err)
	}

	clipPaths := make([]string, len(st.run.Plan.Scenes))
	for i, scene := range st.run.Plan.Scenes {
		clipPaths[i] = st.temp(e.ffmpeg, fmt.Sprintf("clip_%02d.mp4", i))
		if err := e.ffmpeg.SynthesizeMotion(ctx, st.imagePaths[i], durations[i], scene.Effect, clipPaths[i]); err != nil {
			return fmt.Errorf("scene %d motion synthesis: %w", i, err)
		}
	}

	scenesPath := st.temp(e.ffmpeg, "scenes.mp4")
	if err := e.ffmpeg.Concatenate(ctx, clipPaths, scenesPath, media.ConcatReencode); err != nil {
		return fmt.Errorf("scene concatenation: %w", err)
	}

	mixedPath := st.temp(e.ffmpeg, "mixed.mp3")
	if err := e.ffmpeg.MixAudio(ctx, st.voicePath, st.musicPath, mixedPath, e.opts.MusicVolume); err != nil {
		return fmt.Errorf("audio mix: %w", err)
	}

	videoPath := e.artifacts.ArtifactPath(st.run.ID, "final.mp4")
	if err := e.ffmpeg.Composite(ctx, scenesPath, mixedPath, st.captionsPath, videoPath); err != nil {
		return fmt.Errorf("composite: %w", err)
	}

	st.videoPath = videoPath
	st.run.SetArtifact(models.ArtifactVideo, videoPath)
	return nil
}

// sceneDurations splits the voice-over's actual duration across scenes in
// proportion to their narration length, so motion clips stay in sync with the
// spoken audio regardless of the plan's target estimates.
func (e *Engine) sceneDurations(ctx context.Context, st *pipeline) ([]float64, error) {
	total, err := e.ffmpeg.Duration(ctx, st.voicePath)
	if err != nil {
		return nil, err
	}

	scenes := st.run.Plan.Scenes
	weights := make([]float64, len(scenes))
	var sum float64
	for i, scene := range scenes {
		w := float64(len(strings.Fields(scene.Narration)))
		if w < 1 {
			w = 1
		}
		weights[i] = w
		sum += w
	}

	durations := make([]float64, len(scenes))
	for i := range scenes {
		durations[i] = total * weights[i] / sum
	}
	return durations, nil
}

// ---------------------------------------------------------------------------
// Step 7 — finalization: thumbnail, quality gate, artifact manifest. A failed
// gate fails the run with its dedicated error kind.
// ---------------------------------------------------------------------------

func (e *Engine) stepFinalize(ctx context.Context, st *pipeline) error {
	offset := 1.0
	if dur, err := e.ffmpeg.Duration(ctx, st.videoPath); err == nil && dur < 2.0 {
		offset = dur / 2
	}

	thumbPath := e.artifacts.ArtifactPath(st.run.ID, "thumbnail.jpg")
	if err := e.ffmpeg.ExtractThumbnail(ctx, st.videoPath, thumbPath, offset); err != nil {
		return fmt.Errorf("thumbnail extraction: %w", err)
	}
	st.run.SetArtifact(models.ArtifactThumbnail, thumbPath)

	result := e.gate.Validate(ctx, st.videoPath)
	if summary, err := json.Marshal(result); err == nil {
		st.run.AppendLog(models.StepFinalize, "qa", string(summary))
	}

	if !result.Passed {
		return &qa.GateError{Result: result}
	}
	return nil
}
