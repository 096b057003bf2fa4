package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bobarin/reelsmith/internal/cache"
	"github.com/bobarin/reelsmith/internal/media"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/qa"
	"github.com/bobarin/reelsmith/internal/services"
	"github.com/bobarin/reelsmith/internal/storage"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Render Execution Engine — owns a run's lifecycle from claim to terminal
// state. Steps execute strictly in order; after every step the run row is
// checkpointed so a crash between steps leaves a resumable, inspectable state.
// ---------------------------------------------------------------------------

// RunStore is the persistence the engine needs. The Postgres implementation
// lives in internal/db; tests substitute an in-memory store.
type RunStore interface {
	// ClaimRun transitions a queued run to running for this worker. Claiming
	// an already-claimed run must fail (single-writer invariant).
	ClaimRun(ctx context.Context, id uuid.UUID) (*models.Run, error)

	// CheckpointRun durably persists the run's mutable fields.
	CheckpointRun(ctx context.Context, run *models.Run) error
}

// Options are the engine's policy knobs, fixed at construction.
type Options struct {
	// DryRun substitutes deterministic local stand-ins for every
	// externally-billed call. Wiring the stand-in providers is main's job;
	// the flag here only affects cache key partitioning and logging.
	DryRun bool

	// ForceFailStep makes the named step fail deterministically regardless of
	// inputs. Used exclusively to exercise the failed transition and its logs.
	ForceFailStep models.StepName

	// StepTimeout bounds each step's external calls. A timeout is a failure,
	// not a silent hang. Zero means no per-step deadline.
	StepTimeout time.Duration

	// MusicDir is the per-niche music library root. Empty renders without a
	// music bed, which is a valid non-error outcome.
	MusicDir string

	// MusicVolume attenuates the music bed relative to the voice track.
	MusicVolume float64
}

type Engine struct {
	store     RunStore
	cache     cache.Store
	ffmpeg    *media.FFmpeg
	gate      *qa.Gate
	artifacts *storage.Store
	tts       services.TTSService
	aligner   services.Aligner
	images    services.ImageGenerator
	opts      Options
}

func New(
	store RunStore,
	cacheStore cache.Store,
	ffmpeg *media.FFmpeg,
	gate *qa.Gate,
	artifacts *storage.Store,
	tts services.TTSService,
	aligner services.Aligner,
	images services.ImageGenerator,
	opts Options,
) *Engine {
	if opts.MusicVolume <= 0 {
		opts.MusicVolume = 0.15
	}
	return &Engine{
		store:     store,
		cache:     cacheStore,
		ffmpeg:    ffmpeg,
		gate:      gate,
		artifacts: artifacts,
		tts:       tts,
		aligner:   aligner,
		images:    images,
		opts:      opts,
	}
}

// checkpointTimeout bounds terminal-state persistence, which must go through
// even when the run's own context is already canceled.
const checkpointTimeout = 15 * time.Second

// Execute claims the run and drives it through all seven steps to a terminal
// state. Every step-level error is absorbed into the run record; the returned
// error mirrors the run's failure for the caller's logs, and the process
// hosting the engine never crashes on one.
func (e *Engine) Execute(ctx context.Context, runID uuid.UUID) error {
	run, err := e.store.ClaimRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to claim run: %w", err)
	}

	log.Printf("[Engine] Run %s claimed (%d scenes, niche=%q, dryRun=%v)",
		run.ID, len(run.Plan.Scenes), run.Plan.Niche, e.opts.DryRun)

	if err := run.Plan.Validate(); err != nil {
		return e.failRun(run, run.CurrentStep, fmt.Errorf("invalid plan: %w", err))
	}

	st, err := e.newPipeline(run)
	if err != nil {
		return e.failRun(run, run.CurrentStep, err)
	}
	defer st.cleanup(e.ffmpeg)

	for i, step := range models.StepOrder {
		// Cancellation is cooperative and observed only at step boundaries; a
		// step already talking to an external process finishes naturally.
		if ctx.Err() != nil {
			return e.cancelRun(run, step)
		}

		run.CurrentStep = step
		run.AppendLog(step, "start", "")
		log.Printf("[Engine] Run %s step %d/%d: %s", run.ID, i+1, len(models.StepOrder), step)

		if err := e.runStep(ctx, step, st); err != nil {
			return e.failRun(run, step, err)
		}

		run.AppendLog(step, "end", "")
		run.Progress = models.ProgressAfter(i)
		if i+1 < len(models.StepOrder) {
			run.CurrentStep = models.StepOrder[i+1]
		} else {
			run.Status = models.RunStatusDone
		}

		// The checkpoint must be durable before the next step starts. It runs
		// on its own context: a checkpoint lost to the very cancellation it
		// would record is not durable.
		if err := e.persist(run); err != nil {
			return fmt.Errorf("failed to checkpoint run %s after %s: %w", run.ID, step, err)
		}
	}

	log.Printf("[Engine] Run %s done (%d artifacts)", run.ID, len(run.Artifacts))
	return nil
}

// runStep dispatches one step, honoring fault injection and the per-step
// timeout. The step runs on a context detached from the run's cancellation:
// a step already talking to an external process completes or fails naturally,
// and the cancellation is observed at the next step boundary. The per-step
// timeout still applies.
func (e *Engine) runStep(ctx context.Context, step models.StepName, st *pipeline) error {
	if e.opts.ForceFailStep == step {
		return fmt.Errorf("step %s: forced failure (fault injection enabled)", step)
	}

	ctx = context.WithoutCancel(ctx)
	if e.opts.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.StepTimeout)
		defer cancel()
	}

	switch step {
	case models.StepVoice:
		return e.stepVoice(ctx, st)
	case models.StepAlign:
		return e.stepAlign(ctx, st)
	case models.StepImages:
		return e.stepImages(ctx, st)
	case models.StepCaptions:
		return e.stepCaptions(ctx, st)
	case models.StepMusic:
		return e.stepMusic(ctx, st)
	case models.StepCompose:
		return e.stepCompose(ctx, st)
	case models.StepFinalize:
		return e.stepFinalize(ctx, st)
	default:
		return fmt.Errorf("unknown step %q", step)
	}
}

// persist durably writes the run's mutable state on a fresh context, so
// neither cancellation nor a dead caller context can lose the write.
func (e *Engine) persist(run *models.Run) error {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()
	return e.store.CheckpointRun(ctx, run)
}

// failRun records the step error and moves the run to its failed terminal
// state.
func (e *Engine) failRun(run *models.Run, step models.StepName, stepErr error) error {
	log.Printf("[Engine] Run %s failed at %s: %v", run.ID, step, stepErr)

	run.AppendLog(step, "error", stepErr.Error())
	msg := stepErr.Error()
	run.Error = &msg
	run.Status = models.RunStatusFailed

	if err := e.persist(run); err != nil {
		log.Printf("[Engine] WARNING: failed to persist failed state for run %s: %v", run.ID, err)
	}

	return stepErr
}

// cancelRun moves the run to canceled at a step boundary.
func (e *Engine) cancelRun(run *models.Run, step models.StepName) error {
	log.Printf("[Engine] Run %s canceled before step %s", run.ID, step)

	run.AppendLog(step, "canceled", "cancellation observed at step boundary")
	run.Status = models.RunStatusCanceled

	if err := e.persist(run); err != nil {
		log.Printf("[Engine] WARNING: failed to persist canceled state for run %s: %v", run.ID, err)
	}

	return nil
}
