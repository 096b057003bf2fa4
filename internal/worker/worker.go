package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/bobarin/reelsmith/internal/engine"
	"github.com/bobarin/reelsmith/internal/queue"
	"golang.org/x/sync/semaphore"
)

// dequeueTimeout bounds each BLPOP so shutdown is observed promptly.
const dequeueTimeout = 5 * time.Second

// Worker consumes render jobs from the queue and drives the engine. Admission
// is bounded by a weighted semaphore: at most maxConcurrent runs execute at
// once, everything else waits in Redis.
type Worker struct {
	queue  *queue.Queue
	engine *engine.Engine
	sem    *semaphore.Weighted

	wg sync.WaitGroup
}

func New(q *queue.Queue, eng *engine.Engine, maxConcurrent int) *Worker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Worker{
		queue:  q,
		engine: eng,
		sem:    semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Start consumes jobs until ctx is canceled, then waits for in-flight runs to
// reach their next step boundary and checkpoint.
func (w *Worker) Start(ctx context.Context) {
	log.Printf("[Worker] Started, consuming %s", queue.QueueRenderRun)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Worker] Shutting down, waiting for in-flight runs...")
			w.wg.Wait()
			log.Println("[Worker] All runs checkpointed")
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("[Worker] Dequeue error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		// Block here rather than in a goroutine: jobs beyond the admission
		// ceiling stay in Redis, visible in queue length.
		if err := w.sem.Acquire(ctx, 1); err != nil {
			// Shutdown while waiting for a slot. The claim has not happened
			// yet, so the run is still queued; requeue the job for the next
			// process.
			if requeueErr := w.queue.EnqueueRender(context.Background(), job.RunID); requeueErr != nil {
				log.Printf("[Worker] WARNING: failed to requeue run %s: %v", job.RunID, requeueErr)
			}
			continue
		}

		w.wg.Add(1)
		go func(job *queue.Job) {
			defer w.wg.Done()
			defer w.sem.Release(1)

			log.Printf("[Worker] Job %s: executing run %s", job.ID, job.RunID)
			if err := w.engine.Execute(ctx, job.RunID); err != nil {
				// The engine already persisted the terminal state; this log is
				// for the operator following the worker's output.
				log.Printf("[Worker] Run %s did not complete: %v", job.RunID, err)
			}
		}(job)
	}
}
