// Command enqueue submits an approved plan for rendering: it creates the run
// row in `queued` and pushes the render job. This is the same operation the
// planning layer performs, packaged as a CLI for local and staging use.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bobarin/reelsmith/internal/config"
	"github.com/bobarin/reelsmith/internal/db"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/google/uuid"
)

func main() {
	planPath := flag.String("plan", "", "path to a plan JSON file (required)")
	flag.Parse()

	if *planPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := os.ReadFile(*planPath)
	if err != nil {
		log.Fatalf("Failed to read plan: %v", err)
	}

	var plan models.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		log.Fatalf("Failed to parse plan: %v", err)
	}
	if err := plan.Validate(); err != nil {
		log.Fatalf("Plan rejected: %v", err)
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	run := &models.Run{
		ID:     uuid.New(),
		Plan:   plan,
		Status: models.RunStatusQueued,
	}
	if err := database.CreateRun(ctx, run); err != nil {
		log.Fatalf("Failed to create run: %v", err)
	}

	if err := q.EnqueueRender(ctx, run.ID); err != nil {
		log.Fatalf("Failed to enqueue render job: %v", err)
	}

	fmt.Printf("Run %s queued (%d scenes, niche=%q)\n", run.ID, len(plan.Scenes), plan.Niche)
}
