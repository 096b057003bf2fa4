package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/reelsmith/internal/models"
	"github.com/google/uuid"
)

// CreateRun inserts a run in `queued`. Called by the submission layer when a
// plan is approved, before the render job is enqueued.
func (db *DB) CreateRun(ctx context.Context, run *models.Run) error {
	planJSON, err := json.Marshal(run.Plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, plan_json, status, current_step, progress, logs_json, artifacts_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return db.QueryRowContext(
		ctx, query,
		run.ID, planJSON, run.Status, string(run.CurrentStep), run.Progress,
		run.Logs, run.Artifacts,
	).Scan(&run.CreatedAt, &run.UpdatedAt)
}

// GetRun loads a run with its plan, logs, and artifacts.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
		SELECT
			id, plan_json, status, current_step, progress,
			logs_json, artifacts_json, error_message, created_at, updated_at
		FROM runs
		WHERE id = $1
	`

	return db.scanRun(db.QueryRowContext(ctx, query, id))
}

// ClaimRun atomically transitions a run from queued to running for this
// worker. The WHERE clause on status enforces the single-writer invariant: a
// second claim of the same run finds zero rows and fails.
func (db *DB) ClaimRun(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	query := `
		UPDATE runs
		SET status = $1, current_step = $2, updated_at = $3
		WHERE id = $4 AND status = $5
		RETURNING
			id, plan_json, status, current_step, progress,
			logs_json, artifacts_json, error_message, created_at, updated_at
	`

	run, err := db.scanRun(db.QueryRowContext(
		ctx, query,
		models.RunStatusRunning, string(models.StepOrder[0]), time.Now(),
		id, models.RunStatusQueued,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to claim run %s: %w", id, err)
	}
	return run, nil
}

// CheckpointRun persists the run's mutable fields. The engine calls this after
// every step so a crash between steps leaves a resumable, inspectable state.
func (db *DB) CheckpointRun(ctx context.Context, run *models.Run) error {
	query := `
		UPDATE runs
		SET status = $1, current_step = $2, progress = $3,
		    logs_json = $4, artifacts_json = $5, error_message = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := db.ExecContext(
		ctx, query,
		run.Status, string(run.CurrentStep), run.Progress,
		run.Logs, run.Artifacts, run.Error, time.Now(),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to checkpoint run %s: %w", run.ID, err)
	}

	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return err
}

// ListRuns returns runs ordered newest first, with an optional status filter.
func (db *DB) ListRuns(ctx context.Context, status string, limit, offset int) ([]models.Run, error) {
	baseSelect := `
		SELECT
			id, plan_json, status, current_step, progress,
			logs_json, artifacts_json, error_message, created_at, updated_at
		FROM runs
	`

	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := db.scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func (db *DB) scanRun(row scanner) (*models.Run, error) {
	var (
		run         models.Run
		planJSON    []byte
		currentStep string
	)

	err := row.Scan(
		&run.ID, &planJSON, &run.Status, &currentStep, &run.Progress,
		&run.Logs, &run.Artifacts, &run.Error, &run.CreatedAt, &run.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.CurrentStep = models.StepName(currentStep)
	if err := json.Unmarshal(planJSON, &run.Plan); err != nil {
		return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &run, nil
}
