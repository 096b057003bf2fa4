package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bobarin/reelsmith/internal/db"
	"github.com/bobarin/reelsmith/internal/models"
	"github.com/bobarin/reelsmith/internal/queue"
	"github.com/bobarin/reelsmith/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler serves the read-only run surface: status, progress, logs, and
// artifact URLs. Runs are created and mutated elsewhere; this layer only
// observes them.
type Handler struct {
	db      *db.DB
	queue   *queue.Queue
	storage *storage.Store
}

func NewHandler(database *db.DB, q *queue.Queue, stor *storage.Store) *Handler {
	return &Handler{
		db:      database,
		queue:   q,
		storage: stor,
	}
}

// GetRun handles GET /v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := h.db.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, h.runResponse(run))
}

// GetRunLogs handles GET /v1/runs/{id}/logs
func (h *Handler) GetRunLogs(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := h.db.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Run not found")
		return
	}

	respondJSON(w, http.StatusOK, models.RunLogsResponse{
		ID:   run.ID,
		Logs: run.Logs,
	})
}

// ListRuns handles GET /v1/runs
// Query params:
//   - status: filter by run status (queued, running, done, failed, canceled)
//   - limit:  max results per page (default 20, max 100)
//   - offset: pagination offset
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	runs, err := h.db.ListRuns(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	responses := make([]*models.RunResponse, 0, len(runs))
	for i := range runs {
		responses = append(responses, h.runResponse(&runs[i]))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":   responses,
		"limit":  limit,
		"offset": offset,
	})
}

// GetQueueStats handles GET /v1/queue — pending render job count, for
// dashboards and capacity checks.
func (h *Handler) GetQueueStats(w http.ResponseWriter, r *http.Request) {
	length, err := h.queue.Length(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read queue")
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{"pending": length})
}

// runResponse converts a run row into its API shape, mapping artifact file
// paths to the URLs the static file server exposes them at.
func (h *Handler) runResponse(run *models.Run) *models.RunResponse {
	var artifacts map[string]string
	if len(run.Artifacts) > 0 {
		artifacts = make(map[string]string, len(run.Artifacts))
		for name, path := range run.Artifacts {
			artifacts[string(name)] = "/v1/artifacts/" + h.storage.Relative(path)
		}
	}

	return &models.RunResponse{
		ID:          run.ID,
		Status:      run.Status,
		CurrentStep: run.CurrentStep,
		Progress:    run.Progress,
		Artifacts:   artifacts,
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
		UpdatedAt:   run.UpdatedAt,
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// Health check
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
