package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Run lifecycle
// ---------------------------------------------------------------------------

// RunStatus is the canonical run state vocabulary. `done` and `canceled` are the
// canonical spellings; auxiliary tooling that says `completed`/`cancelled` is wrong.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusDone     RunStatus = "done"
	RunStatusFailed   RunStatus = "failed"
	RunStatusCanceled RunStatus = "canceled"
)

// Terminal reports whether no further transition may leave this status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusFailed || s == RunStatusCanceled
}

// StepName identifies one of the seven fixed pipeline stages.
type StepName string

const (
	StepVoice    StepName = "voice"
	StepAlign    StepName = "align"
	StepImages   StepName = "images"
	StepCaptions StepName = "captions"
	StepMusic    StepName = "music"
	StepCompose  StepName = "compose"
	StepFinalize StepName = "finalize"
)

// StepOrder is the fixed execution order. Step N's output is step N+1's input.
var StepOrder = []StepName{
	StepVoice,
	StepAlign,
	StepImages,
	StepCaptions,
	StepMusic,
	StepCompose,
	StepFinalize,
}

// IsStepName reports whether name is one of the seven step identifiers.
func IsStepName(name string) bool {
	for _, s := range StepOrder {
		if string(s) == name {
			return true
		}
	}
	return false
}

// ProgressAfter returns the persisted progress percentage after the step at
// stepIndex (zero-based) has fully completed: round(100 * (stepIndex+1) / 7).
func ProgressAfter(stepIndex int) int {
	return int(math.Round(100 * float64(stepIndex+1) / float64(len(StepOrder))))
}

// ---------------------------------------------------------------------------
// Plan — consumed read-only, produced by the planning/CRUD layer
// ---------------------------------------------------------------------------

// Scene is one narrated segment of the plan.
type Scene struct {
	Index       int     `json:"index"`
	Narration   string  `json:"narration"`
	ImagePrompt string  `json:"image_prompt"`
	DurationSec float64 `json:"duration_sec"`
	Effect      string  `json:"effect"` // motion effect tag; unknown tags render as a static crop
}

// Plan is an approved, ordered set of scenes ready for rendering.
type Plan struct {
	Scenes            []Scene `json:"scenes"`
	Niche             string  `json:"niche"` // content niche, e.g. "facts" — selects the music bed
	TargetDurationSec int     `json:"target_duration_sec"`
}

// Validate checks the plan invariants the engine relies on.
func (p *Plan) Validate() error {
	if len(p.Scenes) == 0 {
		return fmt.Errorf("plan has no scenes")
	}
	for i, sc := range p.Scenes {
		if sc.Index != i {
			return fmt.Errorf("scene %d has index %d, scenes must be ordered by index", i, sc.Index)
		}
		if sc.Narration == "" {
			return fmt.Errorf("scene %d has empty narration", i)
		}
		if sc.ImagePrompt == "" {
			return fmt.Errorf("scene %d has empty image prompt", i)
		}
	}
	return nil
}

// Script joins the scene narrations into the full spoken script, in order.
func (p *Plan) Script() string {
	parts := make([]string, 0, len(p.Scenes))
	for _, sc := range p.Scenes {
		parts = append(parts, sc.Narration)
	}
	return strings.Join(parts, " ")
}

// Word is one aligned word with its precise timing, produced by the alignment
// step and consumed by the caption builder and scene timing.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"` // seconds
	End   float64 `json:"end"`   // seconds
}

// ---------------------------------------------------------------------------
// Run record
// ---------------------------------------------------------------------------

// ArtifactName keys the artifacts map persisted on a run.
type ArtifactName string

const (
	ArtifactVideo     ArtifactName = "video"
	ArtifactThumbnail ArtifactName = "thumbnail"
	ArtifactCaptions  ArtifactName = "captions"
	ArtifactVoiceOver ArtifactName = "voiceOver"
	ArtifactMusic     ArtifactName = "music"
)

// LogEvent is one entry in a run's append-only structured log.
type LogEvent struct {
	Time    time.Time `json:"time"`
	Step    StepName  `json:"step"`
	Event   string    `json:"event"` // "start", "end", "error"
	Message string    `json:"message,omitempty"`
}

// LogList is the serialized form of a run's logs column.
type LogList []LogEvent

func (l LogList) Value() (driver.Value, error) {
	if l == nil {
		l = LogList{}
	}
	return json.Marshal(l)
}

func (l *LogList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, l)
}

// ArtifactMap is the serialized form of a run's artifacts column.
type ArtifactMap map[ArtifactName]string

func (a ArtifactMap) Value() (driver.Value, error) {
	if a == nil {
		a = ArtifactMap{}
	}
	return json.Marshal(a)
}

func (a *ArtifactMap) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}

// Run is one execution of the pipeline against one plan version. It is created
// in `queued` by the submission layer and mutated exclusively by the engine
// until it reaches a terminal status.
type Run struct {
	ID          uuid.UUID   `json:"id"`
	Plan        Plan        `json:"plan"`
	Status      RunStatus   `json:"status"`
	CurrentStep StepName    `json:"current_step,omitempty"` // empty before the engine claims the run
	Progress    int         `json:"progress"`               // 0-100, monotonically non-decreasing
	Logs        LogList     `json:"logs"`
	Artifacts   ArtifactMap `json:"artifacts"`
	Error       *string     `json:"error,omitempty"` // set only when status = failed
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// AppendLog records a step event on the run's append-only log.
func (r *Run) AppendLog(step StepName, event, message string) {
	r.Logs = append(r.Logs, LogEvent{
		Time:    time.Now().UTC(),
		Step:    step,
		Event:   event,
		Message: message,
	})
}

// SetArtifact records an artifact path, allocating the map on first use.
func (r *Run) SetArtifact(name ArtifactName, path string) {
	if r.Artifacts == nil {
		r.Artifacts = ArtifactMap{}
	}
	r.Artifacts[name] = path
}

// ---------------------------------------------------------------------------
// DTOs for the read-only API surface
// ---------------------------------------------------------------------------

// RunResponse is the run as exposed to the CRUD/API layer: status, progress,
// and artifact URLs once steps produce them.
type RunResponse struct {
	ID          uuid.UUID         `json:"id"`
	Status      RunStatus         `json:"status"`
	CurrentStep StepName          `json:"current_step,omitempty"`
	Progress    int               `json:"progress"`
	Artifacts   map[string]string `json:"artifacts,omitempty"` // artifact name -> serving URL
	Error       *string           `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// RunLogsResponse carries the per-step log for debugging and audits.
type RunLogsResponse struct {
	ID   uuid.UUID  `json:"id"`
	Logs []LogEvent `json:"logs"`
}
