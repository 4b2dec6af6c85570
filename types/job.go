package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Phase string

const (
	PhaseCreated         Phase = "created"
	PhaseStoryReady      Phase = "story-ready"
	PhaseCharactersReady Phase = "characters-ready"
	PhaseScenesReady     Phase = "scenes-ready"
	PhaseVideosReady     Phase = "videos-ready"
	PhaseAudioReady      Phase = "audio-ready"
	PhaseAssembled       Phase = "assembled"
	PhaseFinalized       Phase = "finalized"
	PhaseFailed          Phase = "failed"
)

var phaseOrder = map[Phase]int{
	PhaseCreated:         0,
	PhaseStoryReady:      1,
	PhaseCharactersReady: 2,
	PhaseScenesReady:     3,
	PhaseVideosReady:     4,
	PhaseAudioReady:      5,
	PhaseAssembled:       6,
	PhaseFinalized:       7,
}

type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one end-to-end request, mutated only by the orchestrator
type Job struct {
	ID          string    `json:"id"`
	InputText   string    `json:"input_text"`
	SceneCount  int       `json:"scene_count"`
	Phase       Phase     `json:"phase"`
	Status      Status    `json:"status"`
	WorkDir     string    `json:"work_dir"`
	FailedPhase string    `json:"failed_phase,omitempty"`
	Cause       string    `json:"cause,omitempty"`
	Title       string    `json:"title,omitempty"`
	FinalPath   string    `json:"final_path,omitempty"`
	Location    string    `json:"location,omitempty"`
	Duration    float64   `json:"duration,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a job in the created phase
func NewJob(input string, sceneCount int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         uuid.NewString(),
		InputText:  input,
		SceneCount: sceneCount,
		Phase:      PhaseCreated,
		Status:     StatusRunning,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Advance moves the job forward; moving backwards or out of a terminal state is an error
func (j *Job) Advance(next Phase) error {
	if j.Status != StatusRunning {
		return fmt.Errorf("job %s is %s, cannot advance to %s", j.ID, j.Status, next)
	}
	cur, ok := phaseOrder[j.Phase]
	if !ok {
		return fmt.Errorf("job %s is in unknown phase %q", j.ID, j.Phase)
	}
	nxt, ok := phaseOrder[next]
	if !ok || nxt <= cur {
		return fmt.Errorf("job %s cannot move from %s to %s", j.ID, j.Phase, next)
	}
	j.Phase = next
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail marks the job failed, recording the phase that was running and the cause
func (j *Job) Fail(phase, cause string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.FailedPhase = phase
	j.Cause = cause
	j.Phase = PhaseFailed
	j.UpdatedAt = now
	j.CompletedAt = now
}

// Complete marks the job finalized with its durable location
func (j *Job) Complete(location string) error {
	if err := j.Advance(PhaseFinalized); err != nil {
		return err
	}
	j.Status = StatusCompleted
	j.Location = location
	j.CompletedAt = j.UpdatedAt
	return nil
}
