// Package videogen turns a still scene image into a short video clip through
// volatile image-to-video providers.
package videogen

import (
	"context"
	"time"
)

// Controls are optional camera/motion parameters understood by richer providers
type Controls struct {
	Movement       string  `json:"movement"`
	Intensity      float64 `json:"intensity"`
	MotionStrength float64 `json:"motion_strength"`
}

// Request is one image-to-video call
type Request struct {
	Scene           int
	ImagePath       string
	Prompt          string
	DurationSeconds int
	Controls        *Controls
}

type Provider interface {
	Name() string
}

// TaskProvider is a submit-then-poll provider
type TaskProvider interface {
	Provider
	Submit(ctx context.Context, req Request) (taskID string, err error)
	Poll(ctx context.Context, taskID string) (PollResult, error)
}

// DirectProvider blocks until the video is ready
type DirectProvider interface {
	Provider
	Run(ctx context.Context, req Request) (videoURL string, err error)
}

// Status is the state of a provider task
type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusTimedOut   Status = "timed_out"
)

// IsTerminal reports whether no further polling can change the outcome
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusTimedOut:
		return true
	default:
		return false
	}
}

// ParseStatus maps provider-specific status strings onto Status.
// Unknown values are treated as still processing.
func ParseStatus(raw string) Status {
	switch raw {
	case "submitted", "queued", "pending", "in_queue", "IN_QUEUE", "PENDING":
		return StatusSubmitted
	case "succeeded", "success", "completed", "complete", "done", "COMPLETED", "SUCCEEDED":
		return StatusSucceeded
	case "failed", "error", "cancelled", "canceled", "FAILED", "CANCELLED":
		return StatusFailed
	case "timed_out", "TIMED_OUT":
		return StatusTimedOut
	default:
		return StatusProcessing
	}
}

// PollResult is one observation of a task
type PollResult struct {
	Status   Status
	VideoURL string
	Reason   string
}

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
