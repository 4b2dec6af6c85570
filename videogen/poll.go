package videogen

import (
	"context"
	"fmt"
	"log"
	"time"

	"storyreel/config"
)

// Poller drives a submitted task through
// submitted -> processing -> succeeded | failed | timed_out.
type Poller struct {
	Interval        time.Duration
	MaxPolls        int
	ErrorRetries    int
	ErrorBackoff    time.Duration
	ErrorBackoffMax time.Duration
	Sleep           SleepFunc
}

func NewPoller(cfg config.VideoConfig) *Poller {
	return &Poller{
		Interval:        cfg.PollInterval,
		MaxPolls:        cfg.MaxPolls,
		ErrorRetries:    cfg.PollErrorRetries,
		ErrorBackoff:    cfg.PollErrorBackoff,
		ErrorBackoffMax: cfg.PollErrorBackoffMax,
		Sleep:           sleepContext,
	}
}

// Wait polls taskID until it reaches a terminal state and returns the video URL
func (p *Poller) Wait(ctx context.Context, tp TaskProvider, taskID string) (string, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	state := StatusSubmitted
	consecutiveErrors := 0

	for poll := 1; poll <= p.MaxPolls; poll++ {
		if err := sleep(ctx, p.Interval); err != nil {
			return "", err
		}

		res, err := tp.Poll(ctx, taskID)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors > p.ErrorRetries {
				return "", fmt.Errorf("%s task %s: poll failed %d times in a row: %w", tp.Name(), taskID, consecutiveErrors, err)
			}
			backoff := p.errorBackoff(consecutiveErrors)
			log.Printf("[videogen] ⚠️ %s poll error for task %s (%d/%d), retrying in %s: %v",
				tp.Name(), taskID, consecutiveErrors, p.ErrorRetries, backoff, err)
			if err := sleep(ctx, backoff); err != nil {
				return "", err
			}
			continue
		}
		consecutiveErrors = 0

		if res.Status != state {
			log.Printf("[videogen] %s task %s: %s -> %s", tp.Name(), taskID, state, res.Status)
			state = res.Status
		}

		switch res.Status {
		case StatusSucceeded:
			if res.VideoURL == "" {
				return "", fmt.Errorf("%s task %s succeeded without a video url", tp.Name(), taskID)
			}
			return res.VideoURL, nil
		case StatusFailed:
			reason := res.Reason
			if reason == "" {
				reason = "no reason given"
			}
			return "", fmt.Errorf("%s task %s failed: %s", tp.Name(), taskID, reason)
		case StatusTimedOut:
			return "", fmt.Errorf("%s task %s timed out on the provider side", tp.Name(), taskID)
		}
	}

	return "", fmt.Errorf("%s task %s: %s after %d polls", tp.Name(), taskID, StatusTimedOut, p.MaxPolls)
}

// errorBackoff grows linearly with consecutive errors and is capped
func (p *Poller) errorBackoff(n int) time.Duration {
	d := time.Duration(n) * p.ErrorBackoff
	if p.ErrorBackoffMax > 0 && d > p.ErrorBackoffMax {
		return p.ErrorBackoffMax
	}
	return d
}
