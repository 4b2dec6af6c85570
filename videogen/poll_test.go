package videogen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type pollStep struct {
	res PollResult
	err error
}

type taskFake struct {
	name    string
	steps   []pollStep
	polls   int
	submits int
}

func (f *taskFake) Name() string { return f.name }

func (f *taskFake) Submit(context.Context, Request) (string, error) {
	f.submits++
	return "task-1", nil
}

func (f *taskFake) Poll(context.Context, string) (PollResult, error) {
	i := f.polls
	f.polls++
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	return f.steps[i].res, f.steps[i].err
}

func testPoller(rec *sleepRecorder) *Poller {
	p := NewPoller(testVideoConfig())
	p.Sleep = rec.sleep
	return p
}

func TestPollerReturnsProviderFailureReason(t *testing.T) {
	task := &taskFake{name: "tasks", steps: []pollStep{
		{res: PollResult{Status: StatusSubmitted}},
		{res: PollResult{Status: StatusFailed, Reason: "nsfw filter"}},
	}}
	_, err := testPoller(&sleepRecorder{}).Wait(context.Background(), task, "task-1")
	if err == nil || !strings.Contains(err.Error(), "nsfw filter") {
		t.Fatalf("expected failure reason, got %v", err)
	}
	if task.polls != 2 {
		t.Fatalf("failed status must stop polling, polled %d times", task.polls)
	}
}

func TestPollerTimesOutAfterMaxPolls(t *testing.T) {
	task := &taskFake{name: "tasks", steps: []pollStep{{res: PollResult{Status: StatusProcessing}}}}
	rec := &sleepRecorder{}
	_, err := testPoller(rec).Wait(context.Background(), task, "task-1")
	if err == nil || !strings.Contains(err.Error(), string(StatusTimedOut)) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if task.polls != 5 {
		t.Fatalf("expected 5 polls, got %d", task.polls)
	}
	for _, w := range rec.waits {
		if w != 10*time.Millisecond {
			t.Fatalf("expected fixed poll interval, got %v", rec.waits)
		}
	}
}

func TestPollerRetriesPollErrorsWithCappedBackoff(t *testing.T) {
	task := &taskFake{name: "tasks", steps: []pollStep{
		{err: errors.New("connection reset")},
		{err: errors.New("connection reset")},
		{res: PollResult{Status: StatusSucceeded, VideoURL: "https://cdn.example.com/a.mp4"}},
	}}
	rec := &sleepRecorder{}
	url, err := testPoller(rec).Wait(context.Background(), task, "task-1")
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if url != "https://cdn.example.com/a.mp4" {
		t.Fatalf("unexpected url %q", url)
	}
	want := []time.Duration{10 * time.Millisecond, time.Second, 10 * time.Millisecond, 2 * time.Second, 10 * time.Millisecond}
	if len(rec.waits) != len(want) {
		t.Fatalf("unexpected waits %v", rec.waits)
	}
	for i := range want {
		if rec.waits[i] != want[i] {
			t.Fatalf("wait %d = %v, want %v", i, rec.waits[i], want[i])
		}
	}
}

func TestPollerGivesUpAfterConsecutivePollErrors(t *testing.T) {
	task := &taskFake{name: "tasks", steps: []pollStep{{err: errors.New("HTTP 502")}}}
	_, err := testPoller(&sleepRecorder{}).Wait(context.Background(), task, "task-1")
	if err == nil || !strings.Contains(err.Error(), "HTTP 502") {
		t.Fatalf("expected poll error, got %v", err)
	}
	if task.polls != 3 {
		t.Fatalf("expected 1 poll + 2 retries, got %d", task.polls)
	}
}

func TestPollerRejectsSuccessWithoutURL(t *testing.T) {
	task := &taskFake{name: "tasks", steps: []pollStep{{res: PollResult{Status: StatusSucceeded}}}}
	if _, err := testPoller(&sleepRecorder{}).Wait(context.Background(), task, "task-1"); err == nil {
		t.Fatalf("expected malformed payload error")
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"queued":     StatusSubmitted,
		"running":    StatusProcessing,
		"COMPLETED":  StatusSucceeded,
		"cancelled":  StatusFailed,
		"TIMED_OUT":  StatusTimedOut,
		"weird-word": StatusProcessing,
	}
	for in, want := range cases {
		if got := ParseStatus(in); got != want {
			t.Fatalf("ParseStatus(%q) = %s, want %s", in, got, want)
		}
	}
	if StatusProcessing.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Fatalf("unexpected terminal classification")
	}
}
