package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// fakeRedis serves BRPop from a slice and records LPush calls
type fakeRedis struct {
	pending []string
	pushed  map[string][]string
	cancel  context.CancelFunc
}

func (f *fakeRedis) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.pushed == nil {
		f.pushed = map[string][]string{}
	}
	for _, v := range values {
		f.pushed[key] = append(f.pushed[key], v.(string))
	}
	return redis.NewIntResult(int64(len(f.pushed[key])), nil)
}

func (f *fakeRedis) BRPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	if len(f.pending) == 0 {
		f.cancel()
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	p := f.pending[0]
	f.pending = f.pending[1:]
	return redis.NewStringSliceResult([]string{keys[0], p}, nil)
}

func TestMarshalRoundTrip(t *testing.T) {
	payload, err := Marshal(Task{JobID: "j1", InputText: "a story", SceneCount: 4})
	if err != nil {
		t.Fatal(err)
	}
	task, err := Unmarshal(payload)
	if err != nil || task.JobID != "j1" || task.SceneCount != 4 {
		t.Fatalf("unexpected task %+v, %v", task, err)
	}
	if _, err := Unmarshal(`{"job_id":"j2"}`); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestEnqueuePushesOntoQueue(t *testing.T) {
	f := &fakeRedis{}
	q := &Queue{rdb: f, name: "q_story_jobs"}
	if err := q.Enqueue(context.Background(), Task{JobID: "j1", InputText: "x"}); err != nil {
		t.Fatal(err)
	}
	if len(f.pushed["q_story_jobs"]) != 1 {
		t.Fatalf("expected one push, got %v", f.pushed)
	}
}

func TestListenDispatchesAndDeadLetters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	good, _ := Marshal(Task{JobID: "ok", InputText: "x", SceneCount: 1})
	bad, _ := Marshal(Task{JobID: "boom", InputText: "x", SceneCount: 1})
	f := &fakeRedis{pending: []string{good, "not json", bad}, cancel: cancel}
	q := &Queue{rdb: f, name: "q", PopTimeout: time.Millisecond}

	var handled []string
	err := q.Listen(ctx, func(_ context.Context, task Task) error {
		handled = append(handled, task.JobID)
		if task.JobID == "boom" {
			return errors.New("pipeline failed")
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if len(handled) != 2 || handled[0] != "ok" || handled[1] != "boom" {
		t.Fatalf("unexpected handled order %v", handled)
	}
	dead := f.pushed[q.DeadLetter()]
	if len(dead) != 2 || dead[0] != "not json" || dead[1] != bad {
		t.Fatalf("unexpected dead letters %v", dead)
	}
}
