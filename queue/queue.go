// Package queue carries job requests from producers to workers over redis.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Task is the payload pushed for one job
type Task struct {
	JobID      string `json:"job_id"`
	InputText  string `json:"input_text"`
	SceneCount int    `json:"scene_count"`
}

// Marshal creates a JSON payload for a task.
func Marshal(task Task) (string, error) {
	b, err := json.Marshal(task)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal parses a JSON payload into a task.
func Unmarshal(payload string) (Task, error) {
	var task Task
	if err := json.Unmarshal([]byte(payload), &task); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if task.InputText == "" {
		return Task{}, errors.New("decode task: input_text is empty")
	}
	return task, nil
}

// Handler runs one task
type Handler func(ctx context.Context, task Task) error

type client interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

type Queue struct {
	rdb  client
	name string

	// PopTimeout bounds each blocking pop so cancellation is noticed
	PopTimeout time.Duration
}

// NewRedisClient initializes a client for addr
func NewRedisClient(addr string) *redis.Client {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	log.Printf("[queue] Redis client initialized (%s)", addr)
	return rdb
}

func New(rdb *redis.Client, name string) *Queue {
	return &Queue{rdb: rdb, name: name, PopTimeout: 5 * time.Second}
}

// DeadLetter is the list failed payloads are moved to
func (q *Queue) DeadLetter() string { return q.name + ":failed" }

// Enqueue pushes task onto the queue
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	payload, err := Marshal(task)
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("enqueue job %s: %w", task.JobID, err)
	}
	return nil
}

// Listen pops tasks one at a time and runs handler until ctx is done.
func (q *Queue) Listen(ctx context.Context, handler Handler) error {
	log.Printf("[queue] Worker listening on %s", q.name)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		result, err := q.rdb.BRPop(ctx, q.PopTimeout, q.name).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[queue] ⚠️ Error popping from %s: %v", q.name, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		// result[0] is the queue name, result[1] is the payload
		q.dispatch(ctx, result[1], handler)
	}
}

func (q *Queue) dispatch(ctx context.Context, payload string, handler Handler) {
	task, err := Unmarshal(payload)
	if err == nil {
		log.Printf("[queue] Received job %s", task.JobID)
		err = handler(ctx, task)
	}
	if err == nil {
		return
	}
	log.Printf("[queue] ⚠️ Task failed: %v", err)
	if perr := q.rdb.LPush(ctx, q.DeadLetter(), payload).Err(); perr != nil {
		log.Printf("[queue] ⚠️ Could not dead-letter payload: %v", perr)
	}
}
