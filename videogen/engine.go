package videogen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"storyreel/config"
	"storyreel/faults"
	"storyreel/types"
)

// Strategy is how much we ask of the provider on one attempt
type Strategy string

const (
	StrategyRich     Strategy = "rich"
	StrategyStandard Strategy = "standard"
	StrategyDegraded Strategy = "degraded"
)

var strategyOrder = []Strategy{StrategyRich, StrategyStandard, StrategyDegraded}

// Resolution is the outcome of a successful ResolveVideo
type Resolution struct {
	URL      string
	Provider string
	Strategy Strategy
	Attempts []types.ProviderAttempt
}

// Engine resolves one video per scene by walking strategies from rich to
// degraded, trying every provider in order within each strategy.
type Engine struct {
	providers   []Provider
	poller      *Poller
	attempts    int
	baseBackoff time.Duration
	clipSeconds int
	sleep       SleepFunc
	now         func() time.Time
}

func NewEngine(providers []Provider, cfg config.VideoConfig) *Engine {
	attempts := cfg.StrategyAttempts
	if attempts < 1 || attempts > len(strategyOrder) {
		attempts = len(strategyOrder)
	}
	return &Engine{
		providers:   providers,
		poller:      NewPoller(cfg),
		attempts:    attempts,
		baseBackoff: cfg.BaseBackoff,
		clipSeconds: cfg.ClipSeconds,
		sleep:       sleepContext,
		now:         time.Now,
	}
}

// WithSleep replaces the wait function used for backoff and polling
func (e *Engine) WithSleep(fn SleepFunc) *Engine {
	e.sleep = fn
	e.poller.Sleep = fn
	return e
}

// ResolveVideo returns one playable video URL for the request or a
// provider_exhausted error carrying the last underlying cause.
func (e *Engine) ResolveVideo(ctx context.Context, req Request, sceneType types.SceneType, mood string) (Resolution, error) {
	if len(e.providers) == 0 {
		return Resolution{}, faults.Generation(req.Scene, "no video providers configured", nil)
	}
	if req.DurationSeconds <= 0 {
		req.DurationSeconds = e.clipSeconds
	}

	var (
		attempts []types.ProviderAttempt
		lastErr  error
	)

	for i := 1; i <= e.attempts; i++ {
		strategy := strategyOrder[i-1]
		sreq := requestFor(strategy, req, sceneType, mood)

		for _, p := range e.providers {
			start := e.now()
			videoURL, err := e.call(ctx, p, sreq)
			attempt := types.ProviderAttempt{
				Attempt:  i,
				Strategy: string(strategy),
				Provider: p.Name(),
				Elapsed:  e.now().Sub(start),
			}
			if err == nil {
				err = validateVideoURL(videoURL)
			}
			if err != nil {
				attempt.Cause = err.Error()
				attempts = append(attempts, attempt)
				lastErr = err
				log.Printf("[videogen] ⚠️ scene %d attempt %d/%d (%s) via %s failed after %s: %v",
					req.Scene, i, e.attempts, strategy, p.Name(), attempt.Elapsed.Round(time.Millisecond), err)
				if ctx.Err() != nil {
					return Resolution{Attempts: attempts}, ctx.Err()
				}
				continue
			}

			attempt.VideoURL = videoURL
			attempts = append(attempts, attempt)
			log.Printf("[videogen] ✅ scene %d attempt %d/%d (%s) via %s in %s",
				req.Scene, i, e.attempts, strategy, p.Name(), attempt.Elapsed.Round(time.Millisecond))
			return Resolution{URL: videoURL, Provider: p.Name(), Strategy: strategy, Attempts: attempts}, nil
		}

		if i < e.attempts {
			backoff := e.baseBackoff * time.Duration(1<<(i-1))
			log.Printf("[videogen] scene %d: all providers failed on %s attempt, backing off %s", req.Scene, strategy, backoff)
			if err := e.sleep(ctx, backoff); err != nil {
				return Resolution{Attempts: attempts}, err
			}
		}
	}

	return Resolution{Attempts: attempts}, faults.ProviderExhausted(req.Scene, e.attempts, lastErr)
}

func (e *Engine) call(ctx context.Context, p Provider, req Request) (string, error) {
	switch pv := p.(type) {
	case TaskProvider:
		taskID, err := pv.Submit(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s submit: %w", pv.Name(), err)
		}
		if taskID == "" {
			return "", fmt.Errorf("%s submit returned no task id", pv.Name())
		}
		return e.poller.Wait(ctx, pv, taskID)
	case DirectProvider:
		videoURL, err := pv.Run(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s run: %w", pv.Name(), err)
		}
		return videoURL, nil
	default:
		return "", fmt.Errorf("provider %s supports neither submit/poll nor run", p.Name())
	}
}

func requestFor(strategy Strategy, req Request, sceneType types.SceneType, mood string) Request {
	out := req
	out.Controls = nil
	switch strategy {
	case StrategyRich:
		c := CameraControlFor(sceneType, mood)
		out.Controls = &c
	case StrategyDegraded:
		out.Prompt = FirstClause(req.Prompt)
	}
	return out
}

// FirstClause keeps the motion prompt up to its first clause separator
func FirstClause(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if i := strings.IndexAny(prompt, ",.;"); i > 0 {
		return strings.TrimSpace(prompt[:i])
	}
	return prompt
}

var errMalformedURL = errors.New("malformed video url")

func validateVideoURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", errMalformedURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", errMalformedURL, raw)
	}
	return nil
}
