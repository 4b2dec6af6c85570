// Package speech synthesizes scene narration audio.
package speech

import (
	"context"
	"errors"
	"fmt"

	"storyreel/config"
)

// ErrUnavailable means the synthesizer cannot run at all, e.g. missing
// credentials. Callers treat it as a soft failure for the scene.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// Voice selects a voice and its delivery settings
type Voice struct {
	ID              string  `yaml:"id" json:"id"`
	Stability       float64 `yaml:"stability" json:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost" json:"similarity_boost"`
	Style           float64 `yaml:"style" json:"style"`
	Speed           float64 `yaml:"speed" json:"speed"`
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice Voice, dest string) error
}

// New selects the configured engine
func New(cfg config.SpeechConfig) (Synthesizer, error) {
	switch cfg.Engine {
	case "elevenlabs":
		return NewElevenLabs(cfg), nil
	case "command":
		return NewCommand(cfg.Command)
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}
}
