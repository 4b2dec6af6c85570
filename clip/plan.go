// Package clip turns one raw scene video and its narration into a normalized,
// subtitled, faded clip whose length follows the narration.
package clip

import (
	"math"

	"storyreel/config"
	"storyreel/types"
)

// Fade is one fade window in clip-relative seconds
type Fade struct {
	Start    float64
	Duration float64
}

// Plan is everything about a clip that can be decided before touching ffmpeg
type Plan struct {
	Position    types.Position
	Duration    float64 // narration length, the clip's logical duration
	Trim        float64 // output length, narration plus padding
	SubtitleEnd float64
	FadeIn      *Fade
	FadeOut     *Fade
}

// NewPlan computes the clip plan for a narration of audio seconds. The
// fade-out ends with the narration; the padding after it stays dark.
// audio must already be validated as finite and non-negative.
func NewPlan(audio float64, pos types.Position, cfg config.ClipConfig) Plan {
	p := Plan{
		Position:    pos,
		Duration:    audio,
		Trim:        round3(audio + cfg.PaddingSec),
		SubtitleEnd: round3(audio + cfg.LeadOutSec),
	}

	fade := math.Min(cfg.FadeSec, audio)
	if fade <= 0 {
		return p
	}
	if pos.HasFadeIn() {
		p.FadeIn = &Fade{Start: 0, Duration: round3(fade)}
	}
	if pos.HasFadeOut() {
		p.FadeOut = &Fade{Start: round3(math.Max(0, audio-fade)), Duration: round3(fade)}
	}
	return p
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
