package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SceneType is the closed set of tags used to pick motion/camera heuristics
type SceneType string

const (
	SceneEstablishing SceneType = "establishing"
	SceneDialogue     SceneType = "dialogue"
	SceneAction       SceneType = "action"
	SceneReveal       SceneType = "reveal"
	SceneTransition   SceneType = "transition"
	SceneClosing      SceneType = "closing"
)

var sceneTypes = map[SceneType]bool{
	SceneEstablishing: true,
	SceneDialogue:     true,
	SceneAction:       true,
	SceneReveal:       true,
	SceneTransition:   true,
	SceneClosing:      true,
}

// Valid reports whether t is one of the known scene types
func (t SceneType) Valid() bool { return sceneTypes[t] }

// ParseSceneType maps free text onto the closed set, defaulting to establishing
func ParseSceneType(s string) SceneType {
	t := SceneType(s)
	if t.Valid() {
		return t
	}
	return SceneEstablishing
}

// SceneSpec is one narrative unit of a story
type SceneSpec struct {
	Number         int       `json:"number"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Mood           string    `json:"mood"`
	Camera         string    `json:"camera"`
	Narration      string    `json:"narration"`
	TargetDuration float64   `json:"target_duration"`
	Type           SceneType `json:"type"`
	Characters     []string  `json:"characters"`
}

// Character is a recurring figure whose portrait anchors scene images
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StyleContext is the non-critical visual context of a story
type StyleContext struct {
	Era     string `json:"era"`
	Country string `json:"country"`
	Palette string `json:"palette"`
	Look    string `json:"look"`
}

// Storyboard is the full structured plan for one job
type Storyboard struct {
	Title      string       `json:"title"`
	Synopsis   string       `json:"synopsis"`
	Style      StyleContext `json:"style"`
	Characters []Character  `json:"characters"`
	Scenes     []SceneSpec  `json:"scenes"`
}

// Scene returns the scene with the given number
func (s *Storyboard) Scene(number int) (SceneSpec, bool) {
	for _, sc := range s.Scenes {
		if sc.Number == number {
			return sc, true
		}
	}
	return SceneSpec{}, false
}

// ValidateScenes checks that scene numbers are dense, 1-based and unique
func ValidateScenes(scenes []SceneSpec) error {
	if len(scenes) == 0 {
		return fmt.Errorf("storyboard has no scenes")
	}
	for i, sc := range scenes {
		if sc.Number != i+1 {
			return fmt.Errorf("scene at index %d has number %d, want %d", i, sc.Number, i+1)
		}
	}
	return nil
}

type AssetKind string

const (
	AssetCharacterImage AssetKind = "character-image"
	AssetSceneImage     AssetKind = "scene-image"
	AssetRawVideo       AssetKind = "raw-video"
	AssetNarration      AssetKind = "narration-audio"
)

// GeneratedAsset is a file produced by an external service for a scene or character
type GeneratedAsset struct {
	Kind      AssetKind `json:"kind"`
	Scene     int       `json:"scene,omitempty"`
	Character string    `json:"character,omitempty"`
	Path      string    `json:"path"`
	Method    string    `json:"method"`
	Duration  float64   `json:"duration,omitempty"`
}

// ProviderAttempt is one try of the video fallback engine for a scene
type ProviderAttempt struct {
	Attempt  int           `json:"attempt"`
	Strategy string        `json:"strategy"`
	Provider string        `json:"provider"`
	VideoURL string        `json:"video_url,omitempty"`
	Cause    string        `json:"cause,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Succeeded reports whether the attempt produced a video
func (a ProviderAttempt) Succeeded() bool { return a.VideoURL != "" }

type Position string

const (
	PositionFirst  Position = "first"
	PositionMiddle Position = "middle"
	PositionLast   Position = "last"
	PositionOnly   Position = "only"
)

// PositionFor classifies the clip at index i of total clips
func PositionFor(i, total int) Position {
	switch {
	case total <= 1:
		return PositionOnly
	case i == 0:
		return PositionFirst
	case i == total-1:
		return PositionLast
	default:
		return PositionMiddle
	}
}

// HasFadeIn reports whether clips at this position open with a fade
func (p Position) HasFadeIn() bool { return p == PositionFirst || p == PositionOnly }

// HasFadeOut reports whether clips at this position close with a fade
func (p Position) HasFadeOut() bool { return p == PositionLast || p == PositionOnly }

// ProcessedClip is one trimmed, subtitled, faded scene ready for concatenation
type ProcessedClip struct {
	Scene    int      `json:"scene"`
	Path     string   `json:"path"`
	Duration float64  `json:"duration"`
	Position Position `json:"position"`
}

// Timeline is the ordered clip sequence and the assembled output
type Timeline struct {
	Clips  []ProcessedClip `json:"clips"`
	Output string          `json:"output"`
}

// Duration is the sum of the clip durations
func (t Timeline) Duration() float64 {
	var total float64
	for _, c := range t.Clips {
		total += c.Duration
	}
	return total
}

// Validate checks that scene numbers are strictly increasing
func (t Timeline) Validate() error {
	for i := 1; i < len(t.Clips); i++ {
		if t.Clips[i].Scene <= t.Clips[i-1].Scene {
			return fmt.Errorf("timeline out of order at %d: scene %d after scene %d", i, t.Clips[i].Scene, t.Clips[i-1].Scene)
		}
	}
	return nil
}

// PublishMeta is the metadata attached to the durable deliverable
type PublishMeta struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// NewRunID returns a short identifier in the style of the run directories
func NewRunID() string {
	return uuid.NewString()[:8]
}
