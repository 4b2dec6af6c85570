package videogen

import (
	"strings"

	"storyreel/types"
)

var cameraByScene = map[types.SceneType]Controls{
	types.SceneEstablishing: {Movement: "pan_right", Intensity: 0.4, MotionStrength: 0.35},
	types.SceneDialogue:     {Movement: "static", Intensity: 0.1, MotionStrength: 0.2},
	types.SceneAction:       {Movement: "tracking", Intensity: 0.8, MotionStrength: 0.75},
	types.SceneReveal:       {Movement: "dolly_in", Intensity: 0.6, MotionStrength: 0.45},
	types.SceneTransition:   {Movement: "pan_left", Intensity: 0.5, MotionStrength: 0.4},
	types.SceneClosing:      {Movement: "dolly_out", Intensity: 0.3, MotionStrength: 0.3},
}

// mood scales the base intensity
var moodIntensity = map[string]float64{
	"tense":    1.2,
	"action":   1.3,
	"eerie":    0.8,
	"sad":      0.7,
	"calm":     0.6,
	"hopeful":  0.9,
	"reveal":   1.1,
	"romantic": 0.7,
}

// CameraControlFor returns the camera controls used by rich attempts
func CameraControlFor(sceneType types.SceneType, mood string) Controls {
	c, ok := cameraByScene[sceneType]
	if !ok {
		c = cameraByScene[types.SceneEstablishing]
	}
	if f, ok := moodIntensity[strings.ToLower(strings.TrimSpace(mood))]; ok {
		c.Intensity = clampUnit(c.Intensity * f)
		c.MotionStrength = clampUnit(c.MotionStrength * f)
	}
	return c
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
