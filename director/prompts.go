package director

import (
	"fmt"
	"strings"

	"storyreel/speech"
	"storyreel/types"
)

func styleSuffix(style types.StyleContext) string {
	var parts []string
	for _, p := range []string{style.Era, style.Country, style.Palette, style.Look} {
		if p = strings.TrimSpace(p); p != "" && p != "unspecified" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// CharacterPrompt is a neutral portrait used as the reference for every scene
func (d *Director) CharacterPrompt(c types.Character, style types.StyleContext) string {
	p := fmt.Sprintf("Portrait of %s, %s, neutral background, front facing, even lighting, %s, no text, no watermark",
		c.Name, strings.TrimSpace(c.Description), styleSuffix(style))
	return d.tables.Sanitize(p)
}

// ScenePrompt describes the still frame for a scene
func (d *Director) ScenePrompt(s types.SceneSpec, board *types.Storyboard) string {
	mood := d.tables.Mood(s.Mood)

	var sb strings.Builder
	sb.WriteString(s.Description)
	if s.Location != "" {
		sb.WriteString(", at " + s.Location)
	}
	for _, name := range s.Characters {
		for _, c := range board.Characters {
			if strings.EqualFold(c.Name, name) {
				sb.WriteString(fmt.Sprintf(", %s (%s)", c.Name, c.Description))
			}
		}
	}
	sb.WriteString(", " + mood.Visual)
	if suffix := styleSuffix(board.Style); suffix != "" {
		sb.WriteString(", " + suffix)
	}
	sb.WriteString(", 16:9, no text, no watermark")
	return d.tables.Sanitize(sb.String())
}

// MotionPrompt describes how the still should move; the first clause is the
// camera move so a degraded attempt keeps it.
func (d *Director) MotionPrompt(s types.SceneSpec) string {
	camera := strings.TrimSpace(s.Camera)
	if camera == "" {
		camera = d.tables.Mood(s.Mood).Camera
	}
	camera = strings.NewReplacer(",", " ", ".", " ", ";", " ").Replace(camera)
	p := fmt.Sprintf("%s, %s, subtle natural motion, consistent characters", strings.Join(strings.Fields(camera), " "), s.Description)
	return d.tables.Sanitize(p)
}

// VoiceFor returns the voice settings for a mood on top of the configured voice id
func (d *Director) VoiceFor(mood, voiceID string) speech.Voice {
	v := d.tables.Mood(mood).Voice
	v.ID = voiceID
	return v
}

// CharacterRefs returns the image paths of the characters in a scene
func CharacterRefs(s types.SceneSpec, portraits map[string]string) []string {
	var refs []string
	seen := map[string]bool{}
	for _, name := range s.Characters {
		key := strings.ToLower(strings.TrimSpace(name))
		if path, ok := portraits[key]; ok && !seen[key] {
			refs = append(refs, path)
			seen[key] = true
		}
	}
	return refs
}
