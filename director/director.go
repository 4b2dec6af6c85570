// Package director plans a story into scenes and builds the prompts sent to
// the image, video and speech services.
package director

import (
	"context"
	"fmt"
	"log"
	"strings"

	"storyreel/faults"
	"storyreel/textgen"
	"storyreel/types"
)

const storySystemPrompt = `You are a film director turning prose into a short narrated video.

Split the story into the requested number of scenes, in story order.
For every scene give:
- "description": what the frame shows, concrete and visual, no camera words
- "location": where it happens
- "mood": one of neutral | tense | eerie | action | sad | hopeful | calm | reveal | romantic
- "camera": a short camera directive
- "narration": the exact words the narrator speaks (1-3 sentences)
- "type": one of establishing | dialogue | action | reveal | transition | closing
- "characters": names of the recurring characters visible in the frame

List every recurring character once in "characters" with a visual description
that stays the same across scenes.`

const styleSystemPrompt = `You are an art director. Infer the era, country, color palette and overall
visual look that best suits the story. Keep each field short.`

type storyReply struct {
	Title      string           `json:"title" jsonschema_description:"A short, engaging title"`
	Synopsis   string           `json:"synopsis" jsonschema_description:"Two sentence summary"`
	Characters []characterReply `json:"characters"`
	Scenes     []sceneReply     `json:"scenes"`
}

type characterReply struct {
	Name        string `json:"name"`
	Description string `json:"description" jsonschema_description:"Consistent visual description"`
}

type sceneReply struct {
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Mood        string   `json:"mood"`
	Camera      string   `json:"camera"`
	Narration   string   `json:"narration"`
	Type        string   `json:"type"`
	Characters  []string `json:"characters"`
}

type styleReply struct {
	Era     string `json:"era"`
	Country string `json:"country"`
	Palette string `json:"palette"`
	Look    string `json:"look"`
}

// Director owns prompt construction; core components never consult its tables
type Director struct {
	gen    textgen.Generator
	tables *Tables
}

func New(gen textgen.Generator, tables *Tables) *Director {
	return &Director{gen: gen, tables: tables}
}

func (d *Director) Tables() *Tables { return d.tables }

// Plan generates the storyboard. Story generation is critical and its errors
// propagate; the style lookup falls back to the default style.
func (d *Director) Plan(ctx context.Context, input string, sceneCount int) (*types.Storyboard, error) {
	if strings.TrimSpace(input) == "" {
		return nil, faults.InputValidation("input text is empty", nil)
	}
	if sceneCount < 1 {
		return nil, faults.InputValidation(fmt.Sprintf("scene count %d must be positive", sceneCount), nil)
	}

	log.Printf("[director] Planning %d scenes...", sceneCount)

	user := fmt.Sprintf("Split the following story into exactly %d scenes.\n\nSTORY:\n%s", sceneCount, input)
	reply, err := textgen.Structured[storyReply](ctx, d.gen, storySystemPrompt, user, "storyboard")
	if err != nil {
		return nil, faults.Generation(0, "story generation", err)
	}
	if len(reply.Scenes) == 0 {
		return nil, faults.Generation(0, "story generation returned no scenes", nil)
	}
	if len(reply.Scenes) < sceneCount {
		return nil, faults.Generation(0, fmt.Sprintf("story generation returned %d of %d scenes", len(reply.Scenes), sceneCount), nil)
	}
	if len(reply.Scenes) > sceneCount {
		log.Printf("[director] ⚠️ model returned %d scenes, keeping the first %d", len(reply.Scenes), sceneCount)
		reply.Scenes = reply.Scenes[:sceneCount]
	}

	board := &types.Storyboard{
		Title:    strings.TrimSpace(reply.Title),
		Synopsis: strings.TrimSpace(reply.Synopsis),
		Style:    d.style(ctx, input),
	}
	for _, c := range reply.Characters {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		board.Characters = append(board.Characters, types.Character{Name: strings.TrimSpace(c.Name), Description: c.Description})
	}
	for i, s := range reply.Scenes {
		board.Scenes = append(board.Scenes, types.SceneSpec{
			Number:         i + 1,
			Description:    strings.TrimSpace(s.Description),
			Location:       strings.TrimSpace(s.Location),
			Mood:           strings.ToLower(strings.TrimSpace(s.Mood)),
			Camera:         strings.TrimSpace(s.Camera),
			Narration:      strings.TrimSpace(s.Narration),
			TargetDuration: EstimateDuration(s.Narration),
			Type:           types.ParseSceneType(strings.ToLower(strings.TrimSpace(s.Type))),
			Characters:     s.Characters,
		})
	}
	if err := types.ValidateScenes(board.Scenes); err != nil {
		return nil, faults.Generation(0, "storyboard", err)
	}

	log.Printf("[director] ✅ Storyboard ready: %q, %d scenes, %d characters", board.Title, len(board.Scenes), len(board.Characters))
	return board, nil
}

func (d *Director) style(ctx context.Context, input string) types.StyleContext {
	reply, err := textgen.Structured[styleReply](ctx, d.gen, styleSystemPrompt, input, "style")
	if err != nil {
		log.Printf("[director] ⚠️ style lookup failed, using default style: %v", err)
		return d.tables.DefaultStyle
	}
	style := types.StyleContext{Era: reply.Era, Country: reply.Country, Palette: reply.Palette, Look: reply.Look}
	def := d.tables.DefaultStyle
	if style.Era == "" {
		style.Era = def.Era
	}
	if style.Country == "" {
		style.Country = def.Country
	}
	if style.Palette == "" {
		style.Palette = def.Palette
	}
	if style.Look == "" {
		style.Look = def.Look
	}
	return style
}

// EstimateDuration assumes ~130 words per minute of narration
func EstimateDuration(narration string) float64 {
	words := len(strings.Fields(narration))
	return float64(words) / 130.0 * 60.0
}
