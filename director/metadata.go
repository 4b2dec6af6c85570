package director

import (
	"context"
	"fmt"
	"log"
	"strings"

	"storyreel/textgen"
	"storyreel/types"
)

const metadataSystemPrompt = `You write publishing metadata for narrated story videos.
Return a title (max 70 chars, honest but compelling), a description of about
150 words that summarizes the story without spoiling the ending, and up to 20 tags.`

type metadataReply struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

const titleMaxChars = 70

// Metadata writes publishing metadata. It is non-critical: on failure it
// falls back to the storyboard's own title and synopsis.
func (d *Director) Metadata(ctx context.Context, board *types.Storyboard) types.PublishMeta {
	fallback := types.PublishMeta{Title: clampTitle(board.Title), Description: board.Synopsis}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("WORKING TITLE: %s\n\nSYNOPSIS: %s\n\nSCENES:\n", board.Title, board.Synopsis))
	for _, s := range preview(board.Scenes) {
		sb.WriteString(fmt.Sprintf("- [%s/%s] %s\n", s.Type, s.Mood, truncate(s.Narration, 100)))
	}

	reply, err := textgen.Structured[metadataReply](ctx, d.gen, metadataSystemPrompt, sb.String(), "metadata")
	if err != nil || strings.TrimSpace(reply.Title) == "" {
		log.Printf("[director] ⚠️ metadata generation failed, using storyboard title: %v", err)
		return fallback
	}

	meta := types.PublishMeta{
		Title:       clampTitle(reply.Title),
		Description: reply.Description,
		Tags:        reply.Tags[:min(20, len(reply.Tags))],
	}
	log.Printf("[director] ✅ Title: %q, %d tags", meta.Title, len(meta.Tags))
	return meta
}

// preview keeps the first 3 and last 2 scenes of long storyboards
func preview(scenes []types.SceneSpec) []types.SceneSpec {
	if len(scenes) <= 5 {
		return scenes
	}
	out := make([]types.SceneSpec, 0, 5)
	out = append(out, scenes[:3]...)
	return append(out, scenes[len(scenes)-2:]...)
}

func clampTitle(title string) string {
	title = strings.TrimSpace(title)
	if len(title) > titleMaxChars {
		return title[:titleMaxChars-3] + "..."
	}
	return title
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
