// Package timeline orders processed clips and concatenates them into the
// final video in a single stream-copy pass.
package timeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"storyreel/faults"
	"storyreel/mediatool"
	"storyreel/types"
)

type Assembler struct {
	tool mediatool.Tool
}

func New(tool mediatool.Tool) *Assembler {
	return &Assembler{tool: tool}
}

// Assemble sorts clips by scene number and concatenates them into outPath.
// Clip files are never modified.
func (a *Assembler) Assemble(ctx context.Context, clips []types.ProcessedClip, outPath string) (types.Timeline, error) {
	if len(clips) == 0 {
		return types.Timeline{}, faults.InputValidation("timeline has no clips", nil)
	}

	ordered := make([]types.ProcessedClip, len(clips))
	copy(ordered, clips)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Scene < ordered[j].Scene })

	tl := types.Timeline{Clips: ordered, Output: outPath}
	if err := tl.Validate(); err != nil {
		return types.Timeline{}, faults.InputValidation("duplicate scene in timeline", err)
	}

	manifest := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + "_concat.txt"
	if err := WriteManifest(manifest, ordered); err != nil {
		return types.Timeline{}, err
	}

	log.Printf("[timeline] Concatenating %d clips (%.1fs) -> %s", len(ordered), tl.Duration(), outPath)
	if _, err := a.tool.Concatenate(ctx, manifest, []string{"-c", "copy", "-movflags", "+faststart", outPath}); err != nil {
		return types.Timeline{}, fmt.Errorf("concatenate timeline: %w", err)
	}

	if err := os.Remove(manifest); err != nil {
		log.Printf("[timeline] ⚠️ could not remove manifest %s: %v", manifest, err)
	}

	log.Printf("[timeline] ✅ Final video ready: %s", outPath)
	return tl, nil
}

// WriteManifest writes a concat demuxer list in clip order
func WriteManifest(path string, clips []types.ProcessedClip) error {
	lines := make([]string, 0, len(clips))
	for _, c := range clips {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			abs = c.Path
		}
		lines = append(lines, fmt.Sprintf("file '%s'", quoteManifestPath(abs)))
	}
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("write concat manifest: %w", err)
	}
	return nil
}

// quoteManifestPath escapes single quotes for the concat demuxer's quoting rules
func quoteManifestPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}
