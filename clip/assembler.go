package clip

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"storyreel/config"
	"storyreel/faults"
	"storyreel/mediatool"
	"storyreel/types"
)

// Input is one scene ready for clip processing
type Input struct {
	Scene     int
	RawVideo  string
	Narration string
	Text      string
	Position  types.Position
	OutPath   string
}

// Assembler produces processed clips with one media tool call per scene
type Assembler struct {
	tool mediatool.Tool
	cfg  config.ClipConfig
}

func New(tool mediatool.Tool, cfg config.ClipConfig) *Assembler {
	return &Assembler{tool: tool, cfg: cfg}
}

// ProcessScene trims the raw video to the narration, muxes the narration in,
// burns the subtitle and applies the fades for the clip's position.
func (a *Assembler) ProcessScene(ctx context.Context, in Input) (types.ProcessedClip, error) {
	for _, path := range []string{in.RawVideo, in.Narration} {
		if _, err := os.Stat(path); err != nil {
			return types.ProcessedClip{}, faults.AssetMissing(in.Scene, path)
		}
	}
	if strings.TrimSpace(in.Text) == "" {
		return types.ProcessedClip{}, faults.WithScene(faults.InputValidation("narration text is empty", nil), in.Scene)
	}

	audio, err := a.tool.ProbeDuration(ctx, in.Narration)
	if err != nil {
		return types.ProcessedClip{}, faults.WithScene(err, in.Scene)
	}
	if math.IsNaN(audio) || math.IsInf(audio, 0) || audio < 0 {
		return types.ProcessedClip{}, faults.MediaTool(in.Scene, "narration probe returned an invalid duration", "", nil)
	}

	raw, err := a.tool.ProbeDuration(ctx, in.RawVideo)
	if err != nil {
		return types.ProcessedClip{}, faults.WithScene(err, in.Scene)
	}
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw <= 0 {
		return types.ProcessedClip{}, faults.MediaTool(in.Scene, "video probe returned an invalid duration", "", nil)
	}
	// the clip may not outrun its footage by more than the padding
	if audio > raw+a.cfg.PaddingSec+1e-3 {
		return types.ProcessedClip{}, faults.WithScene(faults.InputValidation(
			fmt.Sprintf("narration %.3fs is longer than video %.3fs plus %.3fs padding", audio, raw, a.cfg.PaddingSec), nil), in.Scene)
	}

	plan := NewPlan(audio, in.Position, a.cfg)

	subtitle := strings.TrimSuffix(in.OutPath, filepath.Ext(in.OutPath)) + ".srt"
	if err := WriteSubtitle(subtitle, in.Text, plan.SubtitleEnd); err != nil {
		return types.ProcessedClip{}, faults.Generation(in.Scene, "subtitle", err)
	}

	args := Args(in.RawVideo, in.Narration, subtitle, in.OutPath, plan, a.cfg)
	if _, err := a.tool.TranscodeAndMux(ctx, args); err != nil {
		return types.ProcessedClip{}, faults.WithScene(err, in.Scene)
	}

	if err := os.Remove(subtitle); err != nil {
		log.Printf("[clip] ⚠️ scene %d: could not remove subtitle %s: %v", in.Scene, subtitle, err)
	}

	log.Printf("[clip] ✅ scene %d (%s): %.2fs -> %s", in.Scene, in.Position, plan.Duration, in.OutPath)
	return types.ProcessedClip{
		Scene:    in.Scene,
		Path:     in.OutPath,
		Duration: plan.Duration,
		Position: in.Position,
	}, nil
}
