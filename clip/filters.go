package clip

import (
	"fmt"
	"strconv"
	"strings"

	"storyreel/config"
)

// VideoFilter normalizes geometry, frame rate and pixel format, burns the
// subtitle and applies the planned fades, in that order.
func VideoFilter(p Plan, cfg config.ClipConfig, subtitlePath string) string {
	filters := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", cfg.Width, cfg.Height),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", cfg.Width, cfg.Height),
		"setsar=1",
		fmt.Sprintf("fps=%d", cfg.FPS),
		"format=yuv420p",
		fmt.Sprintf("subtitles=%s:force_style='%s'", escapeSubtitlePath(subtitlePath), forceStyle(cfg.Subtitles)),
	}
	if p.FadeIn != nil {
		filters = append(filters, fmt.Sprintf("fade=t=in:st=%s:d=%s", secs(p.FadeIn.Start), secs(p.FadeIn.Duration)))
	}
	if p.FadeOut != nil {
		filters = append(filters, fmt.Sprintf("fade=t=out:st=%s:d=%s", secs(p.FadeOut.Start), secs(p.FadeOut.Duration)))
	}
	return strings.Join(filters, ",")
}

// AudioFilter mirrors the video fades on the narration track; empty when there are none
func AudioFilter(p Plan) string {
	var filters []string
	if p.FadeIn != nil {
		filters = append(filters, fmt.Sprintf("afade=t=in:st=%s:d=%s", secs(p.FadeIn.Start), secs(p.FadeIn.Duration)))
	}
	if p.FadeOut != nil {
		filters = append(filters, fmt.Sprintf("afade=t=out:st=%s:d=%s", secs(p.FadeOut.Start), secs(p.FadeOut.Duration)))
	}
	return strings.Join(filters, ",")
}

// Args builds the single transcode-and-mux invocation for one clip
func Args(rawVideo, narration, subtitlePath, out string, p Plan, cfg config.ClipConfig) []string {
	args := []string{
		"-y",
		"-i", rawVideo,
		"-i", narration,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", secs(p.Trim),
		"-vf", VideoFilter(p, cfg, subtitlePath),
	}
	if af := AudioFilter(p); af != "" {
		args = append(args, "-af", af)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", cfg.Preset,
		"-crf", strconv.Itoa(cfg.CRF),
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(cfg.FPS),
		"-c:a", "aac",
		"-b:a", cfg.AudioBitrate,
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-ac", "2",
		out,
	)
	return args
}

func secs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
