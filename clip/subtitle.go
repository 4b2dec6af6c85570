package clip

import (
	"fmt"
	"math"
	"os"
	"strings"

	"storyreel/config"
)

// FormatSRTTime renders seconds as HH:MM:SS,mmm. NaN and negative values
// become zero; this is the only place in the pipeline that clamps.
func FormatSRTTime(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	if math.IsInf(sec, 1) {
		sec = 99*3600 + 59*60 + 59.999
	}
	ms := int64(math.Round(sec * 1000))
	h := ms / 3_600_000
	ms %= 3_600_000
	m := ms / 60_000
	ms %= 60_000
	s := ms / 1000
	ms %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// WriteSubtitle writes a single-cue SRT spanning [0, end] holding text.
// Blank lines would end the cue, so they are dropped.
func WriteSubtitle(path, text string, end float64) error {
	body := fmt.Sprintf("1\n%s --> %s\n%s\n\n", FormatSRTTime(0), FormatSRTTime(end), cueText(text))
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("write subtitle: %w", err)
	}
	return nil
}

func cueText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// forceStyle is the libass override used for the burned-in narration
func forceStyle(s config.SubtitleStyle) string {
	return fmt.Sprintf(
		"FontName=%s,FontSize=%d,Bold=%d,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,BorderStyle=1,Outline=%.0f,Shadow=0,Alignment=2,MarginV=%d",
		s.Font,
		s.FontSize,
		boolToInt(s.Bold),
		s.Outline,
		s.MarginBottom,
	)
}

func escapeSubtitlePath(path string) string {
	// the subtitles filter needs escaped colons, quotes and commas
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.ReplaceAll(path, ":", "\\:")
	path = strings.ReplaceAll(path, "'", "\\'")
	path = strings.ReplaceAll(path, ",", "\\,")
	return path
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
