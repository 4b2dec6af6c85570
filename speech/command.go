package speech

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"
)

// Command runs a local TTS program. The program must accept
//
//	--text "..." --output path/to/file.mp3
//
// and edge-tts is driven with its own flags.
type Command struct {
	command string
	retries int
	sleep   func(context.Context, time.Duration) error
}

// NewCommand falls back to edge-tts when command is empty
func NewCommand(command string) (*Command, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return nil, fmt.Errorf("no TTS engine found, set speech.command or install edge-tts: pip install edge-tts")
		}
		command = "edge-tts"
		log.Println("[speech] Using edge-tts as TTS engine (fallback)")
	}
	return &Command{command: command, retries: 3, sleep: sleepContext}, nil
}

func (c *Command) Synthesize(ctx context.Context, text string, voice Voice, dest string) error {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		err = c.run(ctx, text, voice, dest)
		if err == nil {
			return nil
		}
		log.Printf("[speech] TTS attempt %d failed: %v", attempt, err)
		if attempt < c.retries {
			if serr := c.sleep(ctx, time.Duration(attempt)*2*time.Second); serr != nil {
				return serr
			}
		}
	}
	return err
}

func (c *Command) run(ctx context.Context, text string, voice Voice, dest string) error {
	var cmd *exec.Cmd
	switch {
	case c.command == "edge-tts":
		v := voice.ID
		if v == "" || !strings.Contains(v, "Neural") {
			v = "en-US-GuyNeural"
		}
		cmd = exec.CommandContext(ctx, "edge-tts", "--voice", v, "--text", text, "--write-media", dest)
	case strings.HasSuffix(c.command, ".py"):
		cmd = exec.CommandContext(ctx, "python3", c.command, "--text", text, "--output", dest)
	default:
		cmd = exec.CommandContext(ctx, c.command, "--text", text, "--output", dest)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", c.command, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
