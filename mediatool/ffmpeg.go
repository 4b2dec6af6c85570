// Package mediatool runs the external media processor (ffmpeg/ffprobe) as
// synchronous processes with captured output.
package mediatool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"storyreel/config"
	"storyreel/faults"
)

// Result is the outcome of one media tool process
type Result struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

// Tool is the media processing capability the assemblers depend on
type Tool interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	TranscodeAndMux(ctx context.Context, args []string) (Result, error)
	Concatenate(ctx context.Context, manifest string, args []string) (Result, error)
}

// FFmpeg implements Tool with the ffmpeg and ffprobe binaries
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// New creates an FFmpeg adapter from config
func New(cfg config.MediaConfig) *FFmpeg {
	f := &FFmpeg{
		FFmpegPath:  cfg.FFmpegPath,
		FFprobePath: cfg.FFprobePath,
		Timeout:     cfg.Timeout,
	}
	if f.FFmpegPath == "" {
		f.FFmpegPath = "ffmpeg"
	}
	if f.FFprobePath == "" {
		f.FFprobePath = "ffprobe"
	}
	return f
}

// CheckDependencies verifies both binaries are on PATH
func (f *FFmpeg) CheckDependencies() error {
	for _, bin := range []string{f.FFmpegPath, f.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing dependency: %s is not installed or not on PATH", bin)
		}
	}
	return nil
}

// ProbeDuration returns the container duration of path in seconds.
// Unparseable, NaN or negative durations are errors.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	res, err := f.run(ctx, f.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, faults.MediaTool(0, "ffprobe "+path, res.Stderr, err)
	}
	return ParseDuration(res.Stdout)
}

// ParseDuration parses ffprobe's duration output
func ParseDuration(out string) (float64, error) {
	raw := strings.TrimSpace(out)
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	dur, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, faults.MediaTool(0, fmt.Sprintf("unparseable duration %q", raw), "", err)
	}
	if math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		return 0, faults.MediaTool(0, fmt.Sprintf("invalid duration %q", raw), "", nil)
	}
	return dur, nil
}

func (f *FFmpeg) TranscodeAndMux(ctx context.Context, args []string) (Result, error) {
	res, err := f.run(ctx, f.FFmpegPath, withOverwrite(args)...)
	if err != nil {
		return res, faults.MediaTool(0, "ffmpeg transcode", res.Stderr, err)
	}
	return res, nil
}

// Concatenate runs the concat demuxer over manifest; args follow the input
func (f *FFmpeg) Concatenate(ctx context.Context, manifest string, args []string) (Result, error) {
	full := append([]string{"-f", "concat", "-safe", "0", "-i", manifest}, args...)
	res, err := f.run(ctx, f.FFmpegPath, withOverwrite(full)...)
	if err != nil {
		return res, faults.MediaTool(0, "ffmpeg concat", res.Stderr, err)
	}
	return res, nil
}

func (f *FFmpeg) run(ctx context.Context, bin string, args ...string) (Result, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Args:   append([]string{bin}, args...),
		Stdout: stdout.String(),
		Stderr: tail(stderr.String(), 4096),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, fmt.Errorf("%s exited with code %d: %w", bin, res.ExitCode, err)
	}
	return res, nil
}

func withOverwrite(args []string) []string {
	for _, a := range args {
		if a == "-y" {
			return args
		}
	}
	return append([]string{"-y"}, args...)
}

// tail keeps the end of long diagnostics, where ffmpeg prints the actual error
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
