package clip

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"storyreel/config"
	"storyreel/faults"
	"storyreel/mediatool"
	"storyreel/types"
)

type fakeTool struct {
	durations    map[string]float64
	probeErr     error
	transcodeErr error
	calls        [][]string
	subtitles    []string
}

func (f *fakeTool) ProbeDuration(_ context.Context, path string) (float64, error) {
	if f.probeErr != nil {
		return 0, f.probeErr
	}
	return f.durations[path], nil
}

func (f *fakeTool) TranscodeAndMux(_ context.Context, args []string) (mediatool.Result, error) {
	f.calls = append(f.calls, args)
	for i, a := range args {
		if a == "-vf" {
			vf := args[i+1]
			start := strings.Index(vf, "subtitles=") + len("subtitles=")
			end := strings.Index(vf, ":force_style")
			path := strings.ReplaceAll(vf[start:end], "\\:", ":")
			data, _ := os.ReadFile(path)
			f.subtitles = append(f.subtitles, string(data))
		}
	}
	if f.transcodeErr != nil {
		return mediatool.Result{ExitCode: 1, Stderr: "boom"}, f.transcodeErr
	}
	return mediatool.Result{}, os.WriteFile(args[len(args)-1], []byte("clip"), 0o644)
}

func (f *fakeTool) Concatenate(context.Context, string, []string) (mediatool.Result, error) {
	return mediatool.Result{}, errors.New("not used")
}

func sceneInput(t *testing.T, dir string, scene int, pos types.Position) Input {
	t.Helper()
	raw := filepath.Join(dir, "raw.mp4")
	audio := filepath.Join(dir, "narration.mp3")
	for _, p := range []string{raw, audio} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return Input{
		Scene:     scene,
		RawVideo:  raw,
		Narration: audio,
		Text:      "The lighthouse keeper never came back.",
		Position:  pos,
		OutPath:   filepath.Join(dir, "scene_001.mp4"),
	}
}

func TestPlanFadesForThreeClips(t *testing.T) {
	cfg := config.Default().Clip
	first := NewPlan(4.2, types.PositionFor(0, 3), cfg)
	middle := NewPlan(6.8, types.PositionFor(1, 3), cfg)
	last := NewPlan(3.0, types.PositionFor(2, 3), cfg)

	if first.FadeIn == nil || first.FadeOut != nil {
		t.Fatalf("first clip should only fade in: %+v", first)
	}
	if middle.FadeIn != nil || middle.FadeOut != nil {
		t.Fatalf("middle clip should not fade: %+v", middle)
	}
	if last.FadeIn != nil || last.FadeOut == nil {
		t.Fatalf("last clip should only fade out: %+v", last)
	}
	if last.FadeOut.Start != 2.5 || last.FadeOut.Duration != 0.5 {
		t.Fatalf("fade out should end with the narration: %+v", last.FadeOut)
	}
}

func TestPlanFadesForSingleClip(t *testing.T) {
	p := NewPlan(5, types.PositionFor(0, 1), config.Default().Clip)
	if p.Position != types.PositionOnly || p.FadeIn == nil || p.FadeOut == nil {
		t.Fatalf("only clip should fade in and out: %+v", p)
	}
	if AudioFilter(p) != "afade=t=in:st=0.000:d=0.500,afade=t=out:st=4.500:d=0.500" {
		t.Fatalf("audio fades must mirror video fades, got %q", AudioFilter(p))
	}
}

func TestPlanDurationsFollowAudio(t *testing.T) {
	cfg := config.Default().Clip
	p := NewPlan(4.2, types.PositionMiddle, cfg)
	if p.Duration != 4.2 || p.Trim != 4.5 || p.SubtitleEnd != 4.55 {
		t.Fatalf("unexpected plan %+v", p)
	}
	short := NewPlan(0.2, types.PositionOnly, cfg)
	if short.FadeIn.Duration != 0.2 {
		t.Fatalf("fade should be clamped to the narration, got %v", short.FadeIn.Duration)
	}
	if zero := NewPlan(0, types.PositionOnly, cfg); zero.FadeIn != nil || zero.FadeOut != nil {
		t.Fatalf("silent narration should not fade")
	}
}

func TestPlanningIsDeterministic(t *testing.T) {
	cfg := config.Default().Clip
	a := Args("raw.mp4", "a.mp3", "s.srt", "out.mp4", NewPlan(6.8, types.PositionLast, cfg), cfg)
	b := Args("raw.mp4", "a.mp3", "s.srt", "out.mp4", NewPlan(6.8, types.PositionLast, cfg), cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same inputs produced different args")
	}
}

func TestArgsForMiddleClipOmitAudioFilter(t *testing.T) {
	cfg := config.Default().Clip
	args := Args("raw.mp4", "a.mp3", "/work/s:1.srt", "out.mp4", NewPlan(6.8, types.PositionMiddle, cfg), cfg)
	joined := strings.Join(args, " ")
	if strings.Contains(joined, "-af") || strings.Contains(joined, "fade=") {
		t.Fatalf("middle clip must not fade: %s", joined)
	}
	if !strings.Contains(joined, "-t 7.100") {
		t.Fatalf("expected trim to audio plus padding: %s", joined)
	}
	if !strings.Contains(joined, "subtitles=/work/s\\:1.srt:force_style='FontName=Arial") {
		t.Fatalf("subtitle path not escaped: %s", joined)
	}
	if !strings.Contains(joined, "scale=1280:720") || !strings.Contains(joined, "fps=30") {
		t.Fatalf("expected normalization filters: %s", joined)
	}
}

func TestFormatSRTTimeClamps(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{math.NaN(), "00:00:00,000"},
		{-3, "00:00:00,000"},
		{4.55, "00:00:04,550"},
		{3725.5, "01:02:05,500"},
	}
	for _, c := range cases {
		if got := FormatSRTTime(c.in); got != c.want {
			t.Fatalf("FormatSRTTime(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestWriteSubtitleKeepsSingleCue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.srt")
	text := "The tide came in.\n\n\nNobody saw the boat leave.\r\n"
	if err := WriteSubtitle(path, text, 4.55); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := "1\n00:00:00,000 --> 00:00:04,550\nThe tide came in.\nNobody saw the boat leave.\n\n"
	if string(data) != want {
		t.Fatalf("unexpected subtitle %q", data)
	}
}

func TestProcessSceneProducesClipAndRemovesSubtitle(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 1, types.PositionFirst)
	tool := &fakeTool{durations: map[string]float64{in.Narration: 4.2, in.RawVideo: 5}}

	got, err := New(tool, config.Default().Clip).ProcessScene(context.Background(), in)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if got.Duration != 4.2 || got.Scene != 1 || got.Position != types.PositionFirst {
		t.Fatalf("unexpected clip %+v", got)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("expected exactly one media tool call, got %d", len(tool.calls))
	}
	want := "1\n00:00:00,000 --> 00:00:04,550\nThe lighthouse keeper never came back.\n\n"
	if tool.subtitles[0] != want {
		t.Fatalf("unexpected subtitle %q", tool.subtitles[0])
	}
	if _, err := os.Stat(filepath.Join(dir, "scene_001.srt")); !os.IsNotExist(err) {
		t.Fatalf("subtitle should be deleted after success")
	}
}

func TestProcessSceneMissingInput(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 2, types.PositionMiddle)
	in.Narration = filepath.Join(dir, "missing.mp3")

	_, err := New(&fakeTool{}, config.Default().Clip).ProcessScene(context.Background(), in)
	if !faults.Is(err, faults.KindAssetMissing) || !strings.Contains(err.Error(), "scene 2") {
		t.Fatalf("expected scene scoped asset missing, got %v", err)
	}
}

func TestProcessSceneRejectsBadProbe(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 3, types.PositionLast)
	_, perr := mediatool.ParseDuration("nan")
	tool := &fakeTool{probeErr: perr}

	_, err := New(tool, config.Default().Clip).ProcessScene(context.Background(), in)
	if !faults.Is(err, faults.KindMediaTool) || !strings.Contains(err.Error(), "scene 3") {
		t.Fatalf("expected fatal probe error for scene 3, got %v", err)
	}
	if len(tool.calls) != 0 {
		t.Fatalf("must not transcode after a bad probe")
	}

	nan := &fakeTool{durations: map[string]float64{in.Narration: math.NaN()}}
	if _, err := New(nan, config.Default().Clip).ProcessScene(context.Background(), in); !faults.Is(err, faults.KindMediaTool) {
		t.Fatalf("NaN duration must be fatal, got %v", err)
	}
}

func TestProcessSceneRejectsNarrationLongerThanVideo(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 6, types.PositionMiddle)
	tool := &fakeTool{durations: map[string]float64{in.Narration: 15, in.RawVideo: 10}}

	_, err := New(tool, config.Default().Clip).ProcessScene(context.Background(), in)
	if !faults.Is(err, faults.KindInputValidation) || !strings.Contains(err.Error(), "scene 6") {
		t.Fatalf("expected scene scoped validation error, got %v", err)
	}
	if len(tool.calls) != 0 {
		t.Fatalf("must not transcode a clip longer than its footage")
	}

	// within the padding is fine
	tool = &fakeTool{durations: map[string]float64{in.Narration: 10.3, in.RawVideo: 10}}
	if _, err := New(tool, config.Default().Clip).ProcessScene(context.Background(), in); err != nil {
		t.Fatalf("narration within padding should pass: %v", err)
	}
}

func TestProcessSceneDoesNotRetryMediaFailures(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 5, types.PositionOnly)
	tool := &fakeTool{
		durations:    map[string]float64{in.Narration: 3, in.RawVideo: 5},
		transcodeErr: faults.MediaTool(0, "ffmpeg transcode", "Invalid argument", errors.New("exit status 1")),
	}

	_, err := New(tool, config.Default().Clip).ProcessScene(context.Background(), in)
	if !faults.Is(err, faults.KindMediaTool) {
		t.Fatalf("expected media tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "scene 5") || !strings.Contains(err.Error(), "Invalid argument") {
		t.Fatalf("error should carry scene and diagnostics: %v", err)
	}
	if len(tool.calls) != 1 {
		t.Fatalf("media failures are never retried, got %d calls", len(tool.calls))
	}
}

func TestProcessSceneRejectsEmptyNarrationText(t *testing.T) {
	dir := t.TempDir()
	in := sceneInput(t, dir, 4, types.PositionMiddle)
	in.Text = "   "
	_, err := New(&fakeTool{}, config.Default().Clip).ProcessScene(context.Background(), in)
	if !faults.Is(err, faults.KindInputValidation) {
		t.Fatalf("expected input validation error, got %v", err)
	}
}
