// Package orchestrator drives a job through its phases, from the input text
// to one durable narrated video.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"storyreel/clip"
	"storyreel/config"
	"storyreel/director"
	"storyreel/faults"
	"storyreel/imagegen"
	"storyreel/jobstore"
	"storyreel/speech"
	"storyreel/storage"
	"storyreel/types"
	"storyreel/videogen"
)

// Planner writes the storyboard and the prompts derived from it
type Planner interface {
	Plan(ctx context.Context, input string, sceneCount int) (*types.Storyboard, error)
	Metadata(ctx context.Context, board *types.Storyboard) types.PublishMeta
	CharacterPrompt(c types.Character, style types.StyleContext) string
	ScenePrompt(s types.SceneSpec, board *types.Storyboard) string
	MotionPrompt(s types.SceneSpec) string
	VoiceFor(mood, voiceID string) speech.Voice
}

type VideoResolver interface {
	ResolveVideo(ctx context.Context, req videogen.Request, sceneType types.SceneType, mood string) (videogen.Resolution, error)
}

type Downloader interface {
	Download(ctx context.Context, url, dest string) error
}

type ClipProcessor interface {
	ProcessScene(ctx context.Context, in clip.Input) (types.ProcessedClip, error)
}

type TimelineBuilder interface {
	Assemble(ctx context.Context, clips []types.ProcessedClip, outPath string) (types.Timeline, error)
}

// Deps are the collaborators one orchestrator runs jobs with
type Deps struct {
	Planner    Planner
	Images     imagegen.Generator
	Videos     VideoResolver
	Downloader Downloader
	Speech     speech.Synthesizer
	Clips      ClipProcessor
	Timeline   TimelineBuilder
	Store      storage.Store
	Recorder   jobstore.Recorder
}

type Orchestrator struct {
	deps    Deps
	cfg     config.PipelineConfig
	voiceID string
}

func New(deps Deps, cfg config.PipelineConfig, voiceID string) *Orchestrator {
	if deps.Recorder == nil {
		deps.Recorder = jobstore.NopRecorder{}
	}
	if cfg.VideoConcurrency < 1 {
		cfg.VideoConcurrency = 1
	}
	return &Orchestrator{deps: deps, cfg: cfg, voiceID: voiceID}
}

// Working-area subdirectories, one per phase
const (
	dirCharacters = "characters"
	dirScenes     = "scenes"
	dirVideos     = "videos"
	dirAudio      = "audio"
	dirProcessed  = "processed"
)

// run is the per-job state handed from phase to phase
type run struct {
	job       *types.Job
	board     *types.Storyboard
	portraits map[string]string
	images    map[int]string
	videos    map[int]string
	audio     map[int]string
	assets    []types.GeneratedAsset
	timeline  types.Timeline
	final     string
	persisted bool
}

func (r *run) path(sub, name string) string {
	return filepath.Join(r.job.WorkDir, sub, name)
}

type phase struct {
	name   string
	target types.Phase
	run    func(ctx context.Context, r *run) error
}

// Run executes every phase of job in order. Any phase error fails the whole
// job; the job's terminal state carries the failing phase and the innermost cause.
func (o *Orchestrator) Run(ctx context.Context, job *types.Job) error {
	r := &run{
		job:       job,
		portraits: map[string]string{},
		images:    map[int]string{},
		videos:    map[int]string{},
		audio:     map[int]string{},
	}

	if err := o.validate(job); err != nil {
		return o.fail(ctx, r, "validate", err)
	}
	if err := o.prepareWorkDir(job); err != nil {
		return o.fail(ctx, r, "setup", err)
	}

	log.Printf("🎬 [orchestrator] Job %s starting (%d scenes)", job.ID, job.SceneCount)
	log.Printf("📁 [orchestrator] Work dir: %s", job.WorkDir)
	o.record(ctx, job)

	phases := []phase{
		{"story", types.PhaseStoryReady, o.story},
		{"characters", types.PhaseCharactersReady, o.characters},
		{"scenes", types.PhaseScenesReady, o.scenes},
		{"videos", types.PhaseVideosReady, o.videos},
		{"audio", types.PhaseAudioReady, o.narration},
		{"assembly", types.PhaseAssembled, o.assemble},
	}
	for i, p := range phases {
		log.Printf("━━━ [orchestrator] PHASE %d: %s ━━━", i+1, p.name)
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, r, p.name, err)
		}
		if err := p.run(ctx, r); err != nil {
			return o.fail(ctx, r, p.name, err)
		}
		if err := job.Advance(p.target); err != nil {
			return o.fail(ctx, r, p.name, err)
		}
		saveJSON(filepath.Join(job.WorkDir, "assets.json"), r.assets)
		o.record(ctx, job)
	}

	if err := o.finalize(ctx, r); err != nil {
		return o.fail(ctx, r, "finalize", err)
	}
	return nil
}

func (o *Orchestrator) validate(job *types.Job) error {
	// the id names the job's work dir, so it must be a plain UUID
	id, err := uuid.Parse(job.ID)
	if err != nil {
		return faults.InputValidation(fmt.Sprintf("job id %q is not a UUID", job.ID), err)
	}
	job.ID = id.String()
	if strings.TrimSpace(job.InputText) == "" {
		return faults.InputValidation("input text is empty", nil)
	}
	if job.SceneCount == 0 {
		job.SceneCount = o.cfg.DefaultScenes
	}
	if job.SceneCount < o.cfg.MinScenes || job.SceneCount > o.cfg.MaxScenes {
		return faults.InputValidation(fmt.Sprintf("scene count %d outside [%d, %d]", job.SceneCount, o.cfg.MinScenes, o.cfg.MaxScenes), nil)
	}
	return nil
}

func (o *Orchestrator) prepareWorkDir(job *types.Job) error {
	root, err := filepath.Abs(o.cfg.WorkDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("create work root: %w", err)
	}
	dir := filepath.Join(root, job.ID)
	// a job never reuses another job's area
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return faults.InputValidation(fmt.Sprintf("work dir for job %s already exists", job.ID), err)
		}
		return fmt.Errorf("create work dir: %w", err)
	}
	for _, sub := range []string{dirCharacters, dirScenes, dirVideos, dirAudio, dirProcessed} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return fmt.Errorf("create work dir: %w", err)
		}
	}
	job.WorkDir = dir
	return nil
}

func (o *Orchestrator) story(ctx context.Context, r *run) error {
	board, err := o.deps.Planner.Plan(ctx, r.job.InputText, r.job.SceneCount)
	if err != nil {
		return err
	}
	if err := types.ValidateScenes(board.Scenes); err != nil {
		return faults.Generation(0, "storyboard", err)
	}
	r.board = board
	r.job.Title = board.Title
	saveJSON(filepath.Join(r.job.WorkDir, "storyboard.json"), board)
	log.Printf("✅ [orchestrator] Story %q with %d scenes and %d characters", board.Title, len(board.Scenes), len(board.Characters))
	return nil
}

func (o *Orchestrator) characters(ctx context.Context, r *run) error {
	for i, c := range r.board.Characters {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		if key == "" || r.portraits[key] != "" {
			continue
		}
		dest := r.path(dirCharacters, fmt.Sprintf("character_%02d.png", i+1))
		prompt := o.deps.Planner.CharacterPrompt(c, r.board.Style)
		if err := o.deps.Images.Generate(ctx, prompt, dest); err != nil {
			return faults.Generation(0, fmt.Sprintf("portrait for %s", c.Name), err)
		}
		if err := requireFile(0, dest); err != nil {
			return err
		}
		r.portraits[key] = dest
		r.assets = append(r.assets, types.GeneratedAsset{Kind: types.AssetCharacterImage, Character: c.Name, Path: dest, Method: "plain"})
		log.Printf("✅ [orchestrator] Portrait for %s", c.Name)
	}
	return nil
}

func (o *Orchestrator) scenes(ctx context.Context, r *run) error {
	for _, s := range r.board.Scenes {
		dest := r.path(dirScenes, fmt.Sprintf("scene_%02d.png", s.Number))
		prompt := o.deps.Planner.ScenePrompt(s, r.board)

		method := "plain"
		var err error
		if refs := director.CharacterRefs(s, r.portraits); len(refs) > 0 {
			method = "references"
			err = o.deps.Images.EditWithReferences(ctx, refs, prompt, dest)
		} else {
			err = o.deps.Images.Generate(ctx, prompt, dest)
		}
		if err != nil {
			return faults.Generation(s.Number, "scene image", err)
		}
		if err := requireFile(s.Number, dest); err != nil {
			return err
		}
		r.images[s.Number] = dest
		r.assets = append(r.assets, types.GeneratedAsset{Kind: types.AssetSceneImage, Scene: s.Number, Path: dest, Method: method})
		log.Printf("✅ [orchestrator] Scene %d image (%s)", s.Number, method)
	}
	return nil
}

// videos resolves and downloads one raw video per scene, with at most
// VideoConcurrency scenes in flight. Results are keyed by scene number.
func (o *Orchestrator) videos(ctx context.Context, r *run) error {
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.VideoConcurrency)

	for _, s := range r.board.Scenes {
		image := r.images[s.Number]
		dest := r.path(dirVideos, fmt.Sprintf("scene_%02d.mp4", s.Number))
		g.Go(func() error {
			req := videogen.Request{
				Scene:     s.Number,
				ImagePath: image,
				Prompt:    o.deps.Planner.MotionPrompt(s),
			}
			res, err := o.deps.Videos.ResolveVideo(gctx, req, s.Type, s.Mood)
			if err != nil {
				return err
			}
			if err := o.deps.Downloader.Download(gctx, res.URL, dest); err != nil {
				return faults.Generation(s.Number, "download video", err)
			}
			if err := requireFile(s.Number, dest); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			r.videos[s.Number] = dest
			r.assets = append(r.assets, types.GeneratedAsset{Kind: types.AssetRawVideo, Scene: s.Number, Path: dest, Method: res.Provider + "/" + string(res.Strategy)})
			log.Printf("✅ [orchestrator] Scene %d video via %s (%s)", s.Number, res.Provider, res.Strategy)
			return nil
		})
	}
	return g.Wait()
}

// narration synthesizes audio per scene. An unavailable synthesizer drops the
// scene from assembly instead of failing the job.
func (o *Orchestrator) narration(ctx context.Context, r *run) error {
	for _, s := range r.board.Scenes {
		if strings.TrimSpace(s.Narration) == "" {
			return faults.WithScene(faults.InputValidation("narration text is empty", nil), s.Number)
		}
		dest := r.path(dirAudio, fmt.Sprintf("scene_%02d.mp3", s.Number))
		voice := o.deps.Planner.VoiceFor(s.Mood, o.voiceID)
		err := o.deps.Speech.Synthesize(ctx, s.Narration, voice, dest)
		if errors.Is(err, speech.ErrUnavailable) {
			log.Printf("⚠️  [orchestrator] Scene %d has no narration (%v), excluding it from the timeline", s.Number, err)
			continue
		}
		if err != nil {
			return faults.Generation(s.Number, "narration", err)
		}
		if err := requireFile(s.Number, dest); err != nil {
			return err
		}
		r.audio[s.Number] = dest
		r.assets = append(r.assets, types.GeneratedAsset{Kind: types.AssetNarration, Scene: s.Number, Path: dest, Method: "speech"})
	}
	log.Printf("✅ [orchestrator] Narration for %d/%d scenes", len(r.audio), len(r.board.Scenes))
	return nil
}

// assemble processes every scene that has narration, positions computed over
// the included scenes only, then concatenates them in scene order.
func (o *Orchestrator) assemble(ctx context.Context, r *run) error {
	var included []types.SceneSpec
	for _, s := range r.board.Scenes {
		if r.audio[s.Number] != "" {
			included = append(included, s)
		}
	}
	if len(included) == 0 {
		return faults.InputValidation("nothing to assemble: no scene has narration", nil)
	}

	clips := make([]types.ProcessedClip, 0, len(included))
	for i, s := range included {
		processed, err := o.deps.Clips.ProcessScene(ctx, clip.Input{
			Scene:     s.Number,
			RawVideo:  r.videos[s.Number],
			Narration: r.audio[s.Number],
			Text:      s.Narration,
			Position:  types.PositionFor(i, len(included)),
			OutPath:   r.path(dirProcessed, fmt.Sprintf("scene_%02d.mp4", s.Number)),
		})
		if err != nil {
			return err
		}
		clips = append(clips, processed)
	}

	r.final = filepath.Join(r.job.WorkDir, "final.mp4")
	tl, err := o.deps.Timeline.Assemble(ctx, clips, r.final)
	if err != nil {
		return err
	}
	if err := requireFile(0, r.final); err != nil {
		return err
	}
	r.timeline = tl
	r.job.FinalPath = r.final
	r.job.Duration = tl.Duration()
	return nil
}

// finalize persists the deliverable, completes the job and reclaims the
// working area. Reclamation failures are logged only.
func (o *Orchestrator) finalize(ctx context.Context, r *run) error {
	meta := o.deps.Planner.Metadata(ctx, r.board)
	if meta.Title != "" {
		r.job.Title = meta.Title
	}

	location, err := o.deps.Store.Persist(ctx, r.final, storage.Meta{JobID: r.job.ID, Publish: meta})
	if err != nil {
		return faults.Persistence("persist deliverable", err)
	}
	r.persisted = true

	if err := r.job.Complete(location); err != nil {
		return err
	}
	if err := o.deps.Recorder.Record(ctx, r.job); err != nil {
		return faults.Persistence("record completed job", err)
	}

	if err := os.RemoveAll(r.job.WorkDir); err != nil {
		log.Printf("⚠️  [orchestrator] Could not reclaim %s: %v", r.job.WorkDir, err)
	}
	log.Printf("✅ [orchestrator] Job %s complete (%.1fs): %s", r.job.ID, r.job.Duration, location)
	return nil
}

// fail marks the job failed and removes a transient deliverable that never
// reached durable storage. A persisted deliverable is left untouched.
func (o *Orchestrator) fail(ctx context.Context, r *run, phase string, err error) error {
	if r.final != "" && !r.persisted {
		if rerr := os.Remove(r.final); rerr != nil && !os.IsNotExist(rerr) {
			log.Printf("⚠️  [orchestrator] Could not remove transient deliverable %s: %v", r.final, rerr)
		}
		r.job.FinalPath = ""
	}

	r.job.Fail(phase, faults.Innermost(err))
	o.record(context.WithoutCancel(ctx), r.job)

	if o.cfg.ReclaimOnFailure && r.job.WorkDir != "" {
		if rerr := os.RemoveAll(r.job.WorkDir); rerr != nil {
			log.Printf("⚠️  [orchestrator] Could not reclaim %s: %v", r.job.WorkDir, rerr)
		}
	}

	log.Printf("❌ [orchestrator] Job %s failed in %s: %v", r.job.ID, phase, err)
	return fmt.Errorf("%s: %w", phase, err)
}

func (o *Orchestrator) record(ctx context.Context, job *types.Job) {
	if err := o.deps.Recorder.Record(ctx, job); err != nil {
		log.Printf("⚠️  [orchestrator] Could not record job %s: %v", job.ID, err)
	}
}

func requireFile(scene int, path string) error {
	if fi, err := os.Stat(path); err != nil || fi.Size() == 0 {
		return faults.AssetMissing(scene, path)
	}
	return nil
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("⚠️  [orchestrator] could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("⚠️  [orchestrator] could not save %s: %v", path, err)
	}
}
