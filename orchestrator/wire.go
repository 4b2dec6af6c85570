package orchestrator

import (
	"fmt"

	"storyreel/clip"
	"storyreel/config"
	"storyreel/director"
	"storyreel/imagegen"
	"storyreel/jobstore"
	"storyreel/mediatool"
	"storyreel/speech"
	"storyreel/storage"
	"storyreel/textgen"
	"storyreel/timeline"
	"storyreel/videogen"
)

// Build wires the production collaborators described by cfg
func Build(cfg *config.Config) (*Orchestrator, error) {
	media := mediatool.New(cfg.Media)
	if err := media.CheckDependencies(); err != nil {
		return nil, err
	}

	text, err := textgen.New(cfg.Text)
	if err != nil {
		return nil, fmt.Errorf("text generation: %w", err)
	}
	tables, err := director.LoadTables()
	if err != nil {
		return nil, fmt.Errorf("director tables: %w", err)
	}

	var images imagegen.Generator
	plain := imagegen.NewPollinations(cfg.Image)
	if editor := imagegen.NewOpenAIEditor(cfg.Text, cfg.Image); editor != nil {
		images = imagegen.NewWithReferences(plain, editor)
	} else {
		images = imagegen.NewWithReferences(plain, nil)
	}

	providers, err := videogen.NewProviders(cfg.Video)
	if err != nil {
		return nil, err
	}

	synth, err := speech.New(cfg.Speech)
	if err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	recorder, err := jobstore.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Planner:    director.New(text, tables),
		Images:     images,
		Videos:     videogen.NewEngine(providers, cfg.Video),
		Downloader: videogen.NewDownloader(cfg.Video.HTTPTimeout),
		Speech:     synth,
		Clips:      clip.New(media, cfg.Clip),
		Timeline:   timeline.New(media),
		Store:      store,
		Recorder:   recorder,
	}
	return New(deps, cfg.Pipeline, cfg.Speech.VoiceID), nil
}
