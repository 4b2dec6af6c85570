package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Text     TextConfig     `yaml:"text"`
	Image    ImageConfig    `yaml:"image"`
	Video    VideoConfig    `yaml:"video"`
	Speech   SpeechConfig   `yaml:"speech"`
	Clip     ClipConfig     `yaml:"clip"`
	Media    MediaConfig    `yaml:"media"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Queue    QueueConfig    `yaml:"queue"`
}

type PipelineConfig struct {
	WorkDir          string `yaml:"work_dir"`
	MinScenes        int    `yaml:"min_scenes"`
	MaxScenes        int    `yaml:"max_scenes"`
	DefaultScenes    int    `yaml:"default_scenes"`
	VideoConcurrency int    `yaml:"video_concurrency"`
	// ReclaimOnFailure also removes the working area of failed jobs
	ReclaimOnFailure bool   `yaml:"reclaim_on_failure"`
}

type TextConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float64 `yaml:"temperature"`
}

type ImageConfig struct {
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	PlainBaseURL string `yaml:"plain_base_url"`
	PlainModel   string `yaml:"plain_model"`
	EditModel    string `yaml:"edit_model"`
	EditSize     string `yaml:"edit_size"`
	Retries      int    `yaml:"retries"`
}

type VideoProviderConfig struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"` // task | direct
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type VideoConfig struct {
	Providers           []VideoProviderConfig `yaml:"providers"`
	ClipSeconds         int                   `yaml:"clip_seconds"`
	StrategyAttempts    int                   `yaml:"strategy_attempts"`
	BaseBackoff         time.Duration         `yaml:"base_backoff"`
	PollInterval        time.Duration         `yaml:"poll_interval"`
	MaxPolls            int                   `yaml:"max_polls"`
	PollErrorRetries    int                   `yaml:"poll_error_retries"`
	PollErrorBackoff    time.Duration         `yaml:"poll_error_backoff"`
	PollErrorBackoffMax time.Duration         `yaml:"poll_error_backoff_max"`
	HTTPTimeout         time.Duration         `yaml:"http_timeout"`
}

type SpeechConfig struct {
	Engine    string `yaml:"engine"` // elevenlabs | command
	BaseURL   string `yaml:"base_url"`
	VoiceID   string `yaml:"voice_id"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	Command   string `yaml:"command"`
}

type SubtitleStyle struct {
	Font         string  `yaml:"font"`
	FontSize     int     `yaml:"font_size"`
	Bold         bool    `yaml:"bold"`
	Outline      float64 `yaml:"outline"`
	MarginBottom int     `yaml:"margin_bottom"`
}

type ClipConfig struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	FPS          int           `yaml:"fps"`
	FadeSec      float64       `yaml:"fade_sec"`
	PaddingSec   float64       `yaml:"padding_sec"`
	LeadOutSec   float64       `yaml:"lead_out_sec"`
	Preset       string        `yaml:"preset"`
	CRF          int           `yaml:"crf"`
	AudioBitrate string        `yaml:"audio_bitrate"`
	SampleRate   int           `yaml:"sample_rate"`
	Subtitles    SubtitleStyle `yaml:"subtitles"`
}

type MediaConfig struct {
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend"` // local | youtube
	DurableDir string `yaml:"durable_dir"`
	Privacy    string `yaml:"privacy"`
	CategoryID string `yaml:"category_id"`
	Language   string `yaml:"language"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type QueueConfig struct {
	Addr string `yaml:"addr"`
	Name string `yaml:"name"`
}

// Default returns a Config with every tunable set to its production default.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			WorkDir:          "work",
			MinScenes:        1,
			MaxScenes:        40,
			DefaultScenes:    8,
			VideoConcurrency: 1,
		},
		Text: TextConfig{
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			Temperature: 0.8,
		},
		Image: ImageConfig{
			Width:        1280,
			Height:       720,
			PlainBaseURL: "https://image.pollinations.ai",
			PlainModel:   "flux",
			EditModel:    "gpt-image-1",
			EditSize:     "1536x1024",
			Retries:      3,
		},
		Video: VideoConfig{
			ClipSeconds:         10,
			StrategyAttempts:    3,
			BaseBackoff:         5 * time.Second,
			PollInterval:        5 * time.Second,
			MaxPolls:            120,
			PollErrorRetries:    3,
			PollErrorBackoff:    2 * time.Second,
			PollErrorBackoffMax: 10 * time.Second,
			HTTPTimeout:         60 * time.Second,
		},
		Speech: SpeechConfig{
			Engine:    "elevenlabs",
			BaseURL:   "https://api.elevenlabs.io",
			VoiceID:   "21m00Tcm4TlvDq8ikWAM",
			Model:     "eleven_multilingual_v2",
			APIKeyEnv: "ELEVENLABS_API_KEY",
		},
		Clip: ClipConfig{
			Width:        1280,
			Height:       720,
			FPS:          30,
			FadeSec:      0.5,
			PaddingSec:   0.3,
			LeadOutSec:   0.35,
			Preset:       "fast",
			CRF:          20,
			AudioBitrate: "192k",
			SampleRate:   44100,
			Subtitles: SubtitleStyle{
				Font:         "Arial",
				FontSize:     22,
				Bold:         true,
				Outline:      2,
				MarginBottom: 40,
			},
		},
		Media: MediaConfig{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
			Timeout:     10 * time.Minute,
		},
		Storage: StorageConfig{
			Backend:    "local",
			DurableDir: "output",
			Privacy:    "private",
			CategoryID: "24",
			Language:   "en",
		},
		Queue: QueueConfig{
			Addr: "localhost:6379",
			Name: "q_story_jobs",
		},
	}
}

// Load reads config.yaml over the defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Pipeline.MinScenes < 1 || c.Pipeline.MaxScenes < c.Pipeline.MinScenes {
		return fmt.Errorf("pipeline: invalid scene bounds [%d, %d]", c.Pipeline.MinScenes, c.Pipeline.MaxScenes)
	}
	if c.Pipeline.VideoConcurrency < 1 {
		return fmt.Errorf("pipeline: video_concurrency must be >= 1")
	}
	if len(c.Video.Providers) == 0 {
		return fmt.Errorf("video: at least one provider is required")
	}
	for i, p := range c.Video.Providers {
		if p.Name == "" || p.BaseURL == "" {
			return fmt.Errorf("video: provider %d needs name and base_url", i)
		}
		if p.Kind != "task" && p.Kind != "direct" {
			return fmt.Errorf("video: provider %q has unknown kind %q", p.Name, p.Kind)
		}
	}
	if c.Video.StrategyAttempts < 1 || c.Video.StrategyAttempts > 3 {
		return fmt.Errorf("video: strategy_attempts must be between 1 and 3")
	}
	if c.Video.MaxPolls < 1 || c.Video.PollInterval <= 0 {
		return fmt.Errorf("video: poll_interval and max_polls must be positive")
	}
	if c.Clip.FadeSec < 0 || c.Clip.PaddingSec < 0 || c.Clip.LeadOutSec < 0 {
		return fmt.Errorf("clip: fade, padding and lead-out must not be negative")
	}
	if c.Clip.Width <= 0 || c.Clip.Height <= 0 || c.Clip.FPS <= 0 {
		return fmt.Errorf("clip: width, height and fps must be positive")
	}
	switch c.Storage.Backend {
	case "local", "youtube":
	default:
		return fmt.Errorf("storage: unknown backend %q", c.Storage.Backend)
	}
	switch c.Speech.Engine {
	case "elevenlabs", "command":
	default:
		return fmt.Errorf("speech: unknown engine %q", c.Speech.Engine)
	}
	return nil
}
