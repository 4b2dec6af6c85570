package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"storyreel/config"
)

// ElevenLabs calls the ElevenLabs text-to-speech API
type ElevenLabs struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	defaultVoice string
	apiKey       string
}

func NewElevenLabs(cfg config.SpeechConfig) *ElevenLabs {
	return &ElevenLabs{
		httpClient:   &http.Client{Timeout: 120 * time.Second},
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		model:        cfg.Model,
		defaultVoice: cfg.VoiceID,
		apiKey:       os.Getenv(cfg.APIKeyEnv),
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed,omitempty"`
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

func (e *ElevenLabs) Synthesize(ctx context.Context, text string, voice Voice, dest string) error {
	if e.apiKey == "" {
		return fmt.Errorf("elevenlabs: no API key: %w", ErrUnavailable)
	}
	voiceID := voice.ID
	if voiceID == "" {
		voiceID = e.defaultVoice
	}

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: e.model,
		VoiceSettings: voiceSettings{
			Stability:       voice.Stability,
			SimilarityBoost: voice.SimilarityBoost,
			Style:           voice.Style,
			Speed:           voice.Speed,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/text-to-speech/"+voiceID, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("elevenlabs rejected the API key: %w", ErrUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from elevenlabs: %s", resp.StatusCode, truncate(string(data), 200))
	}
	if len(data) == 0 {
		return fmt.Errorf("elevenlabs returned empty audio")
	}

	if err := os.WriteFile(dest, data, 0644); err != nil {
		return err
	}
	log.Printf("[speech] ✅ %d bytes -> %s", len(data), dest)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
