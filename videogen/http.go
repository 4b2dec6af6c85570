package videogen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"storyreel/config"
)

type generateBody struct {
	Model    string    `json:"model,omitempty"`
	Image    string    `json:"image"`
	Prompt   string    `json:"prompt"`
	Duration int       `json:"duration"`
	Camera   *Controls `json:"camera_control,omitempty"`
}

type taskResponse struct {
	TaskID   string `json:"task_id"`
	ID       string `json:"id"`
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Output   *struct {
		VideoURL string `json:"video_url"`
	} `json:"output"`
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

func (r taskResponse) id() string {
	if r.TaskID != "" {
		return r.TaskID
	}
	return r.ID
}

func (r taskResponse) videoURL() string {
	if r.VideoURL != "" {
		return r.VideoURL
	}
	if r.Output != nil {
		return r.Output.VideoURL
	}
	return ""
}

func (r taskResponse) reason() string {
	if r.Reason != "" {
		return r.Reason
	}
	return r.Error
}

type httpProvider struct {
	name       string
	baseURL    string
	model      string
	apiKey     string
	httpClient *http.Client
}

func newHTTPProvider(cfg config.VideoProviderConfig, timeout time.Duration) httpProvider {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	return httpProvider{
		name:       cfg.Name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (h httpProvider) Name() string { return h.name }

func (h httpProvider) body(req Request) (generateBody, error) {
	image, err := dataURI(req.ImagePath)
	if err != nil {
		return generateBody{}, err
	}
	return generateBody{
		Model:    h.model,
		Image:    image,
		Prompt:   req.Prompt,
		Duration: req.DurationSeconds,
		Camera:   req.Controls,
	}, nil
}

func (h httpProvider) do(ctx context.Context, method, path string, payload any) (taskResponse, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return taskResponse{}, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, body)
	if err != nil {
		return taskResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return taskResponse{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return taskResponse{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return taskResponse{}, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, h.name, truncate(string(data), 200))
	}

	var out taskResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return taskResponse{}, fmt.Errorf("malformed response from %s: %w", h.name, err)
	}
	return out, nil
}

// TaskClient talks to a submit/poll image-to-video API:
// POST {base}/v1/tasks then GET {base}/v1/tasks/{id}.
type TaskClient struct {
	httpProvider
}

func NewTaskClient(cfg config.VideoProviderConfig, timeout time.Duration) *TaskClient {
	return &TaskClient{httpProvider: newHTTPProvider(cfg, timeout)}
}

func (c *TaskClient) Submit(ctx context.Context, req Request) (string, error) {
	body, err := c.body(req)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/tasks", body)
	if err != nil {
		return "", err
	}
	if resp.id() == "" {
		return "", fmt.Errorf("%s accepted the task without an id", c.name)
	}
	return resp.id(), nil
}

func (c *TaskClient) Poll(ctx context.Context, taskID string) (PollResult, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/tasks/"+taskID, nil)
	if err != nil {
		return PollResult{}, err
	}
	return PollResult{
		Status:   ParseStatus(resp.Status),
		VideoURL: resp.videoURL(),
		Reason:   resp.reason(),
	}, nil
}

// DirectClient talks to a synchronous API: POST {base}/v1/run returns the video
type DirectClient struct {
	httpProvider
}

func NewDirectClient(cfg config.VideoProviderConfig, timeout time.Duration) *DirectClient {
	return &DirectClient{httpProvider: newHTTPProvider(cfg, timeout)}
}

func (c *DirectClient) Run(ctx context.Context, req Request) (string, error) {
	body, err := c.body(req)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPost, "/v1/run", body)
	if err != nil {
		return "", err
	}
	if ParseStatus(resp.Status) == StatusFailed {
		return "", fmt.Errorf("%s run failed: %s", c.name, resp.reason())
	}
	return resp.videoURL(), nil
}

// NewProviders builds the ordered provider list from config
func NewProviders(cfg config.VideoConfig) ([]Provider, error) {
	var out []Provider
	for _, p := range cfg.Providers {
		switch p.Kind {
		case "task":
			out = append(out, NewTaskClient(p, cfg.HTTPTimeout))
		case "direct":
			out = append(out, NewDirectClient(p, cfg.HTTPTimeout))
		default:
			return nil, fmt.Errorf("video provider %q: unknown kind %q", p.Name, p.Kind)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no video providers configured")
	}
	return out, nil
}

func dataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read scene image: %w", err)
	}
	return "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
