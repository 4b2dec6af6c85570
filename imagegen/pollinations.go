package imagegen

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"storyreel/config"
)

// Pollinations generates images via Pollinations.ai (free, no key needed)
type Pollinations struct {
	httpClient *http.Client
	baseURL    string
	model      string
	width      int
	height     int
	retries    int
	sleep      func(context.Context, time.Duration) error
}

func NewPollinations(cfg config.ImageConfig) *Pollinations {
	retries := cfg.Retries
	if retries < 1 {
		retries = 1
	}
	return &Pollinations{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    strings.TrimRight(cfg.PlainBaseURL, "/"),
		model:      cfg.PlainModel,
		width:      cfg.Width,
		height:     cfg.Height,
		retries:    retries,
		sleep:      sleepContext,
	}
}

// Generate renders prompt and saves it to dest
func (p *Pollinations) Generate(ctx context.Context, prompt, dest string) error {
	if strings.TrimSpace(prompt) == "" {
		return fmt.Errorf("empty image prompt")
	}

	// Format: {base}/prompt/{encoded_prompt}?params
	imageURL := fmt.Sprintf(
		"%s/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		p.baseURL,
		url.PathEscape(prompt),
		p.width, p.height,
		url.QueryEscape(p.model),
		seedFor(prompt), // deterministic per prompt
	)

	log.Printf("[images] Generating image %q", truncate(prompt, 60))

	// Pollinations occasionally times out
	var err error
	for attempt := 1; attempt <= p.retries; attempt++ {
		err = p.download(ctx, imageURL, dest)
		if err == nil {
			log.Printf("[images] ✅ Image saved: %s", dest)
			return nil
		}
		log.Printf("[images] Attempt %d failed: %v", attempt, err)
		if attempt < p.retries {
			if serr := p.sleep(ctx, time.Duration(attempt)*3*time.Second); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("pollinations fetch failed after %d attempts: %w", p.retries, err)
}

// EditWithReferences ignores the references; Pollinations has no edit endpoint
func (p *Pollinations) EditWithReferences(ctx context.Context, _ []string, prompt, dest string) error {
	return p.Generate(ctx, prompt, dest)
}

func (p *Pollinations) download(ctx context.Context, imageURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; StoryReel/1.0)")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from Pollinations", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// an error HTML page is much smaller than any real image
	if len(data) < 100 {
		return fmt.Errorf("response too small (%d bytes), likely an error", len(data))
	}

	return os.WriteFile(dest, data, 0644)
}

func seedFor(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1_000_000
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
