package videogen

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Downloader fetches resolved videos into the working area
type Downloader struct {
	httpClient *http.Client
	retries    int
	sleep      SleepFunc
}

func NewDownloader(timeout time.Duration) *Downloader {
	return &Downloader{
		httpClient: &http.Client{Timeout: timeout},
		retries:    3,
		sleep:      sleepContext,
	}
}

// Download writes url to dest, retrying transient failures
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	var err error
	for attempt := 1; attempt <= d.retries; attempt++ {
		err = d.fetch(ctx, url, dest)
		if err == nil {
			return nil
		}
		log.Printf("[videogen] download attempt %d failed for %s: %v", attempt, filepath.Base(dest), err)
		if attempt < d.retries {
			if serr := d.sleep(ctx, time.Duration(attempt)*2*time.Second); serr != nil {
				return serr
			}
		}
	}
	return fmt.Errorf("download video after %d attempts: %w", d.retries, err)
}

func (d *Downloader) fetch(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	tmp := dest + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if n == 0 {
		os.Remove(tmp)
		return fmt.Errorf("empty response body")
	}
	return os.Rename(tmp, dest)
}
