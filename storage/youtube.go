package storage

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"storyreel/config"
)

// YouTubeStore publishes the deliverable via the YouTube Data API v3
type YouTubeStore struct {
	cfg        config.StorageConfig
	newService func(ctx context.Context) (*youtube.Service, error)
}

func NewYouTubeStore(cfg config.StorageConfig) *YouTubeStore {
	s := &YouTubeStore{cfg: cfg}
	s.newService = s.defaultService
	return s
}

// Persist uploads localPath and returns the watch URL
func (s *YouTubeStore) Persist(ctx context.Context, localPath string, meta Meta) (string, error) {
	log.Println("[storage] Authenticating with YouTube API...")
	svc, err := s.newService(ctx)
	if err != nil {
		return "", err
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[storage] Uploading %q (%.1f MB)", meta.Publish.Title, float64(fi.Size())/1024/1024)
	}

	// resumable upload, required for files > 5MB
	call := svc.Videos.Insert([]string{"snippet", "status"}, s.videoFor(meta))
	call.Media(f)

	uploaded, err := call.Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[storage] ✅ Uploaded %s", videoURL)
	return videoURL, nil
}

func (s *YouTubeStore) videoFor(meta Meta) *youtube.Video {
	title := meta.Publish.Title
	if title == "" {
		title = "Story " + meta.JobID
	}
	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          meta.Publish.Description,
			Tags:                 meta.Publish.Tags,
			CategoryId:           s.cfg.CategoryID,
			DefaultLanguage:      s.cfg.Language,
			DefaultAudioLanguage: s.cfg.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           s.cfg.Privacy,
			SelfDeclaredMadeForKids: false,
		},
	}
}

func (s *YouTubeStore) defaultService(ctx context.Context) (*youtube.Service, error) {
	client, err := oauthClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("youtube auth: %w", err)
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// oauthClient creates an OAuth2 HTTP client from a stored refresh token
func oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return &http.Client{Transport: &oauth2.Transport{Source: conf.TokenSource(ctx, token)}}, nil
}
