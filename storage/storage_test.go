package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"storyreel/config"
	"storyreel/types"
)

func writeDeliverable(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(path, []byte("final video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLocalStorePersistsUniquePerJob(t *testing.T) {
	durable := t.TempDir()
	src := writeDeliverable(t)
	store := NewLocalStore(durable)

	a, err := store.Persist(context.Background(), src, Meta{JobID: "job-a", Publish: types.PublishMeta{Title: "The Keeper!"}})
	if err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	b, err := store.Persist(context.Background(), src, Meta{JobID: "job-b", Publish: types.PublishMeta{Title: "The Keeper!"}})
	if err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if a == b {
		t.Fatalf("durable names must be unique per job")
	}
	if filepath.Base(a) != "the-keeper_job-a.mp4" {
		t.Fatalf("unexpected name %s", filepath.Base(a))
	}
	data, _ := os.ReadFile(a)
	if string(data) != "final video" {
		t.Fatalf("unexpected content %q", data)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must be left in place: %v", err)
	}
	entries, _ := os.ReadDir(durable)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".persist-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLocalStoreNeverOverwrites(t *testing.T) {
	durable := t.TempDir()
	store := NewLocalStore(durable)
	meta := Meta{JobID: "job-a", Publish: types.PublishMeta{Title: "The Keeper"}}

	first, err := store.Persist(context.Background(), writeDeliverable(t), meta)
	if err != nil {
		t.Fatalf("persist failed: %v", err)
	}
	if _, err := store.Persist(context.Background(), writeDeliverable(t), meta); err == nil {
		t.Fatalf("second persist for the same job should fail")
	}
	data, _ := os.ReadFile(first)
	if string(data) != "final video" {
		t.Fatalf("first deliverable changed: %q", data)
	}
	entries, _ := os.ReadDir(durable)
	if len(entries) != 1 {
		t.Fatalf("expected only the first deliverable, found %d entries", len(entries))
	}
}

func TestLocalStoreRequiresJobID(t *testing.T) {
	if _, err := NewLocalStore(t.TempDir()).Persist(context.Background(), writeDeliverable(t), Meta{}); err == nil {
		t.Fatalf("expected error without job id")
	}
}

func TestLocalStoreMissingSource(t *testing.T) {
	_, err := NewLocalStore(t.TempDir()).Persist(context.Background(), "/nonexistent/final.mp4", Meta{JobID: "j"})
	if err == nil {
		t.Fatalf("expected error for missing deliverable")
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"The Keeper!":        "the-keeper",
		"  --Night  Shift--": "night-shift",
		"":                   "",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Fatalf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
	long := Slug(strings.Repeat("ab ", 30))
	if len(long) > 48 || strings.HasSuffix(long, "-") {
		t.Fatalf("long slugs are cut and trimmed, got %q", long)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default().Storage
	if s, err := New(cfg); err != nil {
		t.Fatal(err)
	} else if _, ok := s.(*LocalStore); !ok {
		t.Fatalf("expected local store")
	}
	cfg.Backend = "youtube"
	if s, _ := New(cfg); s == nil {
		t.Fatalf("expected youtube store")
	}
	cfg.Backend = "s3"
	if _, err := New(cfg); err == nil {
		t.Fatalf("expected unknown backend error")
	}
}

func TestYouTubeStoreRequiresCredentials(t *testing.T) {
	t.Setenv("YOUTUBE_CLIENT_ID", "")
	store := NewYouTubeStore(config.Default().Storage)
	_, err := store.Persist(context.Background(), writeDeliverable(t), Meta{JobID: "j"})
	if err == nil || !strings.Contains(err.Error(), "YOUTUBE_CLIENT_ID") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestYouTubeStoreUploadsAndReturnsWatchURL(t *testing.T) {
	var gotUploadType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "youtube/v3/videos") {
			http.NotFound(w, r)
			return
		}
		gotUploadType = r.URL.Query().Get("uploadType")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"vid123"}`))
	}))
	defer srv.Close()

	store := NewYouTubeStore(config.Default().Storage)
	store.newService = func(ctx context.Context) (*youtube.Service, error) {
		return youtube.NewService(ctx, option.WithHTTPClient(srv.Client()), option.WithEndpoint(srv.URL+"/"))
	}

	loc, err := store.Persist(context.Background(), writeDeliverable(t), Meta{JobID: "j", Publish: types.PublishMeta{Title: "The Keeper"}})
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if loc != "https://www.youtube.com/watch?v=vid123" {
		t.Fatalf("unexpected location %q", loc)
	}
	if gotUploadType == "" {
		t.Fatalf("expected a media upload request")
	}
}

func TestYouTubeVideoMetadata(t *testing.T) {
	cfg := config.Default().Storage
	v := NewYouTubeStore(cfg).videoFor(Meta{JobID: "abc", Publish: types.PublishMeta{Tags: []string{"story"}}})
	if v.Snippet.Title != "Story abc" || v.Status.PrivacyStatus != "private" || v.Snippet.CategoryId != "24" {
		t.Fatalf("unexpected video metadata %+v %+v", v.Snippet, v.Status)
	}
}
