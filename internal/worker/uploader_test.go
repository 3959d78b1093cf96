package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/oshima-labs/paperctl/internal/cache"
	"github.com/oshima-labs/paperctl/internal/client"
	"github.com/oshima-labs/paperctl/internal/model"
)

// fakeAPI records upload requests and fails paths listed in failPaths
type fakeAPI struct {
	mu        sync.Mutex
	requests  []client.UploadRequest
	failPaths map[string]bool
	nextID    int
}

func (f *fakeAPI) UploadPaper(ctx context.Context, req client.UploadRequest) (*model.UploadResponse, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failPaths[filepath.Base(req.Path)] {
		return nil, nil, errors.New("server rejected upload")
	}

	f.requests = append(f.requests, req)
	f.nextID++
	return &model.UploadResponse{
		Data: model.UploadReceipt{
			PaperID: fmt.Sprintf("paper-%d", f.nextID),
			Status:  "uploaded",
		},
	}, nil, nil
}

func writePDF(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestUploader(api PaperUploader, store cache.Cache, cfg UploaderConfig) *Uploader {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://127.0.0.1:8000"
	}
	return NewUploader(api, NewLimiter(1000, 100), NewLedger(store), cfg)
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "b.pdf", "bbb")
	writePDF(t, dir, "a.pdf", "aaa")
	writePDF(t, dir, "notes.txt", "not a pdf")

	files, err := ListPDFs(dir, "*.pdf")
	if err != nil {
		t.Fatalf("ListPDFs failed: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if filepath.Base(files[0]) != "a.pdf" || filepath.Base(files[1]) != "b.pdf" {
		t.Errorf("expected sorted order [a.pdf b.pdf], got %v", files)
	}
}

func TestListPDFs_MissingDir(t *testing.T) {
	if _, err := ListPDFs("/does/not/exist", "*.pdf"); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestListPDFs_NotADir(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "file.pdf", "x")
	if _, err := ListPDFs(path, "*.pdf"); err == nil {
		t.Fatal("expected error for non-directory")
	}
}

func TestUploader_Sequential(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "alpha.pdf", "alpha contents")
	writePDF(t, dir, "beta.pdf", "beta contents")

	api := &fakeAPI{}
	uploader := newTestUploader(api, nil, UploaderConfig{
		Workers: 1,
		Field:   "Computer Science",
		Topic:   "AI",
	})

	results, err := uploader.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("UploadDir failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Errorf("%s: unexpected error: %v", r.Path, r.Err)
		}
		if r.Receipt == nil || r.Receipt.PaperID == "" {
			t.Errorf("%s: missing receipt", r.Path)
		}
	}

	// Title comes from the filename stem, metadata from the config
	if got := api.requests[0].Title; got != "alpha" {
		t.Errorf("expected title 'alpha', got %q", got)
	}
	if got := api.requests[0].Field; got != "Computer Science" {
		t.Errorf("expected field propagated, got %q", got)
	}
	if got := api.requests[1].Topic; got != "AI" {
		t.Errorf("expected topic propagated, got %q", got)
	}
}

func TestUploader_FailureDoesNotAbort(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "bad.pdf", "bad")
	writePDF(t, dir, "good.pdf", "good")

	api := &fakeAPI{failPaths: map[string]bool{"bad.pdf": true}}
	uploader := newTestUploader(api, nil, UploaderConfig{Workers: 1})

	results, err := uploader.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("UploadDir failed: %v", err)
	}

	if results[0].Err == nil {
		t.Error("expected bad.pdf to fail")
	}
	if results[1].Err != nil {
		t.Errorf("expected good.pdf to succeed, got %v", results[1].Err)
	}
}

func TestUploader_SkipsDuplicateContents(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "one.pdf", "same contents")
	writePDF(t, dir, "two.pdf", "same contents")

	api := &fakeAPI{}
	uploader := newTestUploader(api, nil, UploaderConfig{Workers: 1})

	results, err := uploader.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("UploadDir failed: %v", err)
	}

	if results[0].Skipped {
		t.Error("first copy should upload")
	}
	if !results[1].Skipped {
		t.Error("second copy should be skipped as a duplicate")
	}
	if len(api.requests) != 1 {
		t.Errorf("expected 1 upload, got %d", len(api.requests))
	}
}

func TestUploader_LedgerSurvivesRuns(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "paper.pdf", "contents")

	store := cache.NewMemoryCache(time.Hour, time.Hour)
	api := &fakeAPI{}

	first := newTestUploader(api, store, UploaderConfig{Workers: 1})
	results, err := first.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if results[0].Skipped {
		t.Fatal("first run should upload")
	}

	// Fresh uploader, same store: the ledger remembers
	second := newTestUploader(api, store, UploaderConfig{Workers: 1})
	results, err = second.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !results[0].Skipped {
		t.Error("second run should skip the already-uploaded file")
	}

	// --force bypasses the ledger
	forced := newTestUploader(api, store, UploaderConfig{Workers: 1, Force: true})
	results, err = forced.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("forced run failed: %v", err)
	}
	if results[0].Skipped {
		t.Error("forced run should re-upload")
	}
}

func TestUploader_ConcurrentKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	names := []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf", "e.pdf"}
	for _, n := range names {
		writePDF(t, dir, n, "contents of "+n)
	}

	api := &fakeAPI{}
	uploader := newTestUploader(api, nil, UploaderConfig{Workers: 3})

	results, err := uploader.UploadDir(context.Background(), dir, "*.pdf")
	if err != nil {
		t.Fatalf("UploadDir failed: %v", err)
	}

	if len(results) != len(names) {
		t.Fatalf("expected %d results, got %d", len(names), len(results))
	}
	for i, r := range results {
		if filepath.Base(r.Path) != names[i] {
			t.Errorf("result %d: expected %s, got %s", i, names[i], filepath.Base(r.Path))
		}
	}
}

func TestUploader_SequentialDelay(t *testing.T) {
	dir := t.TempDir()
	writePDF(t, dir, "a.pdf", "aaa")
	writePDF(t, dir, "b.pdf", "bbb")
	writePDF(t, dir, "c.pdf", "ccc")

	api := &fakeAPI{}
	uploader := newTestUploader(api, nil, UploaderConfig{
		Workers: 1,
		Delay:   30 * time.Millisecond,
	})

	start := time.Now()
	if _, err := uploader.UploadDir(context.Background(), dir, "*.pdf"); err != nil {
		t.Fatalf("UploadDir failed: %v", err)
	}

	// Two gaps between three uploads
	if elapsed := time.Since(start); elapsed < 60*time.Millisecond {
		t.Errorf("expected >= 60ms with pacing, got %v", elapsed)
	}
}

func TestFileDigest(t *testing.T) {
	dir := t.TempDir()
	a := writePDF(t, dir, "a.pdf", "identical")
	b := writePDF(t, dir, "b.pdf", "identical")
	c := writePDF(t, dir, "c.pdf", "different")

	da, err := FileDigest(a)
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	db, _ := FileDigest(b)
	dc, _ := FileDigest(c)

	if da != db {
		t.Error("identical contents should share a digest")
	}
	if da == dc {
		t.Error("different contents should differ")
	}

	if _, err := FileDigest(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}
