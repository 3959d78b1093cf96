package worker

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oshima-labs/paperctl/internal/client"
	"github.com/oshima-labs/paperctl/internal/model"
)

// PaperUploader is the slice of the API client the uploader needs
type PaperUploader interface {
	UploadPaper(ctx context.Context, req client.UploadRequest) (*model.UploadResponse, []byte, error)
}

// UploadResult is the outcome of one file in a batch
type UploadResult struct {
	index   int
	Path    string
	Receipt *model.UploadReceipt
	Skipped bool // duplicate, not uploaded
	Err     error
}

// GetError satisfies the pool Result interface
func (r *UploadResult) GetError() error {
	return r.Err
}

// UploaderConfig bundles the uploader's knobs
type UploaderConfig struct {
	APIBaseURL string
	Workers    int
	Delay      time.Duration // extra wait between uploads
	Field      string
	Topic      string
	Force      bool // bypass the duplicate ledger
}

// Uploader drives a directory batch upload: list, dedupe, pace, upload.
// With one worker uploads run sequentially in filename order, matching
// manual upload behavior; more workers trade ordering for throughput,
// still paced by the shared limiter.
type Uploader struct {
	api     PaperUploader
	limiter *Limiter
	ledger  *Ledger
	host    string
	workers int
	delay   time.Duration
	field   string
	topic   string
	force   bool

	// Progress, when set, is called as each file starts uploading
	Progress func(index, total int, name string)
}

// NewUploader creates a batch uploader
func NewUploader(api PaperUploader, limiter *Limiter, ledger *Ledger, cfg UploaderConfig) *Uploader {
	host := cfg.APIBaseURL
	if u, err := url.Parse(cfg.APIBaseURL); err == nil && u.Host != "" {
		host = u.Host
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Uploader{
		api:     api,
		limiter: limiter,
		ledger:  ledger,
		host:    host,
		workers: workers,
		delay:   cfg.Delay,
		field:   cfg.Field,
		topic:   cfg.Topic,
		force:   cfg.Force,
	}
}

// ListPDFs returns the files in dir matching pattern, sorted by name
func ListPDFs(dir, pattern string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %s", dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && fi.Mode().IsRegular() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// UploadDir uploads every file in dir matching pattern. Results come
// back in filename order regardless of completion order. The error
// return covers listing only; per-file failures live in the results.
func (u *Uploader) UploadDir(ctx context.Context, dir, pattern string) ([]*UploadResult, error) {
	files, err := ListPDFs(dir, pattern)
	if err != nil {
		return nil, err
	}
	return u.UploadFiles(ctx, files), nil
}

// UploadFiles uploads the given files, preserving input order in the
// returned results.
func (u *Uploader) UploadFiles(ctx context.Context, files []string) []*UploadResult {
	if len(files) == 0 {
		return nil
	}

	if u.workers == 1 {
		return u.uploadSequential(ctx, files)
	}

	var started atomic.Int32
	pool := NewPool(ctx, u.workers)
	pool.Start()
	for i, path := range files {
		pool.Submit(&uploadJob{
			uploader: u,
			index:    i,
			total:    len(files),
			path:     path,
			started:  &started,
		})
	}

	results := pool.Wait()

	ordered := make([]*UploadResult, len(files))
	for _, r := range results {
		ur := r.(*UploadResult)
		ordered[ur.index] = ur
	}
	// Jobs cancelled mid-flight leave gaps; fill them so callers can
	// still render a complete summary.
	for i, r := range ordered {
		if r == nil {
			ordered[i] = &UploadResult{index: i, Path: files[i], Err: ctx.Err()}
		}
	}
	return ordered
}

func (u *Uploader) uploadSequential(ctx context.Context, files []string) []*UploadResult {
	results := make([]*UploadResult, 0, len(files))
	for i, path := range files {
		if u.Progress != nil {
			u.Progress(i, len(files), filepath.Base(path))
		}
		results = append(results, u.uploadOne(ctx, i, path))

		// The delay sits between uploads, not after the last one
		if i < len(files)-1 {
			if err := u.limiter.WaitWithDelay(ctx, u.host, u.delay); err != nil {
				for j := i + 1; j < len(files); j++ {
					results = append(results, &UploadResult{index: j, Path: files[j], Err: err})
				}
				break
			}
		}
	}
	return results
}

// uploadOne checks the ledger, uploads, and records the digest
func (u *Uploader) uploadOne(ctx context.Context, index int, path string) *UploadResult {
	result := &UploadResult{index: index, Path: path}

	digest, err := FileDigest(path)
	if err != nil {
		result.Err = err
		return result
	}

	if !u.force && u.ledger.Seen(digest) {
		result.Skipped = true
		return result
	}

	resp, _, err := u.api.UploadPaper(ctx, client.UploadRequest{
		Path:  path,
		Title: titleFromPath(path),
		Field: u.field,
		Topic: u.topic,
	})
	if err != nil {
		result.Err = err
		return result
	}

	u.ledger.Record(digest, resp.Data.PaperID)
	result.Receipt = &resp.Data
	return result
}

// uploadJob adapts one file to the pool's Job interface
type uploadJob struct {
	uploader *Uploader
	index    int
	total    int
	path     string
	started  *atomic.Int32
}

func (j *uploadJob) Execute(ctx context.Context) Result {
	n := int(j.started.Add(1))
	if j.uploader.Progress != nil {
		j.uploader.Progress(n-1, j.total, filepath.Base(j.path))
	}

	if err := j.uploader.limiter.WaitWithDelay(ctx, j.uploader.host, j.uploader.delay); err != nil {
		return &UploadResult{index: j.index, Path: j.path, Err: err}
	}
	return j.uploader.uploadOne(ctx, j.index, j.path)
}

// titleFromPath derives a title from the filename stem
func titleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
