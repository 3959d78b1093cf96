package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshima-labs/paperctl/internal/render"
	"github.com/oshima-labs/paperctl/internal/worker"
)

var (
	batchPattern     string
	batchDelay       time.Duration
	batchField       string
	batchTopic       string
	batchConcurrency int
	batchForce       bool
	batchJSON        string
	batchTimeout     time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <directory>",
	Short: "Upload a directory of PDFs",
	Long: `Batch uploads every PDF in a directory, using the filename stem as the
title. Uploads are paced with a delay to stay under the API's rate
limit, and files whose contents were already uploaded are skipped
unless --force is given.

Example:
  paperctl batch ./papers
  paperctl batch ./papers --field 'Computer Science' --topic 'AI'
  paperctl batch ./papers --delay 2s --concurrency 4`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchPattern, "pattern", "*.pdf", "file pattern to match")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", time.Second, "delay between uploads")
	batchCmd.Flags().StringVar(&batchField, "field", "", "research field applied to every paper")
	batchCmd.Flags().StringVar(&batchTopic, "topic", "", "research topic applied to every paper")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 1, "number of concurrent uploads")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "upload even if a file was uploaded before")
	batchCmd.Flags().StringVar(&batchJSON, "json", "", "write a JSON manifest of the batch to this path")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for the whole batch")
}

// manifestEntry is one line of the optional JSON manifest
type manifestEntry struct {
	Filename string `json:"filename"`
	PaperID  string `json:"paper_id,omitempty"`
	Status   string `json:"status"` // success, skipped, failed
	Error    string `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	dir := args[0]
	cfg := loadConfig()

	// The flag default is only a placeholder; the configured delay
	// applies unless --delay was given explicitly.
	if !cmd.Flags().Changed("delay") {
		batchDelay = cfg.RateLimiting.UploadDelay
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	api, _, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	if batchConcurrency > 1 {
		cfg.Concurrency.Workers = batchConcurrency
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	ledger := worker.NewLedger(newStore(cfg))

	uploader := worker.NewUploader(api, limiter, ledger, worker.UploaderConfig{
		APIBaseURL: cfg.API.BaseURL,
		Workers:    cfg.Concurrency.Workers,
		Delay:      batchDelay,
		Field:      batchField,
		Topic:      batchTopic,
		Force:      batchForce,
	})
	uploader.Progress = func(index, total int, name string) {
		fmt.Fprintf(os.Stderr, "[%d/%d] Uploading: %s\n", index+1, total, name)
	}

	files, err := worker.ListPDFs(dir, batchPattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "! No files matching %q found in %s\n", batchPattern, dir)
		return nil
	}

	fmt.Fprintf(os.Stderr, "Found %d file(s) in %s\n", len(files), dir)

	results := uploader.UploadFiles(ctx, files)
	failed := render.BatchSummary(os.Stderr, results)

	if batchJSON != "" {
		if err := writeManifest(batchJSON, results); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote manifest: %s\n", batchJSON)
	}

	if failed > 0 {
		return fmt.Errorf("%d upload(s) failed", failed)
	}
	return nil
}

func writeManifest(path string, results []*worker.UploadResult) error {
	entries := make([]manifestEntry, 0, len(results))
	for _, r := range results {
		entry := manifestEntry{Filename: r.Path}
		switch {
		case r.Err != nil:
			entry.Status = "failed"
			entry.Error = r.Err.Error()
		case r.Skipped:
			entry.Status = "skipped"
		default:
			entry.Status = "success"
			entry.PaperID = r.Receipt.PaperID
		}
		entries = append(entries, entry)
	}
	return render.WriteJSON(path, entries)
}
