package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oshima-labs/paperctl/internal/client"
	"github.com/oshima-labs/paperctl/internal/render"
)

var (
	uploadTitle string
	uploadDOI   string
	uploadField string
	uploadTopic string
	uploadJSON  string
)

// uploadCmd represents the upload command
var uploadCmd = &cobra.Command{
	Use:   "upload <pdf>",
	Short: "Upload a single PDF for processing",
	Long: `Upload submits one PDF to the paper API, which queues it for claim and
evidence extraction. Metadata fields are optional; a missing title is
filled in server-side from the document.

Example:
  paperctl upload ./paper.pdf
  paperctl upload ./paper.pdf --title 'Attention Is All You Need' --field 'Computer Science'
  paperctl upload ./paper.pdf --doi 10.1234/example --json receipt.json`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "paper title")
	uploadCmd.Flags().StringVar(&uploadDOI, "doi", "", "paper DOI")
	uploadCmd.Flags().StringVar(&uploadField, "field", "", "research field")
	uploadCmd.Flags().StringVar(&uploadTopic, "topic", "", "research topic")
	uploadCmd.Flags().StringVar(&uploadJSON, "json", "", "write the full response JSON to this path")
}

func runUpload(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.UploadTimeout)
	defer cancel()

	api, _, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Uploading %s...\n", filepath.Base(pdfPath))
	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "  API: %s\n", cfg.API.BaseURL)
		if uploadTitle != "" {
			fmt.Fprintf(os.Stderr, "  Title: %s\n", uploadTitle)
		}
		if uploadField != "" {
			fmt.Fprintf(os.Stderr, "  Field: %s\n", uploadField)
		}
		if uploadTopic != "" {
			fmt.Fprintf(os.Stderr, "  Topic: %s\n", uploadTopic)
		}
	}

	resp, raw, err := api.UploadPaper(ctx, client.UploadRequest{
		Path:  pdfPath,
		Title: uploadTitle,
		DOI:   uploadDOI,
		Field: uploadField,
		Topic: uploadTopic,
	})
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	render.ReceiptSummary(os.Stdout, &resp.Data)

	fmt.Println("\nFull response:")
	if err := render.FprintRawJSON(os.Stdout, raw); err != nil {
		return err
	}

	if uploadJSON != "" {
		if err := render.WriteRawJSON(uploadJSON, raw); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote response: %s\n", uploadJSON)
	}

	return nil
}
