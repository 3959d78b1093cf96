package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/oshima-labs/paperctl/internal/cache"
	"github.com/oshima-labs/paperctl/internal/client"
	"github.com/oshima-labs/paperctl/internal/model"
	"github.com/oshima-labs/paperctl/internal/render"
)

var (
	extractsJSON    string
	extractsNoCache bool
)

// extractsCmd represents the extracts command
var extractsCmd = &cobra.Command{
	Use:   "extracts <paper-id>...",
	Short: "Fetch claims and evidence for uploaded papers",
	Long: `Extracts retrieves the claims and evidence the pipeline produced for the
given paper IDs. The full response is saved as JSON, then a per-paper
summary is printed.

Papers still being processed come back without elements; re-run later.

Example:
  paperctl extracts 16a9a57a-33f0-446d-a09d-93e84d994692
  paperctl extracts <id-1> <id-2> --json extracts.json
  paperctl extracts <id> --no-cache`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtracts,
}

func init() {
	rootCmd.AddCommand(extractsCmd)

	extractsCmd.Flags().StringVar(&extractsJSON, "json", "", "output JSON path (default: paper_extracts.json)")
	extractsCmd.Flags().BoolVar(&extractsNoCache, "no-cache", false, "bypass the extracts cache (force a fresh fetch)")
}

func runExtracts(cmd *cobra.Command, args []string) error {
	paperIDs := args
	cfg := loadConfig()

	outPath := extractsJSON
	if outPath == "" {
		outPath = cfg.Output.ExtractsPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.Timeout)
	defer cancel()

	api, _, err := newAPIClient(cfg)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Fetching extracts for %d paper(s)...\n", len(paperIDs))
	if cfg.Output.Verbose {
		for i, id := range paperIDs {
			fmt.Fprintf(os.Stderr, "  %d. %s\n", i+1, id)
		}
	}

	result, raw, err := fetchExtracts(ctx, api, newStore(cfg), cfg, paperIDs)
	if err != nil {
		return fmt.Errorf("fetch extracts: %w", err)
	}

	// Save the full dump before summarizing, so the data survives even
	// if rendering chokes on an unexpected shape.
	if err := render.WriteRawJSON(outPath, raw); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Full response saved to: %s\n", outPath)

	render.ExtractsSummary(os.Stdout, result)
	return nil
}

// fetchExtracts consults the short-lived extracts cache before calling
// the API. IDs are sorted when building the key so argument order does
// not fragment the cache.
func fetchExtracts(ctx context.Context, api *client.Client, store cache.Cache, cfg *model.Config, paperIDs []string) (*model.ExtractsResult, []byte, error) {
	sorted := append([]string(nil), paperIDs...)
	sort.Strings(sorted)
	key := cache.Key(append([]string{"extracts"}, sorted...)...)

	if store != nil && !extractsNoCache {
		if raw, found := store.Get(key); found {
			if cfg.Output.Verbose {
				fmt.Fprintln(os.Stderr, "  (cached)")
			}
			result, err := client.DecodeExtracts(raw)
			if err == nil {
				return result, raw, nil
			}
			_ = store.Delete(key)
		}
	}

	result, raw, err := api.FetchExtracts(ctx, paperIDs)
	if err != nil {
		return nil, nil, err
	}

	if store != nil {
		_ = store.Set(key, raw, cfg.Cache.ExtractsTTL)
	}
	return result, raw, nil
}
