// Package render formats command output: JSON dumps for files and
// human-readable summaries for the console.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/oshima-labs/paperctl/internal/model"
	"github.com/oshima-labs/paperctl/internal/worker"
)

const banner = "═══════════════════════════════════════════════════════════"

// snippetLen is how much of a claim or evidence text the summary shows
const snippetLen = 100

// sampleCount is how many claims/evidence per paper the summary shows
const sampleCount = 3

// WriteJSON writes v as indented JSON to path
func WriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// WriteRawJSON re-indents raw JSON and writes it to path. Indenting
// only reflows whitespace between tokens, so number precision and key
// order are relayed exactly as the server sent them.
func WriteRawJSON(path string, raw []byte) error {
	return writeFile(path, indentRaw(raw))
}

// FprintRawJSON prints raw JSON, re-indented, to w
func FprintRawJSON(w io.Writer, raw []byte) error {
	_, err := w.Write(indentRaw(raw))
	return err
}

func indentRaw(raw []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		// Not valid JSON; keep the bytes as-is rather than lose them
		return raw
	}
	buf.WriteByte('\n')
	return buf.Bytes()
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Truncate shortens s to at most n characters, appending an ellipsis.
// Counting is in runes so multi-byte text is never cut mid-sequence.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// ExtractsSummary prints overall stats and a per-paper breakdown of the
// extracts result.
func ExtractsSummary(w io.Writer, result *model.ExtractsResult) {
	fmt.Fprintf(w, "\n%s\n", banner)
	fmt.Fprintf(w, "  Results\n")
	fmt.Fprintf(w, "%s\n", banner)

	papers := result.Data.Papers
	if len(papers) == 0 {
		fmt.Fprintf(w, "\n! No papers found or no extracts available yet\n")
		fmt.Fprintf(w, "  Papers might still be processing. Check back later.\n")
		return
	}

	fmt.Fprintf(w, "\n✓ Retrieved %d paper(s) with extracts\n", len(papers))
	fmt.Fprintf(w, "  Total claims:   %d\n", result.Data.Stats.TotalClaims)
	fmt.Fprintf(w, "  Total evidence: %d\n", result.Data.Stats.TotalEvidence)

	grouped := result.ElementsByPaper()
	for i := range papers {
		paperSummary(w, &papers[i], grouped[papers[i].ID])
	}
}

func paperSummary(w io.Writer, paper *model.Paper, elements []model.Element) {
	claims, evidence := model.CountByType(elements)

	fmt.Fprintf(w, "\nPaper: %s\n", paper.Title())
	fmt.Fprintf(w, "  ID:       %s\n", paper.ID)
	if name := paper.Metadata.OriginalFilename; name != "" {
		fmt.Fprintf(w, "  Filename: %s\n", name)
	} else {
		fmt.Fprintf(w, "  Filename: N/A\n")
	}
	fmt.Fprintf(w, "  Claims: %d  Evidence: %d  Bounding boxes: %d\n",
		len(claims), len(evidence), len(paper.Bboxes))

	if len(claims) == 0 {
		fmt.Fprintf(w, "  ! No claims found - paper may still be processing\n")
	} else {
		fmt.Fprintf(w, "  Sample claims:\n")
		for _, c := range claims[:min(sampleCount, len(claims))] {
			fmt.Fprintf(w, "    - %s\n", Truncate(c.DisplayText(), snippetLen))
		}
	}

	if len(evidence) == 0 {
		fmt.Fprintf(w, "  ! No evidence found - paper may still be processing\n")
		return
	}
	fmt.Fprintf(w, "  Sample evidence:\n")
	for _, e := range evidence[:min(sampleCount, len(evidence))] {
		fmt.Fprintf(w, "    - %s\n", Truncate(e.DisplayText(), snippetLen))
		if e.EvidenceData != nil && len(e.EvidenceData.PointsTo) > 0 {
			fmt.Fprintf(w, "      → points to %d claim(s)\n", len(e.EvidenceData.PointsTo))
		}
	}
}

// BatchSummary prints the per-file outcomes and totals of a batch
// upload. It returns the number of failures so the caller can set the
// exit code.
func BatchSummary(w io.Writer, results []*worker.UploadResult) (failed int) {
	success, skipped := 0, 0

	fmt.Fprintf(w, "\n%s\n", banner)
	fmt.Fprintf(w, "  Upload Summary\n")
	fmt.Fprintf(w, "%s\n\n", banner)

	for _, r := range results {
		name := filepath.Base(r.Path)
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "  ✗ %s: %v\n", name, r.Err)
		case r.Skipped:
			skipped++
			fmt.Fprintf(w, "  - %s: skipped (already uploaded)\n", name)
		default:
			success++
			fmt.Fprintf(w, "  ✓ %s → %s (%s)\n", name, r.Receipt.PaperID, r.Receipt.Status)
		}
	}

	fmt.Fprintf(w, "\n  Total:    %d\n", len(results))
	fmt.Fprintf(w, "  Success:  %d\n", success)
	if skipped > 0 {
		fmt.Fprintf(w, "  Skipped:  %d\n", skipped)
	}
	fmt.Fprintf(w, "  Failed:   %d\n", failed)
	fmt.Fprintf(w, "%s\n", banner)

	return failed
}

// ReceiptSummary prints the receipt of a single upload
func ReceiptSummary(w io.Writer, receipt *model.UploadReceipt) {
	fmt.Fprintf(w, "✓ Upload successful\n")
	fmt.Fprintf(w, "  Paper ID: %s\n", receipt.PaperID)
	fmt.Fprintf(w, "  Status:   %s\n", receipt.Status)
	if receipt.ExtractionRunID != "" {
		fmt.Fprintf(w, "  Extraction run: %s\n", receipt.ExtractionRunID)
	}
	if receipt.ProcessingStatus != "" {
		fmt.Fprintf(w, "  Processing:     %s\n", receipt.ProcessingStatus)
	}
}
