package render

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/oshima-labs/paperctl/internal/model"
	"github.com/oshima-labs/paperctl/internal/worker"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 100); got != "short" {
		t.Errorf("short strings pass through, got %q", got)
	}

	long := strings.Repeat("x", 150)
	got := Truncate(long, 100)
	if len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 100 chars + ellipsis, got %d chars", len(got))
	}
}

func TestTruncate_MultiByte(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := Truncate(long, 100)

	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
	if want := strings.Repeat("é", 100) + "..."; got != want {
		t.Errorf("expected 100 runes + ellipsis, got %d runes", utf8.RuneCountInString(got))
	}
}

func TestWriteRawJSON_Reindents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "extracts.json")
	raw := []byte(`{"data":{"papers":[],"stats":{"total_claims":0}}}`)

	if err := WriteRawJSON(path, raw); err != nil {
		t.Fatalf("WriteRawJSON failed: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !strings.Contains(string(written), "\"total_claims\": 0") {
		t.Errorf("expected indented JSON, got: %s", written)
	}
}

func TestWriteRawJSON_PreservesTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	// An int64 beyond float64 precision and keys out of sorted order;
	// both must come back untouched.
	raw := []byte(`{"data":{"stats":{"run_id":9007199254740993,"b":2,"a":1}}}`)

	if err := WriteRawJSON(path, raw); err != nil {
		t.Fatalf("WriteRawJSON failed: %v", err)
	}

	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	out := string(written)
	if !strings.Contains(out, "9007199254740993") {
		t.Errorf("large integer was altered: %s", out)
	}
	if strings.Index(out, `"b"`) > strings.Index(out, `"a"`) {
		t.Errorf("key order was not preserved: %s", out)
	}
}

func TestFprintRawJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := FprintRawJSON(&buf, []byte(`{"data":{"paper_id":"p-1"}}`)); err != nil {
		t.Fatalf("FprintRawJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), "\"paper_id\": \"p-1\"") {
		t.Errorf("expected indented JSON, got: %s", buf.String())
	}
}

func TestWriteRawJSON_KeepsInvalidBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	raw := []byte("not json at all")

	if err := WriteRawJSON(path, raw); err != nil {
		t.Fatalf("WriteRawJSON failed: %v", err)
	}

	written, _ := os.ReadFile(path)
	if string(written) != "not json at all" {
		t.Errorf("invalid JSON should be written verbatim, got: %s", written)
	}
}

func sampleExtracts() *model.ExtractsResult {
	return &model.ExtractsResult{
		Data: model.ExtractsData{
			Papers: []model.Paper{
				{
					ID: "p-1",
					Metadata: model.PaperMetadata{
						Title:            "Deep Learning for Laksa Classification",
						OriginalFilename: "laksa.pdf",
					},
					Bboxes: []model.BoundingBox{{Page: 1}},
				},
			},
			Elements: []model.Element{
				{PaperID: "p-1", Type: model.ElementClaim, TextRephrased: "Laksa can be classified by broth."},
				{PaperID: "p-1", Type: model.ElementEvidence, TextVerbatim: "Table 2 shows broth clusters.",
					EvidenceData: &model.EvidenceData{PointsTo: []string{"c1", "c2"}}},
			},
			Stats: model.ExtractsStats{TotalClaims: 1, TotalEvidence: 1},
		},
	}
}

func TestExtractsSummary(t *testing.T) {
	var buf bytes.Buffer
	ExtractsSummary(&buf, sampleExtracts())
	out := buf.String()

	for _, want := range []string{
		"Retrieved 1 paper(s)",
		"Total claims:   1",
		"Deep Learning for Laksa Classification",
		"laksa.pdf",
		"Laksa can be classified by broth.",
		"Table 2 shows broth clusters.",
		"points to 2 claim(s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestExtractsSummary_NoPapers(t *testing.T) {
	var buf bytes.Buffer
	ExtractsSummary(&buf, &model.ExtractsResult{})

	if !strings.Contains(buf.String(), "No papers found") {
		t.Errorf("expected empty-result notice, got: %s", buf.String())
	}
}

func TestExtractsSummary_StillProcessing(t *testing.T) {
	result := &model.ExtractsResult{
		Data: model.ExtractsData{
			Papers: []model.Paper{{ID: "p-1"}},
		},
	}

	var buf bytes.Buffer
	ExtractsSummary(&buf, result)
	out := buf.String()

	if !strings.Contains(out, "No claims found - paper may still be processing") {
		t.Errorf("expected processing notice for claims, got: %s", out)
	}
	if !strings.Contains(out, "No evidence found") {
		t.Errorf("expected processing notice for evidence, got: %s", out)
	}
	if !strings.Contains(out, "Untitled") {
		t.Errorf("expected placeholder title, got: %s", out)
	}
}

func TestBatchSummary(t *testing.T) {
	results := []*worker.UploadResult{
		{Path: "/papers/a.pdf", Receipt: &model.UploadReceipt{PaperID: "p-1", Status: "uploaded"}},
		{Path: "/papers/b.pdf", Skipped: true},
		{Path: "/papers/c.pdf", Err: errors.New("server rejected upload")},
	}

	var buf bytes.Buffer
	failed := BatchSummary(&buf, results)
	out := buf.String()

	if failed != 1 {
		t.Errorf("expected 1 failure, got %d", failed)
	}
	for _, want := range []string{
		"✓ a.pdf → p-1 (uploaded)",
		"- b.pdf: skipped (already uploaded)",
		"✗ c.pdf: server rejected upload",
		"Total:    3",
		"Success:  1",
		"Skipped:  1",
		"Failed:   1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
}

func TestReceiptSummary(t *testing.T) {
	var buf bytes.Buffer
	ReceiptSummary(&buf, &model.UploadReceipt{
		PaperID:          "p-1",
		Status:           "uploaded",
		ExtractionRunID:  "run-9",
		ProcessingStatus: "queued",
	})
	out := buf.String()

	for _, want := range []string{"p-1", "uploaded", "run-9", "queued"} {
		if !strings.Contains(out, want) {
			t.Errorf("receipt missing %q\n%s", want, out)
		}
	}
}
