package model

// Paper represents a paper record as returned by the API. Fields are
// relayed as-is; nothing here is validated client-side.
type Paper struct {
	ID       string        `json:"id"`
	Metadata PaperMetadata `json:"metadata"`
	Bboxes   []BoundingBox `json:"bboxes,omitempty"`
}

// PaperMetadata carries the descriptive fields attached at upload time
type PaperMetadata struct {
	Title            string `json:"title,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	DOI              string `json:"doi,omitempty"`
	Field            string `json:"field,omitempty"`
	Topic            string `json:"topic,omitempty"`
}

// Title returns the paper title, or a placeholder when the server has none
func (p *Paper) Title() string {
	if p.Metadata.Title == "" {
		return "Untitled"
	}
	return p.Metadata.Title
}

// BoundingBox locates an extracted element on a PDF page
type BoundingBox struct {
	Page int     `json:"page"`
	X0   float64 `json:"x0"`
	Y0   float64 `json:"y0"`
	X1   float64 `json:"x1"`
	Y1   float64 `json:"y1"`
}

// UploadReceipt is the payload of a successful POST /papers/ response
type UploadReceipt struct {
	PaperID          string `json:"paper_id"`
	Status           string `json:"status"`
	ExtractionRunID  string `json:"extraction_run_id,omitempty"`
	ProcessingStatus string `json:"processing_status,omitempty"`
}

// UploadResponse is the full response envelope from POST /papers/
type UploadResponse struct {
	Data UploadReceipt `json:"data"`
}
