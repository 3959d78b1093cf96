package model

// ElementType distinguishes the two kinds of extracted elements
type ElementType string

const (
	ElementClaim    ElementType = "claim"
	ElementEvidence ElementType = "evidence"
)

// Element is a single claim or evidence extracted from a paper
type Element struct {
	ID            string        `json:"id"`
	PaperID       string        `json:"paper_id"`
	Type          ElementType   `json:"type"`
	TextVerbatim  string        `json:"text_verbatim,omitempty"`
	TextRephrased string        `json:"text_rephrased,omitempty"`
	EvidenceData  *EvidenceData `json:"evidence_data,omitempty"`
}

// EvidenceData holds evidence-specific linkage
type EvidenceData struct {
	PointsTo []string `json:"points_to,omitempty"` // claim IDs this evidence supports
}

// DisplayText prefers the rephrased form, falling back to the verbatim text
func (e *Element) DisplayText() string {
	if e.TextRephrased != "" {
		return e.TextRephrased
	}
	return e.TextVerbatim
}

// ExtractsStats is the aggregate count block from the extracts endpoint
type ExtractsStats struct {
	TotalClaims   int `json:"total_claims"`
	TotalEvidence int `json:"total_evidence"`
}

// ExtractsData is the data payload of POST /papers/extracts
type ExtractsData struct {
	Papers   []Paper       `json:"papers"`
	Elements []Element     `json:"elements"`
	Stats    ExtractsStats `json:"stats"`
}

// ExtractsResult is the full response envelope from POST /papers/extracts
type ExtractsResult struct {
	Data ExtractsData `json:"data"`
}

// ElementsByPaper groups elements by their owning paper ID
func (r *ExtractsResult) ElementsByPaper() map[string][]Element {
	grouped := make(map[string][]Element)
	for _, el := range r.Data.Elements {
		grouped[el.PaperID] = append(grouped[el.PaperID], el)
	}
	return grouped
}

// CountByType splits a slice of elements into claim and evidence subsets
func CountByType(elements []Element) (claims, evidence []Element) {
	for _, el := range elements {
		switch el.Type {
		case ElementClaim:
			claims = append(claims, el)
		case ElementEvidence:
			evidence = append(evidence, el)
		}
	}
	return claims, evidence
}
