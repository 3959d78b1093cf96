package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oshima-labs/paperctl/internal/model"
)

type extractsRequest struct {
	PaperIDs []string `json:"paper_ids"`
}

// FetchExtracts retrieves claims and evidence for the given paper IDs.
// It returns the decoded result and the raw response body so callers can
// relay the server's JSON byte-faithfully.
func (c *Client) FetchExtracts(ctx context.Context, paperIDs []string) (*model.ExtractsResult, []byte, error) {
	payload, err := json.Marshal(extractsRequest{PaperIDs: paperIDs})
	if err != nil {
		return nil, nil, fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/api/v1/papers/extracts"
	build := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	resp, err := c.do(ctx, c.httpClient, build)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, c.apiError(resp)
	}

	raw, err := c.readBody(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	result, err := DecodeExtracts(raw)
	if err != nil {
		return nil, nil, err
	}

	return result, raw, nil
}

// DecodeExtracts parses an extracts response body. Cached responses go
// through the same path as live ones.
func DecodeExtracts(raw []byte) (*model.ExtractsResult, error) {
	var result model.ExtractsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode extracts response: %w", err)
	}
	return &result, nil
}
