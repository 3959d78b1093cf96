package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshima-labs/paperctl/internal/model"
)

// UploadRequest describes one PDF to submit to POST /papers/
type UploadRequest struct {
	Path  string // local PDF path
	Title string
	DOI   string
	Field string
	Topic string
}

// UploadPaper submits a PDF with optional metadata form fields. It
// returns the decoded receipt and the raw response body. The server
// answers 200 or 201 on success.
func (c *Client) UploadPaper(ctx context.Context, req UploadRequest) (*model.UploadResponse, []byte, error) {
	if _, err := os.Stat(req.Path); err != nil {
		return nil, nil, fmt.Errorf("pdf not found: %s", req.Path)
	}

	url := c.baseURL + "/api/v1/papers/"

	// Rebuilt per attempt so retries resend a complete body
	build := func() (*http.Request, error) {
		body, contentType, err := multipartBody(req)
		if err != nil {
			return nil, err
		}
		httpReq, err := http.NewRequest(http.MethodPost, url, body)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", contentType)
		return httpReq, nil
	}

	resp, err := c.do(ctx, c.uploadClient, build)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, nil, c.apiError(resp)
	}

	raw, err := c.readBody(resp)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	var decoded model.UploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, nil, fmt.Errorf("decode upload response: %w", err)
	}

	return &decoded, raw, nil
}

// multipartBody builds the multipart form: the PDF under the "file" part
// with an application/pdf content type, plus any non-empty metadata
// fields.
func multipartBody(req UploadRequest) (io.Reader, string, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filepath.Base(req.Path))))
	header.Set("Content-Type", "application/pdf")

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("write file part: %w", err)
	}

	fields := map[string]string{
		"title": req.Title,
		"doi":   req.DOI,
		"field": req.Field,
		"topic": req.Topic,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
