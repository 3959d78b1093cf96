package client

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oshima-labs/paperctl/internal/auth"
	"github.com/oshima-labs/paperctl/internal/model"
	"github.com/oshima-labs/paperctl/internal/util"
)

// retrySleepFunc is overridable in tests to avoid real backoff waits
var retrySleepFunc = sleepCtx

// retryBaseDelay is the starting backoff; it doubles per attempt
const retryBaseDelay = 500 * time.Millisecond

// maxErrorBody caps how much of an error response body is echoed back
const maxErrorBody = 2048

// TokenProvider yields a live access token for the Authorization header
type TokenProvider interface {
	Token(ctx context.Context) (*auth.Token, error)
}

// APIError is a non-2xx response from the paper API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the paper-processing API. All requests carry a bearer
// token obtained from the TokenProvider.
type Client struct {
	baseURL      string
	tokens       TokenProvider
	httpClient   *http.Client // auth/extracts calls
	uploadClient *http.Client // longer timeout, PDF bodies
	userAgent    string
	maxBodyBytes int64
	maxRetries   int
}

// New creates an API client from the HTTP section of the configuration
func New(baseURL string, tokens TokenProvider, cfg model.HTTPConfig) *Client {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:       cfg.Timeout,
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		uploadClient: &http.Client{
			Timeout:       cfg.UploadTimeout,
			Transport:     transport,
			CheckRedirect: checkRedirect,
		},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		maxRetries:   cfg.MaxRetries,
	}
}

// do executes a request with bearer auth and retries transient failures
// (429 and 5xx) with exponential backoff, honoring Retry-After when the
// server sends one. build is called per attempt so request bodies can be
// reconstructed.
func (c *Client) do(ctx context.Context, hc *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire token: %w", err)
	}

	for attempt := 0; ; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}
		req = req.WithContext(ctx)
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := hc.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request: %w", err)
		}

		if !retryable(resp.StatusCode) || attempt >= c.maxRetries {
			return resp, nil
		}

		delay := backoff(attempt, resp.Header.Get("Retry-After"))

		// Drain and close before retrying
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := retrySleepFunc(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// readBody reads the response body up to the configured cap
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	return io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
}

// apiError builds an APIError from a non-2xx response
func (c *Client) apiError(resp *http.Response) *APIError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(snippet)),
	}
}

func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// backoff computes the wait before the next attempt. A parseable
// Retry-After (seconds) wins over the exponential schedule.
func backoff(attempt int, retryAfter string) time.Duration {
	if retryAfter != "" {
		if secs, err := strconv.Atoi(retryAfter); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return retryBaseDelay << attempt
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
