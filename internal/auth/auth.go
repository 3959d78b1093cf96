package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingToken is returned when the auth endpoint answers 200 but the
// body carries no access token.
var ErrMissingToken = errors.New("no access token in auth response")

// maxErrorBody caps how much of an error response body is echoed back
const maxErrorBody = 2048

// Token is the response of the Supabase token endpoint
type Token struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"` // seconds
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         TokenUser `json:"user,omitempty"`
}

// TokenUser identifies the signed-in user
type TokenUser struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email,omitempty"`
}

// Client signs in against a Supabase auth endpoint using the project's
// anon key plus user credentials, yielding a JWT for the paper API.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates an auth client for the given Supabase project URL
func NewClient(baseURL, anonKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SignIn performs a password grant and returns the token
func (c *Client) SignIn(ctx context.Context, email, password string) (*Token, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}
	return c.grant(ctx, "password", body)
}

// Refresh exchanges a refresh token for a fresh access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	body := map[string]string{
		"refresh_token": refreshToken,
	}
	return c.grant(ctx, "refresh_token", body)
}

func (c *Client) grant(ctx context.Context, grantType string, body map[string]string) (*Token, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal grant body: %w", err)
	}

	url := c.baseURL + "/auth/v1/token?grant_type=" + grantType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("authentication failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var token Token
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return nil, fmt.Errorf("decode auth response: %w", err)
	}

	if token.AccessToken == "" {
		return nil, ErrMissingToken
	}

	return &token, nil
}
