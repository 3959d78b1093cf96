package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oshima-labs/paperctl/internal/cache"
)

// timeNow is overridable in tests
var timeNow = time.Now

// TokenSource yields a valid access token, reusing a cached sign-in when
// one is still live. A nil cache disables reuse and every call signs in.
type TokenSource struct {
	client   *Client
	cache    cache.Cache
	cacheKey string
	email    string
	password string
	slack    time.Duration
}

type cachedToken struct {
	Token    Token     `json:"token"`
	IssuedAt time.Time `json:"issued_at"`
}

// NewTokenSource creates a token source for the given credentials. slack
// is subtracted from the token lifetime so a token is never handed out
// moments before it expires.
func NewTokenSource(client *Client, store cache.Cache, email, password string, slack time.Duration) *TokenSource {
	return &TokenSource{
		client:   client,
		cache:    store,
		cacheKey: cache.Key("token", client.baseURL, email),
		email:    email,
		password: password,
		slack:    slack,
	}
}

// Token returns a live access token, signing in if needed
func (s *TokenSource) Token(ctx context.Context) (*Token, error) {
	if cached := s.load(); cached != nil {
		return cached, nil
	}

	token, err := s.signIn(ctx)
	if err != nil {
		return nil, err
	}
	s.store(token)
	return token, nil
}

// ForceSignIn discards any cached token and signs in fresh
func (s *TokenSource) ForceSignIn(ctx context.Context) (*Token, error) {
	if s.cache != nil {
		_ = s.cache.Delete(s.cacheKey)
	}
	token, err := s.signIn(ctx)
	if err != nil {
		return nil, err
	}
	s.store(token)
	return token, nil
}

// signIn prefers the refresh grant when a cached refresh token survives
// the access token's expiry, falling back to the password grant.
func (s *TokenSource) signIn(ctx context.Context) (*Token, error) {
	if refresh := s.refreshToken(); refresh != "" {
		token, err := s.client.Refresh(ctx, refresh)
		if err == nil {
			return token, nil
		}
		// Revoked or stale refresh token; sign in from scratch
	}
	return s.client.SignIn(ctx, s.email, s.password)
}

// load returns the cached token if it is still within its lifetime
func (s *TokenSource) load() *Token {
	entry := s.loadEntry()
	if entry == nil {
		return nil
	}

	lifetime := time.Duration(entry.Token.ExpiresIn)*time.Second - s.slack
	if lifetime <= 0 || timeNow().After(entry.IssuedAt.Add(lifetime)) {
		return nil
	}

	return &entry.Token
}

// refreshToken returns the cached refresh token even when the access
// token itself has expired; refresh tokens outlive access tokens.
func (s *TokenSource) refreshToken() string {
	entry := s.loadEntry()
	if entry == nil {
		return ""
	}
	return entry.Token.RefreshToken
}

func (s *TokenSource) loadEntry() *cachedToken {
	if s.cache == nil {
		return nil
	}
	raw, found := s.cache.Get(s.cacheKey)
	if !found {
		return nil
	}
	var entry cachedToken
	if err := json.Unmarshal(raw, &entry); err != nil {
		_ = s.cache.Delete(s.cacheKey)
		return nil
	}
	return &entry
}

func (s *TokenSource) store(token *Token) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(cachedToken{
		Token:    *token,
		IssuedAt: timeNow(),
	})
	if err != nil {
		return
	}

	// Keep the entry past access-token expiry so the refresh token
	// remains usable on the next run. Cache failures are not fatal;
	// the next call simply signs in again.
	_ = s.cache.Set(s.cacheKey, raw, 30*24*time.Hour)
}
