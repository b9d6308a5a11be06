package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// TokenProvider supplies a bearer token for calls to sibling services and
// refreshes it on expiry. The retry policy is the source system's: attempt
// with the cached token, on 401 re-authenticate once and retry. No backoff.
type TokenProvider struct {
	tokenURL string
	username string
	password string
	client   *http.Client

	mu    sync.Mutex
	token string
}

func NewTokenProvider(tokenURL, username, password string) *TokenProvider {
	return &TokenProvider{
		tokenURL: tokenURL,
		username: username,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Token returns the cached token, authenticating first if none is held.
func (tp *TokenProvider) Token(ctx context.Context) (string, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if tp.token != "" {
		return tp.token, nil
	}
	return tp.authenticateLocked(ctx)
}

// Refresh drops the cached token and authenticates again.
func (tp *TokenProvider) Refresh(ctx context.Context) (string, error) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	tp.token = ""
	return tp.authenticateLocked(ctx)
}

func (tp *TokenProvider) authenticateLocked(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": tp.username,
		"password": tp.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tp.tokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tp.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: status %d", resp.StatusCode)
	}

	var payload struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.Access == "" {
		return "", fmt.Errorf("token response missing access token")
	}
	tp.token = payload.Access
	return tp.token, nil
}
