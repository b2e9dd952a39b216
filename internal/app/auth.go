package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"webterms/api/internal/session"
)

var (
	ErrAuthNotConfigured   = errors.New("auth base url not configured")
	ErrUpstreamRejected    = errors.New("upstream rejected credentials")
	ErrUpstreamUnavailable = errors.New("upstream auth unavailable")
)

// UploadOptions is the scope vocabulary served to the upload form. It comes
// from the upstream config endpoint so that platform and product-line lists
// stay centrally managed.
type UploadOptions struct {
	Platforms []string `json:"platforms"`
	Lines     []string `json:"lines"`
	DocTypes  []string `json:"docTypes"`
	Languages []string `json:"languages"`
}

// UpstreamAuth proxies credential checks and upload vocabulary to the
// central auth service. A zero base URL disables it.
type UpstreamAuth struct {
	baseURL string
	client  *http.Client
}

func NewUpstreamAuth(baseURL string) *UpstreamAuth {
	return &UpstreamAuth{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Login verifies the credentials against the upstream service.
func (a *UpstreamAuth) Login(ctx context.Context, username, password string) (session.User, error) {
	if a.baseURL == "" {
		return session.User{}, ErrAuthNotConfigured
	}
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return session.User{}, fmt.Errorf("encode login payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return session.User{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return session.User{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return session.User{}, ErrUpstreamRejected
	default:
		return session.User{}, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return session.User{}, fmt.Errorf("decode login response: %w", err)
	}
	if body.Username == "" {
		body.Username = username
	}
	return session.User{Username: body.Username}, nil
}

// FetchConfig loads the scope vocabulary from upstream.
func (a *UpstreamAuth) FetchConfig(ctx context.Context) (UploadOptions, error) {
	if a.baseURL == "" {
		return UploadOptions{}, ErrAuthNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/config", nil)
	if err != nil {
		return UploadOptions{}, fmt.Errorf("build config request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return UploadOptions{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return UploadOptions{}, fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	var options UploadOptions
	if err := json.NewDecoder(resp.Body).Decode(&options); err != nil {
		return UploadOptions{}, fmt.Errorf("decode config response: %w", err)
	}
	return options, nil
}
