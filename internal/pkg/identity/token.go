package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// expiryLeeway refreshes the token slightly before the provider invalidates
// it so in-flight requests never carry an expired credential.
const expiryLeeway = 30 * time.Second

type tokenConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Audience     string
	HTTPClient   *http.Client
}

// tokenSource caches the management API token for its full lifetime and
// coalesces concurrent refreshes into a single outstanding request.
type tokenSource struct {
	cfg tokenConfig

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	group singleflight.Group
	now   func() time.Time
}

func newTokenSource(cfg tokenConfig) *tokenSource {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &tokenSource{cfg: cfg, now: time.Now}
}

// Token returns the cached management token, refreshing it when expired.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	if token, ok := s.cached(); ok {
		return token, nil
	}

	v, err, _ := s.group.Do("management-token", func() (interface{}, error) {
		// Another caller may have refreshed while we waited on the group.
		if token, ok := s.cached(); ok {
			return token, nil
		}
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *tokenSource) cached() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.now().Add(expiryLeeway).After(s.expiresAt) {
		return "", false
	}
	return s.token, true
}

func (s *tokenSource) refresh(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     s.cfg.ClientID,
		"client_secret": s.cfg.ClientSecret,
		"audience":      s.cfg.Audience,
		"grant_type":    "client_credentials",
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("token request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}

	expiresAt := s.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	s.mu.Lock()
	s.token = out.AccessToken
	s.expiresAt = expiresAt
	s.mu.Unlock()

	return out.AccessToken, nil
}
