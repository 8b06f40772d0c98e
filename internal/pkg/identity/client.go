package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seoextraction/extractor-api/internal/pkg/env"
)

// ErrMetadataUnavailable marks transient identity-store faults (transport,
// auth, 5xx). Callers must not treat it as an empty or false answer.
var ErrMetadataUnavailable = errors.New("identity metadata unavailable")

// ErrUserNotFound is returned when a lookup matches no identity record.
var ErrUserNotFound = errors.New("identity user not found")

// Metadata is the app-owned attribute blob on an identity record.
type Metadata struct {
	UsageCount   int    `json:"usageCount"`
	IsRegistered bool   `json:"isRegistered"`
	CustomerID   string `json:"stripeCustomerId,omitempty"`
}

// MetadataPatch is a partial update; nil fields are left untouched.
type MetadataPatch struct {
	UsageCount   *int    `json:"usageCount,omitempty"`
	IsRegistered *bool   `json:"isRegistered,omitempty"`
	CustomerID   *string `json:"stripeCustomerId,omitempty"`
}

// Client talks to the identity provider's management API.
type Client struct {
	APIBaseURL string

	HTTPClient *http.Client

	tokens *tokenSource
}

// NewClientFromEnv builds a management client from IDP_* environment variables.
func NewClientFromEnv() *Client {
	domain := strings.TrimSuffix(strings.TrimSpace(env.GetEnv("IDP_DOMAIN", "")), "/")
	httpClient := &http.Client{Timeout: 15 * time.Second}

	return &Client{
		APIBaseURL: fmt.Sprintf("https://%s/api/v2", domain),
		HTTPClient: httpClient,
		tokens: newTokenSource(tokenConfig{
			TokenURL:     fmt.Sprintf("https://%s/oauth/token", domain),
			ClientID:     strings.TrimSpace(env.GetEnv("IDP_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(env.GetEnv("IDP_CLIENT_SECRET", "")),
			Audience:     fmt.Sprintf("https://%s/api/v2/", domain),
			HTTPClient:   httpClient,
		}),
	}
}

// GetUser fetches the metadata blob for a user id, defaulting absent fields.
func (c *Client) GetUser(ctx context.Context, userID string) (*Metadata, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	var out struct {
		UserID      string   `json:"user_id"`
		AppMetadata Metadata `json:"app_metadata"`
	}
	endpoint := c.APIBaseURL + "/users/" + url.PathEscape(userID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return &out.AppMetadata, nil
}

// PatchMetadata applies a partial app_metadata update to a user record.
func (c *Client) PatchMetadata(ctx context.Context, userID string, patch MetadataPatch) error {
	if strings.TrimSpace(userID) == "" {
		return errors.New("user id is required")
	}

	body := struct {
		AppMetadata MetadataPatch `json:"app_metadata"`
	}{AppMetadata: patch}

	endpoint := c.APIBaseURL + "/users/" + url.PathEscape(userID)
	return c.do(ctx, http.MethodPatch, endpoint, body, nil)
}

// MarkRegistered sets the registration flag to true. Set-to-true, never
// toggle, so webhook replays and the two independent setup paths converge on
// the same state.
func (c *Client) MarkRegistered(ctx context.Context, userID string) error {
	registered := true
	return c.PatchMetadata(ctx, userID, MetadataPatch{IsRegistered: &registered})
}

// SetCustomerID links a payment-processor customer id to a user record.
func (c *Client) SetCustomerID(ctx context.Context, userID, customerID string) error {
	id := strings.TrimSpace(customerID)
	if id == "" {
		return errors.New("customer id is required")
	}
	return c.PatchMetadata(ctx, userID, MetadataPatch{CustomerID: &id})
}

// FindUserByCustomerID reverse-queries the identity store for the user whose
// metadata links the given payment-customer id.
func (c *Client) FindUserByCustomerID(ctx context.Context, customerID string) (string, error) {
	if strings.TrimSpace(customerID) == "" {
		return "", errors.New("customer id is required")
	}

	u, err := url.Parse(c.APIBaseURL + "/users")
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("q", fmt.Sprintf("app_metadata.stripeCustomerId:%q", customerID))
	q.Set("search_engine", "v3")
	u.RawQuery = q.Encode()

	var out []struct {
		UserID string `json:"user_id"`
	}
	if err := c.do(ctx, http.MethodGet, u.String(), nil, &out); err != nil {
		return "", err
	}
	if len(out) == 0 || strings.TrimSpace(out[0].UserID) == "" {
		return "", ErrUserNotFound
	}
	return out[0].UserID, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, in, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: management token: %v", ErrMetadataUnavailable, err)
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status=%d body=%s", ErrMetadataUnavailable, resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", ErrMetadataUnavailable, err)
		}
	}
	return nil
}
