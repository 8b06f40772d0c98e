package extractor

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

	"github.com/seoextraction/extractor-api/internal/pkg/env"
)

const defaultAPIBaseURL = "https://language.googleapis.com/v1"

// MinSalience filters out entities the analysis API considers marginal.
const MinSalience = 0.1

// Keyword is one salient entity extracted from the input text.
type Keyword struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Salience float64 `json:"salience"`
}

// Client calls the entity-analysis API. Stateless; one call per request.
type Client struct {
	APIKey     string
	APIBaseURL string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from EXTRACTOR_API_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		APIKey:     strings.TrimSpace(env.GetEnv("EXTRACTOR_API_KEY", "")),
		APIBaseURL: strings.TrimSpace(env.GetEnv("EXTRACTOR_API_BASE_URL", defaultAPIBaseURL)),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ExtractKeywords analyzes the text and returns entities above MinSalience.
func (c *Client) ExtractKeywords(ctx context.Context, text string) ([]Keyword, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("text is required")
	}
	if c.APIKey == "" {
		return nil, errors.New("extractor API key is not configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"document": map[string]string{
			"content": text,
			"type":    "PLAIN_TEXT",
		},
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/documents:analyzeEntities?key=%s", strings.TrimRight(c.APIBaseURL, "/"), c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("entity analysis failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out struct {
		Entities []struct {
			Name     string  `json:"name"`
			Type     string  `json:"type"`
			Salience float64 `json:"salience"`
		} `json:"entities"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}

	keywords := make([]Keyword, 0, len(out.Entities))
	for _, e := range out.Entities {
		if e.Salience <= MinSalience {
			continue
		}
		keywords = append(keywords, Keyword{Name: e.Name, Type: e.Type, Salience: e.Salience})
	}
	return keywords, nil
}
