package extractor

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractKeywordsFiltersBySalience(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("key"); got != "test-key" {
			t.Errorf("api key = %q, want test-key", got)
		}

		var body struct {
			Document map[string]string `json:"document"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("request body did not decode: %v", err)
		}
		if body.Document["type"] != "PLAIN_TEXT" {
			t.Errorf("document type = %q, want PLAIN_TEXT", body.Document["type"])
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"entities":[
			{"name":"golang","type":"OTHER","salience":0.62},
			{"name":"berlin","type":"LOCATION","salience":0.11},
			{"name":"noise","type":"OTHER","salience":0.1},
			{"name":"marginal","type":"OTHER","salience":0.02}
		]}`)
	}))
	defer srv.Close()

	client := &Client{APIKey: "test-key", APIBaseURL: srv.URL, HTTPClient: srv.Client()}

	keywords, err := client.ExtractKeywords(context.Background(), "golang meetup in berlin")
	if err != nil {
		t.Fatalf("ExtractKeywords returned error: %v", err)
	}
	if len(keywords) != 2 {
		t.Fatalf("expected 2 keywords above the salience floor, got %d: %v", len(keywords), keywords)
	}
	if keywords[0].Name != "golang" || keywords[1].Name != "berlin" {
		t.Fatalf("unexpected keywords %v", keywords)
	}
}

func TestExtractKeywordsRequiresInput(t *testing.T) {
	client := &Client{APIKey: "test-key", APIBaseURL: "http://unused", HTTPClient: http.DefaultClient}
	if _, err := client.ExtractKeywords(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank text")
	}

	client.APIKey = ""
	if _, err := client.ExtractKeywords(context.Background(), "some text"); err == nil {
		t.Fatalf("expected error for missing api key")
	}
}

func TestExtractKeywordsServerFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := &Client{APIKey: "test-key", APIBaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := client.ExtractKeywords(context.Background(), "text"); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
}
