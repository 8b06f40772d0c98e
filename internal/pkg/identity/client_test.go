package identity

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient serves the management API and the token endpoint from one
// httptest server.
func newTestClient(t *testing.T, api http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/api/v2/", api)

	srv := httptest.NewServer(mux)
	client := &Client{
		APIBaseURL: srv.URL + "/api/v2",
		HTTPClient: srv.Client(),
		tokens: newTokenSource(tokenConfig{
			TokenURL:   srv.URL + "/oauth/token",
			HTTPClient: srv.Client(),
		}),
	}
	return client, srv
}

func TestGetUserDefaultsMissingMetadata(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"user_id":"auth0|u1"}`)
	})
	defer srv.Close()

	meta, err := client.GetUser(context.Background(), "auth0|u1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if meta.UsageCount != 0 || meta.IsRegistered || meta.CustomerID != "" {
		t.Fatalf("expected zero-value metadata, got %+v", meta)
	}
}

func TestGetUserReadsMetadata(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"user_id":"auth0|u1","app_metadata":{"usageCount":4,"isRegistered":true,"stripeCustomerId":"cus_1"}}`)
	})
	defer srv.Close()

	meta, err := client.GetUser(context.Background(), "auth0|u1")
	if err != nil {
		t.Fatalf("GetUser returned error: %v", err)
	}
	if meta.UsageCount != 4 || !meta.IsRegistered || meta.CustomerID != "cus_1" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
}

func TestPatchMetadataSendsOnlySetFields(t *testing.T) {
	var captured map[string]map[string]interface{}
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("patch body did not decode: %v", err)
		}
		io.WriteString(w, `{}`)
	})
	defer srv.Close()

	count := 3
	if err := client.PatchMetadata(context.Background(), "auth0|u1", MetadataPatch{UsageCount: &count}); err != nil {
		t.Fatalf("PatchMetadata returned error: %v", err)
	}

	appMeta := captured["app_metadata"]
	if appMeta == nil {
		t.Fatalf("patch body missing app_metadata: %v", captured)
	}
	if got, ok := appMeta["usageCount"]; !ok || got != float64(3) {
		t.Fatalf("usageCount = %v (ok=%v), want 3", got, ok)
	}
	if _, ok := appMeta["isRegistered"]; ok {
		t.Fatalf("unset field isRegistered leaked into patch: %v", appMeta)
	}
	if _, ok := appMeta["stripeCustomerId"]; ok {
		t.Fatalf("unset field stripeCustomerId leaked into patch: %v", appMeta)
	}
}

func TestMarkRegisteredSetsFlagTrue(t *testing.T) {
	var captured map[string]map[string]interface{}
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		io.WriteString(w, `{}`)
	})
	defer srv.Close()

	if err := client.MarkRegistered(context.Background(), "auth0|u1"); err != nil {
		t.Fatalf("MarkRegistered returned error: %v", err)
	}
	if got := captured["app_metadata"]["isRegistered"]; got != true {
		t.Fatalf("isRegistered = %v, want true", got)
	}
}

func TestFindUserByCustomerID(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("q"); got != `app_metadata.stripeCustomerId:"cus_1"` {
			t.Errorf("query q = %q", got)
		}
		if got := q.Get("search_engine"); got != "v3" {
			t.Errorf("search_engine = %q, want v3", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[{"user_id":"auth0|u1"}]`)
	})
	defer srv.Close()

	userID, err := client.FindUserByCustomerID(context.Background(), "cus_1")
	if err != nil {
		t.Fatalf("FindUserByCustomerID returned error: %v", err)
	}
	if userID != "auth0|u1" {
		t.Fatalf("userID = %q, want auth0|u1", userID)
	}
}

func TestFindUserByCustomerIDNoMatch(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	defer srv.Close()

	_, err := client.FindUserByCustomerID(context.Background(), "cus_missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	})
	defer srv.Close()

	_, err := client.GetUser(context.Background(), "auth0|missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserServerFault(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.GetUser(context.Background(), "auth0|u1")
	if !errors.Is(err, ErrMetadataUnavailable) {
		t.Fatalf("expected ErrMetadataUnavailable, got %v", err)
	}
}
