package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenRouterClientCompleteWithSystemParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("expected bearer token header, got %q", got)
		}
		var req openRouterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("expected system+user messages, got %+v", req.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openRouterResponse{
			Choices: []struct {
				Message openRouterMessage `json:"message"`
			}{{Message: openRouterMessage{Role: "assistant", Content: "  hello  "}}},
		})
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "test-key", BaseURL: server.URL}, nil)
	got, err := client.CompleteWithSystem(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("CompleteWithSystem: %v", err)
	}
	if got != "hello" {
		t.Fatalf("expected trimmed response %q, got %q", "hello", got)
	}
}

func TestOpenRouterClientMissingAPIKey(t *testing.T) {
	client := NewOpenRouterClient(OpenRouterConfig{}, nil)
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Fatalf("expected an error with no API key configured")
	}
}

func TestOpenRouterClientSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openRouterResponse{
			Error: &struct {
				Message string `json:"message"`
			}{Message: "bad request"},
		})
	}))
	defer server.Close()

	client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL}, nil)
	if _, err := client.Complete(context.Background(), "hi"); err == nil {
		t.Fatalf("expected an API error to surface")
	}
}
