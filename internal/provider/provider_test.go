package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAISendNoAPIKey(t *testing.T) {
	p := NewOpenAI("")
	_, err := p.Send(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestOpenAISend(t *testing.T) {
	var gotAuth string
	var gotReq openAIRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "gpt-4o-mini",
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": "hello back"},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer server.Close()

	p := NewOpenAIWithClient("test-key", server.URL, server.Client())
	resp, err := p.Send(context.Background(), ChatRequest{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: RoleSystem, Content: "be brief"},
			{Role: RoleUser, Content: "hello"},
		},
		Temperature: 0.6,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if len(gotReq.Messages) != 2 {
		t.Errorf("expected 2 messages forwarded, got %d", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" {
		t.Errorf("system message must come first, got %q", gotReq.Messages[0].Role)
	}
	if resp.Content != "hello back" {
		t.Errorf("expected 'hello back', got %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("expected 15 total tokens, got %d", resp.Usage.TotalTokens)
	}
}

func TestOpenAISendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{
				"message": "Incorrect API key provided",
				"type":    "invalid_request_error",
			},
		})
	}))
	defer server.Close()

	p := NewOpenAIWithClient("bad-key", server.URL, server.Client())
	_, err := p.Send(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Errorf("expected provider error message surfaced, got %v", err)
	}
}

func TestOpenAISendRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAIWithClient("key", server.URL, server.Client())
	_, err := p.Send(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestOpenAISendEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	p := NewOpenAIWithClient("key", server.URL, server.Client())
	_, err := p.Send(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	if !errors.Is(err, ErrInvalidResponse) {
		t.Errorf("expected ErrInvalidResponse, got %v", err)
	}
}
