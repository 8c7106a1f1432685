// Package provider defines the interface for chat-completion providers and common types.
package provider

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrNoAPIKey        = errors.New("no API key configured for provider")
	ErrInvalidResponse = errors.New("invalid response from provider")
	ErrRateLimited     = errors.New("rate limited by provider")
	ErrContextCanceled = errors.New("context canceled")
)

// Role represents the role of a message sender
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to a chat-completion provider
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse represents a response from a chat-completion provider
type ChatResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider defines the interface a chat-completion vendor must implement
type Provider interface {
	// Name returns the provider's identifier (e.g., "openai")
	Name() string

	// Send sends a chat request and returns the complete response
	Send(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
