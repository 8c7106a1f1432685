// Package chat sequences a single turn: persist the user message, gather
// grounding history and optional search context, call the completion
// provider, persist and return the reply.
package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/user/voicechat/internal/logger"
	"github.com/user/voicechat/internal/provider"
	"github.com/user/voicechat/internal/sanitize"
	"github.com/user/voicechat/internal/search"
	"github.com/user/voicechat/internal/store"
)

// CompletionError marks a turn failure caused by the completion provider
// rather than by storage.
type CompletionError struct {
	Err error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("completion failed: %v", e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Request is one incoming chat turn
type Request struct {
	Message        string
	Persona        string
	ConversationID string
	EnableSearch   bool
}

// Response is the completed turn
type Response struct {
	ConversationID string
	Reply          string
}

// Options carries prompt settings for the service
type Options struct {
	Model        string
	SystemPrompt string
	Persona      string
	HistoryLimit int
	Temperature  float64
}

// Service orchestrates chat turns. Dependencies are injected at
// construction; there is no process-global store handle.
type Service struct {
	store    *store.Store
	llm      provider.Provider
	searcher search.Searcher
	log      *logger.Logger
	opts     Options
}

// NewService creates a chat service. searcher may be nil to disable
// web-search context entirely.
func NewService(st *store.Store, llm provider.Provider, searcher search.Searcher, log *logger.Logger, opts Options) *Service {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 12
	}
	if opts.Temperature == 0 {
		opts.Temperature = 0.6
	}
	return &Service{
		store:    st,
		llm:      llm,
		searcher: searcher,
		log:      log,
		opts:     opts,
	}
}

// Reply runs one turn. Ordering is load-bearing: the user message is
// persisted before history is fetched, so the grounding window includes
// it; the assistant message is persisted only after the provider call
// succeeds.
func (s *Service) Reply(ctx context.Context, req Request) (Response, error) {
	conversationID, err := s.store.EnsureConversation(req.ConversationID)
	if err != nil {
		return Response{}, fmt.Errorf("ensure conversation: %w", err)
	}

	if _, err := s.store.AddMessage(conversationID, store.RoleUser, req.Message); err != nil {
		return Response{}, fmt.Errorf("persist user message: %w", err)
	}

	persona := req.Persona
	if persona == "" {
		persona = s.opts.Persona
	}
	systemPrompt := fmt.Sprintf("%s\nStyle: %s", s.opts.SystemPrompt, persona)

	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: systemPrompt},
	}

	if req.EnableSearch && s.searcher != nil {
		// Best effort: a failed search degrades to an empty context,
		// logged but deliberately not propagated.
		snippets, err := s.searcher.Snippets(ctx, req.Message, search.DefaultSnippetCount)
		if err != nil {
			s.log.Warn("search context unavailable", "error", err)
		} else if len(snippets) > 0 {
			messages = append(messages, provider.Message{
				Role:    provider.RoleSystem,
				Content: "Additional context from web/search (may be noisy):\n" + formatSnippets(snippets),
			})
		}
	}

	history, err := s.store.GetRecentMessages(conversationID, s.opts.HistoryLimit)
	if err != nil {
		return Response{}, fmt.Errorf("fetch history: %w", err)
	}
	for _, m := range history {
		messages = append(messages, provider.Message{
			Role:    provider.Role(m.Role),
			Content: m.Content,
		})
	}

	messages = append(messages, provider.Message{
		Role:    provider.RoleUser,
		Content: req.Message,
	})

	resp, err := s.llm.Send(ctx, provider.ChatRequest{
		Model:       s.opts.Model,
		Messages:    messages,
		Temperature: s.opts.Temperature,
	})
	if err != nil {
		// The user message stays persisted; turns are not rolled back.
		return Response{}, &CompletionError{Err: err}
	}

	reply := sanitize.Reply(resp.Content)

	if _, err := s.store.AddMessage(conversationID, store.RoleAssistant, reply); err != nil {
		return Response{}, fmt.Errorf("persist assistant message: %w", err)
	}

	return Response{ConversationID: conversationID, Reply: reply}, nil
}

func formatSnippets(snippets []search.Snippet) string {
	parts := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		parts = append(parts, sn.Format())
	}
	return strings.Join(parts, "\n\n")
}
