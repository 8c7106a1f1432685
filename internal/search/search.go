// Package search fetches web-search snippets used as optional prompt context.
// Tavily is the primary provider when a key is configured; DuckDuckGo's
// Instant Answer API is the keyless fallback.
package search

import (
	"context"
	"fmt"
)

// DefaultSnippetCount is how many snippets a turn requests
const DefaultSnippetCount = 5

// Snippet is one web-search result
type Snippet struct {
	Title   string
	Snippet string
	Source  string
}

// Format renders the snippet as a prompt context line
func (s Snippet) Format() string {
	return fmt.Sprintf("%s: %s\nSource: %s", s.Title, s.Snippet, s.Source)
}

// Searcher fetches ranked snippets for a query
type Searcher interface {
	Snippets(ctx context.Context, query string, k int) ([]Snippet, error)
}

// Service tries the primary provider first and falls back to the secondary.
// Either may be nil.
type Service struct {
	primary   Searcher
	secondary Searcher
}

// NewService builds a Service from a Tavily API key (may be empty).
func NewService(tavilyAPIKey string) *Service {
	svc := &Service{secondary: NewDuckDuckGo()}
	if tavilyAPIKey != "" {
		svc.primary = NewTavily(tavilyAPIKey)
	}
	return svc
}

// NewServiceWith builds a Service from explicit providers. Either may be nil.
func NewServiceWith(primary, secondary Searcher) *Service {
	return &Service{primary: primary, secondary: secondary}
}

// Snippets returns up to k snippets. The primary provider is consulted
// first; on any failure the secondary is tried. An error is returned only
// when every configured provider failed.
func (s *Service) Snippets(ctx context.Context, query string, k int) ([]Snippet, error) {
	if k <= 0 {
		k = DefaultSnippetCount
	}

	var primaryErr error
	if s.primary != nil {
		snippets, err := s.primary.Snippets(ctx, query, k)
		if err == nil {
			return snippets, nil
		}
		primaryErr = err
	}

	if s.secondary != nil {
		snippets, err := s.secondary.Snippets(ctx, query, k)
		if err == nil {
			return snippets, nil
		}
		if primaryErr != nil {
			return nil, fmt.Errorf("all search providers failed: %v; %w", primaryErr, err)
		}
		return nil, err
	}

	if primaryErr != nil {
		return nil, primaryErr
	}
	return nil, nil
}
