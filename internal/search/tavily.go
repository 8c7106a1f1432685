package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	tavilyBaseURL = "https://api.tavily.com"
	tavilyTimeout = 10 * time.Second
)

// Tavily implements Searcher against the Tavily search API
type Tavily struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTavily creates a new Tavily client
func NewTavily(apiKey string) *Tavily {
	return &Tavily{
		apiKey:  apiKey,
		baseURL: tavilyBaseURL,
		client:  &http.Client{Timeout: tavilyTimeout},
	}
}

// NewTavilyWithClient creates a Tavily client with a custom HTTP client and base URL
func NewTavilyWithClient(apiKey, baseURL string, client *http.Client) *Tavily {
	return &Tavily{apiKey: apiKey, baseURL: baseURL, client: client}
}

type tavilyRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		Content string `json:"content"`
		URL     string `json:"url"`
	} `json:"results"`
}

// Snippets queries Tavily and maps results to snippets
func (t *Tavily) Snippets(ctx context.Context, query string, k int) ([]Snippet, error) {
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: k})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var tavilyResp tavilyResponse
	if err := json.Unmarshal(respBody, &tavilyResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	snippets := make([]Snippet, 0, k)
	for _, r := range tavilyResp.Results {
		if len(snippets) >= k {
			break
		}
		if r.Content == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:   r.Title,
			Snippet: r.Content,
			Source:  r.URL,
		})
	}
	return snippets, nil
}
