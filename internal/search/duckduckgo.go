package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	duckDuckGoBaseURL = "https://api.duckduckgo.com"
	duckDuckGoTimeout = 10 * time.Second
)

// DuckDuckGo implements Searcher against the keyless Instant Answer API
type DuckDuckGo struct {
	baseURL string
	client  *http.Client
}

// NewDuckDuckGo creates a new DuckDuckGo client
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		baseURL: duckDuckGoBaseURL,
		client:  &http.Client{Timeout: duckDuckGoTimeout},
	}
}

// NewDuckDuckGoWithClient creates a DuckDuckGo client with a custom HTTP client and base URL
func NewDuckDuckGoWithClient(baseURL string, client *http.Client) *DuckDuckGo {
	return &DuckDuckGo{baseURL: baseURL, client: client}
}

type duckDuckGoResponse struct {
	Heading       string `json:"Heading"`
	AbstractText  string `json:"AbstractText"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

// Snippets queries the Instant Answer API and maps topics to snippets
func (d *DuckDuckGo) Snippets(ctx context.Context, query string, k int) ([]Snippet, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")

	httpReq, err := http.NewRequestWithContext(ctx, "GET", d.baseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.client.Do(httpReq)
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

	var ddgResp duckDuckGoResponse
	if err := json.Unmarshal(respBody, &ddgResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	snippets := make([]Snippet, 0, k)
	if ddgResp.AbstractText != "" {
		snippets = append(snippets, Snippet{
			Title:   ddgResp.Heading,
			Snippet: ddgResp.AbstractText,
			Source:  ddgResp.AbstractURL,
		})
	}
	for _, topic := range ddgResp.RelatedTopics {
		if len(snippets) >= k {
			break
		}
		if topic.Text == "" {
			continue
		}
		snippets = append(snippets, Snippet{
			Title:   ddgResp.Heading,
			Snippet: topic.Text,
			Source:  topic.FirstURL,
		})
	}
	return snippets, nil
}
