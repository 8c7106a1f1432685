package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/voicechat/internal/logger"
	"github.com/user/voicechat/internal/provider"
	"github.com/user/voicechat/internal/search"
	"github.com/user/voicechat/internal/store"
)

// fakeLLM records every request and returns a canned reply or error
type fakeLLM struct {
	requests []provider.ChatRequest
	reply    string
	err      error
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Send(ctx context.Context, req provider.ChatRequest) (provider.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return provider.ChatResponse{}, f.err
	}
	return provider.ChatResponse{Content: f.reply, Model: req.Model}, nil
}

// fakeSearcher returns canned snippets or an error
type fakeSearcher struct {
	snippets []search.Snippet
	err      error
	calls    int
}

func (f *fakeSearcher) Snippets(ctx context.Context, query string, k int) ([]search.Snippet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

func setupService(t *testing.T, llm provider.Provider, searcher search.Searcher) (*Service, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, llm, searcher, logger.NewNop(), Options{
		Model:        "test-model",
		SystemPrompt: "You are a helpful voice assistant.",
		Persona:      "calm, helpful",
	})
	return svc, st
}

func TestReplyNewConversation(t *testing.T) {
	llm := &fakeLLM{reply: "hi there"}
	svc, st := setupService(t, llm, nil)

	resp, err := svc.Reply(context.Background(), Request{Message: "Hello"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	if resp.ConversationID == "" {
		t.Error("conversation id should not be empty")
	}
	if resp.Reply != "hi there" {
		t.Errorf("expected reply 'hi there', got %q", resp.Reply)
	}

	messages, err := st.GetRecentMessages(resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected user + assistant messages, got %d", len(messages))
	}
	if messages[0].Role != store.RoleUser || messages[0].Content != "Hello" {
		t.Errorf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != store.RoleAssistant || messages[1].Content != "hi there" {
		t.Errorf("unexpected second message: %+v", messages[1])
	}
}

func TestReplyPromptShape(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := setupService(t, llm, nil)

	if _, err := svc.Reply(context.Background(), Request{Message: "Hello", Persona: "pirate"}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	if len(llm.requests) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(llm.requests))
	}
	msgs := llm.requests[0].Messages
	if len(msgs) < 3 {
		t.Fatalf("expected system + history + user message, got %d messages", len(msgs))
	}
	if msgs[0].Role != provider.RoleSystem {
		t.Errorf("first message should be the system prompt, got role %s", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "Style: pirate") {
		t.Errorf("system prompt missing persona line: %q", msgs[0].Content)
	}
	last := msgs[len(msgs)-1]
	if last.Role != provider.RoleUser || last.Content != "Hello" {
		t.Errorf("last message should be the new user message, got %+v", last)
	}
}

func TestReplyGroundsFollowUpInHistory(t *testing.T) {
	llm := &fakeLLM{reply: "first reply"}
	svc, _ := setupService(t, llm, nil)

	first, err := svc.Reply(context.Background(), Request{Message: "Hello"})
	if err != nil {
		t.Fatalf("first Reply failed: %v", err)
	}

	llm.reply = "second reply"
	if _, err := svc.Reply(context.Background(), Request{
		Message:        "And again",
		ConversationID: first.ConversationID,
	}); err != nil {
		t.Fatalf("second Reply failed: %v", err)
	}

	if len(llm.requests) != 2 {
		t.Fatalf("expected 2 provider calls, got %d", len(llm.requests))
	}

	var sawUserTurn, sawAssistantTurn bool
	for _, m := range llm.requests[1].Messages {
		if m.Role == provider.RoleUser && m.Content == "Hello" {
			sawUserTurn = true
		}
		if m.Role == provider.RoleAssistant && m.Content == "first reply" {
			sawAssistantTurn = true
		}
	}
	if !sawUserTurn || !sawAssistantTurn {
		t.Errorf("follow-up grounding missing prior turn (user=%v assistant=%v)", sawUserTurn, sawAssistantTurn)
	}
}

func TestReplyHistoryIncludesCurrentMessage(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	svc, _ := setupService(t, llm, nil)

	if _, err := svc.Reply(context.Background(), Request{Message: "only message"}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	// The user message is persisted before history is read, so it shows
	// up both in the history window and as the final message.
	var count int
	for _, m := range llm.requests[0].Messages {
		if m.Role == provider.RoleUser && m.Content == "only message" {
			count++
		}
	}
	if count != 2 {
		t.Errorf("expected the user message in history and as the final message, saw it %d times", count)
	}
}

func TestReplyProviderFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("auth failed")}
	svc, st := setupService(t, llm, nil)

	// Write one good turn so we know the conversation id
	llm.err = nil
	llm.reply = "fine"
	first, err := svc.Reply(context.Background(), Request{Message: "works"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	llm.err = errors.New("auth failed")
	_, err = svc.Reply(context.Background(), Request{
		Message:        "will fail",
		ConversationID: first.ConversationID,
	})
	if err == nil {
		t.Fatal("expected provider failure to surface")
	}
	var completionErr *CompletionError
	if !errors.As(err, &completionErr) {
		t.Errorf("expected CompletionError, got %T", err)
	}

	messages, err := st.GetRecentMessages(first.ConversationID, 10)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	// works + fine + will fail, but no assistant reply for the failed turn
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	last := messages[len(messages)-1]
	if last.Role != store.RoleUser || last.Content != "will fail" {
		t.Errorf("user message of the failed turn should remain persisted, got %+v", last)
	}
}

func TestReplySearchContextIncluded(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	searcher := &fakeSearcher{snippets: []search.Snippet{
		{Title: "Tides", Snippet: "tides follow the moon", Source: "https://example.com/tides"},
	}}
	svc, _ := setupService(t, llm, searcher)

	if _, err := svc.Reply(context.Background(), Request{Message: "why tides", EnableSearch: true}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}

	if searcher.calls != 1 {
		t.Fatalf("expected 1 search call, got %d", searcher.calls)
	}

	var found bool
	for _, m := range llm.requests[0].Messages {
		if m.Role == provider.RoleSystem && strings.Contains(m.Content, "tides follow the moon") {
			found = true
		}
	}
	if !found {
		t.Error("search snippets missing from system context")
	}
}

func TestReplySearchDisabledByDefault(t *testing.T) {
	llm := &fakeLLM{reply: "ok"}
	searcher := &fakeSearcher{}
	svc, _ := setupService(t, llm, searcher)

	if _, err := svc.Reply(context.Background(), Request{Message: "hi"}); err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if searcher.calls != 0 {
		t.Errorf("search should not run unless requested, got %d calls", searcher.calls)
	}
}

func TestReplySearchFailureIsAbsorbed(t *testing.T) {
	llm := &fakeLLM{reply: "still fine"}
	searcher := &fakeSearcher{err: errors.New("search is down")}
	svc, _ := setupService(t, llm, searcher)

	resp, err := svc.Reply(context.Background(), Request{Message: "hi", EnableSearch: true})
	if err != nil {
		t.Fatalf("search failure must not fail the turn: %v", err)
	}
	if resp.Reply != "still fine" {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}

	// No snippet context was injected
	for _, m := range llm.requests[0].Messages {
		if strings.Contains(m.Content, "Additional context") {
			t.Error("no search context should be present after a search failure")
		}
	}
}

func TestReplySanitizesModelOutput(t *testing.T) {
	llm := &fakeLLM{reply: "hello \x1b[31mred\x1b[0m world\x00"}
	svc, st := setupService(t, llm, nil)

	resp, err := svc.Reply(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if resp.Reply != "hello red world" {
		t.Errorf("expected sanitized reply, got %q", resp.Reply)
	}

	messages, err := st.GetRecentMessages(resp.ConversationID, 10)
	if err != nil {
		t.Fatalf("GetRecentMessages failed: %v", err)
	}
	if messages[1].Content != "hello red world" {
		t.Errorf("persisted reply should be sanitized, got %q", messages[1].Content)
	}
}
