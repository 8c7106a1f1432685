// Voicechat - HTTP backend for a voice/text chatbot
//
// Voicechat accepts a chat message, persists it to a local SQLite store,
// grounds the prompt with recent history and optional web-search snippets,
// calls a chat-completion provider and returns the reply. Message history
// is full-text searchable.
//
// Usage:
//
//	voicechat [flags]
//
// Build:
//
//	go build -tags sqlite_fts5 ./cmd/voicechat
//
// The sqlite_fts5 build tag is required: go-sqlite3 does not compile the
// FTS5 module in by default, and the store's search index needs it (see
// the Makefile, which carries the tag for build and test).
//
// Environment Variables:
//
//	OPENAI_API_KEY - OpenAI API key (required)
//	TAVILY_API_KEY - Tavily search API key (optional)
//	MODEL          - chat-completion model (default gpt-4o-mini)
//	SYSTEM_PROMPT  - base system prompt
//	PERSONA        - default reply style
//	ADDR           - listen address (default :8080)
//	DATA_DIR       - storage directory (default ./data)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/voicechat/internal/chat"
	"github.com/user/voicechat/internal/config"
	"github.com/user/voicechat/internal/logger"
	"github.com/user/voicechat/internal/provider"
	"github.com/user/voicechat/internal/search"
	"github.com/user/voicechat/internal/server"
	"github.com/user/voicechat/internal/store"
)

var (
	version = "0.1.0"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	mode := flag.String("mode", "dev", "Logging mode (dev or prod)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicechat v%s\n", version)
		os.Exit(0)
	}

	log, err := logger.New(*mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", "error", err)
	}

	// The completion provider is the one capability no turn can proceed
	// without; a missing key is fatal at startup.
	openaiKey := cfg.GetAPIKey("openai")
	if openaiKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}
	llm := provider.NewOpenAI(openaiKey)

	st, err := store.New(config.GetDBPath())
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer st.Close()

	searcher := search.NewService(cfg.GetAPIKey("tavily"))

	chatService := chat.NewService(st, llm, searcher, log, chat.Options{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Persona:      cfg.Persona,
		HistoryLimit: cfg.HistoryLimit,
	})

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:    server.NewChatHandler(log, chatService),
		HistoryHandler: server.NewHistoryHandler(log, st),
		StaticDir:      cfg.StaticDir,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Info("listening", "addr", cfg.Addr, "model", cfg.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
