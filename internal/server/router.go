// Package server wires the gin router for the chatbot HTTP surface.
package server

import (
	"net/http"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the handlers the router dispatches to
type RouterConfig struct {
	ChatHandler    *ChatHandler
	HistoryHandler *HistoryHandler
	// StaticDir is served as the web UI when the directory exists
	StaticDir string
}

// NewRouter builds the gin engine with CORS, API routes and optional
// static UI serving.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Permissive CORS: the UI may be served from anywhere
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/chat", cfg.ChatHandler.Chat)
		api.GET("/history/search", cfg.HistoryHandler.Search)
	}

	// Static UI
	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			router.NoRoute(gin.WrapH(http.FileServer(http.Dir(cfg.StaticDir))))
		}
	}

	return router
}
