// Package server exposes the chat and document services over HTTP.
package server

import (
	"context"
	"net/http"

	"github.com/cloudwego/eino/schema"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"newsrag/llm"
	"newsrag/llm/chat"
)

// ChatService is the conversation API the handlers depend on.
type ChatService interface {
	StartConversation(ctx context.Context, query string) *schema.StreamReader[chat.Event]
	ContinueConversation(ctx context.Context, query, sessionID string) *schema.StreamReader[chat.Event]
	History(ctx context.Context, sessionID string) (llm.Conversation, error)
}

// DocumentService indexes and searches news documents.
type DocumentService interface {
	IndexDocument(ctx context.Context, doc llm.Document) error
	Search(ctx context.Context, query string, topK int) ([]llm.SearchResult, error)
}

// Options configures the HTTP layer.
type Options struct {
	CORSOrigins []string
}

// Server wires handlers onto an echo instance.
type Server struct {
	echo *echo.Echo
	chat ChatService
	docs DocumentService
	log  zerolog.Logger
}

// New builds the router with logging, recovery and CORS middleware.
func New(chatSvc ChatService, docs DocumentService, log zerolog.Logger, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo: e,
		chat: chatSvc,
		docs: docs,
		log:  log.With().Str("component", "http").Logger(),
	}

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			evt := s.log.Info()
			if v.Error != nil {
				evt = s.log.Error().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept, "Cache-Control"},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/ping", s.handlePing)

	docs := s.echo.Group("/documents")
	docs.POST("", s.handlePushDocument)
	docs.GET("/search", s.handleSearchDocuments)

	c := s.echo.Group("/chat")
	c.POST("/start-stream", s.handleStartStream)
	c.POST("/continue-stream", s.handleContinueStream)
	c.GET("/conversation/:sessionId", s.handleConversation)
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info().Str("addr", addr).Msg("starting server")
	return s.echo.Start(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handlePing(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "pong"})
}
