// Package web serves the empathetic response API over HTTP.
package web

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	"github.com/teslashibe/go-empathy/pkg/metrics"
	"github.com/teslashibe/go-empathy/pkg/respond"
	"github.com/teslashibe/go-empathy/pkg/speech"
	"github.com/teslashibe/go-empathy/pkg/store"
)

// recentSize is how many interactions are kept in memory.
const recentSize = 100

// Responder generates text replies.
type Responder interface {
	Respond(ctx context.Context, req respond.Request) respond.Result
	Continue(ctx context.Context, req respond.ConversationRequest) respond.Result
}

// Speaker turns text into audio.
type Speaker interface {
	Synthesize(ctx context.Context, req speech.Request) speech.Result
}

// Config holds the server's collaborators. Responder and Speaker are
// required; Store and Metrics may be nil.
type Config struct {
	Version   string
	Debug     bool
	Responder Responder
	Speaker   Speaker
	Store     store.Store
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Server is the HTTP API server.
type Server struct {
	app    *fiber.App
	config Config
	logger *slog.Logger
	start  time.Time

	// Recent interactions, served by /api/history when no store is set.
	recent   []store.Record
	recentMu sync.RWMutex
}

// NewServer creates the server and registers routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		logger: cfg.Logger.With("component", "web"),
		start:  time.Now(),
		recent: make([]store.Record, 0, recentSize),
	}

	app := fiber.New(fiber.Config{
		AppName:               "empath",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.New().String() },
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Post("/respond", s.handleRespond)
	api.Post("/chat", s.handleChat)
	api.Post("/speak", s.handleSpeak)
	api.Get("/history", s.handleHistory)

	app.Get("/health", s.handleHealth)
	app.Get("/metrics", s.handleMetrics)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// remember adds r to the in-memory history.
func (s *Server) remember(r store.Record) {
	s.recentMu.Lock()
	defer s.recentMu.Unlock()
	s.recent = append(s.recent, r)
	if len(s.recent) > recentSize {
		s.recent = s.recent[1:]
	}
}

// recentMatching returns remembered records matching f, newest first.
func (s *Server) recentMatching(f store.Filter) []store.Record {
	s.recentMu.RLock()
	defer s.recentMu.RUnlock()

	limit := f.Limit
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	out := make([]store.Record, 0, limit)
	for i := len(s.recent) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.recent[i]
		if (f.UserID == "" || r.UserID == f.UserID) &&
			(f.Type == "" || r.Type == f.Type) &&
			(f.Emotion == "" || r.Emotion == f.Emotion) {
			out = append(out, r)
		}
	}
	return out
}
