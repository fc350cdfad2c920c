// Package server exposes the council over HTTP: conversation CRUD, runtime
// settings, and the streamed message endpoint that relays pipeline milestones
// as they happen.
package server

import (
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/Iron-Ham/quorum/internal/config"
	"github.com/Iron-Ham/quorum/internal/event"
	"github.com/Iron-Ham/quorum/internal/logging"
	"github.com/Iron-Ham/quorum/internal/openrouter"
	"github.com/Iron-Ham/quorum/internal/settings"
	"github.com/Iron-Ham/quorum/internal/storage"
)

// CallerFactory builds the model backend for one request. Tests substitute a
// fake; production uses the OpenRouter client.
type CallerFactory func(apiURL, apiKey string, timeout time.Duration) openrouter.Caller

// Server wires the HTTP surface to storage, settings, and the pipeline.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	store     *storage.Store
	settings  *settings.Store
	logger    *logging.Logger
	bus       *event.Bus
	newCaller CallerFactory
}

// Option adjusts server construction.
type Option func(*Server)

// WithCallerFactory overrides how the model backend is built per request.
func WithCallerFactory(f CallerFactory) Option {
	return func(s *Server) { s.newCaller = f }
}

// New builds the server and registers every route.
func New(cfg config.Config, store *storage.Store, settingsStore *settings.Store, logger *logging.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		settings: settingsStore,
		logger:   logger,
		bus:      event.NewBus(),
		newCaller: func(apiURL, apiKey string, timeout time.Duration) openrouter.Caller {
			return openrouter.NewClient(apiURL, apiKey, timeout)
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:     "quorum",
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(cors.New())

	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleRoot)

	api := s.app.Group("/api")
	api.Get("/settings", s.handleGetSettings)
	api.Post("/settings", s.handleUpdateSettings)
	api.Post("/settings/test", s.handleTestSettings)

	api.Get("/conversations", s.handleListConversations)
	api.Post("/conversations", s.handleCreateConversation)
	api.Get("/conversations/:id", s.handleGetConversation)
	api.Delete("/conversations/:id", s.handleDeleteConversation)
	api.Post("/conversations/:id/message", s.handleMessage)
	api.Post("/conversations/:id/message/stream", s.handleMessageStream)
}

// App exposes the fiber application, used by tests and by Listen.
func (s *Server) App() *fiber.App { return s.app }

// Bus exposes the server's event bus. Stage completions are published on it
// as the stream handler emits them.
func (s *Server) Bus() *event.Bus { return s.bus }

// Listen serves until the listener fails or the app is shut down.
func (s *Server) Listen() error {
	addr := s.cfg.Server.Addr()
	s.logger.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

func (s *Server) handleRoot(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "quorum",
		"status":  "ok",
	})
}
