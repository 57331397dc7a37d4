package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/aidm5e/aidm/pkg/routing"
	"github.com/aidm5e/aidm/pkg/transcript"
)

// Server is the status API server.
type Server struct {
	config      Config
	store       *routing.Store
	transcripts transcript.Driver
	logger      *slog.Logger
	app         *fiber.App
}

// NewServer creates a new status API server. The store and transcript
// driver are injected so they are shared with the bot rather than opened
// twice.
func NewServer(config Config, store *routing.Store, transcripts transcript.Driver, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:      config,
		store:       store,
		transcripts: transcripts,
		logger:      logger,
		app:         app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/routes/stats", s.handleRouteStats)
	app.Get("/routes/categories", s.handleListCategories)
	app.Get("/routes/categories/:id", s.handleGetCategory)
	app.Get("/transcripts/stats", s.handleTranscriptStats)

	return s
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting status API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
