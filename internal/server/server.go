// Package server is the local session bridge: an HTTP API over one
// browsing session so other local tools can drive the navigator.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ngenohkevin/hivedeck-drive/config"
	"github.com/ngenohkevin/hivedeck-drive/internal/logging"
	"github.com/ngenohkevin/hivedeck-drive/internal/metrics"
)

// Server represents the HTTP server
type Server struct {
	cfg           *config.Config
	router        *gin.Engine
	handlers      *Handlers
	setupHandlers *SetupHandlers
	auth          *Authenticator
	links         *LinkHandlers
	limiter       *RateLimiter
	log           *logging.Logger
	httpServer    *http.Server
}

// New creates a new server instance
func New(cfg *config.Config, sess *Session, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	log = log.Component("bridge")

	// Set Gin mode based on log level
	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	s := &Server{
		cfg:           cfg,
		router:        router,
		handlers:      NewHandlers(sess, log),
		setupHandlers: NewSetupHandlers(cfg),
		auth:          NewAuthenticator(cfg.APIKey, cfg.JWTSecret),
		limiter:       NewRateLimiter(cfg.RateLimitRPS),
		log:           log,
	}

	s.links = NewLinkHandlers(s.auth, DefaultLinkTTL)

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware(s.log))
	s.router.Use(LoggerMiddleware(s.log))
	s.router.Use(CORSMiddleware(s.cfg.AllowedOrigins))
	s.router.Use(RateLimitMiddleware(s.limiter))
}

func (s *Server) setupRoutes() {
	// Health check and metrics (no auth)
	s.router.GET("/health", s.handlers.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Setup routes (no auth required in setup mode)
	if s.cfg.SetupMode {
		setup := s.router.Group("/setup")
		{
			setup.GET("", s.setupHandlers.SetupStatus)
			setup.POST("/generate", s.setupHandlers.GenerateKey)
			setup.POST("/save", s.setupHandlers.SaveKey)
		}
	}

	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.auth))
	{
		api.GET("/state", s.handlers.GetState)

		// Navigation
		api.POST("/nav/open/:id", s.handlers.OpenFolder)
		api.POST("/nav/breadcrumb/:index", s.handlers.JumpToBreadcrumb)
		api.POST("/nav/up", s.handlers.GoUp)
		api.POST("/nav/root", s.handlers.GoRoot)
		api.POST("/nav/refresh", s.handlers.Refresh)

		// Presentation
		api.PUT("/search", s.handlers.Search)
		api.POST("/sort/:field", s.handlers.Sort)
		api.PUT("/view/:mode", s.handlers.SetView)

		// Selection
		api.POST("/selection/toggle/:id", s.handlers.ToggleSelection)
		api.POST("/selection/all", s.handlers.SelectAll)
		api.PUT("/selection", s.handlers.SetSelection)

		// Mutations and transfers
		api.POST("/folders", s.handlers.CreateFolder)
		api.POST("/delete", s.handlers.DeleteSelected)
		api.POST("/upload", s.handlers.Upload)
		api.GET("/download", s.handlers.Download)
		api.GET("/usage", s.handlers.Usage)
		api.GET("/thumbnails", s.handlers.Thumbnails)
		api.GET("/thumbnails/:id", s.handlers.Thumbnail)
		api.POST("/links", s.links.SignLink)

		// Drag and drop
		api.POST("/drag/start", s.handlers.DragStart)
		api.POST("/drag/over", s.handlers.DragOver)
		api.POST("/drag/drop", s.handlers.DragDrop)
		api.POST("/drag/end", s.handlers.DragEnd)

		api.GET("/notices", s.handlers.Notices)

		// Settings (authenticated)
		api.GET("/settings", s.setupHandlers.GetSettings)
		api.PUT("/settings", s.setupHandlers.UpdateSettings)
		api.POST("/settings/generate-key", s.setupHandlers.GenerateKey)
		api.POST("/settings/api-key", s.setupHandlers.SaveKey)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down bridge")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("bridge forced to shutdown")
		}
	}()

	s.log.Info().Str("addr", s.cfg.Addr()).Bool("setup_mode", s.cfg.SetupMode).Msg("starting hivedeck drive bridge")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := s.handlers.Close(); err != nil {
		s.log.Error().Err(err).Msg("error closing session")
	}

	s.log.Info().Msg("bridge stopped")
	return nil
}

// Router returns the Gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}
