package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"redditanalyzer/pkg/config"
	"redditanalyzer/pkg/logger"
	"redditanalyzer/pkg/ratelimit"
	"redditanalyzer/pkg/storage"
	"redditanalyzer/pkg/tasks"
)

// Options wires the server to the rest of the service
type Options struct {
	Store    *tasks.Store
	Pipeline Submitter
	Files    *storage.Manager
	Sessions *Sessions
	// SubmitLimit caps task submissions; nil accepts everything
	SubmitLimit ratelimit.Limiter
}

// Server is the HTTP front end of the analyzer
type Server struct {
	router *gin.Engine
	http   *http.Server
	logger logger.Logger
}

// New builds the router and the underlying http.Server
func New(cfg config.ServerConfig, opts Options, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("component", "server")

	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	handlers := &Handlers{
		store:    opts.Store,
		pipeline: opts.Pipeline,
		files:    opts.Files,
		logger:   log,
	}
	router := setupRouter(handlers, opts, log)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              cfg.Address(),
			Handler:           router,
			ReadHeaderTimeout: cfg.ReadTimeout,
			ReadTimeout:       cfg.ReadTimeout,
		},
		logger: log,
	}
}

func setupRouter(h *Handlers, opts Options, log logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(log), recoverPanics(log))

	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.Use(RequireSession(opts.Sessions))
	{
		taskRoutes := api.Group("/tasks")
		taskRoutes.POST("", limitSubmissions(opts.SubmitLimit), h.SubmitTask)
		taskRoutes.GET("/:id/status", h.TaskStatus)
		taskRoutes.GET("/:id/download", h.DownloadReport)
	}

	return router
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.LogComponentStart(s.logger, "http", map[string]interface{}{"addr": s.http.Addr})
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	defer logger.LogComponentStop(s.logger, "http", "shutdown")
	return s.http.Shutdown(ctx)
}
