// Package server implements the dashboard HTTP process: a gin JSON API
// over the HR store, document store, assistant, and usage tracker. The
// server and the document watcher share one lifecycle via errgroup.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"peopleops/internal/assist"
	"peopleops/internal/config"
	"peopleops/internal/document"
	"peopleops/internal/logging"
	"peopleops/internal/retrieval"
	"peopleops/internal/store"
	"peopleops/internal/usage"
)

// Server bundles the dashboard's subsystems behind the HTTP API.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	docs      *document.Store
	retriever *retrieval.Retriever
	assistant *assist.Assistant
	tracker   *usage.Tracker

	engine  *gin.Engine
	started time.Time
}

// New wires the API routes. gin runs in release mode; request logging goes
// through the category logger instead of gin's default writer.
func New(cfg *config.Config, st *store.Store, docs *document.Store,
	retriever *retrieval.Retriever, assistant *assist.Assistant, tracker *usage.Tracker) *Server {

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:       cfg,
		store:     st,
		docs:      docs,
		retriever: retriever,
		assistant: assistant,
		tracker:   tracker,
		started:   time.Now(),
	}

	// Any index change, whether from an upload handler or the directory
	// watcher, drops the retrieval cache.
	docs.OnChange(retriever.Invalidate)

	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", s.handleHealth)

	api := engine.Group("/api/v1")
	{
		api.GET("/overview", s.handleOverview)
		api.GET("/employees", s.handleEmployees)
		api.GET("/departments/stats", s.handleDepartmentStats)
		api.GET("/transfers/recent", s.handleRecentTransfers)
		api.GET("/feedback/summary", s.handleFeedbackSummary)

		api.GET("/documents", s.handleListDocuments)
		api.POST("/documents", s.handleUploadDocument)
		api.DELETE("/documents/:name", s.handleDeleteDocument)

		api.GET("/assistant/samples", s.handleSampleQuestions)
		api.POST("/assistant/ask", s.handleAsk)

		api.GET("/usage", s.handleUsage)
	}

	s.engine = engine
	return s
}

// Handler exposes the engine for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully. When document watching is enabled the watcher runs in the
// same group, so either one failing stops both.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logging.Server("Dashboard listening on %s", s.cfg.URL())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if s.cfg.Documents.Watch {
		watcher, err := document.NewWatcher(s.docs)
		if err != nil {
			logging.ServerWarn("Document watcher unavailable: %v", err)
		} else {
			g.Go(func() error {
				if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		}
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.GetShutdownTimeout())
		defer cancel()
		logging.Server("Shutting down dashboard server")
		if s.tracker != nil {
			if err := s.tracker.Save(); err != nil {
				logging.ServerWarn("Failed to flush usage data: %v", err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
