// Package http provides the HTTP API for cvsearchd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/cvsearchd/internal/embeddings"
	"github.com/fyrsmithlabs/cvsearchd/internal/logging"
	"github.com/fyrsmithlabs/cvsearchd/internal/pipeline"
	"github.com/fyrsmithlabs/cvsearchd/internal/reranker"
)

// Searcher is the part of the pipeline the HTTP layer needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]pipeline.Result, error)
	IngestDocument(ctx context.Context, documentID, filename, content string, chunkSize int) (int, error)
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
}

// Server provides HTTP endpoints for cvsearchd.
type Server struct {
	echo     *echo.Echo
	searcher Searcher
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(searcher Searcher, logger *logging.Logger, cfg *Config) (*Server, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9180,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Propagate the request ID so handler logs carry it.
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), requestID)
			c.SetRequest(c.Request().WithContext(ctx))

			start := time.Now()
			err := next(c)

			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	})
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())

	s := &Server{
		echo:     e,
		searcher: searcher,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/search", s.handleSearch)
	v1.POST("/documents", s.handleIngest)
	v1.DELETE("/documents/:id", s.handleDelete)
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Results []pipeline.Result `json:"results"`
	Count   int               `json:"count"`
}

// IngestRequest is the request body for POST /api/v1/documents.
type IngestRequest struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
	ChunkSize  int    `json:"chunk_size,omitempty"`
}

// IngestResponse is the response body for POST /api/v1/documents.
type IngestResponse struct {
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}

// DeleteResponse is the response body for DELETE /api/v1/documents/:id.
type DeleteResponse struct {
	Deleted bool `json:"deleted"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// DefaultSearchLimit applies when a search request omits the limit.
const DefaultSearchLimit = 10

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid search request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Limit == 0 {
		req.Limit = DefaultSearchLimit
	}

	results, err := s.searcher.Search(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid ingest request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.DocumentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id field is required")
	}

	chunks, err := s.searcher.IngestDocument(c.Request().Context(), req.DocumentID, req.Filename, req.Content, req.ChunkSize)
	if err != nil {
		return s.mapError(c, err)
	}

	return c.JSON(http.StatusCreated, IngestResponse{DocumentID: req.DocumentID, Chunks: chunks})
}

func (s *Server) handleDelete(c echo.Context) error {
	documentID := c.Param("id")

	deleted, err := s.searcher.DeleteDocument(c.Request().Context(), documentID)
	if err != nil {
		return s.mapError(c, err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.JSON(http.StatusOK, DeleteResponse{Deleted: true})
}

// mapError translates pipeline errors into HTTP status codes. Internal
// details are logged, never returned to the client.
func (s *Server) mapError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	switch {
	case errors.Is(err, pipeline.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	case errors.Is(err, embeddings.ErrProviderUnavailable),
		errors.Is(err, reranker.ErrProviderUnavailable):
		s.logger.Error(ctx, "provider unavailable", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search temporarily unavailable")
	default:
		s.logger.Error(ctx, "request failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
