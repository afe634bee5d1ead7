// Package server exposes the ops HTTP API: health, metrics, run history,
// archive listings and full-text search over scored articles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/newsgrade/config"
	"github.com/mohammad-safakhou/newsgrade/internal/archive"
	"github.com/mohammad-safakhou/newsgrade/internal/index"
	"github.com/mohammad-safakhou/newsgrade/internal/pipeline"
	"github.com/mohammad-safakhou/newsgrade/internal/scoring"
	"github.com/mohammad-safakhou/newsgrade/internal/store"
	"github.com/mohammad-safakhou/newsgrade/models"
)

// RunHistory is the slice of the store the API needs.
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]store.RunSummary, error)
	GetRun(ctx context.Context, id string) (*pipeline.Run, error)
}

// Searcher is the slice of the index the API needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]index.Hit, error)
}

// Server is the ops HTTP server. History, archiver and searcher may each be
// nil; their endpoints then answer 503.
type Server struct {
	cfg      *config.Config
	history  RunHistory
	archiver *archive.Archiver
	searcher Searcher
	matrix   *scoring.Matrix
	logger   *log.Logger
}

// New assembles the server.
func New(cfg *config.Config, history RunHistory, archiver *archive.Archiver,
	searcher Searcher, matrix *scoring.Matrix, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	}
	return &Server{cfg: cfg, history: history, archiver: archiver, searcher: searcher, matrix: matrix, logger: logger}
}

// Echo builds the configured echo instance with all routes mounted.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		s.logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.GET("/runs", s.listRuns)
	api.GET("/runs/:id", s.getRun)
	api.GET("/archives", s.listArchives)
	api.GET("/search", s.search)
	api.GET("/configurations", s.listConfigurations)
	return e
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	e := s.Echo()
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(s.cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}

func (s *Server) listRuns(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run store not configured")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	runs, err := s.history.ListRuns(c.Request().Context(), limit)
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) getRun(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "run store not configured")
	}
	run, err := s.history.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) listArchives(c echo.Context) error {
	if s.archiver == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "archiver not configured")
	}
	manifests, err := s.archiver.ListArchives()
	if err != nil {
		return err
	}
	if manifests == nil {
		manifests = []archive.Manifest{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"archives": manifests})
}

func (s *Server) search(c echo.Context) error {
	if s.searcher == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search index not configured")
	}
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing query parameter q")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	hits, err := s.searcher.Search(c.Request().Context(), query, limit)
	if err != nil {
		return err
	}
	if hits == nil {
		hits = []index.Hit{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"hits": hits})
}

func (s *Server) listConfigurations(c echo.Context) error {
	names := s.matrix.Names()
	configs := make([]scoring.Configuration, 0, len(names))
	for _, name := range names {
		if cfg, ok := s.matrix.Get(name); ok {
			configs = append(configs, cfg)
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"configurations": configs})
}
