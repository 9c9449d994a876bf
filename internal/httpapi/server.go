// Package httpapi serves the engine's outbound query contract and inbound
// submission endpoints over Echo.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/cybernews/internal/dedup"
	"horse.fit/cybernews/internal/globaltime"
	"horse.fit/cybernews/internal/news"
	"horse.fit/cybernews/internal/query"
	"horse.fit/cybernews/internal/store"
	draftschema "horse.fit/cybernews/schema"
)

const (
	defaultPageSize   = query.DefaultPageSize
	maxPageSize       = 100
	maxDraftBodyBytes = 256 * 1024
)

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	store       *store.Store
	engine      *query.Engine
	coordinator *dedup.Coordinator
	logger      zerolog.Logger
	opts        Options
}

func NewServer(st *store.Store, engine *query.Engine, coordinator *dedup.Coordinator, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8010
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		store:       st,
		engine:      engine,
		coordinator: coordinator,
		logger:      logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
		},
	}
}

// newEcho wires middleware and routes; split out so handler tests can drive
// the router without binding a listener.
func (s *Server) newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/articles", s.handleArticles)
	api.GET("/articles/:id", s.handleArticleDetail)
	api.POST("/articles", s.handleSubmitArticle)
	api.POST("/articles/:id/merge", s.handleMergeArticle)
	api.POST("/articles/:id/comments", s.handleAddComment)

	return e
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.newEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("cybernews api server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("cybernews api server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "cybernews",
		"time":    globaltime.UTC(),
	})
}

func (s *Server) handleArticles(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}

	pageSize, err := parsePositiveInt(c.QueryParam("size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"size": err.Error()})
	}

	category, err := news.ParseCategory(c.QueryParam("category"))
	if err != nil {
		return failValidation(c, map[string]string{"category": err.Error()})
	}

	sortKey, err := query.ParseSort(c.QueryParam("sort"))
	if err != nil {
		return failValidation(c, map[string]string{"sort": err.Error()})
	}

	result := s.engine.Query(query.Params{
		Category: category,
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Sort:     sortKey,
		Page:     page,
		PageSize: pageSize,
	})

	return success(c, result)
}

func (s *Server) handleArticleDetail(c echo.Context) error {
	id, err := parseArticleID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	article, err := s.engine.Get(id)
	if err != nil {
		if errors.Is(err, news.ErrNotFound) {
			return failNotFound(c, "Article not found")
		}
		s.logger.Error().Err(err).Int64("article_id", id).Msg("article lookup failed")
		return internalError(c, "Failed to load article")
	}

	return success(c, article)
}

func (s *Server) handleSubmitArticle(c echo.Context) error {
	draft, err := s.readDraft(c)
	if err != nil {
		return s.draftError(c, err)
	}

	if strings.EqualFold(c.QueryParam("force"), "true") {
		article, err := s.coordinator.ForceCreate(draft)
		if err != nil {
			return s.draftError(c, err)
		}
		return created(c, article)
	}

	article, candidates, err := s.coordinator.CreateIfUnique(draft)
	if err != nil {
		return s.draftError(c, err)
	}
	if len(candidates) > 0 {
		return failConflict(c, "Similar articles already exist", map[string]any{
			"candidates": candidates,
		})
	}
	return created(c, article)
}

func (s *Server) handleMergeArticle(c echo.Context) error {
	id, err := parseArticleID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	draft, err := s.readDraft(c)
	if err != nil {
		return s.draftError(c, err)
	}

	merged, err := s.coordinator.Merge(id, draft)
	if err != nil {
		switch {
		case errors.Is(err, news.ErrNotFound):
			return failNotFound(c, "Article not found")
		case errors.Is(err, news.ErrConflictRetry):
			return failConflict(c, "Article is being updated concurrently, retry later", nil)
		case news.IsValidation(err):
			return s.draftError(c, err)
		default:
			s.logger.Error().Err(err).Int64("article_id", id).Msg("merge failed")
			return internalError(c, "Failed to merge article")
		}
	}

	return success(c, merged)
}

type commentRequest struct {
	User    string `json:"user"`
	Content string `json:"content"`
}

func (s *Server) handleAddComment(c echo.Context) error {
	id, err := parseArticleID(c.Param("id"))
	if err != nil {
		return failValidation(c, map[string]string{"id": err.Error()})
	}

	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be a JSON comment"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return failValidation(c, map[string]string{"content": "must not be blank"})
	}
	user := strings.TrimSpace(req.User)
	if user == "" {
		user = "anonymous"
	}

	article, err := s.store.Update(id, func(a *news.Article) {
		a.Comments = append(a.Comments, news.Comment{
			ID:      int64(len(a.Comments) + 1),
			User:    user,
			Content: strings.TrimSpace(req.Content),
			Date:    globaltime.UTC(),
		})
	})
	if err != nil {
		if errors.Is(err, news.ErrNotFound) {
			return failNotFound(c, "Article not found")
		}
		s.logger.Error().Err(err).Int64("article_id", id).Msg("add comment failed")
		return internalError(c, "Failed to add comment")
	}

	return created(c, article)
}

func (s *Server) handleStats(c echo.Context) error {
	articles := s.store.List()

	categories := map[string]int{}
	sources := map[string]struct{}{}
	comments := 0
	for _, article := range articles {
		categories[string(article.Category)]++
		for _, source := range article.Sources {
			sources[source] = struct{}{}
		}
		comments += len(article.Comments)
	}

	return success(c, map[string]any{
		"articles":         len(articles),
		"max_assigned_id":  s.store.MaxID(),
		"categories":       categories,
		"distinct_sources": len(sources),
		"comments":         comments,
	})
}

func (s *Server) readDraft(c echo.Context) (news.Draft, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxDraftBodyBytes))
	if err != nil {
		return news.Draft{}, fmt.Errorf("read request body: %w", err)
	}

	payload, err := draftschema.ValidateArticleDraft(body)
	if err != nil {
		return news.Draft{}, err
	}
	return payload.ToDraft()
}

func (s *Server) draftError(c echo.Context, err error) error {
	var ve *news.ValidationError
	if errors.As(err, &ve) {
		return failValidation(c, map[string]string{ve.Field: ve.Reason})
	}
	return fail(c, http.StatusBadRequest, err.Error(), nil)
}

func parseArticleID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return id, nil
}

func parsePositiveInt(raw string, defaultValue, minValue, maxValue int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minValue || value > maxValue {
		return 0, fmt.Errorf("must be between %d and %d", minValue, maxValue)
	}
	return value, nil
}
