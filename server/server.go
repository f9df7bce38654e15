package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"crev/diff_review"
	"crev/review_engine"
	"crev/vcs_providers"
)

// Server exposes the review system over HTTP: loading merge requests,
// fetching file sides, asking questions (blocking and SSE), automatic
// reviews, and question suggestions.
type Server struct {
	echo        *echo.Echo
	manager     *vcs_providers.Manager
	diffRunner  *review_engine.DiffRunner
	reviewer    *review_engine.AutoReviewer
	suggestions *review_engine.SuggestionGenerator
}

func NewServer(manager *vcs_providers.Manager, diffRunner *review_engine.DiffRunner, reviewer *review_engine.AutoReviewer, suggestions *review_engine.SuggestionGenerator) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:        e,
		manager:     manager,
		diffRunner:  diffRunner,
		reviewer:    reviewer,
		suggestions: suggestions,
	}

	e.GET("/health", s.handleHealth)
	e.POST("/api/mr/load", s.handleLoadMR)
	e.GET("/api/mr/file", s.handleGetFile)
	e.POST("/api/diff/ask", s.handleAsk)
	e.POST("/api/diff/ask/stream", s.handleAskStream)
	e.POST("/api/diff/review", s.handleReview)
	e.POST("/api/suggestions", s.handleSuggestions)

	return s
}

// Start blocks serving on host:port until the listener fails or closes.
func (s *Server) Start(host string, port int) error {
	return s.echo.Start(fmt.Sprintf("%s:%d", host, port))
}

// Echo exposes the underlying router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type loadMRRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleLoadMR(c echo.Context) error {
	var req loadMRRequest
	if err := c.Bind(&req); err != nil || req.URL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "url is required"})
	}

	info, err := s.manager.LoadMR(c.Request().Context(), req.URL)
	if err != nil {
		status := http.StatusBadGateway
		if vcs_providers.IsNoProvider(err) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, info)
}

func (s *Server) handleGetFile(c echo.Context) error {
	reviewID := c.QueryParam("reviewId")
	path := c.QueryParam("path")
	status := c.QueryParam("status")
	if reviewID == "" || path == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewId and path are required"})
	}
	if status == "" {
		status = diff_review.StatusModified
	}

	oldContents, newContents, err := s.manager.GetFileContents(c.Request().Context(), reviewID, path, status)
	if err != nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"old":    oldContents,
		"new":    newContents,
		"status": status,
	})
}

type askRequest struct {
	ReviewID   string                  `json:"reviewId"`
	Question   string                  `json:"question"`
	Selections []diff_review.Selection `json:"selections,omitempty"`
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil || req.ReviewID == "" || req.Question == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewId and question are required"})
	}

	result, err := s.diffRunner.Ask(c.Request().Context(), req.ReviewID, req.Question, req.Selections)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vcs_providers.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// handleAskStream answers a question as server-sent events. Each event is a
// JSON object {"type": ..., "data": ...} on its own data line.
func (s *Server) handleAskStream(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil || req.ReviewID == "" || req.Question == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewId and question are required"})
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	flusher, _ := resp.Writer.(http.Flusher)

	for ev := range s.diffRunner.AskStream(c.Request().Context(), req.ReviewID, req.Question, req.Selections) {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
			return nil
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}

type reviewRequest struct {
	ReviewID string `json:"reviewId"`
}

func (s *Server) handleReview(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil || req.ReviewID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewId is required"})
	}

	report, err := s.reviewer.Review(c.Request().Context(), req.ReviewID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, vcs_providers.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		return c.JSON(status, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleSuggestions(c echo.Context) error {
	var req reviewRequest
	if err := c.Bind(&req); err != nil || req.ReviewID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "reviewId is required"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"suggestions": s.suggestions.Suggest(c.Request().Context(), req.ReviewID),
	})
}
