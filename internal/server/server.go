// Package server exposes the agent over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waypoint/internal/agent"
	"waypoint/internal/config"
	"waypoint/internal/email"
	"waypoint/internal/logger"
	"waypoint/internal/session"
)

// Server serves the session API.
type Server struct {
	agent  *agent.Agent
	log    *logger.Logger
	router *gin.Engine
}

type startRequest struct {
	Domain    string            `json:"domain" binding:"required,oneof=travel jobs"`
	Request   string            `json:"request" binding:"required"`
	SessionID string            `json:"session_id"`
	Overrides *config.Overrides `json:"overrides"`
}

type startResponse struct {
	SessionID string        `json:"session_id"`
	State     session.State `json:"state"`
	Result    string        `json:"result"`
	Paused    bool          `json:"paused"`
	ToolCalls int           `json:"tool_calls"`
}

type emailRequest struct {
	From    string `json:"from"`
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject"`
}

func New(a *agent.Agent, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	s := &Server{agent: a, log: log}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r := router.Group("/api/v1")
	r.POST("/sessions", s.startSession)
	r.GET("/sessions", s.listSessions)
	r.GET("/sessions/:id", s.getSession)
	r.POST("/sessions/:id/email", s.resumeSession)

	s.router = router
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("🌐 Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Round(time.Millisecond))
	}
}

func (s *Server) startSession(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = session.NewID()
	}

	turn, err := s.agent.Start(c.Request.Context(), agent.StartRequest{
		SessionID: req.SessionID,
		Domain:    req.Domain,
		Text:      req.Request,
		Overrides: req.Overrides,
	})
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, startResponse{
		SessionID: turn.SessionID,
		State:     turn.State,
		Result:    turn.Result,
		Paused:    turn.Paused,
		ToolCalls: len(turn.ToolCalls),
	})
}

func (s *Server) resumeSession(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := s.agent.Resume(c.Request.Context(), c.Param("id"), email.Request{
		From:    req.From,
		To:      req.To,
		Subject: req.Subject,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (s *Server) getSession(c *gin.Context) {
	cp, err := s.agent.Session(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (s *Server) listSessions(c *gin.Context) {
	ids, err := s.agent.Store().List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": ids})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, agent.ErrNoPendingInterrupt),
		errors.Is(err, agent.ErrSessionBusy),
		errors.Is(err, agent.ErrDomainMismatch),
		errors.Is(err, agent.ErrSessionFailed):
		return http.StatusConflict
	case errors.Is(err, agent.ErrUnknownDomain),
		errors.Is(err, agent.ErrEmptyRequest),
		errors.Is(err, agent.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, agent.ErrEmailDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, agent.ErrMaxTurnsExceeded):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
