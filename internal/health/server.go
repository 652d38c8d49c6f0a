// Package health serves liveness, Prometheus metrics and a status summary
// of the monitor over HTTP.
package health

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"token-lifecycle-monitor/internal/domain"
	"token-lifecycle-monitor/internal/lifecycle"
	"token-lifecycle-monitor/internal/observability"
)

// ShutdownTimeout bounds graceful shutdown after the context is cancelled.
const ShutdownTimeout = 5 * time.Second

// TokenCounter reports how many tokens are in each status.
type TokenCounter interface {
	CountByStatus(ctx context.Context) (map[domain.TokenStatus]int, error)
}

// SchedulerStatus reports the scheduler's current state.
type SchedulerStatus interface {
	Status() lifecycle.Status
}

// StatusResponse is the JSON body of /status.
type StatusResponse struct {
	Status    string            `json:"status"`
	Uptime    string            `json:"uptime"`
	Tokens    TokenCounts       `json:"tokens"`
	Scheduler *lifecycle.Status `json:"scheduler,omitempty"`
}

// TokenCounts is the token population by lifecycle status.
type TokenCounts struct {
	Monitoring int `json:"monitoring"`
	Dead       int `json:"dead"`
	Total      int `json:"total"`
}

// Server exposes /health, /metrics and /status.
type Server struct {
	addr      string
	tokens    TokenCounter
	scheduler SchedulerStatus
	logger    *zap.Logger
	started   time.Time
	router    *gin.Engine
}

// NewServer creates a Server listening on addr. scheduler may be nil when
// the process runs single passes.
func NewServer(addr string, tokens TokenCounter, scheduler SchedulerStatus, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		addr:      addr,
		tokens:    tokens,
		scheduler: scheduler,
		logger:    logger.Named("health"),
		started:   time.Now(),
		router:    r,
	}

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(observability.Handler()))
	r.GET("/status", s.handleStatus)

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("health server listening", zap.String("addr", lis.Addr().String()))
		errCh <- srv.Serve(lis)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	s.logger.Info("health server stopped")
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *gin.Context) {
	counts, err := s.tokens.CountByStatus(c.Request.Context())
	if err != nil {
		s.logger.Warn("status: count tokens", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}

	resp := StatusResponse{
		Status: "running",
		Uptime: time.Since(s.started).Truncate(time.Second).String(),
		Tokens: TokenCounts{
			Monitoring: counts[domain.StatusMonitoring],
			Dead:       counts[domain.StatusDead],
		},
	}
	resp.Tokens.Total = resp.Tokens.Monitoring + resp.Tokens.Dead
	if s.scheduler != nil {
		st := s.scheduler.Status()
		resp.Scheduler = &st
	}

	c.JSON(http.StatusOK, resp)
}
