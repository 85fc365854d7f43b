// Package status serves a small HTTP endpoint reporting liveness and the
// transfers currently in flight.
package status

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go-fetch-bot/downloader"
	"go.uber.org/zap"
)

// SessionLister exposes the active transfer sessions
type SessionLister interface {
	Snapshot() []downloader.SessionInfo
}

// TransferView is the JSON shape of one active transfer
type TransferView struct {
	ID         string  `json:"id"`
	ChatID     int64   `json:"chat_id"`
	Cancelled  bool    `json:"cancelled"`
	AgeSeconds float64 `json:"age_seconds"`
}

// Server wraps the gin engine and its HTTP listener
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	sessions SessionLister
	logger   *zap.Logger
}

// NewServer builds the status routes on top of sessions
func NewServer(addr string, sessions SessionLister, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:   gin.New(),
		sessions: sessions,
		logger:   logger,
	}
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.RegisterRoutes(s.engine)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// RegisterRoutes mounts the status handlers on router
func (s *Server) RegisterRoutes(router gin.IRoutes) {
	router.GET("/healthz", s.health)
	router.GET("/transfers", s.transfers)
}

// Handler returns the HTTP handler serving the routes
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start listens in the background. Listener errors other than a clean close are logged.
func (s *Server) Start() {
	s.logger.Info("status server listening", zap.String("addr", s.http.Addr))
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) transfers(c *gin.Context) {
	infos := s.sessions.Snapshot()
	views := make([]TransferView, 0, len(infos))
	for _, info := range infos {
		views = append(views, TransferView{
			ID:         info.ID,
			ChatID:     info.ChatID,
			Cancelled:  info.Cancelled,
			AgeSeconds: info.Age.Seconds(),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"active":   len(views),
		"sessions": views,
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("status request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
