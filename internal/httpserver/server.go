// Package httpserver exposes the reports over a read-only HTTP API.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tinytelemetry/logsight/internal/model"
	"github.com/tinytelemetry/logsight/internal/report"
)

// DefaultAddr is used when no listen address is configured.
const DefaultAddr = "127.0.0.1:3000"

// Server provides an HTTP API for querying logsight reports.
type Server struct {
	addr      string
	store     model.ReadAPI
	log       *slog.Logger
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, store model.ReadAPI, log *slog.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		store:  store,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/reports", s.handleReportList)
	r.GET("/api/reports/:type", s.handleReport)
	return r
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.startTime = time.Now()
	s.log.Info("HTTP API listening", "addr", listener.Addr().String())

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("HTTP API stopped", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx := c.Request.Context()
	logCount, err := s.store.TotalLogCount(ctx)
	if err != nil {
		s.log.Error("Health query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}
	uaCount, err := s.store.UserAgentCount(ctx)
	if err != nil {
		s.log.Error("Health query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}
	version, err := s.store.SchemaVersion(ctx)
	if err != nil {
		s.log.Error("Health query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"uptime":           time.Since(s.startTime).String(),
		"log_count":        logCount,
		"user_agent_count": uaCount,
		"schema_version":   version,
	})
}

func (s *Server) handleReportList(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"reports": report.Kinds})
}

func (s *Server) handleReport(c *gin.Context) {
	kind, err := report.ParseKind(c.Param("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported report type."})
		return
	}

	n := model.DefaultReportLimit
	if raw := c.Query("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
			return
		}
	}

	res, err := report.Generate(c.Request.Context(), s.store, kind, n)
	if err != nil {
		s.log.Error("Error generating report", "report", kind, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":    res.Kind,
		"columns":   res.Columns,
		"rows":      res.Data,
		"row_count": len(res.Rows),
	})
}
