// ABOUTME: Review server implementation
// ABOUTME: Serves the review HTTP API, the event WebSocket and mDNS advertisement
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mixroom/mixcheck/internal/discovery"
	"github.com/mixroom/mixcheck/internal/review"
	"github.com/mixroom/mixcheck/pkg/protocol"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Config holds server configuration
type Config struct {
	Port           int
	Name           string
	EnableMDNS     bool
	UseTUI         bool
	AnalyzeTimeout time.Duration // 0 leaves analysis bounded by the request only
	Logger         *zap.SugaredLogger
}

// Server is the review server
type Server struct {
	config   Config
	serverID string
	logger   *zap.SugaredLogger

	service *review.Service
	hub     *Hub

	httpServer *http.Server
	mux        *http.ServeMux

	mdnsManager *discovery.Manager

	tui       *ServerTUI
	startTime time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a server for a review service. The hub must be the
// service's notifier so API actions reach watchers.
func New(config Config, service *review.Service, hub *Hub) *Server {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	serverID := uuid.New().String()
	if hub == nil {
		hub = NewHub(serverID, config.Name, logger)
	} else if hub.serverID != "" {
		serverID = hub.serverID
	}

	s := &Server{
		config:    config,
		serverID:  serverID,
		logger:    logger,
		service:   service,
		hub:       hub,
		mux:       http.NewServeMux(),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.routes()
	return s
}

// ID returns the server identifier announced to watchers
func (s *Server) ID() string {
	return s.serverID
}

// Handler returns the HTTP handler serving every route
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/policy", s.handlePolicy)
	s.mux.HandleFunc("GET /api/files", s.handleListFiles)
	s.mux.HandleFunc("POST /api/files", s.handleRegisterFile)
	s.mux.HandleFunc("GET /api/files/{id}", s.handleGetFile)
	s.mux.HandleFunc("PUT /api/files/{id}/url", s.handleReplaceURL)
	s.mux.HandleFunc("POST /api/files/{id}/analyze", s.handleAnalyze)
	s.mux.HandleFunc("GET /api/files/{id}/reviews", s.handleListReviews)
	s.mux.HandleFunc("POST /api/files/{id}/reviews", s.handleSubmitReview)
	s.mux.Handle("GET "+protocol.EventsPath, s.hub)
}

// Start runs the server until Stop, a TUI quit or a listener error
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI()
		s.hub.mu.Lock()
		s.hub.onChange = s.updateTUI
		s.hub.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(s.config.Name, s.config.Port); err != nil {
				s.logger.Warnw("server TUI exited", "error", err)
			}
		}()
	}

	s.logger.Infow("server starting", "name", s.config.Name, "server_id", s.serverID)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Logger:      s.logger,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			s.logger.Warnw("failed to start mDNS advertisement", "error", err)
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Infow("review server listening", "addr", addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		s.logger.Infow("server shutting down")
	case <-tuiQuitChan:
		s.logger.Infow("TUI quit requested, shutting down")
	case err := <-errChan:
		s.logger.Errorw("HTTP server error", "error", err)
		serverErr = err
	}

	if s.tui != nil {
		s.tui.Stop()
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Hijacked websocket connections are not closed by Shutdown
	s.hub.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warnw("HTTP server shutdown error", "error", err)
	}

	s.wg.Wait()
	s.logger.Infow("server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}
