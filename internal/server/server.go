// Package server serves the build output for preview and tells connected
// browsers to reload when a build finishes.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/conneroisu/pagesmith/internal/build"
	"github.com/conneroisu/pagesmith/internal/config"
	"github.com/conneroisu/pagesmith/internal/logging"
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// PreviewServer serves the output tree with live reload
type PreviewServer struct {
	config       *config.Config
	root         string
	httpServer   *http.Server
	serverMutex  sync.RWMutex
	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn
	done         chan struct{}
	hubOnce      sync.Once
	status       BuildStatus
	statusMutex  sync.RWMutex
	logger       logging.Logger
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Content   string    `json:"content,omitempty"`
	Files     []string  `json:"files,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Message types sent to the browser.
const (
	MessageReload     = "reload"
	MessageBuildError = "build_error"
)

// New creates a preview server for the output tree named by cfg. A nil
// logger discards output.
func New(cfg *config.Config, logger logging.Logger) (*PreviewServer, error) {
	root, err := filepath.Abs(cfg.Paths.Output)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &PreviewServer{
		config:     cfg,
		root:       root,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		status:     BuildStatus{State: StatePending},
		logger:     logger.WithComponent("server"),
	}, nil
}

// Root returns the directory being served.
func (s *PreviewServer) Root() string {
	return s.root
}

// Handler returns the HTTP handler for the preview routes.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/build/status", s.handleBuildStatus)
	mux.HandleFunc("/", s.handleStatic)

	return s.addMiddleware(mux)
}

// Start runs the websocket hub and the HTTP server until ctx is cancelled.
func (s *PreviewServer) Start(ctx context.Context) error {
	go s.runWebSocketHub(ctx)

	addr := s.config.Server.Address()

	s.serverMutex.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	server := s.httpServer
	s.serverMutex.Unlock()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(shutdownCtx, err, "Preview server shutdown failed")
		}
	}()

	s.logger.Info(ctx, "Serving output", "address", "http://"+addr, "root", s.root)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown stops the HTTP server. It is safe to call more than once.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.serverMutex.RLock()
		server := s.httpServer
		s.serverMutex.RUnlock()
		if server != nil {
			err = server.Shutdown(ctx)
		}
	})
	return err
}

// HandleBuild records the outcome of a build and notifies browsers. It
// matches build.BuildCallback so it can be registered on a pipeline.
func (s *PreviewServer) HandleBuild(report *build.Report, err error) {
	s.recordStatus(report, err)

	msg := UpdateMessage{Timestamp: time.Now()}
	if err != nil {
		msg.Type = MessageBuildError
		msg.Content = err.Error()
	} else {
		msg.Type = MessageReload
		if report != nil {
			msg.Files = report.Staged
		}
	}
	s.Broadcast(msg)
}

// Broadcast queues msg for every connected client. Messages are dropped when
// the queue is full.
func (s *PreviewServer) Broadcast(msg UpdateMessage) {
	payload, err := marshalMessage(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to encode update message")
		return
	}

	select {
	case s.broadcast <- payload:
	default:
		s.logger.Warn(context.Background(), nil, "Dropping update message, broadcast queue full", "type", msg.Type)
	}
}

// ClientCount returns the number of connected browsers.
func (s *PreviewServer) ClientCount() int {
	s.clientsMutex.RLock()
	defer s.clientsMutex.RUnlock()
	return len(s.clients)
}

// allowedOrigins lists the hosts permitted to open a live reload socket:
// the configured origins plus the server's own address.
func (s *PreviewServer) allowedOrigins() []string {
	port := strconv.Itoa(s.config.Server.Port)
	origins := []string{
		net.JoinHostPort(s.config.Server.Host, port),
		net.JoinHostPort("localhost", port),
		net.JoinHostPort("127.0.0.1", port),
	}
	for _, origin := range s.config.Server.AllowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			origins = append(origins, u.Host)
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
