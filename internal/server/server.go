package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/groupchat/internal/group"
	"github.com/rickgao/groupchat/internal/metrics"
	"github.com/rickgao/groupchat/internal/session"
)

// Errors
var (
	ErrNotListening     = errors.New("server not listening")
	ErrAlreadyListening = errors.New("server already listening")
)

const shutdownTimeout = 5 * time.Second

// Config holds listener settings.
type Config struct {
	Address string

	// Empty disables the WebSocket gateway.
	WebSocketAddress string
	WebSocketPath    string

	// Empty disables the metrics endpoint.
	MetricsAddress string
	MetricsPath    string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MailboxCapacity int
}

// Registry is what the server needs from the group manager.
type Registry interface {
	session.Registry
	Len(ctx context.Context) (int, error)
}

var _ Registry = (*group.Manager)(nil)

// Server accepts clients over TCP and, optionally, WebSocket.
type Server struct {
	cfg      Config
	registry Registry
	logger   *slog.Logger

	mu        sync.Mutex
	ln        net.Listener
	wsLn      net.Listener
	metricsLn net.Listener

	sessions sync.WaitGroup
}

// New creates a server. Nothing is bound until Listen.
func New(cfg Config, registry Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WebSocketPath == "" {
		cfg.WebSocketPath = "/ws"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
	}
}

// Listen binds every configured address. On failure nothing stays bound.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return ErrAlreadyListening
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Address, err)
	}

	var wsLn, metricsLn net.Listener
	if s.cfg.WebSocketAddress != "" {
		if wsLn, err = net.Listen("tcp", s.cfg.WebSocketAddress); err != nil {
			ln.Close()
			return fmt.Errorf("listen websocket on %s: %w", s.cfg.WebSocketAddress, err)
		}
	}
	if s.cfg.MetricsAddress != "" {
		if metricsLn, err = net.Listen("tcp", s.cfg.MetricsAddress); err != nil {
			ln.Close()
			if wsLn != nil {
				wsLn.Close()
			}
			return fmt.Errorf("listen metrics on %s: %w", s.cfg.MetricsAddress, err)
		}
	}

	s.ln, s.wsLn, s.metricsLn = ln, wsLn, metricsLn
	return nil
}

// Addr returns the bound TCP address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	return s.addr(func() net.Listener { return s.ln })
}

// WebSocketAddr returns the bound WebSocket address, or nil if disabled.
func (s *Server) WebSocketAddr() net.Addr {
	return s.addr(func() net.Listener { return s.wsLn })
}

// MetricsAddr returns the bound metrics address, or nil if disabled.
func (s *Server) MetricsAddr() net.Addr {
	return s.addr(func() net.Listener { return s.metricsLn })
}

func (s *Server) addr(get func() net.Listener) net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ln := get(); ln != nil {
		return ln.Addr()
	}
	return nil
}

// Serve runs every listener until ctx is cancelled or one of them fails,
// then closes the listeners and waits for open sessions to end.
// Cancellation returns nil.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln, wsLn, metricsLn := s.ln, s.wsLn, s.metricsLn
	s.mu.Unlock()

	if ln == nil {
		return ErrNotListening
	}

	eg, ctx := errgroup.WithContext(ctx)

	var httpServers []*http.Server

	eg.Go(func() error {
		return s.acceptLoop(ctx, ln)
	})

	if wsLn != nil {
		mux := http.NewServeMux()
		mux.HandleFunc(s.cfg.WebSocketPath, s.handleWebSocket)
		srv := s.newHTTPServer(ctx, mux)
		httpServers = append(httpServers, srv)
		eg.Go(func() error {
			s.logger.Info("websocket gateway listening", "address", wsLn.Addr().String(), "path", s.cfg.WebSocketPath)
			return ignoreClosed(srv.Serve(wsLn))
		})
	}

	if metricsLn != nil {
		mux := http.NewServeMux()
		mux.Handle(s.cfg.MetricsPath, metrics.Handler())
		mux.HandleFunc("/health", s.handleHealth)
		srv := s.newHTTPServer(ctx, mux)
		httpServers = append(httpServers, srv)
		eg.Go(func() error {
			s.logger.Info("metrics server listening", "address", metricsLn.Addr().String(), "path", s.cfg.MetricsPath)
			return ignoreClosed(srv.Serve(metricsLn))
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		ln.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range httpServers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Warn("http server shutdown failed", "address", srv.Addr, "error", err)
			}
		}
		return nil
	})

	s.logger.Info("server listening", "address", ln.Addr().String())

	err := eg.Wait()
	s.sessions.Wait()
	s.logger.Info("server stopped")
	return err
}

// newHTTPServer returns a server whose request contexts derive from ctx, so
// hijacked WebSocket sessions end with Serve.
func (s *Server) newHTTPServer(ctx context.Context, handler http.Handler) *http.Server {
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}

			// Transient, e.g. EMFILE.
			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = 0

		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.serveSession(ctx, uuid.New(), session.NewLineConn(conn, s.cfg.ReadTimeout, s.cfg.WriteTimeout), "tcp")
		}()
	}
}

func (s *Server) serveSession(ctx context.Context, id uuid.UUID, conn session.Conn, transport string) {
	sess := session.New(id, s.registry, conn, session.Options{
		MailboxCapacity: s.cfg.MailboxCapacity,
		Transport:       transport,
		Logger:          s.logger,
	})
	if err := sess.Serve(ctx); err != nil {
		s.logger.Debug("session closed with error", "session_id", id.String(), "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	health := struct {
		Status string `json:"status"`
		Groups int    `json:"groups"`
		Error  string `json:"error,omitempty"`
	}{Status: "healthy"}

	n, err := s.registry.Len(ctx)
	if err != nil {
		health.Status = "unhealthy"
		health.Error = err.Error()
	}
	health.Groups = n

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}

func nextBackoff(d time.Duration) time.Duration {
	const maxBackoff = time.Second
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
