// Package server owns the HTTP listener lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
}

// DefaultConfig returns listener defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8000",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    10 * time.Minute,
		IdleTimeout:     120 * time.Second,
		MaxHeaderBytes:  1 << 20,
		ShutdownTimeout: 15 * time.Second,
	}
}

// Manager runs one http.Server.
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.Mutex
	closed   bool
}

// NewManager wraps handler in a server configured by cfg.
func NewManager(handler http.Handler, cfg Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		server: &http.Server{
			Addr:           cfg.Addr,
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			IdleTimeout:    cfg.IdleTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		errCh:  make(chan error, 1),
		config: cfg,
		logger: logger.With(zap.String("component", "http_server")),
	}
}

// Start listens and serves in the background.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("server: closed")
	}
	if m.listener != nil {
		return errors.New("server: already started")
	}

	ln, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", m.config.Addr, err)
	}
	m.listener = ln
	m.logger.Info("starting HTTP server", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("HTTP server failed", zap.Error(err))
			select {
			case m.errCh <- err:
			default:
			}
		}
	}()
	return nil
}

// Addr returns the bound address once started, else the configured one.
func (m *Manager) Addr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// Shutdown drains in-flight requests within the shutdown timeout.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.logger.Info("shutting down HTTP server")

	if m.config.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.config.ShutdownTimeout)
		defer cancel()
	}
	if err := m.server.Shutdown(ctx); err != nil {
		m.logger.Error("HTTP server shutdown failed", zap.Error(err))
		return err
	}
	m.listener = nil
	m.logger.Info("HTTP server stopped")
	return nil
}

// Run blocks until ctx ends or the server fails, then shuts down. A
// server failure is returned.
func (m *Manager) Run(ctx context.Context) error {
	var serveErr error
	select {
	case <-ctx.Done():
		m.logger.Info("shutdown requested", zap.Error(context.Cause(ctx)))
	case serveErr = <-m.errCh:
	}
	if err := m.Shutdown(context.Background()); err != nil && serveErr == nil {
		return err
	}
	return serveErr
}
