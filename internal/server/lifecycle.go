package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rsclarke/dxrelay/internal/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 5 * time.Second

type ServerConfig struct {
	Addr              string
	Handler           http.Handler
	Logger            *zap.Logger
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
}

func DefaultServerConfig(addr string, handler http.Handler, logger *zap.Logger) ServerConfig {
	return ServerConfig{
		Addr:              addr,
		Handler:           handler,
		Logger:            logger,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

// ManagedServer is an http.Server bound to a listener up front, so that
// address errors surface before the relay starts.
type ManagedServer struct {
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
	name     string
}

// NewManagedServer binds cfg.Addr and returns a server ready to Run.
func NewManagedServer(name string, cfg ServerConfig) (*ManagedServer, error) {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("%s: listen on %s: %w", name, cfg.Addr, err)
	}

	errLog, _ := zap.NewStdLogAt(cfg.Logger, zapcore.ErrorLevel)
	srv := &http.Server{
		Handler:           cfg.Handler,
		ErrorLog:          errLog,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	return &ManagedServer{
		server:   srv,
		listener: ln,
		logger:   cfg.Logger,
		name:     name,
	}, nil
}

// Addr returns the bound address.
func (m *ManagedServer) Addr() string { return m.listener.Addr().String() }

// Run serves until ctx is done, then shuts down gracefully. It returns
// ctx.Err() after a clean shutdown, or the serve error.
func (m *ManagedServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("starting server", zap.String("server", m.name), logging.Listen(m.Addr()))
		errCh <- m.server.Serve(m.listener)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: %w", m.name, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Warn("shutdown error", zap.String("server", m.name), zap.Error(err))
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: %w", m.name, err)
	}
	return ctx.Err()
}
