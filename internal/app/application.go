package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/raysh454/pageshot/internal/browser"
	"github.com/raysh454/pageshot/internal/capture"
	"github.com/raysh454/pageshot/internal/logging"
	"github.com/raysh454/pageshot/internal/server"
)

const shutdownTimeout = 15 * time.Second

// Application is the global runtime state container: config, logger and
// the HTTP server wired to a browser driver.
type Application struct {
	Config *Config
	Logger logging.Logger
	Server *server.Server

	httpServer *http.Server
	ready      chan net.Addr
}

// NewApplication wires the server. A nil driver selects the backend from
// cfg.Browser.
func NewApplication(cfg *Config, logger logging.Logger, driver capture.Driver) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	if driver == nil {
		d, err := browser.NewDriver(cfg.Browser, logger)
		if err != nil {
			return nil, fmt.Errorf("creating browser driver: %w", err)
		}
		driver = d
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr: cfg.ListenAddr(),
		Driver:     driver,
		Capture:    cfg.Capture,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	return &Application{
		Config:     cfg,
		Logger:     logger,
		Server:     srv,
		httpServer: srv.HTTPServer(),
		ready:      make(chan net.Addr, 1),
	}, nil
}

// Ready yields the bound listen address once Run is serving.
func (a *Application) Ready() <-chan net.Addr {
	return a.ready
}

// Run serves until ctx is canceled, then shuts down gracefully. In-flight
// captures get shutdownTimeout to finish.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.httpServer.Addr, err)
	}
	a.Logger.Info("screenshot service listening",
		logging.Field{Key: "addr", Value: ln.Addr().String()},
		logging.Field{Key: "env", Value: a.Config.Env})
	a.ready <- ln.Addr()

	errCh := make(chan error, 1)
	go func() { errCh <- a.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("application shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("http server shutdown returned error", logging.Err(err))
		return err
	}
	a.Logger.Info("application stopped")
	return nil
}
