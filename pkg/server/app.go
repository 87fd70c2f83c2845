package server

import (
	"context"
	"os/signal"
	"syscall"

	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	"FinScope/pkg/logger"
)

// LogCollection reports whether warn/error logs are shipped to Kafka.
type LogCollection bool

// Worker is a background component started with the app, such as a Kafka consumer.
type Worker interface {
	Start() error
	Stop(ctx context.Context) error
}

type namedWorker struct {
	name string
	w    Worker
}

type namedCloser struct {
	name  string
	close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *logger.Logger
	httpServer *xhttp.Server
	workers    []namedWorker
	closers    []namedCloser
}

// New creates a new App around an HTTP server.
func New(cfg *config.Config, l *logger.Logger, srv *xhttp.Server) *App {
	if l == nil {
		l = logger.Nop()
	}
	return &App{cfg: cfg, l: l, httpServer: srv}
}

// AddWorker registers a component started after the HTTP server and stopped before it.
func (a *App) AddWorker(name string, w Worker) {
	a.workers = append(a.workers, namedWorker{name: name, w: w})
}

// AddCloser registers a resource released at shutdown. Closers run in reverse order.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// Run starts the application and blocks until ctx is done or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", logger.Error(err))
		a.release()
		return err
	}

	for _, nw := range a.workers {
		if err := nw.w.Start(); err != nil {
			a.l.Error("worker start error", logger.String("worker", nw.name), logger.Error(err))
			a.shutdown()
			return err
		}
		a.l.Info("worker started", logger.String("worker", nw.name))
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops workers, then the HTTP server, then releases resources.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	for i := len(a.workers) - 1; i >= 0; i-- {
		nw := a.workers[i]
		if err := nw.w.Stop(ctx); err != nil {
			a.l.Warn("worker stop error", logger.String("worker", nw.name), logger.Error(err))
		}
	}

	var httpErr error
	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", logger.Error(err))
		httpErr = err
	}

	a.release()
	a.l.Info("shutdown complete")
	return httpErr
}

func (a *App) release() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.close(); err != nil {
			a.l.Warn("close error", logger.String("resource", c.name), logger.Error(err))
		}
	}
}
