package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noRoutes struct{}

func (noRoutes) RegisterRoutes(*echo.Echo) {}

type fakeWorker struct {
	name     string
	startErr error
	events   *[]string
}

func (w *fakeWorker) Start() error {
	*w.events = append(*w.events, "start "+w.name)
	return w.startErr
}

func (w *fakeWorker) Stop(context.Context) error {
	*w.events = append(*w.events, "stop "+w.name)
	return nil
}

func newApp(t *testing.T) *App {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Server.ShutdownTimeout = time.Second
	srv := xhttp.NewServer(noRoutes{}, xhttp.WithHost("127.0.0.1"), xhttp.WithPort(0))
	return New(cfg, nil, srv)
}

func TestAppLifecycleOrder(t *testing.T) {
	var events []string
	app := newApp(t)
	app.AddCloser("clickhouse", func() error { events = append(events, "close clickhouse"); return nil })
	app.AddCloser("cache", func() error { events = append(events, "close cache"); return errors.New("already closed") })
	app.AddWorker("consumer", &fakeWorker{name: "consumer", events: &events})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, app.Run(ctx))

	assert.Equal(t, []string{
		"start consumer",
		"stop consumer",
		"close cache",
		"close clickhouse",
	}, events)
}

func TestAppWorkerStartFailure(t *testing.T) {
	var events []string
	app := newApp(t)
	app.AddCloser("producer", func() error { events = append(events, "close producer"); return nil })
	app.AddWorker("consumer", &fakeWorker{name: "consumer", startErr: errors.New("no handlers"), events: &events})

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"start consumer", "stop consumer", "close producer"}, events)
}
