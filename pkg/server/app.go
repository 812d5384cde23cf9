package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockCast/internal/service/scheduler"
	"StockCast/internal/service/stream"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/queue"
)

// Closer releases one infrastructure client on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// Components are the long-running parts the App starts and stops.
// Everything except HTTP is optional.
type Components struct {
	HTTP          *xhttp.Server
	Hub           *stream.Hub
	Consumer      *pkgkafka.Consumer
	KafkaHandlers []pkgkafka.MessageHandler
	Scheduler     *scheduler.Scheduler
	Queue         *queue.RedisQueue
	LogPublisher  applogger.Publisher
	Closers       []Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	l   *applogger.Logger
	c   Components
}

func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, c: c}
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve starts every component and shuts them down when ctx is done.
func (a *App) Serve(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if a.c.LogPublisher != nil && a.cfg.Log.Collector.Enabled {
		a.l.AddCollector(&applogger.CollectionConfig{
			FlushInterval: a.cfg.Log.Collector.FlushInterval,
			MaxEntries:    a.cfg.Log.Collector.MaxBatch,
			Topic:         a.cfg.Log.Collector.Topic,
			Publisher:     a.c.LogPublisher,
		})
		a.l.Info("log collector enabled", applogger.String("topic", a.cfg.Log.Collector.Topic))
	}

	if a.c.Hub != nil {
		go a.c.Hub.Run(runCtx)
	}

	if a.c.Consumer != nil && len(a.c.KafkaHandlers) > 0 {
		topics := make([]string, 0, len(a.c.KafkaHandlers))
		for _, h := range a.c.KafkaHandlers {
			a.c.Consumer.RegisterHandler(h)
			topics = append(topics, h.Topic())
		}
		if err := a.c.Consumer.Start(); err != nil {
			a.l.Error("kafka consumer start error", applogger.Error(err))
			return err
		}
		a.l.Info("kafka consumer started", applogger.Strings("topics", topics))
	}

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			a.l.Error("work queue start error", applogger.Error(err))
			return err
		}
	}

	if a.c.Scheduler != nil {
		a.c.Scheduler.Start()
	}

	if err := a.c.HTTP.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown stops intake first, then background work, then closes clients.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if err := a.c.HTTP.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
		keep(err)
	}
	if a.c.Scheduler != nil {
		if err := a.c.Scheduler.Stop(ctx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
			keep(err)
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil {
			a.l.Warn("work queue stop error", applogger.Error(err))
			keep(err)
		}
	}
	if a.c.Consumer != nil && len(a.c.KafkaHandlers) > 0 {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			keep(err)
		}
	}

	// flush aggregated logs while the publisher is still open
	a.l.RemoveCollector()

	for i := len(a.c.Closers) - 1; i >= 0; i-- {
		cl := a.c.Closers[i]
		if err := cl.Close(); err != nil {
			a.l.Warn("close error", applogger.String("component", cl.Name), applogger.Error(err))
			keep(err)
		}
	}

	a.l.Info("shutdown complete")
	return firstErr
}
