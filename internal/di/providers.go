package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"StockCast/internal/domain/models"
	domrepo "StockCast/internal/domain/repository"
	domsvc "StockCast/internal/domain/service"
	"StockCast/internal/handler/api"
	internalrepo "StockCast/internal/repository"
	"StockCast/internal/service/ratelimit"
	"StockCast/internal/service/scheduler"
	"StockCast/internal/service/stream"
	"StockCast/internal/service/yahoo"
	"StockCast/internal/services/aggregator"
	"StockCast/internal/services/analytics"
	"StockCast/internal/services/catalog"
	"StockCast/internal/services/ensemble"
	"StockCast/internal/services/features"
	"StockCast/internal/usecase"
	"StockCast/pkg/cache"
	pkgch "StockCast/pkg/clickhouse"
	"StockCast/pkg/config"
	xhttp "StockCast/pkg/http"
	pkgkafka "StockCast/pkg/kafka"
	applogger "StockCast/pkg/logger"
	"StockCast/pkg/metrics"
	"StockCast/pkg/queue"
	"StockCast/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(cfg.ClickHouse.MaxOpenConns, cfg.ClickHouse.MaxIdleConns, 5*time.Minute),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	schema := internalrepo.BarSchema(cfg.ClickHouse.Database)
	schema = append(schema, internalrepo.CalibrationSchema(cfg.ClickHouse.Database)...)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideRedisCache connects to Redis, or returns nil when disabled.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache layers an in-process LRU over Redis when available.
func ProvideCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryDefaultTTL(cfg.History.CacheTTL))
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredL1(cfg.Redis.L1Size, cfg.Redis.L1TTL))
}

// ProvideLocker returns the Redis lock, or nil for in-process locking only.
func ProvideLocker(rc *cache.RedisCache) domrepo.Locker {
	if rc == nil {
		return nil
	}
	return rc
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Producer.Async),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaEvents wraps the producer, or returns nil without one.
func ProvideKafkaEvents(cfg *config.Config, producer *pkgkafka.Producer) *internalrepo.KafkaEvents {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaEvents(producer, cfg.Kafka.Topics.Predictions, cfg.Kafka.Topics.Calibrations)
}

// ProvideEventPublisher exposes KafkaEvents as the domain publisher.
func ProvideEventPublisher(ev *internalrepo.KafkaEvents) domrepo.EventPublisher {
	if ev == nil {
		return nil
	}
	return ev
}

// ProvideHistoryProvider selects Yahoo or ClickHouse and fronts it with the cache.
func ProvideHistoryProvider(cfg *config.Config, ch *pkgch.Client, c cache.Service, l *applogger.Logger) (domrepo.HistoryProvider, error) {
	var base domrepo.HistoryProvider
	switch cfg.History.Source {
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("history source clickhouse: client not configured")
		}
		base = internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, l)
	default:
		y := cfg.History.Yahoo
		base = yahoo.New(y.BaseURL, y.Suffix, cfg.History.Timeout, l, xhttp.WithRetry(y.Retries, y.Backoff))
	}
	if cfg.History.CacheTTL <= 0 {
		return base, nil
	}
	return internalrepo.NewCachedHistory(base, c, cfg.History.CacheTTL, l), nil
}

// ProvideBarSink stores Kafka-ingested bars in ClickHouse, or nil without it.
func ProvideBarSink(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) domrepo.BarSink {
	if ch == nil {
		return nil
	}
	return internalrepo.NewCHBarStore(ch, cfg.ClickHouse.Database, l)
}

// ProvideCalibrationStore selects the configured calibration backend.
func ProvideCalibrationStore(cfg *config.Config, ch *pkgch.Client, rc *cache.RedisCache) (domrepo.CalibrationStore, error) {
	switch cfg.Calibration.Store {
	case "redis":
		if rc == nil {
			return nil, fmt.Errorf("calibration store redis: client not configured")
		}
		return internalrepo.NewCacheCalibrationStore(rc), nil
	case "clickhouse":
		if ch == nil {
			return nil, fmt.Errorf("calibration store clickhouse: client not configured")
		}
		return internalrepo.NewCHCalibrationStore(ch, cfg.ClickHouse.Database), nil
	case "sql":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := internalrepo.OpenSQLCalibrationStore(ctx, cfg.Calibration.SQL.Driver, cfg.Calibration.SQL.DSN)
		if err != nil {
			return nil, fmt.Errorf("calibration store sql: %w", err)
		}
		return s, nil
	default:
		return internalrepo.NewMemoryCalibrationStore(), nil
	}
}

// ProvideFeatureBuilder applies configured windows over the default indicator set.
func ProvideFeatureBuilder(cfg *config.Config) *features.Builder {
	fc := features.DefaultConfig()
	fc.MinWindow = cfg.Features.MinWindow
	if len(cfg.Features.SMAPeriods) > 0 {
		fc.SMAPeriods = cfg.Features.SMAPeriods
	}
	return features.NewBuilder(fc)
}

// ProvideAggregator maps configured weights and confidence bounds.
func ProvideAggregator(cfg *config.Config) *aggregator.Aggregator {
	ac := aggregator.DefaultConfig()
	if len(cfg.Ensemble.Weights) > 0 {
		ac.Weights = make(map[models.ModelKind]float64, len(cfg.Ensemble.Weights))
		for k, w := range cfg.Ensemble.Weights {
			ac.Weights[models.ModelKind(k)] = w
		}
	}
	ac.DefaultBaseline = cfg.Confidence.DefaultBaseline
	ac.Min = cfg.Confidence.Min
	ac.Max = cfg.Confidence.Max
	ac.AgreementSpan = cfg.Confidence.AgreementSpan
	ac.MaxDispersionPct = cfg.Confidence.MaxDispersionPct
	ac.FreshnessWindow = cfg.Calibration.FreshnessWindow
	return aggregator.New(ac)
}

// ProvideArtifactStore opens the local model directory.
func ProvideArtifactStore(cfg *config.Config, l *applogger.Logger) *ensemble.FileStore {
	return ensemble.NewFileStore(cfg.Ensemble.ModelDir, l)
}

// ProvideModelLoader selects local artifacts or the remote inference service.
func ProvideModelLoader(cfg *config.Config, fs *ensemble.FileStore) domsvc.ModelLoader {
	if cfg.Ensemble.ModelSource == "remote" {
		return analytics.NewRemoteLoader(cfg.Ensemble.RemoteURL, cfg.Ensemble.RemoteTimeout)
	}
	return fs
}

// ProvideTrainer fits artifacts into the local model directory.
func ProvideTrainer(cfg *config.Config, builder *features.Builder, fs *ensemble.FileStore, l *applogger.Logger) *ensemble.Trainer {
	tc := ensemble.DefaultTrainerConfig()
	tc.Seed = cfg.Training.Seed
	tc.ForestTrees = cfg.Training.ForestTrees
	tc.BoostRounds = cfg.Training.BoostRounds
	tc.LearningRate = cfg.Training.LearnRate
	return ensemble.NewTrainer(builder, fs, tc, l)
}

func ProvideHub(l *applogger.Logger) *stream.Hub {
	return stream.NewHub(l)
}

func ProvideCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(cfg.Catalog.File)
}

func ProvidePredictor(
	cfg *config.Config,
	history domrepo.HistoryProvider,
	builder *features.Builder,
	loader domsvc.ModelLoader,
	agg *aggregator.Aggregator,
	store domrepo.CalibrationStore,
	stocks *catalog.Catalog,
	events domrepo.EventPublisher,
	hub *stream.Hub,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Predictor {
	return usecase.NewPredictor(history, builder, loader, agg, store, stocks, events, hub, m, l, usecase.PredictorConfig{
		LookbackDays: cfg.History.LookbackDays,
		FetchTimeout: cfg.History.Timeout,
	})
}

func ProvideTracker(
	cfg *config.Config,
	history domrepo.HistoryProvider,
	store domrepo.CalibrationStore,
	locker domrepo.Locker,
	events domrepo.EventPublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.Tracker, error) {
	return usecase.NewTracker(history, store, locker, events, m, l, usecase.CalibrationConfig{
		Windows:         cfg.Calibration.Windows,
		Horizon:         cfg.Calibration.Horizon,
		Strategy:        cfg.Calibration.Strategy,
		LookbackDays:    cfg.History.LookbackDays,
		FetchTimeout:    cfg.History.Timeout,
		FreshnessWindow: cfg.Calibration.FreshnessWindow,
		LockTTL:         cfg.Calibration.LockTTL,
	})
}

func ProvideTechnical(cfg *config.Config, history domrepo.HistoryProvider) *usecase.Technical {
	return usecase.NewTechnical(history, cfg.History.LookbackDays, cfg.History.Timeout)
}

func ProvideHistoryUseCase(cfg *config.Config, history domrepo.HistoryProvider) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(history, cfg.History.Timeout)
}

func ProvideStocks(cfg *config.Config, c *catalog.Catalog, p *usecase.Predictor, history domrepo.HistoryProvider, l *applogger.Logger) *usecase.Stocks {
	return usecase.NewStocks(c, p, history, l, usecase.StocksConfig{
		Workers:      cfg.Catalog.Workers,
		FetchTimeout: cfg.History.Timeout,
	})
}

func ProvideTraining(cfg *config.Config, history domrepo.HistoryProvider, trainer *ensemble.Trainer, l *applogger.Logger) *usecase.Training {
	return usecase.NewTraining(history, trainer, l, 5*365, 3*cfg.History.Timeout)
}

// ProvideForecastHandler exposes training only when models are served from local artifacts.
func ProvideForecastHandler(
	cfg *config.Config,
	l *applogger.Logger,
	p *usecase.Predictor,
	t *usecase.Tracker,
	tech *usecase.Technical,
	hist *usecase.HistoryUseCase,
	stocks *usecase.Stocks,
	training *usecase.Training,
	hub *stream.Hub,
) *api.ForecastHandler {
	var trainer api.ModelTrainer
	if cfg.Ensemble.ModelSource == "file" {
		trainer = training
	}
	return api.NewForecastHandler(l, p, t, tech, hist, stocks, trainer, hub)
}

// ProvideHealthHandler checks every configured backend.
func ProvideHealthHandler(ch *pkgch.Client, rc *cache.RedisCache, store domrepo.CalibrationStore) *api.HealthHandler {
	checks := map[string]api.HealthCheck{}
	if ch != nil {
		checks["clickhouse"] = ch.Health
	}
	if rc != nil {
		checks["redis"] = rc.Health
	}
	if s, ok := store.(interface{ Health(context.Context) error }); ok {
		checks["calibration_store"] = s.Health
	}
	return api.NewHealthHandler(checks, 2*time.Second)
}

// ProvideHTTPServer builds the echo server with rate limiting in front of the API.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, fh *api.ForecastHandler, hh *api.HealthHandler) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(l),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path, cfg.Metrics.SlowThreshold),
	}
	if cfg.RateLimit.Enabled {
		opts = append(opts, xhttp.WithMiddleware(ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec).Middleware()))
	}
	return xhttp.NewServer(xhttp.Handlers{hh, fh}, opts...)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger, m domrepo.Metrics) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TraceHook{},
		pkgkafka.HookFuncs{Err: func(ctx context.Context, topic string, _ kafka.Message, err error) {
			m.RecordError("consumer_" + topic)
			l.Warn("kafka message failed",
				applogger.String("topic", topic),
				applogger.String("trace_id", pkgkafka.TraceID(ctx)),
				applogger.Error(err),
			)
		}},
	))
	return consumer, nil
}

// ProvideKafkaHandlers registers bar ingestion (with ClickHouse) and recalibration requests.
func ProvideKafkaHandlers(
	cfg *config.Config,
	sink domrepo.BarSink,
	tracker *usecase.Tracker,
	m domrepo.Metrics,
	l *applogger.Logger,
) []pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled {
		return nil
	}
	hs := []pkgkafka.MessageHandler{
		usecase.NewKafkaRecalibrateHandler(cfg.Kafka.Topics.Recalibrate, tracker, l),
	}
	if sink != nil {
		hs = append(hs, usecase.NewKafkaBarsHandler(cfg.Kafka.Topics.Bars, sink, m))
	}
	return hs
}

// ProvideWorkQueue runs queued recalibrations on this instance, or returns nil when disabled.
func ProvideWorkQueue(cfg *config.Config, rc *cache.RedisCache, tracker *usecase.Tracker, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Calibration.Queue.Enabled || rc == nil {
		return nil
	}
	q := queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Calibration.Queue.Workers,
		RetryLimit: cfg.Calibration.Queue.RetryLimit,
		RetryDelay: cfg.Calibration.Queue.RetryDelay,
	}, rc.Client(), queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"))
	q.RegisterJob(usecase.NewRecalibrationJob(tracker, l))
	return q
}

// ProvideScheduler registers watchlist recalibration, or returns nil when unscheduled.
// With a work queue the schedule only enqueues and any instance runs the symbols.
func ProvideScheduler(cfg *config.Config, tracker *usecase.Tracker, q *queue.RedisQueue, l *applogger.Logger) (*scheduler.Scheduler, error) {
	if cfg.Calibration.Schedule == "" || len(cfg.Calibration.Watchlist) == 0 {
		return nil, nil
	}
	var rec scheduler.Recalibrator = tracker
	if q != nil {
		rec = usecase.NewQueuedRecalibrator(q)
	}
	s := scheduler.New(rec, cfg.Calibration.Watchlist, 10*time.Minute, l)
	if err := s.Register(cfg.Calibration.Schedule); err != nil {
		return nil, err
	}
	return s, nil
}

// ProvideApp assembles the lifecycle. Closers run in reverse, so clients close last.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	hub *stream.Hub,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	sched *scheduler.Scheduler,
	q *queue.RedisQueue,
	events *internalrepo.KafkaEvents,
	c cache.Service,
	ch *pkgch.Client,
	store domrepo.CalibrationStore,
) *server.App {
	comps := server.Components{
		HTTP:          srv,
		Hub:           hub,
		Consumer:      consumer,
		KafkaHandlers: handlers,
		Scheduler:     sched,
		Queue:         q,
	}
	if ch != nil {
		comps.Closers = append(comps.Closers, server.Closer{Name: "clickhouse", Close: ch.Close})
	}
	comps.Closers = append(comps.Closers, server.Closer{Name: "cache", Close: c.Close})
	if cl, ok := store.(io.Closer); ok {
		comps.Closers = append(comps.Closers, server.Closer{Name: "calibration_store", Close: cl.Close})
	}
	if events != nil {
		comps.LogPublisher = events
		comps.Closers = append(comps.Closers, server.Closer{Name: "kafka_producer", Close: events.Close})
	}
	return server.New(cfg, l, comps)
}
