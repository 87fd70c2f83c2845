package di

import (
	"context"
	"fmt"
	"time"

	domrepo "FinScope/internal/domain/repository"
	"FinScope/internal/handler/api"
	internalrepo "FinScope/internal/repository"
	"FinScope/internal/service/ratelimit"
	"FinScope/internal/services/report"
	"FinScope/internal/usecase"
	"FinScope/pkg/cache"
	pkgch "FinScope/pkg/clickhouse"
	"FinScope/pkg/config"
	xhttp "FinScope/pkg/http"
	pkgkafka "FinScope/pkg/kafka"
	"FinScope/pkg/logger"
	"FinScope/pkg/metrics"
	"FinScope/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger builds the application logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient connects to ClickHouse and creates the schema.
// Returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *logger.Logger) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		l.Warn("clickhouse disabled, using in-memory stores")
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout+10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	schema := append(
		internalrepo.SeriesSchema(cfg.ClickHouse.Database, cfg.ClickHouse.SeriesTable),
		internalrepo.ReportSchema(cfg.ClickHouse.Database)...,
	)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	l.Info("clickhouse ready",
		logger.String("host", cfg.ClickHouse.Host),
		logger.String("database", cfg.ClickHouse.Database),
	)
	return client, nil
}

// ProvideSeriesStore reads series from ClickHouse, or from memory when it is disabled.
func ProvideSeriesStore(ch *pkgch.Client, cfg *config.Config, l *logger.Logger) (domrepo.SeriesStore, error) {
	if ch == nil {
		return internalrepo.NewMemorySeriesStore(), nil
	}
	return internalrepo.NewCHSeriesStore(ch, cfg.ClickHouse.SeriesTable, l)
}

// ProvideCache returns Redis when enabled and an in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *logger.Logger) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	l.Info("redis ready", logger.String("host", cfg.Redis.Host), logger.Int("port", cfg.Redis.Port))
	return rc, nil
}

// ProvideReportStore persists reports in ClickHouse (or memory) behind the cache.
func ProvideReportStore(ch *pkgch.Client, c cache.Service, cfg *config.Config, l *logger.Logger) (domrepo.ReportStore, error) {
	var base domrepo.ReportStore = internalrepo.NewMemoryReportStore()
	if ch != nil {
		s, err := internalrepo.NewCHReportStore(ch, l)
		if err != nil {
			return nil, err
		}
		base = s
	}
	return internalrepo.NewCachedReportStore(base, c, cfg.Redis.ReportTTL, l), nil
}

func ProvideRunLocker(c cache.Service, l *logger.Logger) domrepo.RunLocker {
	return internalrepo.NewCacheLocker(c, l)
}

// ProvideKafkaProducer creates a Kafka producer. Returns nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideReportPublisher announces reports on Kafka; nil without a producer.
func ProvideReportPublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.ReportPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaReportPublisher(producer, cfg.Kafka.ReportTopic)
}

// ProvideLogCollection ships deduplicated warn/error logs to Kafka when configured.
func ProvideLogCollection(l *logger.Logger, producer *pkgkafka.Producer, cfg *config.Config) server.LogCollection {
	if producer == nil || !cfg.Logging.Collector.Enabled {
		return false
	}
	l.AddCollector(&logger.CollectionConfig{
		TimeInterval:   cfg.Logging.Collector.FlushInterval,
		CountThreshold: cfg.Logging.Collector.CountThreshold,
		Topic:          cfg.Logging.Collector.Topic,
		Publisher:      producer,
	})
	return true
}

func ProvideReportEmitter(cfg *config.Config, l *logger.Logger) domrepo.ReportEmitter {
	return report.NewFileEmitter(cfg.Analysis.OutputDir, l)
}

// Telemetry is where collectors register and where /metrics reads from.
type Telemetry struct {
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// ProvideTelemetry uses the default registry, which the Kafka client metrics share.
// With metrics disabled collectors go to a private registry nobody scrapes.
func ProvideTelemetry(cfg *config.Config) Telemetry {
	if cfg.Metrics.Enabled {
		return Telemetry{Registerer: prometheus.DefaultRegisterer, Gatherer: prometheus.DefaultGatherer}
	}
	reg := prometheus.NewRegistry()
	return Telemetry{Registerer: reg, Gatherer: reg}
}

func ProvideMetrics(t Telemetry) domrepo.Metrics {
	return metrics.New(t.Registerer)
}

func ProvideAnalysisUseCase(
	series domrepo.SeriesStore,
	reports domrepo.ReportStore,
	publisher domrepo.ReportPublisher,
	emitter domrepo.ReportEmitter,
	locker domrepo.RunLocker,
	m domrepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(series, cfg, l,
		usecase.WithReportStore(reports),
		usecase.WithReportPublisher(publisher),
		usecase.WithReportEmitter(emitter),
		usecase.WithRunLocker(locker, cfg.Redis.LockTTL),
		usecase.WithMetrics(m),
	)
}

// ProvideKafkaConsumer subscribes the analysis use case to the request topic.
// Returns nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, uc *usecase.AnalysisUseCase) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithHandlerTimeout(cfg.Analysis.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewAnalysisRequestHandler(cfg.Kafka.RequestTopic, uc, l))
	return consumer, nil
}

func ProvideHTTPHandler(cfg *config.Config, l *logger.Logger, uc *usecase.AnalysisUseCase, ch *pkgch.Client, c cache.Service) *api.AnalysisEchoHandler {
	opts := []api.HandlerOption{
		api.WithRateLimiter(ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)),
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if rc, ok := c.(*cache.RedisCache); ok {
		opts = append(opts, api.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	return api.NewAnalysisEchoHandler(l, uc, opts...)
}

func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, h *api.AnalysisEchoHandler, t Telemetry) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowRequest(cfg.Server.SlowRequest),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(t.Registerer, t.Gatherer, cfg.Metrics.Path))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp assembles the application lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	srv *xhttp.Server,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
	collection server.LogCollection,
) *server.App {
	app := server.New(cfg, l, srv)
	if consumer != nil {
		app.AddWorker("kafka consumer", consumer)
	}
	if bool(collection) {
		app.AddCloser("log collector", func() error { l.RemoveCollector(); return nil })
	}
	if producer != nil {
		app.AddCloser("kafka producer", producer.Close)
	}
	app.AddCloser("cache", c.Close)
	if ch != nil {
		app.AddCloser("clickhouse", ch.Close)
	}
	return app
}
