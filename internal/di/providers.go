package di

import (
	"fmt"
	"net"
	"strconv"

	"AirPulse/internal/domain/repository"
	"AirPulse/internal/handler/api"
	"AirPulse/internal/registry"
	internalrepo "AirPulse/internal/repository"
	"AirPulse/internal/services/airsrc"
	"AirPulse/internal/usecase"
	"AirPulse/pkg/cache"
	pkgch "AirPulse/pkg/clickhouse"
	"AirPulse/pkg/config"
	xhttp "AirPulse/pkg/http"
	pkgkafka "AirPulse/pkg/kafka"
	applogger "AirPulse/pkg/logger"
	"AirPulse/pkg/metrics"
	"AirPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	level := "info"
	if cfg.Environment == "development" {
		format = "console"
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRegistry creates the model registry rooted at the configured dir.
func ProvideRegistry(cfg *config.Config) *registry.Registry {
	return registry.New(cfg.Model.Dir)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when storage
// is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideStorage creates ClickHouse-backed observation storage.
func ProvideStorage(chClient *pkgch.Client, log *applogger.Logger) repository.Storage {
	if chClient == nil {
		return nil
	}
	repo := internalrepo.NewObservationRepository(chClient)
	repo.SetLogger(log)
	return repo
}

// ProvideCache creates the cache service: layered over Redis when enabled,
// in-memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Cache.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Cache.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("cache redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("cache redis port: %w", err)
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Cache.Redis.Password),
		cache.WithRedisDB(cfg.Cache.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideObservationSource creates the upstream readings client, or nil
// when no upstream is configured.
func ProvideObservationSource(cfg *config.Config, cacheSvc cache.Service, log *applogger.Logger) repository.ObservationSource {
	if cfg.Upstream.BaseURL == "" {
		return nil
	}
	opts := []airsrc.Option{airsrc.WithLogger(log)}
	if cfg.Upstream.Timeout > 0 {
		opts = append(opts, airsrc.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(cfg.Upstream.Timeout))))
	}
	if cacheSvc != nil {
		opts = append(opts, airsrc.WithCache(cacheSvc, cfg.Cache.TTL))
	}
	return airsrc.NewClient(cfg.Upstream.BaseURL, opts...)
}

// ProvideGapFillUseCase creates the gap filling use case.
func ProvideGapFillUseCase(reg *registry.Registry, cfg *config.Config, log *applogger.Logger, m repository.Metrics) *usecase.GapFillUseCase {
	return usecase.NewGapFillUseCase(reg, usecase.ModelConfig{
		HiddenUnits:  cfg.Model.HiddenUnits,
		LearningRate: cfg.Model.LearningRate,
		MaxEpochs:    cfg.Model.MaxEpochs,
		BatchSize:    cfg.Model.BatchSize,
		Patience:     cfg.Model.Patience,
		LRPatience:   cfg.Model.LRPatience,
		ValFraction:  cfg.Model.ValFraction,
		Seed:         cfg.Model.Seed,
	}, log, m)
}

// ProvideAnomalyUseCase creates the anomaly detection use case.
func ProvideAnomalyUseCase(cfg *config.Config, log *applogger.Logger, m repository.Metrics) *usecase.AnomalyUseCase {
	return usecase.NewAnomalyUseCase(usecase.DetectorConfig{
		ZThreshold:    cfg.Pipeline.ZThreshold,
		IQRMultiplier: cfg.Pipeline.IQRMultiplier,
		Contamination: cfg.Pipeline.Contamination,
		MLMinSamples:  cfg.Pipeline.MLMinSamples,
	}, log, m)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the bus is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvidePublisher creates the readings publisher over Kafka.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewReadingsPublisher(producer, cfg.Kafka.Topic)
}

// ProvideIngestUseCase creates the upstream sync use case when both the
// source and storage are available.
func ProvideIngestUseCase(source repository.ObservationSource, storage repository.Storage, publisher repository.Publisher, log *applogger.Logger, m repository.Metrics) *usecase.IngestUseCase {
	if source == nil || storage == nil {
		return nil
	}
	uc := usecase.NewIngestUseCase(source, storage, log, m)
	if publisher != nil {
		uc.SetPublisher(publisher)
	}
	return uc
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when ingest over
// Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaReadingsHandler registers the handler for the readings topic.
func ProvideKafkaReadingsHandler(storage repository.Storage, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if !cfg.Kafka.Enabled || storage == nil {
		return nil
	}
	return usecase.NewKafkaReadingsHandler(cfg.Kafka.Topic, storage, m)
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	gapfill *usecase.GapFillUseCase,
	anomaly *usecase.AnomalyUseCase,
	ingest *usecase.IngestUseCase,
	storage repository.Storage,
) xhttp.Handler {
	h := api.NewAnalysisHandler(log, gapfill, anomaly, ingest)
	if storage != nil {
		h.SetStorage(storage)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	storage repository.Storage,
	cacheSvc cache.Service,
	publisher repository.Publisher,
) *server.App {
	return server.New(cfg, log, httpHandler, consumer, kh, storage, cacheSvc, publisher)
}
