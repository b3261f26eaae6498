package pipeline

import (
	"context"
	stderrors "errors"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	"github.com/turtacn/KeyDDI-Intelligence/internal/domain/molecule"
	redisinfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/database/redis"
	kafkainfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/prometheus"
	minioinfra "github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/storage/minio"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// ArtifactPublisher uploads the files of a finished run.
type ArtifactPublisher interface {
	Publish(ctx context.Context, runID string, files []string) ([]minioinfra.PublishedObject, error)
}

// EventPublisher emits one event per annotated prediction.
type EventPublisher interface {
	PublishAnnotated(ctx context.Context, runID string, rows []ddi.AnnotatedRow) (int, error)
}

// Infrastructure holds the optional collaborators of a run.  Every field may
// be nil; a nil field disables that concern.
type Infrastructure struct {
	Cache     molecule.FingerprintRepository
	Publisher ArtifactPublisher
	Events    EventPublisher
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.PipelineMetrics

	closers []func() error
}

// OpenInfrastructure connects the backends enabled in cfg.  An unreachable
// cache only disables caching; storage and messaging failures are fatal
// since the operator asked for the results to be published.
func OpenInfrastructure(ctx context.Context, cfg *config.Config, logger logging.Logger) (*Infrastructure, error) {
	logger = logging.OrNop(logger)
	infra := &Infrastructure{}

	if cfg.Metrics.Enabled {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{Namespace: cfg.Metrics.Namespace}, logger)
		if err != nil {
			return nil, err
		}
		infra.Collector = collector
		infra.Metrics = prometheus.NewPipelineMetrics(collector)
	}

	if repo, closer := OpenFingerprintCache(cfg.Cache, infra.Metrics, logger); repo != nil {
		infra.Cache = repo
		infra.closers = append(infra.closers, closer)
	}

	if cfg.Storage.Enabled {
		client, err := minioinfra.NewMinIOClient(minioinfra.ConfigFrom(cfg.Storage), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Publisher = minioinfra.NewArtifactPublisher(client, logger)
	}

	if cfg.Messaging.Enabled {
		producer, err := kafkainfra.NewProducer(kafkainfra.ConfigFrom(cfg.Messaging), logger)
		if err != nil {
			infra.Close()
			return nil, err
		}
		infra.closers = append(infra.closers, producer.Close)
		infra.Events = kafkainfra.NewPredictionPublisher(producer)
	}

	if err := ctx.Err(); err != nil {
		infra.Close()
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "infrastructure setup cancelled")
	}
	return infra, nil
}

// OpenFingerprintCache connects the redis fingerprint cache when it is
// enabled.  It returns nil when the cache is disabled or unreachable; a
// missing cache only costs recomputation.
func OpenFingerprintCache(cfg config.CacheConfig, metrics *prometheus.PipelineMetrics, logger logging.Logger) (molecule.FingerprintRepository, func() error) {
	if !cfg.Enabled {
		return nil, nil
	}
	logger = logging.OrNop(logger)
	client, err := redisinfra.NewClient(redisinfra.ConfigFrom(cfg), logger)
	if err != nil {
		logger.Warn("fingerprint cache unavailable, continuing without it",
			logging.String("addr", cfg.Addr), logging.Err(err))
		return nil, nil
	}
	cache := redisinfra.NewFingerprintCache(client, logger,
		redisinfra.WithPrefix(cfg.KeyPrefix), redisinfra.WithTTL(cfg.TTL))
	return countingRepository{FingerprintRepository: cache, metrics: metrics}, client.Close
}

// Close releases every connection in reverse order of opening.
func (i *Infrastructure) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	for k := len(i.closers) - 1; k >= 0; k-- {
		if err := i.closers[k](); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return stderrors.Join(errs...)
}

// countingRepository records cache hits and misses on the run metrics.
type countingRepository struct {
	molecule.FingerprintRepository
	metrics *prometheus.PipelineMetrics
}

func (c countingRepository) Get(ctx context.Context, key string) (*molecule.Fingerprint, error) {
	fp, err := c.FingerprintRepository.Get(ctx, key)
	switch {
	case err == nil:
		prometheus.RecordCacheAccess(c.metrics, true)
	case errors.IsCode(err, errors.CodeNotFound):
		prometheus.RecordCacheAccess(c.metrics, false)
	}
	return fp, err
}

//Personal.AI order the ending
