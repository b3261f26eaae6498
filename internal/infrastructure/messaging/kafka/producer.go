// Package kafka publishes annotated predictions as JSON events.
package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

var ErrProducerClosed = errors.New(errors.ErrCodeMessageError, "producer closed")

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	Brokers         []string
	Topic           string
	Acks            string
	MaxRetries      int
	BatchSize       int
	BatchTimeout    time.Duration
	MaxMessageBytes int
	WriteTimeout    time.Duration
}

// ConfigFrom maps the messaging section of the application config.
func ConfigFrom(c config.MessagingConfig) ProducerConfig {
	return ProducerConfig{
		Brokers:      c.Brokers,
		Topic:        c.Topic,
		BatchSize:    c.BatchSize,
		WriteTimeout: c.WriteTimeout,
	}
}

// ProducerMetrics holds producer counters.
type ProducerMetrics struct {
	MessagesSent   atomic.Int64
	MessagesFailed atomic.Int64
	BytesSent      atomic.Int64
}

// WriterInterface abstracts kafka.Writer for testing.
type WriterInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes keyed messages to one topic.
type Producer struct {
	writer  WriterInterface
	config  ProducerConfig
	logger  logging.Logger
	closed  atomic.Bool
	metrics *ProducerMetrics
}

// NewProducer creates a Producer backed by a kafka.Writer.  The writer
// connects lazily on the first write.
func NewProducer(cfg ProducerConfig, logger logging.Logger) (*Producer, error) {
	if err := ValidateProducerConfig(cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)

	var requiredAcks kafka.RequiredAcks
	switch cfg.Acks {
	case "none":
		requiredAcks = kafka.RequireNone
	case "one":
		requiredAcks = kafka.RequireOne
	default:
		requiredAcks = kafka.RequireAll
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxRetries + 1,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: requiredAcks,
	}
	return newProducer(writer, cfg, logger), nil
}

func newProducer(w WriterInterface, cfg ProducerConfig, logger logging.Logger) *Producer {
	applyDefaults(&cfg)
	return &Producer{
		writer:  w,
		config:  cfg,
		logger:  logging.OrNop(logger),
		metrics: &ProducerMetrics{},
	}
}

func applyDefaults(cfg *ProducerConfig) {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.MaxMessageBytes == 0 {
		cfg.MaxMessageBytes = 1024 * 1024
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

// PublishBatch writes msgs in chunks of BatchSize.  It stops at the first
// failing chunk and returns how many messages were written before it.
func (p *Producer) PublishBatch(ctx context.Context, msgs []kafka.Message) (int, error) {
	if p.closed.Load() {
		return 0, ErrProducerClosed
	}
	for _, m := range msgs {
		if len(m.Value) > p.config.MaxMessageBytes {
			return 0, errors.Newf(errors.ErrCodeValidation, "message for key %q exceeds %d bytes", m.Key, p.config.MaxMessageBytes)
		}
	}

	sent := 0
	for start := 0; start < len(msgs); start += p.config.BatchSize {
		end := start + p.config.BatchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		chunk := msgs[start:end]
		if err := p.writer.WriteMessages(ctx, chunk...); err != nil {
			p.metrics.MessagesFailed.Add(int64(len(chunk)))
			return sent, errors.Wrap(err, errors.ErrCodeMessageError, "publish failed").WithDetail(p.config.Topic)
		}
		sent += len(chunk)
		p.metrics.MessagesSent.Add(int64(len(chunk)))
		for _, m := range chunk {
			p.metrics.BytesSent.Add(int64(len(m.Value)))
		}
	}

	p.logger.Debug("Batch published", logging.String("topic", p.config.Topic), logging.Int("messages", sent))
	return sent, nil
}

// Sent returns the number of messages written so far.
func (p *Producer) Sent() int64 { return p.metrics.MessagesSent.Load() }

// Close closes the producer.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := p.writer.Close()
	p.logger.Info("Kafka producer closed", logging.Int64("sent", p.metrics.MessagesSent.Load()))
	return err
}

func ValidateProducerConfig(cfg ProducerConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New(errors.ErrCodeValidation, "kafka brokers required")
	}
	if cfg.Topic == "" {
		return errors.New(errors.ErrCodeValidation, "kafka topic required")
	}
	if cfg.MaxRetries < 0 {
		return errors.New(errors.ErrCodeValidation, "MaxRetries must be >= 0")
	}
	return nil
}

//Personal.AI order the ending
