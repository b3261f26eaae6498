package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	pkgerrors "github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// mockKafkaWriter
type mockKafkaWriter struct {
	writeFunc func(ctx context.Context, msgs ...kafka.Message) error
	closeFunc func() error
	batches   [][]kafka.Message
}

func (m *mockKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.batches = append(m.batches, msgs)
	if m.writeFunc != nil {
		return m.writeFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockKafkaWriter) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

func newTestProducerConfig() ProducerConfig {
	return ProducerConfig{
		Brokers:   []string{"localhost:9092"},
		Topic:     "ddi.predictions",
		BatchSize: 2,
	}
}

func messages(n int) []kafka.Message {
	out := make([]kafka.Message, n)
	for i := range out {
		out[i] = kafka.Message{Key: []byte{byte('a' + i)}, Value: []byte("{}")}
	}
	return out
}

func TestValidateProducerConfig(t *testing.T) {
	assert.NoError(t, ValidateProducerConfig(newTestProducerConfig()))

	cfg := newTestProducerConfig()
	cfg.Brokers = nil
	assert.Error(t, ValidateProducerConfig(cfg))

	cfg = newTestProducerConfig()
	cfg.Topic = ""
	assert.Error(t, ValidateProducerConfig(cfg))

	cfg = newTestProducerConfig()
	cfg.MaxRetries = -1
	assert.Error(t, ValidateProducerConfig(cfg))
}

func TestNewProducer(t *testing.T) {
	p, err := NewProducer(newTestProducerConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, p.config.MaxRetries)
	assert.NoError(t, p.Close())

	_, err = NewProducer(ProducerConfig{}, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestPublishBatch_Chunks(t *testing.T) {
	w := &mockKafkaWriter{}
	p := newProducer(w, newTestProducerConfig(), nil)

	n, err := p.PublishBatch(context.Background(), messages(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, w.batches, 3)
	assert.Len(t, w.batches[0], 2)
	assert.Len(t, w.batches[2], 1)
	assert.Equal(t, int64(5), p.Sent())
	assert.Equal(t, int64(10), p.metrics.BytesSent.Load())
}

func TestPublishBatch_StopsOnFailure(t *testing.T) {
	calls := 0
	w := &mockKafkaWriter{writeFunc: func(ctx context.Context, msgs ...kafka.Message) error {
		calls++
		if calls == 2 {
			return errors.New("leader not available")
		}
		return nil
	}}
	p := newProducer(w, newTestProducerConfig(), nil)

	n, err := p.PublishBatch(context.Background(), messages(5))
	assert.Equal(t, 2, n)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeMessageError))
	assert.Equal(t, int64(2), p.metrics.MessagesFailed.Load())
}

func TestPublishBatch_TooLarge(t *testing.T) {
	cfg := newTestProducerConfig()
	cfg.MaxMessageBytes = 1
	p := newProducer(&mockKafkaWriter{}, cfg, nil)
	_, err := p.PublishBatch(context.Background(), messages(1))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeValidation))
}

func TestProducer_Close(t *testing.T) {
	closes := 0
	p := newProducer(&mockKafkaWriter{closeFunc: func() error { closes++; return nil }}, newTestProducerConfig(), nil)
	assert.NoError(t, p.Close())
	assert.NoError(t, p.Close())
	assert.Equal(t, 1, closes)

	_, err := p.PublishBatch(context.Background(), messages(1))
	assert.ErrorIs(t, err, ErrProducerClosed)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.MessagingConfig{Brokers: []string{"b:1"}, Topic: "t", BatchSize: 5, WriteTimeout: time.Second})
	assert.Equal(t, ProducerConfig{Brokers: []string{"b:1"}, Topic: "t", BatchSize: 5, WriteTimeout: time.Second}, cfg)
}

// ─────────────────────────────────────────────────────────────────────────────
// Prediction events
// ─────────────────────────────────────────────────────────────────────────────

func TestPredictionPublisher_PublishAnnotated(t *testing.T) {
	w := &mockKafkaWriter{}
	pub := NewPredictionPublisher(newProducer(w, newTestProducerConfig(), nil))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return at }

	rows := []ddi.AnnotatedRow{
		{
			SummaryRow:  ddi.SummaryRow{Pair: "DB01_DB02", InteractionType: "10", Sentence: "s", Score: 0.9},
			LeftSimilar: []string{"K1(PTGS1)"},
		},
		{SummaryRow: ddi.SummaryRow{Pair: "DB02_DB01", InteractionType: "20", Sentence: "t", Score: 0.6}},
	}
	n, err := pub.PublishAnnotated(context.Background(), "run-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, w.batches, 1)

	msg := w.batches[0][0]
	assert.Equal(t, "DB01_DB02", string(msg.Key))
	assert.Equal(t, []kafka.Header{{Key: "run-id", Value: []byte("run-1")}}, msg.Headers)

	var ev PredictionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, PredictionEvent{
		RunID: "run-1", Pair: "DB01_DB02", Drug1: "DB01", Drug2: "DB02",
		InteractionType: "10", Sentence: "s", Score: 0.9,
		LeftSimilar: []string{"K1(PTGS1)"}, RightSimilar: []string{},
		EmittedAt: at,
	}, ev)

	// Empty similar lists encode as [] rather than null.
	assert.Contains(t, string(w.batches[0][1].Value), `"left_similar":[]`)
}

func TestPredictionPublisher_NoRows(t *testing.T) {
	w := &mockKafkaWriter{}
	n, err := NewPredictionPublisher(newProducer(w, newTestProducerConfig(), nil)).PublishAnnotated(context.Background(), "r", nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.batches)
}

//Personal.AI order the ending
