package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// PredictionEvent is the JSON body of one published prediction.
type PredictionEvent struct {
	RunID           string    `json:"run_id"`
	Pair            string    `json:"pair"`
	Drug1           string    `json:"drug1"`
	Drug2           string    `json:"drug2"`
	InteractionType string    `json:"interaction_type"`
	Sentence        string    `json:"sentence"`
	Score           float64   `json:"score"`
	LeftSimilar     []string  `json:"left_similar"`
	RightSimilar    []string  `json:"right_similar"`
	EmittedAt       time.Time `json:"emitted_at"`
}

// NewPredictionEvent builds the event for one annotated row.
func NewPredictionEvent(runID string, row ddi.AnnotatedRow, at time.Time) PredictionEvent {
	d1, d2, _ := ddi.SplitPair(row.Pair)
	ev := PredictionEvent{
		RunID:           runID,
		Pair:            row.Pair,
		Drug1:           d1,
		Drug2:           d2,
		InteractionType: row.InteractionType,
		Sentence:        row.Sentence,
		Score:           row.Score,
		LeftSimilar:     row.LeftSimilar,
		RightSimilar:    row.RightSimilar,
		EmittedAt:       at.UTC(),
	}
	if ev.LeftSimilar == nil {
		ev.LeftSimilar = []string{}
	}
	if ev.RightSimilar == nil {
		ev.RightSimilar = []string{}
	}
	return ev
}

// PredictionPublisher turns annotated rows into keyed events.  Messages are
// keyed by drug pair so every event of a pair lands on one partition.
type PredictionPublisher struct {
	producer *Producer
	now      func() time.Time
}

func NewPredictionPublisher(p *Producer) *PredictionPublisher {
	return &PredictionPublisher{producer: p, now: time.Now}
}

// PublishAnnotated publishes one event per row and returns the count sent.
func (pp *PredictionPublisher) PublishAnnotated(ctx context.Context, runID string, rows []ddi.AnnotatedRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	at := pp.now()
	msgs := make([]kafka.Message, 0, len(rows))
	for _, r := range rows {
		body, err := json.Marshal(NewPredictionEvent(runID, r, at))
		if err != nil {
			return 0, errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode prediction event").WithDetail(r.Pair)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(r.Pair),
			Value:   body,
			Time:    at,
			Headers: []kafka.Header{{Key: "run-id", Value: []byte(runID)}},
		})
	}
	return pp.producer.PublishBatch(ctx, msgs)
}

func (pp *PredictionPublisher) Close() error { return pp.producer.Close() }

//Personal.AI order the ending
