package molecule

import (
	"math"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// SimilarityMetric names a way of scoring a query fingerprint against a
// reference fingerprint.
type SimilarityMetric string

const (
	// MetricRatio is sum(query counts) / sum(reference counts).  It is
	// unbounded and asymmetric; the trained reducer expects it.
	MetricRatio SimilarityMetric = "ratio"
	// MetricTanimoto is sum(min) / (sum(a) + sum(b) - sum(min)) over counts.
	MetricTanimoto SimilarityMetric = "tanimoto"
	// MetricDice is 2 * sum(min) / (sum(a) + sum(b)) over counts.
	MetricDice SimilarityMetric = "dice"
)

// IsValid checks if the similarity metric is known.
func (m SimilarityMetric) IsValid() bool {
	switch m {
	case MetricRatio, MetricTanimoto, MetricDice:
		return true
	default:
		return false
	}
}

func (m SimilarityMetric) String() string { return string(m) }

// ParseSimilarityMetric parses s; an empty string selects MetricRatio.
func ParseSimilarityMetric(s string) (SimilarityMetric, error) {
	if s == "" {
		return MetricRatio, nil
	}
	m := SimilarityMetric(s)
	if !m.IsValid() {
		return "", errors.New(errors.ErrCodeSimilarityMetricUnsupported, "unsupported similarity metric: "+s)
	}
	return m, nil
}

// Scorer compares a query fingerprint against a reference fingerprint.
type Scorer interface {
	Score(reference, query *Fingerprint) float64
	Metric() SimilarityMetric
}

// NewScorer returns the Scorer for m.
func NewScorer(m SimilarityMetric) (Scorer, error) {
	switch m {
	case MetricRatio, "":
		return RatioScorer{}, nil
	case MetricTanimoto:
		return TanimotoScorer{}, nil
	case MetricDice:
		return DiceScorer{}, nil
	}
	return nil, errors.New(errors.ErrCodeSimilarityMetricUnsupported, "unsupported similarity metric: "+string(m))
}

// RatioScorer implements MetricRatio.
type RatioScorer struct{}

func (RatioScorer) Metric() SimilarityMetric { return MetricRatio }

// Score returns NaN when the reference fingerprint is empty.
func (RatioScorer) Score(reference, query *Fingerprint) float64 {
	den := reference.Sum()
	if den == 0 {
		return math.NaN()
	}
	return float64(query.Sum()) / float64(den)
}

// TanimotoScorer implements MetricTanimoto.
type TanimotoScorer struct{}

func (TanimotoScorer) Metric() SimilarityMetric { return MetricTanimoto }

func (TanimotoScorer) Score(reference, query *Fingerprint) float64 {
	inter, a, b := countOverlap(reference, query)
	union := a + b - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// DiceScorer implements MetricDice.
type DiceScorer struct{}

func (DiceScorer) Metric() SimilarityMetric { return MetricDice }

func (DiceScorer) Score(reference, query *Fingerprint) float64 {
	inter, a, b := countOverlap(reference, query)
	if a+b == 0 {
		return 0
	}
	return 2 * float64(inter) / float64(a+b)
}

// countOverlap returns sum(min(a_i, b_i)), sum(a) and sum(b).
func countOverlap(a, b *Fingerprint) (inter, sumA, sumB int) {
	for k, ca := range a.Counts {
		sumA += ca
		if cb, ok := b.Counts[k]; ok {
			if cb < ca {
				inter += cb
			} else {
				inter += ca
			}
		}
	}
	sumB = b.Sum()
	return inter, sumA, sumB
}

//Personal.AI order the ending
