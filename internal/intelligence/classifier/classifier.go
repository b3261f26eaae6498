package classifier

import (
	"context"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// DefaultThreshold is the probability at or above which a label is emitted.
const DefaultThreshold = 0.5

// DefaultBatchSize bounds the number of rows handed to a backend at once.
const DefaultBatchSize = 512

// Options tunes decoding.
type Options struct {
	Threshold float64
	BatchSize int
}

// DefaultOptions returns the threshold 0.5 and a batch size of 512.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, BatchSize: DefaultBatchSize}
}

// Classifier pairs a Backend with the label binarizer it was trained with.
type Classifier struct {
	backend Backend
	labels  *LabelBinarizer
	opts    Options
	logger  logging.Logger
}

// New checks that the backend and the binarizer agree on the label count.
func New(backend Backend, labels *LabelBinarizer, opts Options, logger logging.Logger) (*Classifier, error) {
	if backend == nil || labels == nil {
		return nil, errors.New(errors.ErrCodeValidation, "classifier needs a backend and a label binarizer")
	}
	if out := backend.OutputDim(); out > 0 && out != labels.Len() {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"classifier produces %d outputs, label binarizer has %d classes", out, labels.Len())
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Classifier{backend: backend, labels: labels, opts: opts, logger: logging.OrNop(logger)}, nil
}

// Labels returns the binarizer.
func (c *Classifier) Labels() *LabelBinarizer { return c.labels }

// Classify runs every row of features through the backend.  Each label whose
// probability reaches the threshold yields one Prediction carrying the raw
// probability; a row with no such label yields nothing.
func (c *Classifier) Classify(ctx context.Context, features *ddi.Matrix) ([]ddi.Prediction, error) {
	rows, cols := features.Dims()
	if in := c.backend.InputDim(); in > 0 && cols != in {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"feature matrix has %d columns, classifier expects %d", cols, in)
	}

	var out []ddi.Prediction
	for start := 0; start < rows; start += c.opts.BatchSize {
		end := start + c.opts.BatchSize
		if end > rows {
			end = rows
		}
		probs, err := c.backend.Predict(ctx, features.Values[start:end])
		if err != nil {
			if errors.GetCode(err) == errors.ErrCodeDimensionMismatch {
				return nil, err
			}
			return nil, errors.Wrap(err, errors.ErrCodeModelError, "classifier backend failed")
		}
		if len(probs) != end-start {
			return nil, errors.Newf(errors.ErrCodeModelError, "backend returned %d rows for a batch of %d", len(probs), end-start)
		}
		for i, p := range probs {
			if len(p) != c.labels.Len() {
				return nil, errors.Newf(errors.ErrCodeModelError,
					"backend returned %d probabilities, want %d", len(p), c.labels.Len())
			}
			pair := features.RowIDs[start+i]
			labels, scores := c.labels.InverseTransform(p, c.opts.Threshold)
			for k, label := range labels {
				out = append(out, ddi.Prediction{Pair: pair, Label: label, Score: scores[k]})
			}
		}
		c.logger.Debug("classified batch", logging.Int("from", start), logging.Int("to", end))
	}
	return out, nil
}

// Close releases the backend.
func (c *Classifier) Close() error { return c.backend.Close() }

//Personal.AI order the ending
