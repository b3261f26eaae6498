// Package prediction runs the interaction classifier over a pair feature
// matrix.
package prediction

import (
	"context"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Stage is the report name of this component.
const Stage = "predict"

// Model is the slice of classifier.Classifier the stage needs.
type Model interface {
	Classify(ctx context.Context, features *ddi.Matrix) ([]ddi.Prediction, error)
}

// Service predicts interaction labels.
type Service interface {
	Predict(ctx context.Context, features *ddi.Matrix) ([]ddi.Prediction, *ddi.StageReport, error)
}

type serviceImpl struct {
	model  Model
	logger logging.Logger
}

// NewService creates a prediction service around model.
func NewService(model Model, logger logging.Logger) Service {
	return &serviceImpl{model: model, logger: logging.OrNop(logger).Named(Stage)}
}

// Predict classifies every row.  Classifier failures are fatal.
func (s *serviceImpl) Predict(ctx context.Context, features *ddi.Matrix) ([]ddi.Prediction, *ddi.StageReport, error) {
	report := ddi.NewStageReport(Stage)
	report.InputRows, _ = features.Dims()

	preds, err := s.model.Classify(ctx, features)
	if err != nil {
		s.logger.Error("classification failed", logging.Err(err))
		return nil, report, err
	}

	pairs := make(map[string]struct{}, len(preds))
	for _, p := range preds {
		pairs[p.Pair] = struct{}{}
	}
	report.OutputRows = len(preds)
	stagelog.Finish(s.logger, "interactions predicted", report,
		logging.Int("pairs_with_labels", len(pairs)),
		logging.Int("pairs_without_labels", report.InputRows-len(pairs)))
	return preds, report, nil
}

//Personal.AI order the ending
