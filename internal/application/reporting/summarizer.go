// Package reporting turns raw predictions into the human-readable summary
// and the annotated final report.
package reporting

import (
	"context"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Stage names.
const (
	SummarizeStage = "summarize"
	AnnotateStage  = "annotate"
)

// Summarizer renders predictions as template sentences.
type Summarizer interface {
	Summarize(ctx context.Context, preds []ddi.Prediction) ([]ddi.SummaryRow, *ddi.StageReport, error)
}

type summarizerImpl struct {
	templates *domainDDI.TemplateTable
	policy    domainDDI.SubstitutionPolicy
	logger    logging.Logger
}

// NewSummarizer creates a Summarizer over templates.
func NewSummarizer(templates *domainDDI.TemplateTable, policy domainDDI.SubstitutionPolicy, logger logging.Logger) Summarizer {
	if policy == "" {
		policy = domainDDI.SubstituteLexical
	}
	return &summarizerImpl{templates: templates, policy: policy, logger: logging.OrNop(logger).Named(SummarizeStage)}
}

// Summarize emits one row per prediction in input order.  A label without a
// template aborts with ErrCodeUnknownInteractionLabel since it means the model
// and the template table do not belong together.
func (s *summarizerImpl) Summarize(ctx context.Context, preds []ddi.Prediction) ([]ddi.SummaryRow, *ddi.StageReport, error) {
	report := ddi.NewStageReport(SummarizeStage)
	report.InputRows = len(preds)

	out := make([]ddi.SummaryRow, 0, len(preds))
	for _, p := range preds {
		if err := ctx.Err(); err != nil {
			return nil, report, errors.Wrap(err, errors.ErrCodeInternal, "summarize cancelled")
		}
		tpl, err := s.templates.MustLookup(p.Label)
		if err != nil {
			s.logger.Error("prediction label has no template",
				logging.String(logging.KeyPair, p.Pair), logging.String("label", p.Label))
			return nil, report, err
		}
		d1, d2, ok := ddi.SplitPair(p.Pair)
		if !ok {
			report.Warn(errors.ErrCodeMalformedRecord, p.Pair, "drug pair key has no separator")
			continue
		}
		out = append(out, ddi.SummaryRow{
			Pair:            p.Pair,
			InteractionType: tpl.InteractionType,
			Sentence:        tpl.Render(d1, d2, s.policy),
			Score:           p.Score,
		})
	}

	report.OutputRows = len(out)
	stagelog.Finish(s.logger, "predictions summarized", report, logging.String("policy", string(s.policy)))
	return out, report, nil
}

//Personal.AI order the ending
