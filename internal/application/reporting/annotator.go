package reporting

import (
	"context"
	"math"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// DefaultSimilarityThreshold is the inclusive lower bound for a known drug to
// count as similar to a predicted drug.
const DefaultSimilarityThreshold = 0.75

// Annotator attaches similar approved drugs to summarized predictions.
type Annotator interface {
	Annotate(ctx context.Context, rows []ddi.SummaryRow, similarity *ddi.Matrix) ([]ddi.AnnotatedRow, *ddi.StageReport, error)
}

// AnnotatorTables are the reference tables the annotator consults.
type AnnotatorTables struct {
	Known   *domainDDI.KnownDDIIndex
	Targets domainDDI.DrugTargets
}

type annotatorImpl struct {
	tables    AnnotatorTables
	threshold float64
	logger    logging.Logger
}

// NewAnnotator creates an Annotator.  A non-positive threshold selects
// DefaultSimilarityThreshold.
func NewAnnotator(tables AnnotatorTables, threshold float64, logger logging.Logger) Annotator {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if tables.Known == nil {
		tables.Known = domainDDI.NewKnownDDIIndex()
	}
	return &annotatorImpl{tables: tables, threshold: threshold, logger: logging.OrNop(logger).Named(AnnotateStage)}
}

// annotation is the per-run scratch state; warnings are recorded once per
// subject.
type annotation struct {
	*annotatorImpl
	sim    *ddi.Matrix
	report *ddi.StageReport
	warned map[string]bool
}

func (a *annotation) warnOnce(key string, code errors.ErrorCode, subject, msg string) {
	if a.warned[key] {
		return
	}
	a.warned[key] = true
	a.report.Warn(code, subject, msg)
}

// Annotate looks up, for each row, the known drugs recorded on each side of
// the row's interaction type, keeps those whose similarity to the row's drug
// on that side is at least the threshold and that have pharmacological
// targets, and renders them as id(target|...).  Rows are never dropped.
func (a *annotatorImpl) Annotate(ctx context.Context, rows []ddi.SummaryRow, similarity *ddi.Matrix) ([]ddi.AnnotatedRow, *ddi.StageReport, error) {
	run := &annotation{
		annotatorImpl: a,
		sim:           similarity,
		report:        ddi.NewStageReport(AnnotateStage),
		warned:        make(map[string]bool),
	}
	run.report.InputRows = len(rows)
	if similarity == nil {
		run.sim = ddi.NewMatrix(nil)
	}

	out := make([]ddi.AnnotatedRow, 0, len(rows))
	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, run.report, errors.Wrap(err, errors.ErrCodeInternal, "annotate cancelled")
		}
		row := ddi.AnnotatedRow{SummaryRow: r}
		d1, d2, ok := ddi.SplitPair(r.Pair)
		if !ok {
			run.warnOnce("pair:"+r.Pair, errors.ErrCodeMalformedRecord, r.Pair, "drug pair key has no separator")
			out = append(out, row)
			continue
		}
		row.LeftSimilar = run.side(d1, r.InteractionType, domainDDI.SideLeft)
		row.RightSimilar = run.side(d2, r.InteractionType, domainDDI.SideRight)
		out = append(out, row)
	}

	run.report.OutputRows = len(out)
	stagelog.Finish(a.logger, "predictions annotated", run.report, logging.Float64("threshold", a.threshold))
	return out, run.report, nil
}

func (a *annotation) side(drug, interactionType string, side domainDDI.Side) []string {
	known, err := a.tables.Known.Drugs(interactionType, side)
	if err != nil {
		key := "known:" + side.String() + ":" + interactionType
		if !a.warned[key] {
			a.warned[key] = true
			a.report.WarnErr(interactionType, err)
		}
		return nil
	}
	if !a.sim.HasRow(drug) {
		a.warnOnce("row:"+drug, errors.ErrCodeMissingSimilarity, drug, "drug has no row in the similarity matrix")
		return nil
	}

	var out []string
	for _, k := range known {
		v, ok := a.sim.Lookup(drug, k)
		if !ok {
			a.warnOnce("col:"+k, errors.ErrCodeMissingSimilarity, k, "known drug has no column in the similarity matrix")
			continue
		}
		if math.IsNaN(v) || v < a.threshold {
			continue
		}
		if ann, ok := a.tables.Targets.Annotation(k); ok {
			out = append(out, ann)
		}
	}
	return out
}

//Personal.AI order the ending
