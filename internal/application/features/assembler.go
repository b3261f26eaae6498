// Package features assembles classifier input: one row per ordered drug pair,
// the first drug's reduced vector followed by the second drug's.
package features

import (
	"context"

	"github.com/turtacn/KeyDDI-Intelligence/internal/application/stagelog"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Stage is the report name of this component.
const Stage = "features"

// Assembler builds pair feature matrices.
type Assembler interface {
	Assemble(ctx context.Context, pairs []ddi.CandidatePair, reduced *ddi.Matrix) (*ddi.Matrix, *ddi.StageReport, error)
}

type assemblerImpl struct {
	logger logging.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(logger logging.Logger) Assembler {
	return &assemblerImpl{logger: logging.OrNop(logger).Named(Stage)}
}

// Assemble emits drug1_drug2 and drug2_drug1 for every candidate whose two
// drugs both have a reduced vector.  A key produced twice keeps its first row.
// Candidates with a missing drug are skipped with ErrCodeMissingFeatureVector.
func (a *assemblerImpl) Assemble(ctx context.Context, pairs []ddi.CandidatePair, reduced *ddi.Matrix) (*ddi.Matrix, *ddi.StageReport, error) {
	report := ddi.NewStageReport(Stage)
	report.InputRows = len(pairs)

	_, width := reduced.Dims()
	out := ddi.NewMatrix(pairColumns(reduced.ColIDs))
	warned := make(map[string]bool)

	for _, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, report, errors.Wrap(err, errors.ErrCodeInternal, "feature assembly cancelled")
		}
		v1, ok1 := reduced.Row(p.Drug1)
		v2, ok2 := reduced.Row(p.Drug2)
		if !ok1 || !ok2 {
			for _, d := range []struct {
				id string
				ok bool
			}{{p.Drug1, ok1}, {p.Drug2, ok2}} {
				if !d.ok && !warned[d.id] {
					warned[d.id] = true
					report.Warn(errors.ErrCodeMissingFeatureVector, d.id, "drug has no reduced feature vector")
				}
			}
			a.logger.Debug("skipping candidate pair", logging.String(logging.KeyPair, ddi.PairKey(p.Drug1, p.Drug2)))
			continue
		}
		for _, o := range [2][2]string{{p.Drug1, p.Drug2}, {p.Drug2, p.Drug1}} {
			key := ddi.PairKey(o[0], o[1])
			if out.HasRow(key) {
				continue
			}
			first, second := v1, v2
			if o[0] != p.Drug1 {
				first, second = v2, v1
			}
			row := make([]float64, 0, 2*width)
			row = append(row, first...)
			row = append(row, second...)
			if err := out.AddRow(key, row); err != nil {
				return nil, report, err
			}
		}
	}

	report.OutputRows = len(out.RowIDs)
	stagelog.Finish(a.logger, "pair features assembled", report)
	return out, report, nil
}

// pairColumns prefixes every reduced column with 1_ and then with 2_.  For
// the standard PC_n columns this is 1_PC_1..1_PC_n, 2_PC_1..2_PC_n.
func pairColumns(cols []string) []string {
	out := make([]string, 0, 2*len(cols))
	for _, side := range []string{"1_", "2_"} {
		for _, c := range cols {
			out = append(out, side+c)
		}
	}
	return out
}

//Personal.AI order the ending
