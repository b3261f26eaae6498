// Package reducer projects similarity profiles onto a pre-fitted principal
// component basis.  No fitting happens here; the projection is loaded from a
// JSON artifact exported from the training environment.
package reducer

import (
	"encoding/json"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// PCA is a fitted linear projection X' = (X - Mean) · Componentsᵀ, optionally
// whitened by the square root of the explained variance.
type PCA struct {
	NFeaturesIn       int         `json:"n_features_in"`
	NComponents       int         `json:"n_components"`
	Mean              []float64   `json:"mean"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance,omitempty"`
	Whiten            bool        `json:"whiten"`
	// FeatureNames, when present, are the column labels the projection was
	// fitted on.  Input columns are then matched by name instead of position.
	FeatureNames []string `json:"feature_names_in,omitempty"`

	components *mat.Dense
	mean       *mat.VecDense
	scale      []float64
}

// LoadPCA decodes and validates a PCA artifact.
func LoadPCA(r io.Reader) (*PCA, error) {
	var p PCA
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode PCA artifact")
	}
	if err := p.init(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *PCA) init() error {
	if p.NComponents <= 0 || p.NFeaturesIn <= 0 {
		return errors.Newf(errors.ErrCodeValidation, "PCA artifact has %d components over %d features", p.NComponents, p.NFeaturesIn)
	}
	if len(p.Mean) != p.NFeaturesIn {
		return errors.Newf(errors.ErrCodeDimensionMismatch, "PCA mean has %d entries, want %d", len(p.Mean), p.NFeaturesIn)
	}
	if len(p.Components) != p.NComponents {
		return errors.Newf(errors.ErrCodeDimensionMismatch, "PCA has %d component rows, want %d", len(p.Components), p.NComponents)
	}
	if p.FeatureNames != nil && len(p.FeatureNames) != p.NFeaturesIn {
		return errors.Newf(errors.ErrCodeDimensionMismatch, "PCA lists %d feature names, want %d", len(p.FeatureNames), p.NFeaturesIn)
	}

	data := make([]float64, 0, p.NComponents*p.NFeaturesIn)
	for i, row := range p.Components {
		if len(row) != p.NFeaturesIn {
			return errors.Newf(errors.ErrCodeDimensionMismatch, "PCA component %d has %d loadings, want %d", i+1, len(row), p.NFeaturesIn)
		}
		data = append(data, row...)
	}
	p.components = mat.NewDense(p.NComponents, p.NFeaturesIn, data)
	p.mean = mat.NewVecDense(p.NFeaturesIn, append([]float64(nil), p.Mean...))

	p.scale = nil
	if p.Whiten {
		if len(p.ExplainedVariance) != p.NComponents {
			return errors.Newf(errors.ErrCodeDimensionMismatch, "whitened PCA has %d variances, want %d", len(p.ExplainedVariance), p.NComponents)
		}
		p.scale = make([]float64, p.NComponents)
		for i, v := range p.ExplainedVariance {
			if v <= 0 {
				return errors.Newf(errors.ErrCodeValidation, "PCA component %d has non-positive variance %g", i+1, v)
			}
			p.scale[i] = 1 / math.Sqrt(v)
		}
	}
	return nil
}

// Transform projects every row of m.  The result has the same row labels and
// the columns PC_1..PC_n.  A matrix whose width differs from the fitted input
// dimension fails with ErrCodeDimensionMismatch.
func (p *PCA) Transform(m *ddi.Matrix) (*ddi.Matrix, error) {
	if p.components == nil {
		if err := p.init(); err != nil {
			return nil, err
		}
	}
	order, err := p.columnOrder(m.ColIDs)
	if err != nil {
		return nil, err
	}

	rows, _ := m.Dims()
	out := ddi.NewMatrix(ddi.ComponentNames(p.NComponents))
	if rows == 0 {
		return out, nil
	}

	x := mat.NewDense(rows, p.NFeaturesIn, nil)
	for i, id := range m.RowIDs {
		src := m.Values[i]
		for j, k := range order {
			v := src[k]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrCodeMalformedRecord, "similarity row %s column %s is not finite", id, m.ColIDs[k])
			}
			x.Set(i, j, v-p.mean.AtVec(j))
		}
	}

	var proj mat.Dense
	proj.Mul(x, p.components.T())

	for i, id := range m.RowIDs {
		row := mat.Row(nil, i, &proj)
		for j := range p.scale {
			row[j] *= p.scale[j]
		}
		if err := out.AddRow(id, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// columnOrder maps fitted feature positions to input column positions.
func (p *PCA) columnOrder(cols []string) ([]int, error) {
	if len(cols) != p.NFeaturesIn {
		return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
			"similarity matrix has %d columns, projection expects %d", len(cols), p.NFeaturesIn)
	}
	order := make([]int, p.NFeaturesIn)
	if p.FeatureNames == nil {
		for i := range order {
			order[i] = i
		}
		return order, nil
	}
	pos := make(map[string]int, len(cols))
	for i, c := range cols {
		pos[c] = i
	}
	for i, name := range p.FeatureNames {
		k, ok := pos[name]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch, "similarity matrix lacks fitted column %s", name)
		}
		order[i] = k
	}
	return order, nil
}

//Personal.AI order the ending
