package reducer

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

const twoByThree = `{
  "n_features_in": 3,
  "n_components": 2,
  "mean": [1, 1, 1],
  "components": [[1, 0, 0], [0, 0.5, 0.5]],
  "explained_variance": [4, 1],
  "whiten": false
}`

func similarity(t *testing.T) *ddi.Matrix {
	t.Helper()
	m := ddi.NewMatrix([]string{"R1", "R2", "R3"})
	require.NoError(t, m.AddRow("Q1", []float64{2, 3, 5}))
	require.NoError(t, m.AddRow("Q2", []float64{1, 1, 1}))
	return m
}

func TestTransform(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(twoByThree))
	require.NoError(t, err)

	out, err := p.Transform(similarity(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"PC_1", "PC_2"}, out.ColIDs)
	assert.Equal(t, []string{"Q1", "Q2"}, out.RowIDs)

	row, _ := out.Row("Q1")
	assert.InDeltaSlice(t, []float64{1, 3}, row, 1e-12)
	row, _ = out.Row("Q2")
	assert.InDeltaSlice(t, []float64{0, 0}, row, 1e-12)
}

func TestTransform_Whiten(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(strings.Replace(twoByThree, `"whiten": false`, `"whiten": true`, 1)))
	require.NoError(t, err)

	out, err := p.Transform(similarity(t))
	require.NoError(t, err)
	row, _ := out.Row("Q1")
	assert.InDeltaSlice(t, []float64{0.5, 3}, row, 1e-12)
}

func TestTransform_FeatureNames(t *testing.T) {
	artifact := strings.Replace(twoByThree, `"whiten": false`, `"whiten": false, "feature_names_in": ["R3", "R2", "R1"]`, 1)
	p, err := LoadPCA(strings.NewReader(artifact))
	require.NoError(t, err)

	out, err := p.Transform(similarity(t))
	require.NoError(t, err)
	row, _ := out.Row("Q1")
	// Fitted order is R3,R2,R1 so the first loading now reads R3.
	assert.InDeltaSlice(t, []float64{4, 1.5}, row, 1e-12)

	other := ddi.NewMatrix([]string{"R1", "R2", "R9"})
	require.NoError(t, other.AddRow("Q1", []float64{1, 1, 1}))
	_, err = p.Transform(other)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
}

func TestTransform_DimensionMismatch(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(twoByThree))
	require.NoError(t, err)

	m := ddi.NewMatrix([]string{"R1", "R2"})
	require.NoError(t, m.AddRow("Q1", []float64{1, 2}))
	_, err = p.Transform(m)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
	assert.False(t, errors.IsRecoverableError(err))
}

func TestTransform_NonFinite(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(twoByThree))
	require.NoError(t, err)

	m := ddi.NewMatrix([]string{"R1", "R2", "R3"})
	require.NoError(t, m.AddRow("Q1", []float64{1, math.NaN(), 2}))
	_, err = p.Transform(m)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedRecord))
}

func TestTransform_EmptyMatrix(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(twoByThree))
	require.NoError(t, err)

	out, err := p.Transform(ddi.NewMatrix([]string{"R1", "R2", "R3"}))
	require.NoError(t, err)
	rows, cols := out.Dims()
	assert.Equal(t, 0, rows)
	assert.Equal(t, 2, cols)
}

func TestTransform_Deterministic(t *testing.T) {
	p, err := LoadPCA(strings.NewReader(twoByThree))
	require.NoError(t, err)

	render := func() string {
		out, err := p.Transform(similarity(t))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, tabular.WriteMatrixCSV(&buf, out))
		return buf.String()
	}
	first := render()
	assert.Equal(t, first, render())
	assert.Equal(t, ",PC_1,PC_2\nQ1,1,3\nQ2,0,0\n", first)
}

func TestLoadPCA_Invalid(t *testing.T) {
	tests := map[string]struct {
		in   string
		code errors.ErrorCode
	}{
		"not json":        {`{`, errors.ErrCodeSerialization},
		"no components":   {`{"n_features_in":3,"n_components":0}`, errors.ErrCodeValidation},
		"short mean":      {`{"n_features_in":3,"n_components":1,"mean":[0],"components":[[1,0,0]]}`, errors.ErrCodeDimensionMismatch},
		"ragged loadings": {`{"n_features_in":2,"n_components":1,"mean":[0,0],"components":[[1]]}`, errors.ErrCodeDimensionMismatch},
		"whiten without variance": {
			`{"n_features_in":1,"n_components":1,"mean":[0],"components":[[1]],"whiten":true}`,
			errors.ErrCodeDimensionMismatch,
		},
		"zero variance": {
			`{"n_features_in":1,"n_components":1,"mean":[0],"components":[[1]],"whiten":true,"explained_variance":[0]}`,
			errors.ErrCodeValidation,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPCA(strings.NewReader(tt.in))
			assert.True(t, errors.IsCode(err, tt.code), "%v", err)
		})
	}
}

//Personal.AI order the ending
