package classifier

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// ─────────────────────────────────────────────────────────────────────────────
// Mock backend
// ─────────────────────────────────────────────────────────────────────────────

type MockBackend struct {
	mock.Mock
	in, out int
}

func (m *MockBackend) Predict(ctx context.Context, batch [][]float64) ([][]float64, error) {
	args := m.Called(ctx, batch)
	if v := args.Get(0); v != nil {
		return v.([][]float64), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) InputDim() int  { return m.in }
func (m *MockBackend) OutputDim() int { return m.out }
func (m *MockBackend) Close() error   { return nil }

func features(t *testing.T, rows map[string][]float64, order ...string) *ddi.Matrix {
	t.Helper()
	m := ddi.NewMatrix([]string{"f1", "f2"})
	for _, id := range order {
		require.NoError(t, m.AddRow(id, rows[id]))
	}
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Binarizer
// ─────────────────────────────────────────────────────────────────────────────

func TestLoadLabelBinarizer(t *testing.T) {
	lb, err := LoadLabelBinarizer(strings.NewReader(`{"classes":[1, 2, "73"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "73"}, lb.Classes())
	assert.Equal(t, 3, lb.Len())
	pos, ok := lb.Position("73")
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, err = LoadLabelBinarizer(strings.NewReader(`{"classes":[]}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = LoadLabelBinarizer(strings.NewReader(`{"classes":[1,1]}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = LoadLabelBinarizer(strings.NewReader(`{"classes":[true]}`))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestInverseTransform(t *testing.T) {
	lb, err := NewLabelBinarizer([]string{"1", "2", "3"})
	require.NoError(t, err)

	labels, scores := lb.InverseTransform([]float64{0.5, 0.4999, 0.93}, 0.5)
	assert.Equal(t, []string{"1", "3"}, labels)
	assert.Equal(t, []float64{0.5, 0.93}, scores)

	labels, scores = lb.InverseTransform([]float64{0.1, 0.2, 0.3}, 0.5)
	assert.Empty(t, labels)
	assert.Empty(t, scores)
}

// ─────────────────────────────────────────────────────────────────────────────
// Dense network
// ─────────────────────────────────────────────────────────────────────────────

// identityNet passes two inputs through a linear layer and a sigmoid layer
// whose pre-activations equal the inputs.
const identityNet = `{
  "input_dim": 2,
  "layers": [
    {"weights": [[1, 0], [0, 1]], "bias": [0, 0], "activation": "relu"},
    {"weights": [[1, 0], [0, 1]], "bias": [0, 0], "activation": "sigmoid"}
  ]
}`

func TestDenseNetwork(t *testing.T) {
	net, err := LoadDenseNetwork(strings.NewReader(identityNet))
	require.NoError(t, err)
	assert.Equal(t, 2, net.InputDim())
	assert.Equal(t, 2, net.OutputDim())

	out, err := net.Predict(context.Background(), [][]float64{{0, 2}, {-3, 0}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.InDelta(t, 0.5, out[0][0], 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-2)), out[0][1], 1e-12)
	// relu clamps -3 to 0 before the sigmoid.
	assert.InDelta(t, 0.5, out[1][0], 1e-12)

	_, err = net.Predict(context.Background(), [][]float64{{1}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))
}

func TestDenseNetwork_SoftmaxAndTanh(t *testing.T) {
	net, err := LoadDenseNetwork(strings.NewReader(`{"input_dim":2,"layers":[
		{"weights":[[1,0],[0,1]],"bias":[0,0],"activation":"tanh"},
		{"weights":[[1,0],[0,1]],"bias":[0,0],"activation":"softmax"}]}`))
	require.NoError(t, err)

	out, err := net.Predict(context.Background(), [][]float64{{0, 0}, {1000, -1000}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, out[0], 1e-12)
	assert.InDelta(t, 1, out[1][0]+out[1][1], 1e-12)
}

func TestLoadDenseNetwork_Invalid(t *testing.T) {
	tests := map[string]struct {
		in   string
		code errors.ErrorCode
	}{
		"bad json":        {`[`, errors.ErrCodeSerialization},
		"no input":        {`{"layers":[]}`, errors.ErrCodeValidation},
		"no layers":       {`{"input_dim":2}`, errors.ErrCodeValidation},
		"bad activation":  {`{"input_dim":1,"layers":[{"weights":[[1]],"bias":[0],"activation":"gelu"}]}`, errors.ErrCodeValidation},
		"wrong rows":      {`{"input_dim":2,"layers":[{"weights":[[1]],"bias":[0]}]}`, errors.ErrCodeDimensionMismatch},
		"ragged":          {`{"input_dim":1,"layers":[{"weights":[[1,2]],"bias":[0]}]}`, errors.ErrCodeDimensionMismatch},
		"chain mismatch": {`{"input_dim":1,"layers":[{"weights":[[1,2]],"bias":[0,0]},{"weights":[[1]],"bias":[0]}]}`, errors.ErrCodeDimensionMismatch},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadDenseNetwork(strings.NewReader(tt.in))
			assert.True(t, errors.IsCode(err, tt.code), "%v", err)
		})
	}
}

func TestOpenBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(identityNet), 0o644))

	b, err := OpenBackend(BackendConfig{Kind: BackendDense, ModelPath: path}, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.OutputDim())
	require.NoError(t, b.Close())

	_, err = OpenBackend(BackendConfig{Kind: BackendDense, ModelPath: path}, 86)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))

	_, err = OpenBackend(BackendConfig{Kind: BackendDense, ModelPath: filepath.Join(t.TempDir(), "nope.json")}, 2)
	assert.True(t, errors.IsCode(err, errors.ErrCodeArtifactNotFound))

	kind, err := ParseBackendKind("ONNX")
	require.NoError(t, err)
	assert.Equal(t, BackendONNX, kind)
	_, err = ParseBackendKind("tensorflow")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

// ─────────────────────────────────────────────────────────────────────────────
// Classifier
// ─────────────────────────────────────────────────────────────────────────────

func TestClassify_ThresholdAndRawScores(t *testing.T) {
	lb, err := NewLabelBinarizer([]string{"49", "73"})
	require.NoError(t, err)
	backend := &MockBackend{in: 2, out: 2}
	fm := features(t, map[string][]float64{
		"A_B": {1, 2},
		"B_A": {2, 1},
		"C_D": {0, 0},
	}, "A_B", "B_A", "C_D")

	backend.On("Predict", mock.Anything, fm.Values).Return([][]float64{
		{0.91, 0.62},
		{0.5, 0.49},
		{0.1, 0.2},
	}, nil).Once()

	c, err := New(backend, lb, DefaultOptions(), logging.NewNopLogger())
	require.NoError(t, err)
	preds, err := c.Classify(context.Background(), fm)
	require.NoError(t, err)

	assert.Equal(t, []ddi.Prediction{
		{Pair: "A_B", Label: "49", Score: 0.91},
		{Pair: "A_B", Label: "73", Score: 0.62},
		{Pair: "B_A", Label: "49", Score: 0.5},
	}, preds)
	backend.AssertExpectations(t)
}

func TestClassify_Batches(t *testing.T) {
	lb, err := NewLabelBinarizer([]string{"1"})
	require.NoError(t, err)
	backend := &MockBackend{in: 2, out: 1}
	fm := features(t, map[string][]float64{
		"A_B": {1, 1}, "B_C": {2, 2}, "C_D": {3, 3},
	}, "A_B", "B_C", "C_D")

	backend.On("Predict", mock.Anything, fm.Values[0:2]).Return([][]float64{{0.9}, {0.1}}, nil).Once()
	backend.On("Predict", mock.Anything, fm.Values[2:3]).Return([][]float64{{0.7}}, nil).Once()

	c, err := New(backend, lb, Options{Threshold: 0.5, BatchSize: 2}, nil)
	require.NoError(t, err)
	preds, err := c.Classify(context.Background(), fm)
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "A_B", preds[0].Pair)
	assert.Equal(t, "C_D", preds[1].Pair)
	backend.AssertExpectations(t)
}

func TestClassify_Errors(t *testing.T) {
	lb, err := NewLabelBinarizer([]string{"1", "2"})
	require.NoError(t, err)

	_, err = New(&MockBackend{in: 2, out: 3}, lb, DefaultOptions(), nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))

	wide := &MockBackend{in: 4, out: 2}
	c, err := New(wide, lb, DefaultOptions(), nil)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), features(t, map[string][]float64{"A_B": {1, 2}}, "A_B"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeDimensionMismatch))

	failing := &MockBackend{in: 2, out: 2}
	failing.On("Predict", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	c, err = New(failing, lb, DefaultOptions(), nil)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), features(t, map[string][]float64{"A_B": {1, 2}}, "A_B"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelError))
	assert.False(t, errors.IsRecoverableError(err))

	short := &MockBackend{in: 2, out: 2}
	short.On("Predict", mock.Anything, mock.Anything).Return([][]float64{{0.9}}, nil)
	c, err = New(short, lb, DefaultOptions(), nil)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), features(t, map[string][]float64{"A_B": {1, 2}}, "A_B"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeModelError))
}

func TestClassify_DenseEndToEnd(t *testing.T) {
	net, err := LoadDenseNetwork(strings.NewReader(identityNet))
	require.NoError(t, err)
	lb, err := NewLabelBinarizer([]string{"10", "20"})
	require.NoError(t, err)
	c, err := New(net, lb, DefaultOptions(), nil)
	require.NoError(t, err)

	// sigmoid(0) = 0.5 sits exactly on the threshold and is emitted.
	preds, err := c.Classify(context.Background(), features(t, map[string][]float64{"A_B": {0, -5}}, "A_B"))
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Equal(t, "10", preds[0].Label)
	assert.Equal(t, 0.5, preds[0].Score)
	assert.Equal(t, "20", preds[1].Label)
	assert.Equal(t, 0.5, preds[1].Score)
}

//Personal.AI order the ending
