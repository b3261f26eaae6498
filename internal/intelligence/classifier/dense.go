package classifier

import (
	"context"
	"encoding/json"
	"io"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// Activation names accepted in a dense network artifact.
const (
	ActivationLinear  = "linear"
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationTanh    = "tanh"
	ActivationSoftmax = "softmax"
)

// DenseLayer is one fully connected layer; Weights is input x output.
type DenseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`

	w *mat.Dense
}

// DenseNetwork is a feed-forward network exported layer by layer to JSON.
// It evaluates the multitask classifier without a native runtime.
type DenseNetwork struct {
	Input  int          `json:"input_dim"`
	Layers []DenseLayer `json:"layers"`
}

var _ Backend = (*DenseNetwork)(nil)

// LoadDenseNetwork decodes and validates a dense network artifact.
func LoadDenseNetwork(r io.Reader) (*DenseNetwork, error) {
	var n DenseNetwork
	if err := json.NewDecoder(r).Decode(&n); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "decode dense network")
	}
	if err := n.init(); err != nil {
		return nil, err
	}
	return &n, nil
}

func (n *DenseNetwork) init() error {
	if n.Input <= 0 {
		return errors.Newf(errors.ErrCodeValidation, "dense network input_dim is %d", n.Input)
	}
	if len(n.Layers) == 0 {
		return errors.New(errors.ErrCodeValidation, "dense network has no layers")
	}
	in := n.Input
	for li := range n.Layers {
		l := &n.Layers[li]
		switch l.Activation {
		case "":
			l.Activation = ActivationLinear
		case ActivationLinear, ActivationReLU, ActivationSigmoid, ActivationTanh, ActivationSoftmax:
		default:
			return errors.Newf(errors.ErrCodeValidation, "layer %d: unknown activation %q", li, l.Activation)
		}
		if len(l.Weights) != in {
			return errors.Newf(errors.ErrCodeDimensionMismatch, "layer %d has %d weight rows, want %d", li, len(l.Weights), in)
		}
		out := len(l.Bias)
		if out == 0 {
			return errors.Newf(errors.ErrCodeValidation, "layer %d has no units", li)
		}
		data := make([]float64, 0, in*out)
		for r, row := range l.Weights {
			if len(row) != out {
				return errors.Newf(errors.ErrCodeDimensionMismatch, "layer %d weight row %d has %d columns, want %d", li, r, len(row), out)
			}
			data = append(data, row...)
		}
		l.w = mat.NewDense(in, out, data)
		in = out
	}
	return nil
}

// InputDim implements Backend.
func (n *DenseNetwork) InputDim() int { return n.Input }

// OutputDim implements Backend.
func (n *DenseNetwork) OutputDim() int { return len(n.Layers[len(n.Layers)-1].Bias) }

// Predict implements Backend.
func (n *DenseNetwork) Predict(ctx context.Context, batch [][]float64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if n.Layers[0].w == nil {
		if err := n.init(); err != nil {
			return nil, err
		}
	}
	x := mat.NewDense(len(batch), n.Input, nil)
	for i, row := range batch {
		if len(row) != n.Input {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch, "feature row %d has %d values, network expects %d", i, len(row), n.Input)
		}
		x.SetRow(i, row)
	}

	var cur mat.Matrix = x
	for li := range n.Layers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeModelError, "dense network cancelled")
		}
		l := &n.Layers[li]
		var z mat.Dense
		z.Mul(cur, l.w)
		z.Apply(func(_, j int, v float64) float64 { return v + l.Bias[j] }, &z)
		activate(&z, l.Activation)
		cur = &z
	}

	rows, _ := cur.Dims()
	out := make([][]float64, rows)
	for i := range out {
		out[i] = mat.Row(nil, i, cur)
	}
	return out, nil
}

// Close implements Backend.
func (n *DenseNetwork) Close() error { return nil }

func activate(z *mat.Dense, name string) {
	switch name {
	case ActivationReLU:
		z.Apply(func(_, _ int, v float64) float64 { return math.Max(0, v) }, z)
	case ActivationSigmoid:
		z.Apply(func(_, _ int, v float64) float64 { return 1 / (1 + math.Exp(-v)) }, z)
	case ActivationTanh:
		z.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, z)
	case ActivationSoftmax:
		rows, _ := z.Dims()
		for i := 0; i < rows; i++ {
			row := z.RawRowView(i)
			softmax(row)
		}
	}
}

func softmax(row []float64) {
	hi := math.Inf(-1)
	for _, v := range row {
		hi = math.Max(hi, v)
	}
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - hi)
		sum += row[i]
	}
	for i := range row {
		row[i] /= sum
	}
}

//Personal.AI order the ending
