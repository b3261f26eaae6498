// Package classifier runs the pretrained multitask interaction classifier and
// decodes its per-label probabilities into scored interaction labels.
package classifier

import (
	"context"
	"os"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// Backend evaluates the network on a batch of feature rows and returns one
// probability vector per row.
type Backend interface {
	Predict(ctx context.Context, batch [][]float64) ([][]float64, error)
	InputDim() int
	OutputDim() int
	Close() error
}

// BackendKind selects a Backend implementation.
type BackendKind string

const (
	BackendDense BackendKind = "dense"
	BackendONNX  BackendKind = "onnx"
)

// ParseBackendKind accepts "dense" and "onnx"; empty selects dense.
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", BackendDense:
		return BackendDense, nil
	case BackendONNX:
		return BackendONNX, nil
	default:
		return "", errors.Newf(errors.CodeInvalidParam, "unknown classifier backend %q", s)
	}
}

// BackendConfig describes where a backend loads its model from.
type BackendConfig struct {
	Kind      BackendKind
	ModelPath string
	ONNX      ONNXConfig
}

// OpenBackend loads the configured backend.  outputs is the number of labels
// the backend must produce.
func OpenBackend(cfg BackendConfig, outputs int) (Backend, error) {
	switch cfg.Kind {
	case BackendONNX:
		onnx := cfg.ONNX
		onnx.ModelPath = cfg.ModelPath
		onnx.Outputs = outputs
		return NewONNXBackend(onnx)
	case BackendDense, "":
		f, err := os.Open(cfg.ModelPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Wrap(err, errors.ErrCodeArtifactNotFound, "classifier model not found").WithDetail(cfg.ModelPath)
			}
			return nil, errors.Wrap(err, errors.ErrCodeIO, "open classifier model").WithDetail(cfg.ModelPath)
		}
		defer f.Close()
		net, err := LoadDenseNetwork(f)
		if err != nil {
			return nil, err
		}
		if outputs > 0 && net.OutputDim() != outputs {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch,
				"classifier produces %d outputs, label binarizer has %d classes", net.OutputDim(), outputs)
		}
		return net, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidParam, "unknown classifier backend %q", cfg.Kind)
	}
}

//Personal.AI order the ending
