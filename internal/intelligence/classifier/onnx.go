package classifier

import (
	"context"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// ONNXConfig locates the runtime library and the exported network.
type ONNXConfig struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	Inputs      int
	Outputs     int
}

// Default tensor names of a Keras model exported with tf2onnx.
const (
	DefaultONNXInput  = "input_1"
	DefaultONNXOutput = "dense_output"
)

// The runtime environment is process wide; sessions share it.
var (
	ortMu   sync.Mutex
	ortRefs int
)

func acquireEnvironment(lib string) error {
	ortMu.Lock()
	defer ortMu.Unlock()
	if ortRefs == 0 {
		if lib != "" {
			ort.SetSharedLibraryPath(lib)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return errors.Wrap(err, errors.ErrCodeModelError, "initialize onnx runtime").WithDetail(lib)
		}
	}
	ortRefs++
	return nil
}

func releaseEnvironment() {
	ortMu.Lock()
	defer ortMu.Unlock()
	ortRefs--
	if ortRefs == 0 {
		_ = ort.DestroyEnvironment()
	}
}

// ONNXBackend evaluates the classifier through onnxruntime.
type ONNXBackend struct {
	cfg     ONNXConfig
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

var _ Backend = (*ONNXBackend)(nil)

// NewONNXBackend opens a session on cfg.ModelPath.  Inputs may be zero, in
// which case the feature width is taken from the first batch.
func NewONNXBackend(cfg ONNXConfig) (*ONNXBackend, error) {
	if cfg.InputName == "" {
		cfg.InputName = DefaultONNXInput
	}
	if cfg.OutputName == "" {
		cfg.OutputName = DefaultONNXOutput
	}
	if cfg.Outputs <= 0 {
		return nil, errors.New(errors.ErrCodeValidation, "onnx backend needs the number of output labels")
	}
	if err := acquireEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}
	s, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{cfg.InputName}, []string{cfg.OutputName}, nil)
	if err != nil {
		releaseEnvironment()
		return nil, errors.Wrap(err, errors.ErrCodeModelError, "open onnx session").WithDetail(cfg.ModelPath)
	}
	return &ONNXBackend{cfg: cfg, session: s}, nil
}

// InputDim implements Backend.
func (b *ONNXBackend) InputDim() int { return b.cfg.Inputs }

// OutputDim implements Backend.
func (b *ONNXBackend) OutputDim() int { return b.cfg.Outputs }

// Predict implements Backend.  The network runs in float32.
func (b *ONNXBackend) Predict(ctx context.Context, batch [][]float64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelError, "onnx prediction cancelled")
	}
	width := b.cfg.Inputs
	if width == 0 {
		width = len(batch[0])
	}
	data := make([]float32, 0, len(batch)*width)
	for i, row := range batch {
		if len(row) != width {
			return nil, errors.Newf(errors.ErrCodeDimensionMismatch, "feature row %d has %d values, network expects %d", i, len(row), width)
		}
		for _, v := range row {
			data = append(data, float32(v))
		}
	}

	in, err := ort.NewTensor(ort.NewShape(int64(len(batch)), int64(width)), data)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelError, "create input tensor")
	}
	defer in.Destroy()
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(int64(len(batch)), int64(b.cfg.Outputs)))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelError, "create output tensor")
	}
	defer out.Destroy()

	b.mu.Lock()
	err = b.session.Run([]ort.Value{in}, []ort.Value{out})
	b.mu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeModelError, "run onnx session").WithDetail(b.cfg.ModelPath)
	}

	flat := out.GetData()
	probs := make([][]float64, len(batch))
	for i := range probs {
		row := make([]float64, b.cfg.Outputs)
		for j := range row {
			row[j] = float64(flat[i*b.cfg.Outputs+j])
		}
		probs[i] = row
	}
	return probs, nil
}

// Close implements Backend.
func (b *ONNXBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session == nil {
		return nil
	}
	err := b.session.Destroy()
	b.session = nil
	releaseEnvironment()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeModelError, "close onnx session")
	}
	return nil
}

//Personal.AI order the ending
