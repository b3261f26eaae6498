// Package pipeline wires the stages of a ddichecker run together: it loads
// every configured artifact, runs similarity through annotation in order,
// checkpoints each intermediate table and hands the results to the optional
// publishers.
package pipeline

import (
	"io"
	"strings"

	"github.com/turtacn/KeyDDI-Intelligence/internal/config"
	domainDDI "github.com/turtacn/KeyDDI-Intelligence/internal/domain/ddi"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyDDI-Intelligence/internal/infrastructure/tabular"
	"github.com/turtacn/KeyDDI-Intelligence/internal/intelligence/classifier"
	"github.com/turtacn/KeyDDI-Intelligence/internal/intelligence/reducer"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	"github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

// Report names of the steps the pipeline runs itself.
const (
	InputStage  = "input"
	ReduceStage = "reduce"
)

// ─────────────────────────────────────────────────────────────────────────────
// Table loaders
// ─────────────────────────────────────────────────────────────────────────────

// LoadTemplates reads the interaction sentence table at path.
func LoadTemplates(path string) (t *domainDDI.TemplateTable, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		t, err = domainDDI.LoadTemplates(r)
		return err
	})
	return t, err
}

// LoadKnownDDI reads the known interaction table at path.
func LoadKnownDDI(path string) (k *domainDDI.KnownDDIIndex, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		k, err = domainDDI.LoadKnownDDI(r)
		return err
	})
	return k, err
}

// LoadDrugTargets reads the drug information table at path.
func LoadDrugTargets(path string) (d domainDDI.DrugTargets, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		d, err = domainDDI.LoadDrugTargets(r)
		return err
	})
	return d, err
}

// LoadPCA reads the projection artifact at path.
func LoadPCA(path string) (p *reducer.PCA, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		p, err = reducer.LoadPCA(r)
		return err
	})
	return p, err
}

// ReadMatrix reads a labelled CSV matrix.
func ReadMatrix(path string) (m *ddi.Matrix, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		m, err = tabular.ReadMatrixCSV(r)
		return err
	})
	return m, err
}

// WriteMatrix writes m atomically to path.
func WriteMatrix(path string, m *ddi.Matrix) error {
	return tabular.WriteFile(path, func(w io.Writer) error { return tabular.WriteMatrixCSV(w, m) })
}

// ReadCandidates reads the candidate pair file.  Malformed lines land on the
// returned report.
func ReadCandidates(path string) ([]ddi.CandidatePair, *ddi.StageReport, error) {
	report := ddi.NewStageReport(InputStage)
	var pairs []ddi.CandidatePair
	err := tabular.ReadFile(path, func(r io.Reader) error {
		var err error
		pairs, err = domainDDI.ReadCandidates(r, report)
		return err
	})
	report.OutputRows = len(pairs)
	report.Finish()
	return pairs, report, err
}

// ─────────────────────────────────────────────────────────────────────────────
// Model loaders
// ─────────────────────────────────────────────────────────────────────────────

// LoadLabelBinarizer reads the classifier label list at path.
func LoadLabelBinarizer(path string) (lb *classifier.LabelBinarizer, err error) {
	err = tabular.ReadFile(path, func(r io.Reader) error {
		lb, err = classifier.LoadLabelBinarizer(r)
		return err
	})
	return lb, err
}

// CheckLabelCoverage fails with ErrCodeUnknownInteractionLabel when a
// classifier output has no sentence template.  Templates the classifier never
// emits are only logged.
func CheckLabelCoverage(labels *classifier.LabelBinarizer, templates *domainDDI.TemplateTable, logger logging.Logger) error {
	var missing []string
	for _, l := range labels.Classes() {
		if _, ok := templates.Lookup(l); !ok {
			missing = append(missing, l)
		}
	}
	if len(missing) > 0 {
		return errors.Newf(errors.ErrCodeUnknownInteractionLabel,
			"%d of %d classifier labels have no sentence template", len(missing), labels.Len()).
			WithDetail(strings.Join(missing, ","))
	}

	var unused []string
	for _, l := range templates.Labels() {
		if _, ok := labels.Position(l); !ok {
			unused = append(unused, l)
		}
	}
	if len(unused) > 0 {
		logging.OrNop(logger).Debug("sentence templates without a classifier output",
			logging.Int("templates", len(unused)),
			logging.String("labels", strings.Join(unused, ",")))
	}
	return nil
}

// OpenClassifier loads the label binarizer and the configured backend.  The
// caller closes the returned classifier.
func OpenClassifier(cfg config.ModelConfig, threshold float64, logger logging.Logger) (*classifier.Classifier, error) {
	labels, err := LoadLabelBinarizer(cfg.LabelBinarizer)
	if err != nil {
		return nil, err
	}

	kind, err := classifier.ParseBackendKind(cfg.Backend)
	if err != nil {
		return nil, err
	}
	backend, err := classifier.OpenBackend(classifier.BackendConfig{
		Kind:      kind,
		ModelPath: cfg.Classifier,
		ONNX: classifier.ONNXConfig{
			LibraryPath: cfg.ONNXLibrary,
			InputName:   cfg.InputTensor,
			OutputName:  cfg.OutputTensor,
		},
	}, labels.Len())
	if err != nil {
		return nil, err
	}

	c, err := classifier.New(backend, labels, classifier.Options{Threshold: threshold, BatchSize: cfg.BatchSize}, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}
	logging.OrNop(logger).Debug("classifier loaded",
		logging.String("backend", string(kind)),
		logging.String(logging.KeyPath, cfg.Classifier),
		logging.Int("labels", labels.Len()))
	return c, nil
}

//Personal.AI order the ending
