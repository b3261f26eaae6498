package tabular

import (
	"io"
	"os"
	"path/filepath"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// Artifact file names written under a run's output directory.
const (
	SimilarityProfileFile = "similarity_profile.csv"
	ReducedProfileFile    = "PCA_transformed_similarity_profile.csv"
	PairFeatureFile       = "tanimoto_PCA50_DDI_Input.csv"
	PredictionFile        = "DDI_result.txt"
	SummaryFile           = "Final_DDI_result.txt"
	AnnotatedFile         = "Final_annotated_DDI_result.txt"
	WarningsFile          = "warnings.tsv"
	MetricsFile           = "metrics.prom"
)

// WriteFile writes path through fn.  The content goes to a temporary file in
// the same directory that is renamed over path only when fn succeeds, so a
// failed stage never leaves a truncated checkpoint behind.
func WriteFile(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "create output directory").WithDetail(dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "create temporary file").WithDetail(path)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.ErrCodeIO, "chmod temporary file").WithDetail(path)
	}
	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "close temporary file").WithDetail(path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.ErrCodeIO, "rename temporary file").WithDetail(path)
	}
	return nil
}

// ReadFile opens path and hands it to fn.  A missing file is reported as
// ErrCodeArtifactNotFound.
func ReadFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrCodeArtifactNotFound, "file not found").WithDetail(path)
		}
		return errors.Wrap(err, errors.ErrCodeIO, "open file").WithDetail(path)
	}
	defer f.Close()
	return fn(f)
}

//Personal.AI order the ending
