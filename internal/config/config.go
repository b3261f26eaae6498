// Package config defines all configuration structures for ddichecker.  Every
// external artifact the pipeline reads is named here; nothing is resolved by
// convention inside the stages.
package config

import (
	"os"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// DataConfig locates the reference tables.
type DataConfig struct {
	// ReferenceDir holds one MOL file per approved reference drug.
	ReferenceDir    string `mapstructure:"reference_dir"`
	InteractionInfo string `mapstructure:"interaction_info"`
	KnownDDI        string `mapstructure:"known_ddi"`
	DrugInfo        string `mapstructure:"drug_info"`
	// DrugSimilarity is the precomputed similarity matrix used by the
	// annotator when a run starts from a reduced profile.
	DrugSimilarity string `mapstructure:"drug_similarity"`
}

// ModelConfig locates the trained artifacts.
type ModelConfig struct {
	LabelBinarizer string `mapstructure:"label_binarizer"`
	Classifier     string `mapstructure:"classifier"`
	Backend        string `mapstructure:"backend"` // "dense" | "onnx"
	ONNXLibrary    string `mapstructure:"onnx_library"`
	InputTensor    string `mapstructure:"input_tensor"`
	OutputTensor   string `mapstructure:"output_tensor"`
	PCA            string `mapstructure:"pca"`
	BatchSize      int    `mapstructure:"batch_size"`
}

// PipelineConfig holds the numeric and behavioural knobs of the stages.
type PipelineConfig struct {
	PredictionThreshold float64  `mapstructure:"prediction_threshold"`
	AnnotationThreshold float64  `mapstructure:"annotation_threshold"`
	SimilarityMetric    string   `mapstructure:"similarity_metric"` // "ratio" | "tanimoto" | "dice"
	FingerprintRadius   int      `mapstructure:"fingerprint_radius"`
	AddHydrogens        bool     `mapstructure:"add_hydrogens"`
	SubstitutionPolicy  string   `mapstructure:"substitution_policy"` // "lexical" | "subject"
	StructureExtensions []string `mapstructure:"structure_extensions"`
	// Checkpoint writes every intermediate artifact to the output directory.
	Checkpoint bool `mapstructure:"checkpoint"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format string `mapstructure:"format"` // "json" | "console"
	Output string `mapstructure:"output"`
}

// CacheConfig holds the optional Redis fingerprint cache parameters.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	TTL         time.Duration `mapstructure:"ttl"`
	KeyPrefix   string        `mapstructure:"key_prefix"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// StorageConfig holds the optional MinIO / S3-compatible artifact publishing
// parameters.
type StorageConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Prefix    string `mapstructure:"prefix"`
}

// MessagingConfig holds the optional Kafka prediction-event parameters.
type MessagingConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MetricsConfig controls the Prometheus textfile written after each run.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	Model     ModelConfig     `mapstructure:"model"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Messaging MessagingConfig `mapstructure:"messaging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.  It
// does not touch the filesystem; see ValidateArtifacts.
func (c *Config) Validate() error {
	p := c.Pipeline
	if p.PredictionThreshold <= 0 || p.PredictionThreshold >= 1 {
		return errors.Newf(errors.ErrCodeValidation, "config: pipeline.prediction_threshold %g must be in (0, 1)", p.PredictionThreshold)
	}
	if p.AnnotationThreshold <= 0 {
		return errors.Newf(errors.ErrCodeValidation, "config: pipeline.annotation_threshold %g must be positive", p.AnnotationThreshold)
	}
	switch p.SimilarityMetric {
	case "ratio", "tanimoto", "dice":
	default:
		return errors.Newf(errors.ErrCodeValidation, "config: pipeline.similarity_metric %q is invalid; expected ratio|tanimoto|dice", p.SimilarityMetric)
	}
	if p.FingerprintRadius < 0 {
		return errors.Newf(errors.ErrCodeValidation, "config: pipeline.fingerprint_radius must be ≥ 0, got %d", p.FingerprintRadius)
	}
	switch p.SubstitutionPolicy {
	case "lexical", "subject":
	default:
		return errors.Newf(errors.ErrCodeValidation, "config: pipeline.substitution_policy %q is invalid; expected lexical|subject", p.SubstitutionPolicy)
	}

	switch c.Model.Backend {
	case "dense", "onnx":
	default:
		return errors.Newf(errors.ErrCodeValidation, "config: model.backend %q is invalid; expected dense|onnx", c.Model.Backend)
	}
	if c.Model.BatchSize < 1 {
		return errors.Newf(errors.ErrCodeValidation, "config: model.batch_size must be ≥ 1, got %d", c.Model.BatchSize)
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New(errors.ErrCodeValidation, "config: cache.addr is required when the cache is enabled")
	}
	if c.Storage.Enabled && (c.Storage.Endpoint == "" || c.Storage.Bucket == "") {
		return errors.New(errors.ErrCodeValidation, "config: storage.endpoint and storage.bucket are required when storage is enabled")
	}
	if c.Messaging.Enabled && (len(c.Messaging.Brokers) == 0 || c.Messaging.Topic == "") {
		return errors.New(errors.ErrCodeValidation, "config: messaging.brokers and messaging.topic are required when messaging is enabled")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.ErrCodeValidation, "config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Newf(errors.ErrCodeValidation, "config: log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}

// Need selects which artifact groups ValidateArtifacts checks.
type Need uint

const (
	// NeedReferences is the reference structure directory.
	NeedReferences Need = 1 << iota
	// NeedReducer is the PCA artifact.
	NeedReducer
	// NeedClassifier is the classifier model and the label binarizer.
	NeedClassifier
	// NeedTemplates is the interaction sentence table.
	NeedTemplates
	// NeedAnnotation is the known-DDI and drug-target tables.
	NeedAnnotation
	// NeedDrugSimilarity is the precomputed similarity matrix.
	NeedDrugSimilarity
	// NeedONNXLibrary is the onnxruntime shared library when one is named.
	NeedONNXLibrary
)

// NeedFullRun is what a run from the candidate file needs.
const NeedFullRun = NeedReferences | NeedReducer | NeedClassifier | NeedTemplates | NeedAnnotation | NeedONNXLibrary

// NeedProfileRun is what a run from a precomputed reduced profile needs.
const NeedProfileRun = NeedClassifier | NeedTemplates | NeedAnnotation | NeedDrugSimilarity | NeedONNXLibrary

// ValidateArtifacts checks that every configured path in need exists.  All
// missing paths are reported at once with ErrCodeArtifactNotFound.
func (c *Config) ValidateArtifacts(need Need) error {
	type artifact struct {
		key, path string
		dir       bool
	}
	var check []artifact
	if need&NeedReferences != 0 {
		check = append(check, artifact{"data.reference_dir", c.Data.ReferenceDir, true})
	}
	if need&NeedReducer != 0 {
		check = append(check, artifact{"model.pca", c.Model.PCA, false})
	}
	if need&NeedClassifier != 0 {
		check = append(check,
			artifact{"model.classifier", c.Model.Classifier, false},
			artifact{"model.label_binarizer", c.Model.LabelBinarizer, false})
	}
	if need&NeedTemplates != 0 {
		check = append(check, artifact{"data.interaction_info", c.Data.InteractionInfo, false})
	}
	if need&NeedAnnotation != 0 {
		check = append(check,
			artifact{"data.known_ddi", c.Data.KnownDDI, false},
			artifact{"data.drug_info", c.Data.DrugInfo, false})
	}
	if need&NeedDrugSimilarity != 0 {
		check = append(check, artifact{"data.drug_similarity", c.Data.DrugSimilarity, false})
	}
	if need&NeedONNXLibrary != 0 && c.Model.Backend == "onnx" && c.Model.ONNXLibrary != "" {
		check = append(check, artifact{"model.onnx_library", c.Model.ONNXLibrary, false})
	}

	var missing []string
	for _, a := range check {
		if a.path == "" {
			missing = append(missing, a.key+" (unset)")
			continue
		}
		info, err := os.Stat(a.path)
		switch {
		case err != nil:
			missing = append(missing, a.key+"="+a.path)
		case a.dir && !info.IsDir():
			missing = append(missing, a.key+"="+a.path+" (not a directory)")
		case !a.dir && info.IsDir():
			missing = append(missing, a.key+"="+a.path+" (is a directory)")
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.New(errors.ErrCodeArtifactNotFound, "missing required artifacts: "+strings.Join(missing, ", "))
	}
	return nil
}

//Personal.AI order the ending
