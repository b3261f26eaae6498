package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultReferenceDir    = "./data/DrugBank5.0_Approved_drugs"
	DefaultInteractionInfo = "./data/Interaction_information.csv"
	DefaultKnownDDI        = "./data/DrugBank_known_ddi.txt"
	DefaultDrugInfo        = "./data/Approved_drug_Information.txt"
	DefaultDrugSimilarity  = "./data/drug_similarity.csv"

	DefaultLabelBinarizer = "./data/multilabelbinarizer.json"
	DefaultClassifier     = "./data/ddi_model.json"
	DefaultBackend        = "dense"
	DefaultPCA            = "./data/PCA_tanimoto_model_50.json"
	DefaultInputTensor    = "input_1"
	DefaultOutputTensor   = "dense_output"
	DefaultBatchSize      = 512

	DefaultPredictionThreshold = 0.5
	DefaultAnnotationThreshold = 0.75
	DefaultSimilarityMetric    = "ratio"
	DefaultFingerprintRadius   = 2
	DefaultSubstitutionPolicy  = "lexical"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultLogOutput = "stderr"

	DefaultCacheAddr      = "localhost:6379"
	DefaultCacheKeyPrefix = "ddichecker:fp:"
	DefaultCacheTTL       = 30 * 24 * time.Hour

	DefaultStorageEndpoint = "localhost:9000"
	DefaultStorageBucket   = "ddichecker"
	DefaultStoragePrefix   = "runs"

	DefaultKafkaBroker = "localhost:9092"
	DefaultKafkaTopic  = "ddichecker.predictions"

	DefaultMetricsNamespace = "ddichecker"
)

// DefaultStructureExtensions are the reference file suffixes read by default.
var DefaultStructureExtensions = []string{".mol", ".sdf"}

// Default returns a Config with every field at its default.  Booleans that
// default to true, and the fingerprint radius, are only set here and by the
// loader; ApplyDefaults cannot tell an explicit zero from an unset field.
func Default() *Config {
	cfg := &Config{}
	cfg.Pipeline.AddHydrogens = true
	cfg.Pipeline.Checkpoint = true
	cfg.Metrics.Enabled = true
	cfg.Pipeline.FingerprintRadius = DefaultFingerprintRadius
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with its default.  Fields
// that have already been set (non-zero values) are left unchanged so that
// explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Data ──────────────────────────────────────────────────────────────────
	setString(&cfg.Data.ReferenceDir, DefaultReferenceDir)
	setString(&cfg.Data.InteractionInfo, DefaultInteractionInfo)
	setString(&cfg.Data.KnownDDI, DefaultKnownDDI)
	setString(&cfg.Data.DrugInfo, DefaultDrugInfo)
	setString(&cfg.Data.DrugSimilarity, DefaultDrugSimilarity)

	// ── Model ─────────────────────────────────────────────────────────────────
	setString(&cfg.Model.LabelBinarizer, DefaultLabelBinarizer)
	setString(&cfg.Model.Classifier, DefaultClassifier)
	setString(&cfg.Model.Backend, DefaultBackend)
	setString(&cfg.Model.PCA, DefaultPCA)
	setString(&cfg.Model.InputTensor, DefaultInputTensor)
	setString(&cfg.Model.OutputTensor, DefaultOutputTensor)
	if cfg.Model.BatchSize == 0 {
		cfg.Model.BatchSize = DefaultBatchSize
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	if cfg.Pipeline.PredictionThreshold == 0 {
		cfg.Pipeline.PredictionThreshold = DefaultPredictionThreshold
	}
	if cfg.Pipeline.AnnotationThreshold == 0 {
		cfg.Pipeline.AnnotationThreshold = DefaultAnnotationThreshold
	}
	setString(&cfg.Pipeline.SimilarityMetric, DefaultSimilarityMetric)
	// Radius 0 is a valid explicit value; only a negative one is replaced.
	if cfg.Pipeline.FingerprintRadius < 0 {
		cfg.Pipeline.FingerprintRadius = DefaultFingerprintRadius
	}
	setString(&cfg.Pipeline.SubstitutionPolicy, DefaultSubstitutionPolicy)
	if len(cfg.Pipeline.StructureExtensions) == 0 {
		cfg.Pipeline.StructureExtensions = append([]string(nil), DefaultStructureExtensions...)
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	setString(&cfg.Log.Level, DefaultLogLevel)
	setString(&cfg.Log.Format, DefaultLogFormat)
	setString(&cfg.Log.Output, DefaultLogOutput)

	// ── Cache ─────────────────────────────────────────────────────────────────
	setString(&cfg.Cache.Addr, DefaultCacheAddr)
	setString(&cfg.Cache.KeyPrefix, DefaultCacheKeyPrefix)
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if cfg.Cache.DialTimeout == 0 {
		cfg.Cache.DialTimeout = 5 * time.Second
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	setString(&cfg.Storage.Endpoint, DefaultStorageEndpoint)
	setString(&cfg.Storage.Bucket, DefaultStorageBucket)
	setString(&cfg.Storage.Prefix, DefaultStoragePrefix)

	// ── Messaging ─────────────────────────────────────────────────────────────
	if len(cfg.Messaging.Brokers) == 0 {
		cfg.Messaging.Brokers = []string{DefaultKafkaBroker}
	}
	setString(&cfg.Messaging.Topic, DefaultKafkaTopic)
	if cfg.Messaging.BatchSize == 0 {
		cfg.Messaging.BatchSize = 100
	}
	if cfg.Messaging.WriteTimeout == 0 {
		cfg.Messaging.WriteTimeout = 10 * time.Second
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	setString(&cfg.Metrics.Namespace, DefaultMetricsNamespace)
}

func setString(field *string, def string) {
	if *field == "" {
		*field = def
	}
}

//Personal.AI order the ending
