package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "DDI"

// configName is the base name searched for when no file is given.
const configName = "ddichecker"

// SearchPaths returns the files Load tries, in order, when no path is given.
func SearchPaths() []string {
	paths := []string{"./" + configName + ".yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, "."+configName, "config.yaml"))
	}
	return append(paths, filepath.Join("/etc", configName, "config.yaml"))
}

// newViper builds a Viper instance with the standard settings: YAML file
// type, DDI_ env prefix, automatic env binding, and a key replacer that maps
// "." to "_" so that "model.pca" resolves to DDI_MODEL_PCA.  Every key is
// registered with its default so that env-only settings unmarshal too.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v, Default())
	return v
}

func registerDefaults(v *viper.Viper, d *Config) {
	set := map[string]interface{}{
		"data.reference_dir":    d.Data.ReferenceDir,
		"data.interaction_info": d.Data.InteractionInfo,
		"data.known_ddi":        d.Data.KnownDDI,
		"data.drug_info":        d.Data.DrugInfo,
		"data.drug_similarity":  d.Data.DrugSimilarity,

		"model.label_binarizer": d.Model.LabelBinarizer,
		"model.classifier":      d.Model.Classifier,
		"model.backend":         d.Model.Backend,
		"model.onnx_library":    d.Model.ONNXLibrary,
		"model.input_tensor":    d.Model.InputTensor,
		"model.output_tensor":   d.Model.OutputTensor,
		"model.pca":             d.Model.PCA,
		"model.batch_size":      d.Model.BatchSize,

		"pipeline.prediction_threshold": d.Pipeline.PredictionThreshold,
		"pipeline.annotation_threshold": d.Pipeline.AnnotationThreshold,
		"pipeline.similarity_metric":    d.Pipeline.SimilarityMetric,
		"pipeline.fingerprint_radius":   d.Pipeline.FingerprintRadius,
		"pipeline.add_hydrogens":        d.Pipeline.AddHydrogens,
		"pipeline.substitution_policy":  d.Pipeline.SubstitutionPolicy,
		"pipeline.structure_extensions": d.Pipeline.StructureExtensions,
		"pipeline.checkpoint":           d.Pipeline.Checkpoint,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,
		"log.output": d.Log.Output,

		"cache.enabled":      d.Cache.Enabled,
		"cache.addr":         d.Cache.Addr,
		"cache.password":     d.Cache.Password,
		"cache.db":           d.Cache.DB,
		"cache.ttl":          d.Cache.TTL,
		"cache.key_prefix":   d.Cache.KeyPrefix,
		"cache.dial_timeout": d.Cache.DialTimeout,

		"storage.enabled":    d.Storage.Enabled,
		"storage.endpoint":   d.Storage.Endpoint,
		"storage.access_key": d.Storage.AccessKey,
		"storage.secret_key": d.Storage.SecretKey,
		"storage.bucket":     d.Storage.Bucket,
		"storage.use_ssl":    d.Storage.UseSSL,
		"storage.prefix":     d.Storage.Prefix,

		"messaging.enabled":       d.Messaging.Enabled,
		"messaging.brokers":       d.Messaging.Brokers,
		"messaging.topic":         d.Messaging.Topic,
		"messaging.batch_size":    d.Messaging.BatchSize,
		"messaging.write_timeout": d.Messaging.WriteTimeout,

		"metrics.enabled":   d.Metrics.Enabled,
		"metrics.namespace": d.Metrics.Namespace,
	}
	for k, val := range set {
		v.SetDefault(k, val)
	}
}

// Load reads the YAML file at configPath, merges any DDI_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.  An empty configPath tries SearchPaths in order; finding none is
// not an error and yields defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := newViper()
	if configPath == "" {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist) {
				return nil, errors.Wrap(err, errors.ErrCodeArtifactNotFound, "config file not found").WithDetail(configPath)
			}
			return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to read config file").WithDetail(configPath)
		}
	}
	return unmarshalAndFinalize(v)
}

// MustLoad is like Load but panics on error.  Intended for use in tests.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic("config: MustLoad failed: " + err.Error())
	}
	return cfg
}

// LoadFromEnv builds a Config entirely from DDI_* environment variables and
// defaults, with no config file.
//
//	DDI_<SECTION>_<FIELD>   e.g.  DDI_MODEL_PCA, DDI_CACHE_ENABLED
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeValidation, "config: failed to unmarshal configuration")
	}
	cfg.Pipeline.StructureExtensions = splitList(cfg.Pipeline.StructureExtensions)
	cfg.Messaging.Brokers = splitList(cfg.Messaging.Brokers)

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// splitList accepts comma-separated environment values for list settings.
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

//Personal.AI order the ending
