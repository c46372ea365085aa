package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/dshills/tenantmix/internal/profile"
)

// DefaultConfigPaths are searched, in order, when no file is named.
var DefaultConfigPaths = []string{"tenantmix.yaml", "tenantmix.yml"}

// ConfigPathEnvVar names a configuration file.
const ConfigPathEnvVar = "TENANTMIX_CONFIG"

// EnvPrefix is the prefix of every environment variable read.
const EnvPrefix = "TENANTMIX_"

// envMappings maps lower-cased environment names to configuration keys.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	"tenantmix_malls":  "input.malls",
	"tenantmix_stores": "input.stores",
	"tenantmix_sales":  "input.sales",

	"tenantmix_imputation": "features.imputation",

	"tenantmix_profile":              "scoring.profile",
	"tenantmix_threshold_percentile": "scoring.threshold_percentile",
	"tenantmix_peer_group":           "scoring.peer_group",
	"tenantmix_max_candidates":       "scoring.max_candidates",
	"tenantmix_min_uplift":           "scoring.min_uplift",
	"tenantmix_min_category_support": "scoring.min_category_support",

	"tenantmix_seed":    "model.seed",
	"tenantmix_folds":   "model.folds",
	"tenantmix_lambdas": "model.lambdas",

	"tenantmix_artifact":           "artifact.path",
	"tenantmix_include_all_stores": "artifact.include_all_stores",
	"tenantmix_precision":          "artifact.precision",

	"tenantmix_summary":      "output.summary_path",
	"tenantmix_metrics_file": "output.metrics_path",

	"tenantmix_log_level":  "logging.level",
	"tenantmix_log_format": "logging.format",
}

// floatSlicePaths are keys that arrive from the environment as
// comma-separated strings.
var floatSlicePaths = []string{"model.lambdas"}

// LoadOptions selects the inputs of Load.
type LoadOptions struct {
	// Path is an explicit configuration file; it must exist when set.
	Path string
	// EnvFile is a dotenv file loaded into the environment when present.
	// Empty means ".env".
	EnvFile string
	// Overrides are applied last, keyed by configuration path
	// (e.g. "input.malls"). The CLI passes the flags the user set.
	Overrides map[string]any
}

// Load builds the configuration from every layer and validates it.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", envFile, err)
	}

	path, err := findConfigFile(opts.Path)
	if err != nil {
		return nil, err
	}

	// explicit holds only what the user wrote down, so profile values can
	// fill the gaps without clobbering it.
	explicit := koanf.New(".")
	if err := loadUserLayers(explicit, path); err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}
	if err := loadUserLayers(k, path); err != nil {
		return nil, err
	}
	for key, val := range opts.Overrides {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("applying override %s: %w", key, err)
		}
		if err := explicit.Set(key, val); err != nil {
			return nil, fmt.Errorf("applying override %s: %w", key, err)
		}
	}
	if err := applyProfile(k, explicit); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadUserLayers loads the file and environment layers into k.
func loadUserLayers(k *koanf.Koanf, path string) error {
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("loading config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	return processFloatSlices(k)
}

// applyProfile copies the selected profile's values into k for every
// scoring key the user did not set.
func applyProfile(k, explicit *koanf.Koanf) error {
	name := strings.ToLower(strings.TrimSpace(k.String("scoring.profile")))
	p, err := profile.Get(name)
	if err != nil {
		return fmt.Errorf("invalid configuration: scoring.profile: %w", err)
	}
	for key, val := range profileValues(p) {
		if explicit.Exists(key) {
			continue
		}
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("applying profile %s: %w", p.Name, err)
		}
	}
	return nil
}

func profileValues(p *profile.Profile) map[string]any {
	return map[string]any{
		"scoring.threshold_percentile": p.ThresholdPercentile,
		"scoring.max_candidates":       p.MaxCandidates,
		"scoring.min_uplift":           p.MinUplift,
		"scoring.min_category_support": p.MinCategorySupport,
	}
}

// findConfigFile resolves the file layer. An explicitly named file must
// exist; the default locations are optional.
func findConfigFile(explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(ConfigPathEnvVar)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// processFloatSlices converts comma-separated strings to []float64 for the
// keys that hold lists.
func processFloatSlices(k *koanf.Koanf) error {
	for _, path := range floatSlicePaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		var vals []float64
		for _, part := range strings.Split(s, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return fmt.Errorf("invalid configuration: %s: %q is not a number", path, part)
			}
			vals = append(vals, v)
		}
		if err := k.Set(path, vals); err != nil {
			return fmt.Errorf("setting %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps an environment variable to its configuration key,
// or "" to skip it.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Flatten returns the configuration as dotted key/value pairs, for the run
// summary.
func (c *Config) Flatten() map[string]any {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil
	}
	return k.All()
}
