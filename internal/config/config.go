// Package config loads the pipeline configuration. Values are layered, with
// later layers winning:
//
//  1. built-in defaults
//  2. the selected scoring profile, for scoring keys not set explicitly
//  3. an optional YAML file (--config, TENANTMIX_CONFIG or ./tenantmix.yaml)
//  4. a .env file, then TENANTMIX_* environment variables
//  5. command-line flags
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Config is the full pipeline configuration.
type Config struct {
	Input    InputConfig    `koanf:"input"`
	Features FeaturesConfig `koanf:"features"`
	Scoring  ScoringConfig  `koanf:"scoring"`
	Model    ModelConfig    `koanf:"model"`
	Artifact ArtifactConfig `koanf:"artifact"`
	Output   OutputConfig   `koanf:"output"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// InputConfig locates the source tables.
type InputConfig struct {
	Malls  string `koanf:"malls" validate:"required"`
	Stores string `koanf:"stores" validate:"required"`
	Sales  string `koanf:"sales" validate:"required"`
}

// FeaturesConfig controls the Feature Builder.
type FeaturesConfig struct {
	Imputation string `koanf:"imputation" validate:"oneof=median mean"`
}

// ScoringConfig controls classification and candidate ranking.
type ScoringConfig struct {
	Profile             string  `koanf:"profile" validate:"omitempty,oneof=balanced conservative aggressive"`
	ThresholdPercentile float64 `koanf:"threshold_percentile" validate:"gte=0,lte=100"`
	PeerGroup           string  `koanf:"peer_group" validate:"oneof=mall category"`
	MaxCandidates       int     `koanf:"max_candidates" validate:"gte=0"`
	MinUplift           float64 `koanf:"min_uplift" validate:"gte=0"`
	MinCategorySupport  int     `koanf:"min_category_support" validate:"gte=1"`
}

// ModelConfig controls model selection. Seed makes fold assignment
// reproducible.
type ModelConfig struct {
	Seed    int64     `koanf:"seed"`
	Folds   int       `koanf:"folds" validate:"gte=2,lte=20"`
	Lambdas []float64 `koanf:"lambdas" validate:"min=1,dive,gt=0"`
}

// ArtifactConfig controls the dashboard artifact.
type ArtifactConfig struct {
	Path             string `koanf:"path" validate:"required"`
	IncludeAllStores bool   `koanf:"include_all_stores"`
	Precision        int    `koanf:"precision" validate:"gte=0,lte=6"`
}

// OutputConfig locates the side outputs of a run. Empty paths disable them.
type OutputConfig struct {
	SummaryPath string `koanf:"summary_path"`
	MetricsPath string `koanf:"metrics_path"`
}

// LoggingConfig configures internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Malls:  "data/malls.csv",
			Stores: "data/stores.csv",
			Sales:  "data/sales.csv",
		},
		Features: FeaturesConfig{Imputation: "median"},
		Scoring: ScoringConfig{
			Profile:             "balanced",
			ThresholdPercentile: 20,
			PeerGroup:           "mall",
			MaxCandidates:       3,
			MinUplift:           0,
			MinCategorySupport:  1,
		},
		Model: ModelConfig{
			Seed:    42,
			Folds:   5,
			Lambdas: []float64{0.1, 1, 10},
		},
		Artifact: ArtifactConfig{
			Path:             "urw_dashboard_data.csv",
			IncludeAllStores: true,
			Precision:        2,
		},
		Output: OutputConfig{
			SummaryPath: "tenantmix_summary.json",
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks every field against its constraints and reports all
// violations at once.
func (c *Config) Validate() error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	c.normalize()
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

func (c *Config) normalize() {
	c.Scoring.Profile = strings.ToLower(strings.TrimSpace(c.Scoring.Profile))
	c.Scoring.PeerGroup = strings.ToLower(strings.TrimSpace(c.Scoring.PeerGroup))
	c.Features.Imputation = strings.ToLower(strings.TrimSpace(c.Features.Imputation))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}

// describe turns a field error into "scoring.peer_group must be one of
// [mall category], got region".
func describe(fe validator.FieldError) string {
	key := keyOf(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %v", key, fe.Param(), fe.Value())
	case "min":
		return fmt.Sprintf("%s needs at least %s value(s)", key, fe.Param())
	default:
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", key, fe.Tag(), fe.Param(), fe.Value())
	}
}

// keyOf maps a validator namespace like "Config.Scoring.PeerGroup" to the
// configuration key "scoring.peer_group".
func keyOf(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = snake(p)
	}
	return strings.Join(parts, ".")
}

func snake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
