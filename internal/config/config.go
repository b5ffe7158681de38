// Package config provides layered configuration loading and validation for
// the reposcan pipeline: viper reads an optional file and environment
// variables, cobra flags take final precedence at the call site.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrInvalidWorkers     = errors.New("worker pool size must be positive")
	ErrInvalidGlobalBudget = errors.New("global timeout budget must be positive")
	ErrWeightsDoNotSumToOne = errors.New("ranking weights must sum to 1.0")
	ErrNegativeWeight     = errors.New("ranking weight must be non-negative")
)

const weightSumTolerance = 1e-6

// Config is the fully-resolved pipeline configuration: CLI flags override
// environment variables, which override the config file, which overrides
// these defaults.
type Config struct {
	Tools      ToolsConfig      `mapstructure:"tools"`
	Timeouts   TimeoutsConfig   `mapstructure:"timeouts"`
	Workers    int              `mapstructure:"workers"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Ignore     []string         `mapstructure:"ignore_paths"`
	Regions    map[string]string `mapstructure:"regions"`
	CompanyDomains []string     `mapstructure:"company_domains"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	// MetricsAddr, when non-empty, is the listen address the Prometheus
	// /metrics endpoint is served on for the duration of the run.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// ToolsConfig names the bundled tools directory and explicit overrides for
// external tool locations; the Tool Locator consults the jar and java
// overrides ahead of the bundled directory and PATH.
type ToolsConfig struct {
	ToolsDir  string `mapstructure:"tools_dir"`
	JarPath   string `mapstructure:"jar"`
	JavaPath  string `mapstructure:"java"`
	VulnCache string `mapstructure:"vulndb_cache"`
}

// TimeoutsConfig holds the per-stage and global timeout budgets.
type TimeoutsConfig struct {
	Global          time.Duration `mapstructure:"global"`
	CodeCounter     time.Duration `mapstructure:"code_counter"`
	Complexity      time.Duration `mapstructure:"complexity"`
	Vulnerability   time.Duration `mapstructure:"vulnerability"`
	EvolutionSub    time.Duration `mapstructure:"evolution_sub"`
	GraceWindow     time.Duration `mapstructure:"grace_window"`
}

// RankingConfig holds the declared weight vector for the Developer Ranking
// Engine. Dimension names are fixed; weights are config.
type RankingConfig struct {
	Weights map[string]float64 `mapstructure:"weights"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional explicit path, falling back to
// the usual search locations, then environment variables, validating the
// result before returning it. A config file that does not exist, whether
// named explicitly or searched for, leaves the defaults in place.
func Load(explicitPath string) (*Config, error) {
	viperCfg := viper.New()
	setDefaults(viperCfg)

	if explicitPath != "" {
		viperCfg.SetConfigFile(explicitPath)
	} else {
		viperCfg.SetConfigName("reposcan")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("$HOME")
		viperCfg.AddConfigPath("/etc/reposcan")
	}

	viperCfg.SetEnvPrefix("REPOSCAN")
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) && !errors.Is(readErr, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	if validateErr := Validate(&cfg); validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// Validate checks structural invariants that the JSON schema in schema.go
// cannot express, such as the weight vector summing to one.
func Validate(cfg *Config) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, cfg.Workers)
	}

	if cfg.Timeouts.Global <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidGlobalBudget, cfg.Timeouts.Global)
	}

	return validateWeights(cfg.Ranking.Weights)
}

func validateWeights(weights map[string]float64) error {
	var sum float64

	for dimension, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: %s = %f", ErrNegativeWeight, dimension, w)
		}

		sum += w
	}

	if diff := sum - 1.0; diff > weightSumTolerance || diff < -weightSumTolerance {
		return fmt.Errorf("%w: got %f", ErrWeightsDoNotSumToOne, sum)
	}

	return nil
}
