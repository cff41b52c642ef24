// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Models    ModelsConfig    `mapstructure:"models" yaml:"models"`
	Trainer   TrainerConfig   `mapstructure:"trainer" yaml:"trainer"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap" yaml:"bootstrap"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// StoreConfig contains dataset store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"` // sqlite database path, relative to config dir
}

// EmbeddingConfig contains embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`     // openai, ollama, stub
	Model     string `mapstructure:"model" yaml:"model"`           // model name
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`     // API endpoint override
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`       // API key (or OPENAI_API_KEY env)
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"` // texts per batch
}

// CacheConfig contains embedding cache configuration.
type CacheConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`     // memory, redis
	MaxSize  int    `mapstructure:"max_size" yaml:"max_size"`   // memory backend entry cap, 0 = unbounded
	Addr     string `mapstructure:"addr" yaml:"addr"`           // redis address
	Password string `mapstructure:"password" yaml:"password"`   // redis password
	DB       int    `mapstructure:"db" yaml:"db"`               // redis database
	TTLHours int    `mapstructure:"ttl_hours" yaml:"ttl_hours"` // redis entry lifetime, 0 = no expiry
}

// ModelsConfig contains model artifact configuration.
type ModelsConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`                     // models directory, relative to config dir
	PluginsDir   string `mapstructure:"plugins_dir" yaml:"plugins_dir"`     // scorer plugin binaries
	ScorerPlugin string `mapstructure:"scorer_plugin" yaml:"scorer_plugin"` // plugin binary name, empty = heuristic only
}

// TrainerConfig contains external trainer configuration.
type TrainerConfig struct {
	PythonBin  string   `mapstructure:"python_bin" yaml:"python_bin"`   // interpreter
	Script     string   `mapstructure:"script" yaml:"script"`           // training script path
	DatasetDir string   `mapstructure:"dataset_dir" yaml:"dataset_dir"` // export target, relative to config dir
	ExtraArgs  []string `mapstructure:"extra_args" yaml:"extra_args"`   // passed to the trainer verbatim
}

// BootstrapConfig contains bootstrap source configuration.
type BootstrapConfig struct {
	ContentFile string `mapstructure:"content_file" yaml:"content_file"` // benchmark JSONL path
	Embed       bool   `mapstructure:"embed" yaml:"embed"`               // embed items during bootstrap
}

// MetricsConfig contains metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"` // listen address for /metrics
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // text, json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path: "ranker.db",
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			BatchSize: 32,
		},
		Cache: CacheConfig{
			Backend: "memory",
			MaxSize: 10000,
		},
		Models: ModelsConfig{
			Dir:        "models",
			PluginsDir: "plugins",
		},
		Trainer: TrainerConfig{
			PythonBin:  "python3",
			Script:     "tools/ml/train_ranker.py",
			DatasetDir: "dataset",
		},
		Bootstrap: BootstrapConfig{
			ContentFile: "benchmark.jsonl",
			Embed:       false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9108",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ConfigDir returns the path to the .ranker directory.
func ConfigDir(projectRoot string) string {
	return filepath.Join(projectRoot, ".ranker")
}

// ConfigPath returns the path to config.yaml.
func ConfigPath(projectRoot string) string {
	return filepath.Join(ConfigDir(projectRoot), "config.yaml")
}

// StorePath resolves the sqlite database path.
func (c *Config) StorePath(projectRoot string) string {
	return resolve(projectRoot, c.Store.Path)
}

// ModelsDir resolves the models directory.
func (c *Config) ModelsDir(projectRoot string) string {
	return resolve(projectRoot, c.Models.Dir)
}

// PluginsDir resolves the plugins directory.
func (c *Config) PluginsDir(projectRoot string) string {
	return resolve(projectRoot, c.Models.PluginsDir)
}

// DatasetDir resolves the dataset export directory.
func (c *Config) DatasetDir(projectRoot string) string {
	return resolve(projectRoot, c.Trainer.DatasetDir)
}

// resolve anchors relative paths in the config directory.
func resolve(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ConfigDir(projectRoot), path)
}

// Load loads configuration from file, falling back to defaults.
func Load(projectRoot string) (*Config, []string, error) {
	cfg := DefaultConfig()
	warnings := []string{}

	configPath := ConfigPath(projectRoot)

	// Check if config exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		warnings = append(warnings, "No config file found, using defaults")
		return cfg, warnings, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults for missing values
	if cfg.Store.Path == "" {
		cfg.Store.Path = "ranker.db"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
		warnings = append(warnings, "Using default embedding provider: openai")
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "memory"
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Models.PluginsDir == "" {
		cfg.Models.PluginsDir = "plugins"
	}
	if cfg.Trainer.PythonBin == "" {
		cfg.Trainer.PythonBin = "python3"
	}
	if cfg.Trainer.DatasetDir == "" {
		cfg.Trainer.DatasetDir = "dataset"
	}

	return cfg, warnings, nil
}

// Save saves configuration to file.
func Save(projectRoot string, cfg *Config) error {
	configDir := ConfigDir(projectRoot)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(ConfigPath(projectRoot))
	v.SetConfigType("yaml")

	// Set all values
	v.Set("store", cfg.Store)
	v.Set("embedding", cfg.Embedding)
	v.Set("cache", cfg.Cache)
	v.Set("models", cfg.Models)
	v.Set("trainer", cfg.Trainer)
	v.Set("bootstrap", cfg.Bootstrap)
	v.Set("metrics", cfg.Metrics)
	v.Set("logging", cfg.Logging)

	return v.WriteConfig()
}

// Validate validates the configuration.
func Validate(cfg *Config) []error {
	var errs []error

	validEmbeddingProviders := map[string]bool{
		"openai": true, "ollama": true, "stub": true,
	}
	if !validEmbeddingProviders[cfg.Embedding.Provider] {
		errs = append(errs, fmt.Errorf("invalid embedding provider: %s", cfg.Embedding.Provider))
	}

	validCacheBackends := map[string]bool{
		"memory": true, "redis": true,
	}
	if !validCacheBackends[cfg.Cache.Backend] {
		errs = append(errs, fmt.Errorf("invalid cache backend: %s", cfg.Cache.Backend))
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.Addr == "" {
		errs = append(errs, fmt.Errorf("redis cache backend requires an addr"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Errorf("invalid log level: %s", cfg.Logging.Level))
	}

	validLogFormats := map[string]bool{
		"text": true, "json": true, "": true,
	}
	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Errorf("invalid log format: %s (valid: text, json)", cfg.Logging.Format))
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		errs = append(errs, fmt.Errorf("metrics endpoint requires an addr"))
	}

	return errs
}
