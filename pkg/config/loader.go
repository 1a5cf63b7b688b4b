package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// FeedForwardYAMLConfig represents the complete feedforward.yaml file structure.
type FeedForwardYAMLConfig struct {
	HTTP        *HTTPYAMLConfig  `yaml:"http"`
	Ticketing   *TicketingConfig `yaml:"ticketing"`
	Defaults    *Defaults        `yaml:"defaults"`
	Runner      *RunnerConfig    `yaml:"runner"`
	QualityGate *QualityGateConfig `yaml:"quality_gate"`
	Canon       *CanonConfig     `yaml:"canon"`
	Cluster     *ClusterConfig   `yaml:"cluster"`
	Retention   *RetentionConfig `yaml:"retention"`
}

// HTTPYAMLConfig groups HTTP control-surface settings from YAML.
type HTTPYAMLConfig struct {
	ListenAddr     string   `yaml:"listen_addr,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders       map[string]LLMProviderConfig       `yaml:"llm_providers"`
	EmbeddingProviders map[string]EmbeddingProviderConfig `yaml:"embedding_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined provider configurations
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"llm_providers", stats.LLMProviders,
		"embedding_providers", stats.EmbeddingProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	ffConfig, err := loader.loadFeedForwardYAML()
	if err != nil {
		return nil, NewLoadError("feedforward.yaml", err)
	}

	llmProviders, embeddingProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()

	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)
	embeddingProvidersMerged := mergeEmbeddingProviders(builtin.EmbeddingProviders, embeddingProviders)

	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)
	embeddingProviderRegistry := NewEmbeddingProviderRegistry(embeddingProvidersMerged)

	defaults := ffConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.LLMProvider == "" {
		defaults.LLMProvider = "gemini-flash"
	}
	if defaults.EmbeddingProvider == "" {
		defaults.EmbeddingProvider = "openai-small"
	}
	if defaults.Stage1ConfidenceFloor == "" {
		defaults.Stage1ConfidenceFloor = "low"
	}
	if defaults.MaxConversationsPerRun == 0 {
		defaults.MaxConversationsPerRun = 10000
	}

	runnerConfig := DefaultRunnerConfig()
	if ffConfig.Runner != nil {
		if err := mergo.Merge(runnerConfig, ffConfig.Runner, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge runner config: %w", err)
		}
	}

	qualityGateConfig := DefaultQualityGateConfig()
	if ffConfig.QualityGate != nil {
		if err := mergo.Merge(qualityGateConfig, ffConfig.QualityGate, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge quality gate config: %w", err)
		}
	}

	canonConfig := DefaultCanonConfig()
	if ffConfig.Canon != nil {
		if err := mergo.Merge(canonConfig, ffConfig.Canon, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge canon config: %w", err)
		}
	}

	clusterConfig := DefaultClusterConfig()
	if ffConfig.Cluster != nil {
		if err := mergo.Merge(clusterConfig, ffConfig.Cluster, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge cluster config: %w", err)
		}
	}

	retentionConfig := DefaultRetentionConfig()
	if ffConfig.Retention != nil {
		if err := mergo.Merge(retentionConfig, ffConfig.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	httpConfig := resolveHTTPConfig(ffConfig.HTTP)

	if ffConfig.Ticketing == nil {
		return nil, fmt.Errorf("%w: ticketing", ErrMissingRequiredField)
	}

	return &Config{
		configDir:                 configDir,
		Defaults:                  defaults,
		Runner:                    runnerConfig,
		QualityGate:               qualityGateConfig,
		Canon:                     canonConfig,
		Cluster:                   clusterConfig,
		Ticketing:                 ffConfig.Ticketing,
		Retention:                 retentionConfig,
		HTTP:                      httpConfig,
		LLMProviderRegistry:       llmProviderRegistry,
		EmbeddingProviderRegistry: embeddingProviderRegistry,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadFeedForwardYAML() (*FeedForwardYAMLConfig, error) {
	var config FeedForwardYAMLConfig
	if err := l.loadYAML("feedforward.yaml", &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// loadLLMProvidersYAML loads user-supplied provider overrides. Unlike
// feedforward.yaml this file is optional: an install running only on
// built-in providers need not ship one.
func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, map[string]EmbeddingProviderConfig, error) {
	var config LLMProvidersYAMLConfig
	config.LLMProviders = make(map[string]LLMProviderConfig)
	config.EmbeddingProviders = make(map[string]EmbeddingProviderConfig)

	path := filepath.Join(l.configDir, "llm-providers.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.LLMProviders, config.EmbeddingProviders, nil
	}

	if err := l.loadYAML("llm-providers.yaml", &config); err != nil {
		return nil, nil, err
	}

	return config.LLMProviders, config.EmbeddingProviders, nil
}

func resolveHTTPConfig(y *HTTPYAMLConfig) *HTTPConfig {
	cfg := &HTTPConfig{ListenAddr: ":8080"}
	if y == nil {
		return cfg
	}
	if y.ListenAddr != "" {
		cfg.ListenAddr = y.ListenAddr
	}
	cfg.AllowedOrigins = y.AllowedOrigins
	return cfg
}
