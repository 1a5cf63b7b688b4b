package config

// Config is the umbrella configuration object that encapsulates all
// registries, defaults, and configuration state. This is the primary
// object returned by Initialize() and used throughout the application.
type Config struct {
	configDir string // Configuration directory path (for reference)

	// System-wide defaults
	Defaults *Defaults

	// Runner, quality-gate, canonicalization, ticketing, retention, and
	// HTTP surface configuration.
	Runner    *RunnerConfig
	QualityGate *QualityGateConfig
	Canon     *CanonConfig
	Cluster   *ClusterConfig
	Ticketing *TicketingConfig
	Retention *RetentionConfig
	HTTP      *HTTPConfig

	// Component registries
	LLMProviderRegistry       *LLMProviderRegistry
	EmbeddingProviderRegistry *EmbeddingProviderRegistry
}

// Initialize is defined in loader.go

// ConfigStats contains statistics about loaded configuration.
type ConfigStats struct {
	LLMProviders       int
	EmbeddingProviders int
}

// Stats returns configuration statistics for logging/monitoring.
func (c *Config) Stats() ConfigStats {
	return ConfigStats{
		LLMProviders:       c.LLMProviderRegistry.Len(),
		EmbeddingProviders: c.EmbeddingProviderRegistry.Len(),
	}
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// GetLLMProvider retrieves an LLM provider configuration by name.
// This is a convenience method that wraps LLMProviderRegistry.Get().
func (c *Config) GetLLMProvider(name string) (*LLMProviderConfig, error) {
	return c.LLMProviderRegistry.Get(name)
}

// GetEmbeddingProvider retrieves an embedding provider configuration by name.
func (c *Config) GetEmbeddingProvider(name string) (*EmbeddingProviderConfig, error) {
	return c.EmbeddingProviderRegistry.Get(name)
}
