package config

import "sync"

// BuiltinConfig holds all built-in configuration data: default LLM and
// embedding providers, shipped so a fresh install can run without a
// hand-written llm-providers.yaml.
type BuiltinConfig struct {
	LLMProviders       map[string]LLMProviderConfig
	EmbeddingProviders map[string]EmbeddingProviderConfig
}

var (
	builtinConfig     *BuiltinConfig
	builtinConfigOnce sync.Once
)

// GetBuiltinConfig returns the singleton built-in configuration
// (thread-safe, lazy-initialized).
func GetBuiltinConfig() *BuiltinConfig {
	builtinConfigOnce.Do(initBuiltinConfig)
	return builtinConfig
}

func initBuiltinConfig() {
	builtinConfig = &BuiltinConfig{
		LLMProviders:       initBuiltinLLMProviders(),
		EmbeddingProviders: initBuiltinEmbeddingProviders(),
	}
}

func initBuiltinLLMProviders() map[string]LLMProviderConfig {
	return map[string]LLMProviderConfig{
		"gemini-flash": {
			Type:                  LLMProviderTypeGoogle,
			Model:                 "gemini-2.0-flash",
			APIKeyEnv:             "GOOGLE_API_KEY",
			MaxOutputTokens:       2048,
			RequestTimeoutSeconds: 30,
		},
		"gemini-pro": {
			Type:                  LLMProviderTypeGoogle,
			Model:                 "gemini-2.0-pro",
			APIKeyEnv:             "GOOGLE_API_KEY",
			MaxOutputTokens:       4096,
			RequestTimeoutSeconds: 60,
		},
		"gpt-4o-mini": {
			Type:                  LLMProviderTypeOpenAI,
			Model:                 "gpt-4o-mini",
			APIKeyEnv:             "OPENAI_API_KEY",
			MaxOutputTokens:       2048,
			RequestTimeoutSeconds: 30,
		},
	}
}

func initBuiltinEmbeddingProviders() map[string]EmbeddingProviderConfig {
	return map[string]EmbeddingProviderConfig{
		"openai-small": {
			Type:                  EmbeddingProviderTypeOpenAI,
			Model:                 "text-embedding-3-small",
			APIKeyEnv:             "OPENAI_API_KEY",
			Dimensions:            1536,
			RequestTimeoutSeconds: 20,
		},
	}
}
