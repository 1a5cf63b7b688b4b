package config

import "testing"

func validConfigForTest() *Config {
	llmReg := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"gemini-flash": {Type: LLMProviderTypeGoogle, Model: "gemini-2.0-flash", MaxOutputTokens: 1024},
	})
	embReg := NewEmbeddingProviderRegistry(map[string]*EmbeddingProviderConfig{
		"openai-small": {Type: EmbeddingProviderTypeOpenAI, Model: "text-embedding-3-small", Dimensions: 1536},
	})

	return &Config{
		Defaults: &Defaults{
			LLMProvider:            "gemini-flash",
			EmbeddingProvider:      "openai-small",
			Stage1ConfidenceFloor:  "low",
			MaxConversationsPerRun: 100,
		},
		Runner:      DefaultRunnerConfig(),
		QualityGate: DefaultQualityGateConfig(),
		Canon:       DefaultCanonConfig(),
		Cluster:     DefaultClusterConfig(),
		Retention:   DefaultRetentionConfig(),
		Ticketing: &TicketingConfig{
			Source:  TicketingSourceZendesk,
			BaseURL: "https://example.zendesk.com",
		},
		LLMProviderRegistry:       llmReg,
		EmbeddingProviderRegistry: embReg,
	}
}

func TestValidator_ValidateAll_Success(t *testing.T) {
	if err := NewValidator(validConfigForTest()).ValidateAll(); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidator_RejectsUnknownDefaultLLMProvider(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Defaults.LLMProvider = "does-not-exist"

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatalf("expected error for unknown default LLM provider")
	}
}

func TestValidator_RejectsBadWorkerCount(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Runner.WorkerCount = 0

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatalf("expected error for zero worker count")
	}
}

func TestValidator_RejectsJitterGreaterThanInterval(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Runner.PollIntervalJitter = cfg.Runner.PollInterval

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatalf("expected error for jitter >= interval")
	}
}

func TestValidator_RejectsQualityGateThresholdInversion(t *testing.T) {
	cfg := validConfigForTest()
	cfg.QualityGate.AutoCreateThreshold = 0.4
	cfg.QualityGate.ManualReviewThreshold = 0.5

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatalf("expected error when auto_create_threshold <= manual_review_threshold")
	}
}

func TestValidator_RejectsMissingTicketingBaseURL(t *testing.T) {
	cfg := validConfigForTest()
	cfg.Ticketing.BaseURL = ""

	if err := NewValidator(cfg).ValidateAll(); err == nil {
		t.Fatalf("expected error for missing ticketing base_url")
	}
}
