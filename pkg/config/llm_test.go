package config

import "testing"

func TestLLMProviderRegistry_GetAndHas(t *testing.T) {
	reg := NewLLMProviderRegistry(map[string]*LLMProviderConfig{
		"gemini-flash": {Type: LLMProviderTypeGoogle, Model: "gemini-2.0-flash", MaxOutputTokens: 1024},
	})

	if !reg.Has("gemini-flash") {
		t.Fatalf("expected registry to have gemini-flash")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected len 1, got %d", reg.Len())
	}

	p, err := reg.Get("gemini-flash")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Model != "gemini-2.0-flash" {
		t.Fatalf("unexpected model: %s", p.Model)
	}

	if _, err := reg.Get("missing"); err == nil {
		t.Fatalf("expected error for missing provider")
	}
}

func TestLLMProviderRegistry_GetAllReturnsCopy(t *testing.T) {
	original := map[string]*LLMProviderConfig{
		"a": {Type: LLMProviderTypeOpenAI, Model: "gpt-4o-mini", MaxOutputTokens: 1024},
	}
	reg := NewLLMProviderRegistry(original)

	all := reg.GetAll()
	delete(all, "a")

	if !reg.Has("a") {
		t.Fatalf("mutating GetAll() result must not affect registry")
	}
}

func TestEmbeddingProviderRegistry_Get(t *testing.T) {
	reg := NewEmbeddingProviderRegistry(map[string]*EmbeddingProviderConfig{
		"openai-small": {Type: EmbeddingProviderTypeOpenAI, Model: "text-embedding-3-small", Dimensions: 1536},
	})

	p, err := reg.Get("openai-small")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Dimensions != 1536 {
		t.Fatalf("unexpected dimensions: %d", p.Dimensions)
	}

	if _, err := reg.Get("missing"); err == nil {
		t.Fatalf("expected error for missing provider")
	}
}
