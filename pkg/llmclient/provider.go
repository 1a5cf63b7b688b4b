package llmclient

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/feedforward/feedforward/pkg/config"
)

// buildRequest constructs the provider-specific endpoint URL and request
// body for a completion call.
func buildRequest(providerName string, cfg *config.LLMProviderConfig, req CompletionRequest) (string, []byte, error) {
	switch cfg.Type {
	case config.LLMProviderTypeOpenAI:
		return buildOpenAIRequest(cfg, req)
	case config.LLMProviderTypeAnthropic:
		return buildAnthropicRequest(cfg, req)
	case config.LLMProviderTypeGoogle, config.LLMProviderTypeVertexAI:
		return buildGoogleRequest(cfg, req)
	default:
		return "", nil, fmt.Errorf("llmclient: unsupported provider type %q for %s", cfg.Type, providerName)
	}
}

func baseURL(cfg *config.LLMProviderConfig, fallback string) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return fallback
}

func buildOpenAIRequest(cfg *config.LLMProviderConfig, req CompletionRequest) (string, []byte, error) {
	payload := map[string]any{
		"model": cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": req.SystemPrompt},
			{"role": "user", "content": req.UserPrompt},
		},
		"max_tokens":      cfg.MaxOutputTokens,
		"response_format": map[string]string{"type": "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return baseURL(cfg, "https://api.openai.com/v1") + "/chat/completions", body, nil
}

func buildAnthropicRequest(cfg *config.LLMProviderConfig, req CompletionRequest) (string, []byte, error) {
	payload := map[string]any{
		"model":      cfg.Model,
		"system":     req.SystemPrompt,
		"max_tokens": cfg.MaxOutputTokens,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	return baseURL(cfg, "https://api.anthropic.com/v1") + "/messages", body, nil
}

func buildGoogleRequest(cfg *config.LLMProviderConfig, req CompletionRequest) (string, []byte, error) {
	payload := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": req.SystemPrompt}},
		},
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": req.UserPrompt}}},
		},
		"generation_config": map[string]any{
			"max_output_tokens": cfg.MaxOutputTokens,
			"response_mime_type": "application/json",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, err
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", baseURL(cfg, "https://generativelanguage.googleapis.com/v1beta"), cfg.Model)
	return endpoint, body, nil
}

// extractCompletionText pulls the completion's text content out of a
// provider-specific response envelope.
func extractCompletionText(providerName string, respBody []byte) (string, error) {
	var envelope map[string]any
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return "", fmt.Errorf("failed to parse %s response envelope: %w", providerName, err)
	}

	if choices, ok := envelope["choices"].([]any); ok {
		if len(choices) == 0 {
			return "", ErrEmptyResponse
		}
		choice, _ := choices[0].(map[string]any)
		message, _ := choice["message"].(map[string]any)
		if content, ok := message["content"].(string); ok {
			return content, nil
		}
		return "", ErrEmptyResponse
	}

	if content, ok := envelope["content"].([]any); ok {
		if len(content) == 0 {
			return "", ErrEmptyResponse
		}
		block, _ := content[0].(map[string]any)
		if text, ok := block["text"].(string); ok {
			return text, nil
		}
		return "", ErrEmptyResponse
	}

	if candidates, ok := envelope["candidates"].([]any); ok {
		if len(candidates) == 0 {
			return "", ErrEmptyResponse
		}
		candidate, _ := candidates[0].(map[string]any)
		content, _ := candidate["content"].(map[string]any)
		parts, _ := content["parts"].([]any)
		if len(parts) == 0 {
			return "", ErrEmptyResponse
		}
		part, _ := parts[0].(map[string]any)
		if text, ok := part["text"].(string); ok {
			return text, nil
		}
		return "", ErrEmptyResponse
	}

	return "", fmt.Errorf("%w: unrecognized response envelope from %s", ErrEmptyResponse, providerName)
}

// extractJSON strips a markdown code fence a model sometimes wraps its JSON
// output in, despite being asked not to.
func extractJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	return trimmed
}
