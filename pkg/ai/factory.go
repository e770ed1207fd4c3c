package ai

import (
	"context"
	"fmt"
	"log"

	"broadrange-backend/pkg/gemini"
)

// DynamicConfig holds AI provider configuration. Ollama settings are read
// through getters so they can change at runtime.
type DynamicConfig struct {
	Provider ProviderType

	GeminiAPIKey string
	GeminiModel  string

	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

// NewTextGenerator picks the backend for cfg.Provider. "auto" uses Gemini
// with Ollama fallback when a Gemini key exists, otherwise Ollama alone.
func NewTextGenerator(ctx context.Context, cfg DynamicConfig) (TextGenerator, error) {
	ollama := NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)

	switch cfg.Provider {
	case ProviderGemini:
		g, err := gemini.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return g, nil

	case ProviderOllama:
		return ollama, nil

	default:
		if cfg.GeminiAPIKey == "" {
			log.Println("[AI] No Gemini key configured, using Ollama only")
			return ollama, nil
		}
		g, err := gemini.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewFallbackService(g, "Gemini", ollama, "Ollama"), nil
	}
}

// NewPlanGeneratorWithDynamicConfig builds the PlanGenerator used by the API.
func NewPlanGeneratorWithDynamicConfig(ctx context.Context, cfg DynamicConfig) (PlanGenerator, error) {
	if cfg.Provider == ProviderMock {
		return &MockPlanner{}, nil
	}
	if cfg.GetOllamaBaseURL == nil || cfg.GetOllamaModel == nil {
		return nil, fmt.Errorf("ollama getters are required")
	}

	gen, err := NewTextGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewPlanner(gen), nil
}
