package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackService routes prompts to a primary provider and falls back to a
// secondary one. Gemini is primary when configured since its schedules are
// more reliable; Ollama covers quota exhaustion and outages.
type FallbackService struct {
	primary       TextGenerator
	primaryName   string
	secondary     TextGenerator
	secondaryName string
}

// NewFallbackService creates a new fallback service. Either provider may be nil.
func NewFallbackService(primary TextGenerator, primaryName string, secondary TextGenerator, secondaryName string) *FallbackService {
	return &FallbackService{
		primary:       primary,
		primaryName:   primaryName,
		secondary:     secondary,
		secondaryName: secondaryName,
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	return containsAny(err.Error(),
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"EOF",
	)
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	return containsAny(err.Error(),
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"RESOURCE_EXHAUSTED",
	)
}

func containsAny(s string, indicators ...string) bool {
	s = strings.ToLower(s)
	for _, indicator := range indicators {
		if strings.Contains(s, strings.ToLower(indicator)) {
			return true
		}
	}
	return false
}

// GenerateText tries the primary provider, then the secondary. If the
// secondary is unreachable and the primary failed only on quota, the
// primary gets one more attempt.
func (f *FallbackService) GenerateText(ctx context.Context, prompt string) (string, error) {
	var primaryErr error
	if f.primary != nil {
		result, err := f.primary.GenerateText(ctx, prompt)
		if err == nil {
			return result, nil
		}
		primaryErr = err

		if isQuotaError(err) {
			log.Printf("[AI] %s quota exhausted: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		} else {
			log.Printf("[AI] %s error: %v, falling back to %s", f.primaryName, err, f.secondaryName)
		}
	}

	if f.secondary != nil {
		result, err := f.secondary.GenerateText(ctx, prompt)
		if err == nil {
			log.Printf("[AI] %s generation successful", f.secondaryName)
			return result, nil
		}

		if isConnectionError(err) && f.primary != nil && isQuotaError(primaryErr) {
			log.Printf("[AI] %s connection failed: %v, retrying %s", f.secondaryName, err, f.primaryName)
			return f.primary.GenerateText(ctx, prompt)
		}

		return "", fmt.Errorf("%s generation failed: %w", f.secondaryName, err)
	}

	if primaryErr != nil {
		return "", fmt.Errorf("%s generation failed: %w", f.primaryName, primaryErr)
	}
	return "", fmt.Errorf("no AI provider available")
}
