// Package nl2sql turns a natural language question into a candidate SELECT
// statement: prompt construction, the text-generation call and extraction of
// SQL from the reply.
package nl2sql

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

type GenerationRequest struct {
	Model     string
	MaxTokens int
	Prompt    string
}

// Generator is the boundary to the text-generation service. It returns the
// raw reply text.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type Config struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

func NewGenerator(cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderOpenAI, "":
		return NewOpenAIGenerator(OpenAIConfig{
			BaseURL:     cfg.BaseURL,
			APIKey:      cfg.APIKey,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		})
	case ProviderAnthropic:
		return NewAnthropicGenerator(AnthropicConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported generation provider %q", cfg.Provider)
	}
}
