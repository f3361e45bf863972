package ai

import (
	"context"
	"fmt"

	"github.com/tbourn/go-wine-scanner/internal/config"
)

// New returns the client selected by cfg.Provider.
func New(ctx context.Context, cfg config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey)
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		return NewOpenAI(OpenAIOpts{BaseURL: cfg.OpenAIBaseURL, APIKey: cfg.OpenAIAPIKey}), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
