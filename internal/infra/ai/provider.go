package ai

import (
	"context"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/gpolens/internal/config"
	"github.com/bryanwahyu/gpolens/internal/domain/analysis"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/gemini"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/openai"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/throttle"
)

// NewOracle builds the configured provider wrapped in the shared rate limiter.
func NewOracle(ctx context.Context, cfg config.AI) (analysis.Oracle, error) {
	var base analysis.Oracle
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: API key is required (ai.apiKey or OPENAI_API_KEY)")
		}
		oc := goopenai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			oc.BaseURL = cfg.BaseURL
		}
		base = openai.NewClientWithConfig(oc, cfg.Model, cfg.MaxTokens)
	case "gemini":
		c, err := gemini.NewClient(ctx, cfg.APIKey, cfg.Model, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
	return throttle.New(base, cfg.RequestsPerMinute, cfg.CallTimeout), nil
}
