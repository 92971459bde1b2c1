// Package providers builds the translation gateway selected by configuration.
package providers

import (
	"fmt"

	anthropicprovider "github.com/tinyland-inc/babelrelay/pkg/providers/anthropic"
	openaiprovider "github.com/tinyland-inc/babelrelay/pkg/providers/openai"

	"github.com/tinyland-inc/babelrelay/pkg/config"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

// CreateProvider returns the configured translation provider and, when
// moderation is enabled and an OpenAI key is available, the moderator.
func CreateProvider(cfg *config.Config) (translate.Provider, translate.Moderator, error) {
	tc := cfg.Translation
	pc := cfg.ProviderSettings()
	var provider translate.Provider
	switch tc.Provider {
	case config.ProviderOpenAI:
		if pc.APIKey == "" {
			return nil, nil, fmt.Errorf("providers.openai.api_key is required for provider %q", tc.Provider)
		}
		provider = openaiprovider.NewProvider(pc.APIKey, pc.APIBase, tc.Model, tc.Temperature)
	case config.ProviderAnthropic:
		if pc.APIKey == "" {
			return nil, nil, fmt.Errorf("providers.anthropic.api_key is required for provider %q", tc.Provider)
		}
		provider = anthropicprovider.NewProvider(pc.APIKey, pc.APIBase, tc.Model, tc.Temperature)
	default:
		return nil, nil, fmt.Errorf("unknown translation provider %q", tc.Provider)
	}

	if !tc.Moderation {
		return provider, nil, nil
	}
	if p, ok := provider.(*openaiprovider.Provider); ok {
		return provider, p, nil
	}
	if key := cfg.Providers.OpenAI.APIKey; key != "" {
		return provider, openaiprovider.NewProvider(key, cfg.Providers.OpenAI.APIBase, "", 0), nil
	}
	logger.WarnCF("providers", "Moderation enabled but no OpenAI key configured, messages will not be screened",
		map[string]any{"provider": tc.Provider})
	return provider, nil, nil
}

// NewGateway wires the configured provider, moderator and retry policy.
func NewGateway(cfg *config.Config) (*translate.Gateway, error) {
	provider, moderator, err := CreateProvider(cfg)
	if err != nil {
		return nil, err
	}
	opts := []translate.Option{
		translate.WithMaxAttempts(cfg.Translation.MaxAttempts),
		translate.WithRetryUnit(cfg.Translation.RetryUnit.Duration),
	}
	if moderator != nil {
		opts = append(opts, translate.WithModerator(moderator))
	}
	logger.InfoCF("providers", "Translation provider ready", map[string]any{
		"provider":   provider.Name(),
		"moderation": moderator != nil,
	})
	return translate.NewGateway(provider, opts...), nil
}
