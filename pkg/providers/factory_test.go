package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/babelrelay/pkg/config"
)

func TestCreateProvider(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Config)
		wantName      string
		wantModerator bool
		wantErr       bool
	}{
		{
			name:          "openai moderates itself",
			mutate:        func(c *config.Config) { c.Providers.OpenAI.APIKey = "sk-1" },
			wantName:      "openai",
			wantModerator: true,
		},
		{
			name: "openai without moderation",
			mutate: func(c *config.Config) {
				c.Providers.OpenAI.APIKey = "sk-1"
				c.Translation.Moderation = false
			},
			wantName: "openai",
		},
		{
			name: "anthropic with openai moderation",
			mutate: func(c *config.Config) {
				c.Translation.Provider = config.ProviderAnthropic
				c.Providers.Anthropic.APIKey = "ak"
				c.Providers.OpenAI.APIKey = "sk-1"
			},
			wantName:      "anthropic",
			wantModerator: true,
		},
		{
			name: "anthropic without moderator key",
			mutate: func(c *config.Config) {
				c.Translation.Provider = config.ProviderAnthropic
				c.Providers.Anthropic.APIKey = "ak"
			},
			wantName: "anthropic",
		},
		{
			name:    "missing key",
			mutate:  func(c *config.Config) {},
			wantErr: true,
		},
		{
			name: "anthropic ignores the openai key",
			mutate: func(c *config.Config) {
				c.Translation.Provider = config.ProviderAnthropic
				c.Providers.OpenAI.APIKey = "sk-1"
			},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *config.Config) { c.Translation.Provider = "hf" },
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			p, m, err := CreateProvider(cfg)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
			assert.Equal(t, tt.wantModerator, m != nil)
		})
	}
}

func TestNewGateway(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewGateway(cfg)
	require.Error(t, err)

	cfg.Providers.OpenAI.APIKey = "sk-1"
	gw, err := NewGateway(cfg)
	require.NoError(t, err)
	assert.NotNil(t, gw)
}
