package anthropicprovider

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

const (
	providerName     = "anthropic"
	defaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-sonnet-4.6"
	defaultMaxTokens = 4096
)

type Provider struct {
	client      *anthropic.Client
	model       string
	temperature float64
	baseURL     string
}

func NewProvider(apiKey, apiBase, model string, temperature float64) *Provider {
	baseURL := normalizeBaseURL(apiBase)
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	p := NewProviderWithClient(&client, model, temperature)
	p.baseURL = baseURL
	return p
}

func NewProviderWithClient(client *anthropic.Client, model string, temperature float64) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		client:      client,
		model:       model,
		temperature: temperature,
		baseURL:     defaultBaseURL,
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Model() string { return p.model }

func (p *Provider) BaseURL() string { return p.baseURL }

func (p *Provider) Complete(ctx context.Context, instruction, text string) (string, error) {
	resp, err := p.client.Messages.New(ctx, buildParams(p.model, p.temperature, instruction, text))
	if err != nil {
		return "", wrapError(err)
	}
	return responseText(resp), nil
}

func buildParams(model string, temperature float64, instruction, text string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: defaultMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
		Temperature: anthropic.Float(temperature),
	}
	if instruction != "" {
		params.System = []anthropic.TextBlockParam{{Text: instruction}}
	}
	return params
}

// responseText concatenates the text blocks of resp.
func responseText(resp *anthropic.Message) string {
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	return sb.String()
}

func wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &translate.ProviderError{Provider: providerName, Err: err}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}

func normalizeBaseURL(apiBase string) string {
	base := strings.TrimSpace(apiBase)
	if base == "" {
		return defaultBaseURL
	}

	base = strings.TrimRight(base, "/")
	if b, ok := strings.CutSuffix(base, "/v1"); ok {
		base = b
	}
	if base == "" {
		return defaultBaseURL
	}

	return base
}
