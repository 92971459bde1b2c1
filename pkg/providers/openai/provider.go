package openaiprovider

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/tinyland-inc/babelrelay/pkg/translate"
)

const (
	providerName   = "openai"
	DefaultModel   = "gpt-4o-mini"
	defaultBaseURL = "https://api.openai.com/v1/"
)

// Provider translates with the Chat Completions API and screens input with
// the Moderations API.
type Provider struct {
	client      *openai.Client
	model       string
	temperature float64
	baseURL     string
}

func NewProvider(apiKey, apiBase, model string, temperature float64) *Provider {
	baseURL := normalizeBaseURL(apiBase)
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
	return NewProviderWithClient(&client, model, temperature)
}

// NewProviderWithClient leaves retries to the caller's configuration of
// client.
func NewProviderWithClient(client *openai.Client, model string, temperature float64) *Provider {
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

func (p *Provider) Complete(ctx context.Context, instruction, text string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(p.temperature),
	})
	if err != nil {
		return "", wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// Flagged reports whether the moderation model flags any category for text.
func (p *Provider) Flagged(ctx context.Context, text string) (bool, error) {
	resp, err := p.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.ModerationModelOmniModerationLatest,
	})
	if err != nil {
		return false, wrapError(err)
	}
	for _, r := range resp.Results {
		if r.Flagged {
			return true, nil
		}
	}
	return false, nil
}

func wrapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	pe := &translate.ProviderError{Provider: providerName, Err: err}
	var apiErr *openai.Error
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
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/"
}
