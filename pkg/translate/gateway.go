// Package translate wraps a translation provider with content moderation and
// bounded retry.
package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tinyland-inc/babelrelay/pkg/logger"
)

// Provider sends one instruction + text pair to a language model and returns
// its reply.
type Provider interface {
	Name() string
	Complete(ctx context.Context, instruction, text string) (string, error)
}

// Moderator checks text against a content-safety policy.
type Moderator interface {
	Flagged(ctx context.Context, text string) (bool, error)
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithModerator gates every translation behind m.
func WithModerator(m Moderator) Option {
	return func(g *Gateway) { g.moderator = m }
}

// WithMaxAttempts bounds the number of provider calls per translation.
func WithMaxAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.policy.maxAttempts = n
		}
	}
}

// WithRetryUnit sets the time unit of the linear backoff.
func WithRetryUnit(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.policy.unit = d
		}
	}
}

func withTimer(t backoff.Timer) Option {
	return func(g *Gateway) { g.policy.timer = t }
}

// Gateway is safe for concurrent use.
type Gateway struct {
	provider  Provider
	moderator Moderator
	policy    retryPolicy
}

func NewGateway(provider Provider, opts ...Option) *Gateway {
	g := &Gateway{
		provider: provider,
		policy: retryPolicy{
			maxAttempts: DefaultMaxAttempts,
			unit:        DefaultRetryUnit,
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Translate translates text into destLanguage. It fails with
// ErrModerationRejected when the moderator flags the input, and with
// ErrTranslationUnavailable when the provider keeps failing.
func (g *Gateway) Translate(ctx context.Context, sourceLanguage, destLanguage, text string) (string, error) {
	if g.moderator != nil {
		var flagged bool
		err := g.policy.run(ctx, func() error {
			var err error
			flagged, err = g.moderator.Flagged(ctx, text)
			return err
		}, g.logRetry("moderation"))
		if err != nil {
			return "", fmt.Errorf("%w: moderation check: %w", ErrTranslationUnavailable, err)
		}
		if flagged {
			return "", ErrModerationRejected
		}
	}

	instruction := BuildPrompt(destLanguage)
	var out string
	attempts := 0
	err := g.policy.run(ctx, func() error {
		attempts++
		reply, err := g.provider.Complete(ctx, instruction, text)
		if err != nil {
			return err
		}
		reply = strings.TrimSpace(reply)
		if reply == "" {
			return errEmptyOutput
		}
		out = reply
		return nil
	}, g.logRetry("translate"))
	if err != nil {
		logger.ErrorCF("translate", "Translation failed", map[string]any{
			"provider": g.provider.Name(),
			"from":     sourceLanguage,
			"to":       destLanguage,
			"attempts": attempts,
			"error":    err,
		})
		return "", fmt.Errorf("%w: %w", ErrTranslationUnavailable, err)
	}
	return out, nil
}

func (g *Gateway) logRetry(step string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		logger.WarnCF("translate", "Provider call failed, retrying", map[string]any{
			"step":     step,
			"provider": g.provider.Name(),
			"wait":     wait.String(),
			"error":    err,
		})
	}
}
