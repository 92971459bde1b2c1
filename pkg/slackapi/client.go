// Package slackapi is the outbound half of the Slack integration: posting
// relayed messages and looking up user profiles.
package slackapi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/ratelimit"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/users"
)

const (
	DefaultRateLimitRetries = 2
	MaxRateLimitRetries     = 5
)

// Client wraps the Slack Web API. Posts are throttled to the configured rate
// and retried a bounded number of times when Slack answers with a rate-limit
// error. Any other post failure is returned at once.
type Client struct {
	api              *slack.Client
	limiter          ratelimit.Limiter
	rateLimitRetries int
}

type Option func(*options)

type options struct {
	apiURL           string
	ratePerSecond    float64
	rateLimitRetries int
}

// WithAPIURL points the client at a different Web API base, e.g. a test
// server. The URL must end in a slash.
func WithAPIURL(url string) Option {
	return func(o *options) { o.apiURL = url }
}

// WithRate limits posts to rps per second. Zero or negative disables the
// limit.
func WithRate(rps float64) Option {
	return func(o *options) { o.ratePerSecond = rps }
}

// WithRateLimitRetries sets how often a rate-limited post is retried after
// waiting Retry-After. Zero makes every post failure terminal; values above
// MaxRateLimitRetries are capped.
func WithRateLimitRetries(n int) Option {
	return func(o *options) { o.rateLimitRetries = min(max(n, 0), MaxRateLimitRetries) }
}

func NewClient(botToken string, opts ...Option) *Client {
	o := options{rateLimitRetries: DefaultRateLimitRetries}
	for _, opt := range opts {
		opt(&o)
	}
	var apiOpts []slack.Option
	if o.apiURL != "" {
		apiOpts = append(apiOpts, slack.OptionAPIURL(o.apiURL))
	}
	return &Client{
		api:              slack.New(botToken, apiOpts...),
		limiter:          newLimiter(o.ratePerSecond),
		rateLimitRetries: o.rateLimitRetries,
	}
}

func newLimiter(rps float64) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	per := time.Duration(float64(time.Second) / rps)
	return ratelimit.New(1, ratelimit.Per(per), ratelimit.WithoutSlack)
}

// AuthTest verifies the bot token and returns the bot user id.
func (c *Client) AuthTest(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth.test: %w", err)
	}
	return resp.UserID, nil
}

// PostMessage posts msg and returns the new message timestamp.
func (c *Client) PostMessage(ctx context.Context, msg bus.OutboundMessage) (string, error) {
	if msg.ChatID == "" {
		return "", errors.New("slack post: channel id is empty")
	}
	opts := []slack.MsgOption{
		slack.MsgOptionText(msg.Content, false),
	}
	if msg.Username != "" {
		opts = append(opts, slack.MsgOptionUsername(msg.Username))
	}
	if msg.IconURL != "" {
		opts = append(opts, slack.MsgOptionIconURL(msg.IconURL))
	}
	if msg.ThreadID != "" {
		opts = append(opts, slack.MsgOptionTS(msg.ThreadID))
	}

	for attempt := 0; ; attempt++ {
		c.limiter.Take()
		_, ts, err := c.api.PostMessageContext(ctx, msg.ChatID, opts...)
		if err == nil {
			return ts, nil
		}

		var rle *slack.RateLimitedError
		if !errors.As(err, &rle) || attempt >= c.rateLimitRetries {
			return "", fmt.Errorf("slack post to %s: %w", msg.ChatID, err)
		}
		logger.WarnCF("slack", "Rate limited by Slack, waiting", map[string]any{
			"chat_id":     msg.ChatID,
			"retry_after": rle.RetryAfter.String(),
		})
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(rle.RetryAfter):
		}
	}
}

// GetUserProfile looks up userID. The display name wins over the account
// name and the 48px avatar over the original upload.
func (c *Client) GetUserProfile(ctx context.Context, userID string) (users.Profile, error) {
	u, err := c.api.GetUserInfoContext(ctx, userID)
	if err != nil {
		return users.Profile{}, fmt.Errorf("slack users.info %s: %w", userID, err)
	}
	return profileOf(u), nil
}

func profileOf(u *slack.User) users.Profile {
	p := users.Profile{DisplayName: strings.TrimSpace(u.Profile.DisplayName)}
	if p.DisplayName == "" {
		p.DisplayName = strings.TrimSpace(u.Name)
	}
	p.AvatarURL = u.Profile.Image48
	if p.AvatarURL == "" {
		p.AvatarURL = u.Profile.ImageOriginal
	}
	return p
}
