package channels

import (
	"context"
	"errors"
	"sync"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/tinyland-inc/babelrelay/pkg/logger"
)

type acker interface {
	Ack(req socketmode.Request, payload ...interface{})
}

// SocketChannel receives events over a Socket Mode websocket, for
// deployments without a public HTTP endpoint.
type SocketChannel struct {
	*BaseChannel
	client *socketmode.Client
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSocketChannel(botToken, appToken, apiURL string, handler Handler) *SocketChannel {
	opts := []slack.Option{slack.OptionAppLevelToken(appToken)}
	if apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(apiURL))
	}
	api := slack.New(botToken, opts...)
	return &SocketChannel{
		BaseChannel: NewBaseChannel("slack-socket", handler),
		client:      socketmode.New(api),
	}
}

func (c *SocketChannel) Start(ctx context.Context) error {
	if c.IsRunning() {
		return errors.New("socket mode receiver already running")
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.SetRunning(true)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		if err := c.client.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.ErrorCF(c.Name(), "Socket Mode connection ended", map[string]any{"error": err})
		}
	}()
	go func() {
		defer c.wg.Done()
		c.consume(ctx, c.client.Events, c.client)
	}()
	logger.InfoC(c.Name(), "Socket Mode receiver started")
	return nil
}

func (c *SocketChannel) Stop(ctx context.Context) error {
	if !c.IsRunning() {
		return nil
	}
	c.SetRunning(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SocketChannel) consume(ctx context.Context, events <-chan socketmode.Event, ack acker) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			c.handleSocketEvent(ctx, evt, ack)
		}
	}
}

func (c *SocketChannel) handleSocketEvent(ctx context.Context, evt socketmode.Event, ack acker) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		logger.DebugC(c.Name(), "Connecting to Slack")
	case socketmode.EventTypeConnected:
		logger.InfoC(c.Name(), "Connected to Slack")
	case socketmode.EventTypeConnectionError:
		logger.WarnCF(c.Name(), "Socket Mode connection error", map[string]any{"data": evt.Data})
	case socketmode.EventTypeEventsAPI:
		if evt.Request != nil {
			ack.Ack(*evt.Request)
		}
		event, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok || event.Type != slackevents.CallbackEvent {
			return
		}
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			c.HandleMessageEvent(ctx, ev)
		}
	}
}
