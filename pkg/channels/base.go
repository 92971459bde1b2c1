// Package channels receives platform events and hands normalized messages to
// the relay.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/slack-go/slack/slackevents"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/relay"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

// Handler accepts normalized messages. It must return without waiting on
// network calls: receivers acknowledge the platform only after it returns.
type Handler interface {
	HandleEvent(ctx context.Context, msg bus.InboundMessage) relay.Outcome
}

type BaseChannel struct {
	name    string
	handler Handler
	running atomic.Bool
}

func NewBaseChannel(name string, handler Handler) *BaseChannel {
	return &BaseChannel{name: name, handler: handler}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// HandleMessageEvent normalizes ev and passes it to the handler.
func (c *BaseChannel) HandleMessageEvent(ctx context.Context, ev *slackevents.MessageEvent) relay.Outcome {
	msg := MessageFromEvent(c.name, ev)
	outcome := c.handler.HandleEvent(ctx, msg)
	if outcome == relay.OutcomeDispatched {
		logger.DebugCF(c.name, "Message queued", map[string]any{
			"trace_id":   msg.TraceID,
			"chat_id":    msg.ChatID,
			"message_id": msg.MessageID,
		})
	}
	return outcome
}

// MessageFromEvent builds the relay's view of a Slack message event. Shared
// files become attachments named by their title, or file name when untitled.
func MessageFromEvent(channel string, ev *slackevents.MessageEvent) bus.InboundMessage {
	msg := bus.InboundMessage{
		TraceID:   uuid.NewString(),
		Channel:   channel,
		ChatID:    ev.Channel,
		SenderID:  ev.User,
		BotID:     ev.BotID,
		Subtype:   ev.SubType,
		Content:   ev.Text,
		ThreadID:  ev.ThreadTimeStamp,
		MessageID: ev.TimeStamp,
	}
	// Plain messages carry their files on the embedded Msg.
	if ev.Message == nil {
		return msg
	}
	for _, f := range ev.Message.Files {
		name := f.Title
		if name == "" {
			name = f.Name
		}
		msg.Attachments = append(msg.Attachments, bus.Attachment{Name: name, Permalink: f.Permalink})
	}
	return msg
}
