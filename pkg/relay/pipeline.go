// Package relay filters incoming channel messages and relays the accepted
// ones, translated, into the paired channel.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tinyland-inc/babelrelay/pkg/bus"
	"github.com/tinyland-inc/babelrelay/pkg/dedup"
	"github.com/tinyland-inc/babelrelay/pkg/logger"
	"github.com/tinyland-inc/babelrelay/pkg/metering"
	"github.com/tinyland-inc/babelrelay/pkg/routing"
	"github.com/tinyland-inc/babelrelay/pkg/store"
	"github.com/tinyland-inc/babelrelay/pkg/translate"
	"github.com/tinyland-inc/babelrelay/pkg/users"
)

const (
	DefaultWorkers          = 4
	DefaultEventTimeout     = 2 * time.Minute
	DefaultModerationNotice = "This message has failed moderation"

	// ReplyPrefix marks a reply whose parent has no counterpart in the
	// destination channel.
	ReplyPrefix = "(Reply): "
)

var (
	// ErrPostFailed wraps messenger errors; the event is dropped.
	ErrPostFailed = errors.New("relay: post failed")
	// ErrDuplicate means the event was already relayed.
	ErrDuplicate = errors.New("relay: duplicate event")
)

// Translator converts text between languages.
type Translator interface {
	Translate(ctx context.Context, sourceLanguage, destLanguage, text string) (string, error)
}

// Messenger posts into a channel and returns the new post id.
type Messenger interface {
	PostMessage(ctx context.Context, msg bus.OutboundMessage) (string, error)
}

// UserResolver resolves author identities and mentions.
type UserResolver interface {
	ResolveProfile(ctx context.Context, userID string) users.Profile
	ExpandMentions(ctx context.Context, text string) string
}

var membershipSubtypes = map[string]bool{
	"channel_join":  true,
	"channel_leave": true,
	"group_join":    true,
	"group_leave":   true,
}

type Option func(*Pipeline)

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithEventTimeout bounds the processing time of one event.
func WithEventTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.eventTimeout = d
		}
	}
}

// WithBidirectionalThreads also records the reverse mapping of every post so
// replies made on either side of a route thread correctly.
func WithBidirectionalThreads(on bool) Option {
	return func(p *Pipeline) { p.bidirectional = on }
}

func WithModerationNotice(notice string) Option {
	return func(p *Pipeline) {
		if strings.TrimSpace(notice) != "" {
			p.moderationNotice = notice
		}
	}
}

func WithDedup(g dedup.Guard) Option {
	return func(p *Pipeline) { p.dedup = g }
}

func WithMeter(m *metering.MeterStore) Option {
	return func(p *Pipeline) { p.meter = m }
}

type Pipeline struct {
	routes     *routing.Table
	bus        *bus.MessageBus
	translator Translator
	messenger  Messenger
	users      UserResolver
	store      store.Store
	dedup      dedup.Guard
	meter      *metering.MeterStore

	workers          int
	eventTimeout     time.Duration
	bidirectional    bool
	moderationNotice string

	stopOnce sync.Once
}

func New(
	routes *routing.Table,
	msgBus *bus.MessageBus,
	translator Translator,
	messenger Messenger,
	resolver UserResolver,
	st store.Store,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		routes:           routes,
		bus:              msgBus,
		translator:       translator,
		messenger:        messenger,
		users:            resolver,
		store:            st,
		workers:          DefaultWorkers,
		eventTimeout:     DefaultEventTimeout,
		moderationNotice: DefaultModerationNotice,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// HandleEvent filters msg and queues accepted messages for the workers. It
// never blocks on network calls.
func (p *Pipeline) HandleEvent(ctx context.Context, msg bus.InboundMessage) Outcome {
	route, ok := p.routes.Resolve(msg.ChatID)
	if !ok {
		return OutcomeUnmonitored
	}
	if outcome, ok := filter(msg); !ok {
		logger.DebugCF("relay", "Message filtered", map[string]any{
			"trace_id": msg.TraceID,
			"chat_id":  msg.ChatID,
			"reason":   outcome.String(),
		})
		return outcome
	}

	msg.Dest = bus.Destination{
		ChatID:         route.DestChannelID,
		SourceLanguage: route.SourceLanguage,
		Language:       route.DestLanguage,
	}
	p.meter.Record(route.Key(), metering.Event{Outcome: metering.Received})

	switch err := p.bus.TryPublishInbound(msg); {
	case err == nil:
		return OutcomeDispatched
	case errors.Is(err, bus.ErrBusFull):
		logger.WarnCF("relay", "Relay queue full, dropping message", map[string]any{
			"trace_id":   msg.TraceID,
			"chat_id":    msg.ChatID,
			"message_id": msg.MessageID,
		})
		p.meter.Record(route.Key(), metering.Event{Outcome: metering.Dropped})
		return OutcomeQueueFull
	default:
		p.meter.Record(route.Key(), metering.Event{Outcome: metering.Dropped})
		return OutcomeClosed
	}
}

func filter(msg bus.InboundMessage) (Outcome, bool) {
	switch {
	case msg.SenderID == "":
		return OutcomeNoAuthor, false
	case msg.BotID != "" || msg.Subtype == "bot_message":
		return OutcomeBot, false
	case membershipSubtypes[msg.Subtype]:
		return OutcomeMembership, false
	case strings.TrimSpace(msg.Content) == "":
		return OutcomeEmpty, false
	}
	return OutcomeDispatched, true
}

// Run processes queued messages with the configured number of workers. It
// returns once the bus is closed and drained, or ctx is done.
func (p *Pipeline) Run(ctx context.Context) {
	logger.InfoCF("relay", "Relay workers started", map[string]any{
		"workers": p.workers,
		"routes":  p.routes.Len(),
	})
	var wg sync.WaitGroup
	for i := range p.workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.worker(ctx, id)
		}(i)
	}
	wg.Wait()
	logger.InfoC("relay", "Relay workers stopped")
}

// Stop closes the queue. Messages already queued are still relayed.
func (p *Pipeline) Stop() {
	p.stopOnce.Do(p.bus.Close)
}

func (p *Pipeline) worker(ctx context.Context, id int) {
	for {
		msg, ok := p.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		p.process(ctx, id, msg)
	}
}

func (p *Pipeline) process(ctx context.Context, worker int, msg bus.InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("relay", "Relay worker panic", map[string]any{
				"worker":   worker,
				"trace_id": msg.TraceID,
				"panic":    fmt.Sprint(r),
			})
			sentry.CurrentHub().Recover(r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.eventTimeout)
	defer cancel()

	routeKey := msg.ChatID + "->" + msg.Dest.ChatID
	err := p.Relay(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, ErrDuplicate):
		logger.DebugCF("relay", "Duplicate delivery ignored", map[string]any{
			"trace_id":   msg.TraceID,
			"message_id": msg.MessageID,
		})
		p.meter.Record(routeKey, metering.Event{Outcome: metering.Dropped})
	default:
		logger.ErrorCF("relay", "Relay failed", map[string]any{
			"trace_id":   msg.TraceID,
			"route":      routeKey,
			"message_id": msg.MessageID,
			"error":      err,
		})
		p.meter.Record(routeKey, metering.Event{Outcome: metering.Failed})
		sentry.CaptureException(fmt.Errorf("relay %s %s: %w", routeKey, msg.MessageID, err))
	}
}

// Relay translates msg and posts it into msg.Dest. msg must carry a resolved
// destination. A successful call is metered once, as relayed or moderated.
func (p *Pipeline) Relay(ctx context.Context, msg bus.InboundMessage) error {
	start := time.Now()
	routeKey := msg.ChatID + "->" + msg.Dest.ChatID
	fields := map[string]any{
		"trace_id":   msg.TraceID,
		"route":      routeKey,
		"message_id": msg.MessageID,
	}

	if p.dedup != nil {
		first, err := p.dedup.FirstSeen(ctx, msg.ChatID+":"+msg.MessageID)
		switch {
		case err != nil:
			logger.WarnCF("relay", "Dedup check failed, relaying anyway", withField(fields, "error", err))
		case !first:
			return ErrDuplicate
		}
	}

	text := p.users.ExpandMentions(ctx, msg.Content)
	author := p.users.ResolveProfile(ctx, msg.SenderID)

	body, err := p.translator.Translate(ctx, msg.Dest.SourceLanguage, msg.Dest.Language, text)
	moderated := false
	switch {
	case err == nil:
	case errors.Is(err, translate.ErrModerationRejected):
		logger.InfoCF("relay", "Message failed moderation", fields)
		body = p.moderationNotice
		moderated = true
	default:
		return err
	}

	if !moderated {
		body = appendAttachments(body, msg.Attachments)
	}

	out := bus.OutboundMessage{ChatID: msg.Dest.ChatID, Content: body}
	if msg.IsReply() {
		parent, found, err := p.store.LookupTranslatedID(ctx, msg.ThreadID)
		if err != nil {
			logger.WarnCF("relay", "Thread lookup failed, posting top-level", withField(fields, "error", err))
		}
		if found && err == nil {
			out.ThreadID = parent
		} else {
			out.Content = ReplyPrefix + out.Content
		}
	}
	if !author.IsUnknown() {
		out.Username = author.DisplayName
		out.IconURL = author.AvatarURL
	}

	postID, err := p.messenger.PostMessage(ctx, out)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPostFailed, err)
	}

	p.record(ctx, msg.MessageID, postID, fields)
	if p.bidirectional {
		p.record(ctx, postID, msg.MessageID, fields)
	}

	outcome := metering.Relayed
	if moderated {
		outcome = metering.Moderated
	}
	p.meter.Record(routeKey, metering.Event{Outcome: outcome, Latency: time.Since(start)})

	logger.InfoCF("relay", "Message relayed", withField(fields, "post_id", postID))
	return nil
}

func (p *Pipeline) record(ctx context.Context, sourceID, translatedID string, fields map[string]any) {
	if err := p.store.RecordMapping(ctx, sourceID, translatedID); err != nil {
		logger.ErrorCF("relay", "Failed to record identity mapping", withField(fields, "error", err))
		sentry.CaptureException(fmt.Errorf("record mapping %s -> %s: %w", sourceID, translatedID, err))
	}
}

func appendAttachments(body string, files []bus.Attachment) string {
	if len(files) == 0 {
		return body
	}
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n")
	for _, f := range files {
		sb.WriteString("\n")
		sb.WriteString(f.Name)
		sb.WriteString(" (")
		sb.WriteString(f.Permalink)
		sb.WriteString(")")
	}
	return sb.String()
}

func withField(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}
