package channels

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/tinyland-inc/babelrelay/pkg/logger"
)

const maxEventBody = 1 << 20

// EventsChannel receives the Slack Events API over HTTP. Mount it on the
// gateway router at the configured events path.
type EventsChannel struct {
	*BaseChannel
	signingSecret string
}

func NewEventsChannel(signingSecret string, handler Handler) *EventsChannel {
	if signingSecret == "" {
		logger.WarnC("slack-events", "No signing secret configured, requests will not be verified")
	}
	return &EventsChannel{
		BaseChannel:   NewBaseChannel("slack-events", handler),
		signingSecret: signingSecret,
	}
}

func (c *EventsChannel) Start(ctx context.Context) error {
	c.SetRunning(true)
	logger.InfoC(c.Name(), "Events API receiver ready")
	return nil
}

func (c *EventsChannel) Stop(ctx context.Context) error {
	c.SetRunning(false)
	return nil
}

func (c *EventsChannel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !c.IsRunning() {
		http.Error(w, "receiver stopped", http.StatusServiceUnavailable)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBody))
	if err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if c.signingSecret != "" {
		sv, err := slack.NewSecretsVerifier(r.Header, c.signingSecret)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := sv.Write(body); err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := sv.Ensure(); err != nil {
			logger.WarnCF(c.Name(), "Rejected request with bad signature", map[string]any{"error": err})
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "invalid event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "invalid challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
		return
	case slackevents.CallbackEvent:
		if retry := r.Header.Get("X-Slack-Retry-Num"); retry != "" {
			logger.DebugCF(c.Name(), "Redelivered event", map[string]any{
				"retry":  retry,
				"reason": r.Header.Get("X-Slack-Retry-Reason"),
			})
		}
		if ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			c.HandleMessageEvent(r.Context(), ev)
		}
	}

	w.WriteHeader(http.StatusOK)
}
