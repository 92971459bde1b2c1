package bus

// Attachment is a file shared alongside a message.
type Attachment struct {
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
}

// Destination is the resolved far side of a relay route.
type Destination struct {
	ChatID         string `json:"chat_id"`
	SourceLanguage string `json:"source_language"`
	Language       string `json:"language"`
}

// InboundMessage is a normalized platform message event. It is built once by a
// channel receiver and never mutated after it is queued.
type InboundMessage struct {
	TraceID     string       `json:"trace_id"`
	Channel     string       `json:"channel"`             // receiving transport, e.g. "slack-events"
	ChatID      string       `json:"chat_id"`             // source channel id
	SenderID    string       `json:"sender_id,omitempty"` // empty for system messages
	BotID       string       `json:"bot_id,omitempty"`
	Subtype     string       `json:"subtype,omitempty"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty"` // parent message id for replies
	MessageID   string       `json:"message_id"`
	Dest        Destination  `json:"dest"`
}

// IsReply reports whether the message belongs to a thread started by another
// message.
func (m InboundMessage) IsReply() bool {
	return m.ThreadID != "" && m.ThreadID != m.MessageID
}

// OutboundMessage is a post request for the destination channel.
type OutboundMessage struct {
	ChatID   string `json:"chat_id"`
	Content  string `json:"content"`
	Username string `json:"username,omitempty"`
	IconURL  string `json:"icon_url,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}
