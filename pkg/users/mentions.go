package users

import (
	"context"
	"strings"
)

const (
	mentionOpen  = "<@"
	mentionClose = ">"
)

// ExpandMentions rewrites every <@USERID> token in text to @displayName.
//
// The scan is a single left-to-right pass over non-overlapping tokens and
// never rescans inserted names. When an opening marker has no closing marker
// the scan stops: the marker becomes "@" and the rest of the text is kept
// verbatim. Slack's labelled form <@U123|name> is looked up by the id part.
func (r *Resolver) ExpandMentions(ctx context.Context, text string) string {
	if !strings.Contains(text, mentionOpen) {
		return text
	}

	var sb strings.Builder
	sb.Grow(len(text))
	rest := text
	for {
		loc := strings.Index(rest, mentionOpen)
		if loc == -1 {
			break
		}
		sb.WriteString(rest[:loc])
		sb.WriteString("@")
		rest = rest[loc+len(mentionOpen):]

		end := strings.Index(rest, mentionClose)
		if end == -1 {
			break
		}
		userID := rest[:end]
		rest = rest[end+len(mentionClose):]

		if id, _, ok := strings.Cut(userID, "|"); ok {
			userID = id
		}
		sb.WriteString(r.ResolveProfile(ctx, userID).DisplayName)
	}
	sb.WriteString(rest)
	return sb.String()
}
