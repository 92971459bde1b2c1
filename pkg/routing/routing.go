// Package routing maps monitored channels to the channel and language their
// messages are relayed into.
package routing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Route is one relay direction.
type Route struct {
	SourceChannelID string `json:"source_channel_id"`
	SourceLanguage  string `json:"source_language"`
	DestChannelID   string `json:"dest_channel_id"`
	DestLanguage    string `json:"dest_language"`
}

// Key identifies the route in logs and metrics.
func (r Route) Key() string {
	return r.SourceChannelID + "->" + r.DestChannelID
}

// Pair links two channels that relay into each other.
type Pair struct {
	ChannelA  string `json:"channel_a"  yaml:"channel_a"`
	LanguageA string `json:"language_a" yaml:"language_a"`
	ChannelB  string `json:"channel_b"  yaml:"channel_b"`
	LanguageB string `json:"language_b" yaml:"language_b"`
}

// Routes expands the pair into its two symmetric directions.
func (p Pair) Routes() [2]Route {
	return [2]Route{
		{SourceChannelID: p.ChannelA, SourceLanguage: p.LanguageA, DestChannelID: p.ChannelB, DestLanguage: p.LanguageB},
		{SourceChannelID: p.ChannelB, SourceLanguage: p.LanguageB, DestChannelID: p.ChannelA, DestLanguage: p.LanguageA},
	}
}

// Validate checks that the pair names two distinct channels and both languages.
func (p Pair) Validate() error {
	a, b := strings.TrimSpace(p.ChannelA), strings.TrimSpace(p.ChannelB)
	if a == "" || b == "" {
		return errors.New("both channel ids are required")
	}
	if a == b {
		return fmt.Errorf("channel %q cannot relay into itself", a)
	}
	if strings.TrimSpace(p.LanguageA) == "" || strings.TrimSpace(p.LanguageB) == "" {
		return errors.New("both languages are required")
	}
	return nil
}

// Table is an immutable channel id -> route lookup.
type Table struct {
	routes map[string]Route
}

// NewTable builds a table from route pairs. Every channel may appear in at
// most one pair.
func NewTable(pairs []Pair) (*Table, error) {
	t := &Table{routes: make(map[string]Route, len(pairs)*2)}
	for i, p := range pairs {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		for _, r := range p.Routes() {
			r.SourceChannelID = strings.TrimSpace(r.SourceChannelID)
			r.DestChannelID = strings.TrimSpace(r.DestChannelID)
			r.SourceLanguage = strings.TrimSpace(r.SourceLanguage)
			r.DestLanguage = strings.TrimSpace(r.DestLanguage)
			if _, dup := t.routes[r.SourceChannelID]; dup {
				return nil, fmt.Errorf("route %d: channel %q is already routed", i, r.SourceChannelID)
			}
			t.routes[r.SourceChannelID] = r
		}
	}
	return t, nil
}

// Resolve returns the route for a source channel.
func (t *Table) Resolve(channelID string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	r, ok := t.routes[channelID]
	return r, ok
}

// Channels returns the monitored channel ids in sorted order.
func (t *Table) Channels() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.routes))
	for id := range t.routes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}
