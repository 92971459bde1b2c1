// Package users resolves platform user ids into display identities and
// expands raw user mentions embedded in message text.
package users

import (
	"context"
	"strings"

	"github.com/tinyland-inc/babelrelay/pkg/logger"
)

// UnknownName is shown when a user cannot be resolved.
const UnknownName = "-unknown-"

// Profile is the display identity of a user.
type Profile struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Unknown is the sentinel profile returned when a lookup fails.
var Unknown = Profile{DisplayName: UnknownName}

// IsUnknown reports whether p is the lookup-failure sentinel.
func (p Profile) IsUnknown() bool {
	return p.DisplayName == UnknownName
}

// ProfileFetcher looks a user up on the messaging platform.
type ProfileFetcher interface {
	GetUserProfile(ctx context.Context, userID string) (Profile, error)
}

// Resolver turns user ids into profiles. Lookups are best effort: failures
// degrade to Unknown and never surface as errors.
type Resolver struct {
	fetcher ProfileFetcher
}

func NewResolver(fetcher ProfileFetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// ResolveProfile returns the profile for userID, or Unknown when the lookup
// fails or the response carries no usable name.
func (r *Resolver) ResolveProfile(ctx context.Context, userID string) Profile {
	userID = strings.TrimSpace(userID)
	if userID == "" || r == nil || r.fetcher == nil {
		return Unknown
	}
	p, err := r.fetcher.GetUserProfile(ctx, userID)
	if err != nil {
		logger.WarnCF("users", "Profile lookup failed", map[string]any{
			"user_id": userID,
			"error":   err,
		})
		return Unknown
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		logger.DebugCF("users", "Profile has no display name", map[string]any{"user_id": userID})
		return Profile{DisplayName: UnknownName, AvatarURL: p.AvatarURL}
	}
	return p
}
