package translate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrModerationRejected means the input failed the content-safety check and
	// was never sent for translation.
	ErrModerationRejected = errors.New("translate: input failed moderation")
	// ErrTranslationUnavailable means the provider could not produce a
	// translation within the retry budget.
	ErrTranslationUnavailable = errors.New("translate: translation unavailable")
)

// ProviderError is returned by providers for failed API calls. StatusCode is
// zero when no HTTP response was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// errEmptyOutput marks a successful call that returned no text.
var errEmptyOutput = errors.New("provider returned empty output")

// IsTransient reports whether err is worth retrying: rate limits, request
// timeouts, 5xx responses, network failures and deadline expiry of a single
// call.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errEmptyOutput) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		switch {
		case pe.StatusCode == http.StatusTooManyRequests,
			pe.StatusCode == http.StatusRequestTimeout,
			pe.StatusCode == http.StatusConflict,
			pe.StatusCode >= 500:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// No status and no classifiable cause: a dropped connection or a decode
	// failure on a truncated body.
	return pe != nil
}
