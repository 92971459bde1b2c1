package logger

import "regexp"

// Slack bot/user/app tokens and provider API keys.
var secretPattern = regexp.MustCompile(`\b(xox[abposr]-[A-Za-z0-9-]{8,}|xapp-[A-Za-z0-9-]{8,}|sk-[A-Za-z0-9_-]{8,})`)

// MaskSecrets replaces anything that looks like a credential with a fixed
// marker that keeps the token family visible.
func MaskSecrets(s string) string {
	return secretPattern.ReplaceAllStringFunc(s, func(tok string) string {
		for i := 0; i < len(tok); i++ {
			if tok[i] == '-' {
				return tok[:i+1] + "***"
			}
		}
		return "***"
	})
}
