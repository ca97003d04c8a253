package logging

import (
	"log/slog"
	"strings"
)

const redactedValue = "[redacted]"

// Substrings that mark a variable or attribute as carrying a credential. The
// project .env usually holds Hugging Face and API tokens.
var secretMarkers = []string{"token", "secret", "password", "passwd", "api_key", "apikey", "credential"}

// IsSecretKey reports whether key names a credential.
func IsSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Redact masks value when key names a credential. Empty values stay empty so
// "unset" remains visible.
func Redact(key, value string) string {
	if value == "" || !IsSecretKey(key) {
		return value
	}
	return redactedValue
}

func redactAttr(attr slog.Attr) slog.Attr {
	if attr.Value.Kind() == slog.KindGroup || !IsSecretKey(attr.Key) {
		return attr
	}
	attr.Value = slog.StringValue(redactedValue)
	return attr
}
