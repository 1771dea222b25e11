package logger

import (
	"net/url"
	"strings"
)

// RedactionMarker replaces sensitive values in emitted log records.
const RedactionMarker = "[redacted]"

var sensitiveParams = []string{
	"password",
	"password2",
	"cardnum",
	"cardcvv",
	"identifier",
	"secret",
	"accesskey",
	"token",
}

// RedactParams returns a copy of params with sensitive fields replaced by
// the redaction marker. The input map is never mutated.
func RedactParams(params map[string]string) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, value := range params {
		if isSensitiveParam(key) {
			out[key] = RedactionMarker
			continue
		}
		out[key] = value
	}
	return out
}

// RedactValues redacts url.Values the same way as RedactParams.
func RedactValues(values url.Values) map[string]string {
	if values == nil {
		return nil
	}
	out := make(map[string]string, len(values))
	for key, entries := range values {
		if isSensitiveParam(key) {
			out[key] = RedactionMarker
			continue
		}
		out[key] = strings.Join(entries, ",")
	}
	return out
}

func isSensitiveParam(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "_", "")
	key = strings.ReplaceAll(key, "-", "")
	for _, needle := range sensitiveParams {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
