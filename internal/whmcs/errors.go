package whmcs

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies remote billing API failures.
type ErrorKind string

const (
	// KindTransport covers connection-level failures. Retryable.
	KindTransport ErrorKind = "transport"
	// KindInvalidResponse covers 2xx responses whose body is not the
	// expected JSON shape. Treated as an outage signal, never retried.
	KindInvalidResponse ErrorKind = "invalid_response"
	// KindDomain covers well-formed remote errors. Deterministic, never
	// retried.
	KindDomain ErrorKind = "domain"
)

var (
	ErrTransport       = errors.New("transport_error")
	ErrInvalidResponse = errors.New("invalid_response")
	ErrDomain          = errors.New("domain_error")
)

// APIError is the error returned by Client.Call.
type APIError struct {
	Kind    ErrorKind
	Action  string
	Message string
	cause   error
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("whmcs %s: %s: %s", e.Action, e.Kind, e.Message)
	}
	return fmt.Sprintf("whmcs %s: %s", e.Action, e.Kind)
}

func (e *APIError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	switch e.Kind {
	case KindTransport:
		return ErrTransport
	case KindInvalidResponse:
		return ErrInvalidResponse
	default:
		return ErrDomain
	}
}

// Is lets callers match on the kind sentinels regardless of cause chaining.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrInvalidResponse:
		return e.Kind == KindInvalidResponse
	case ErrDomain:
		return e.Kind == KindDomain
	}
	return false
}

// UserMessage is the safe text to show an end user for this failure.
// Domain messages run through the phrase mapper; everything else is an
// availability problem the user cannot act on.
func (e *APIError) UserMessage() string {
	if e.Kind == KindDomain {
		return UserMessage(e.Message)
	}
	return "Unable to reach the billing system. Please try again later."
}

// IsNotFound reports whether the remote rejected the call because the
// requested record does not exist, as opposed to auth or permission
// failures.
func (e *APIError) IsNotFound() bool {
	return e.Kind == KindDomain && strings.Contains(strings.ToLower(e.Message), "not found")
}

func transportError(action string, cause error) *APIError {
	return &APIError{Kind: KindTransport, Action: action, Message: cause.Error(), cause: cause}
}

func invalidResponseError(action, message string) *APIError {
	return &APIError{Kind: KindInvalidResponse, Action: action, Message: message}
}

// domainError keeps the raw remote message; callers match on it and the
// mapper scrubs it before anything user-facing.
func domainError(action, rawMessage string) *APIError {
	return &APIError{Kind: KindDomain, Action: action, Message: rawMessage}
}

const genericInternalMessage = "The billing system reported an internal error. Please try again later."

// messageRules maps known remote error phrases to safe user-facing text.
// Matching is case-insensitive substring, first match wins.
var messageRules = []struct {
	needle  string
	message string
}{
	{"authentication failed", "Unable to reach the billing system. Please try again later."},
	{"invalid ip", "Unable to reach the billing system. Please try again later."},
	{"invoice id not found", "The requested invoice could not be found."},
	{"client not found", "The requested account could not be found."},
	{"not found", "The requested item could not be found."},
	{"you do not have permission", "You do not have permission to perform this action."},
	{"access denied", "You do not have permission to perform this action."},
}

// UserMessage maps a raw remote error message to user-safe text. Messages
// mentioning backend internals (sql, database) are always replaced.
func UserMessage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return genericInternalMessage
	}
	lowered := strings.ToLower(raw)
	if strings.Contains(lowered, "sql") || strings.Contains(lowered, "database") {
		return genericInternalMessage
	}
	for _, rule := range messageRules {
		if strings.Contains(lowered, rule.needle) {
			return rule.message
		}
	}
	return raw
}
