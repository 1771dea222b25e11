package domain

import "errors"

var (
	// ErrUseFallback signals that the adapter cannot complete a native
	// session and dispatch should degrade to the hosted billing page.
	ErrUseFallback = errors.New("use_fallback")
	// ErrNotConfigured means the requested provider has no usable
	// credentials in the remote configuration store.
	ErrNotConfigured = errors.New("gateway_not_configured")

	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrAlreadySettled   = errors.New("invoice_already_settled")
	ErrInvoiceNotDue    = errors.New("invoice_not_due")
	ErrInvalidCallback  = errors.New("invalid_callback")
	ErrProviderDeclined = errors.New("provider_declined")
	ErrSessionNotPaid   = errors.New("session_not_paid")
)
