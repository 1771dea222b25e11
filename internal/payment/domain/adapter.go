package domain

import (
	"context"
)

// Adapter builds a payment session for one provider family and validates
// a completed payment for that family.
type Adapter interface {
	// Gateway is the canonical lower-case name the adapter serves.
	Gateway() string
	// CreateSession builds a provider checkout session for the invoice.
	// Returns ErrUseFallback when the provider cannot serve a native
	// session and the hosted billing page should be used instead.
	CreateSession(ctx context.Context, invoice *Invoice) (*RedirectTarget, error)
	// ValidateCallback re-validates a provider completion callback with
	// the provider itself and returns the settlement to record. Client
	// supplied status fields are never trusted alone.
	ValidateCallback(ctx context.Context, invoice *Invoice, req CallbackRequest) (*SettledPayment, error)
}

// CredentialResolver resolves provider configuration from the remote
// gateway-configuration store. A nil config with nil error means the
// provider is not configured; callers must not treat that as a failure.
type CredentialResolver interface {
	Resolve(ctx context.Context, family string) (*GatewayConfig, error)
	Invalidate(family string)
}

// BillingClient is the subset of the remote billing API the payment flow
// needs. The concrete implementation lives in the whmcs package.
type BillingClient interface {
	Invoice(ctx context.Context, invoiceID int64) (*Invoice, error)
	SetInvoicePaymentMethod(ctx context.Context, invoiceID int64, gateway string) error
	RecordPayment(ctx context.Context, record PaymentRecord) error
	ApplyCredit(ctx context.Context, invoiceID int64, amount float64) error
	ClientCurrency(ctx context.Context, clientID int64) (string, error)
	SSORedirect(ctx context.Context, clientID, invoiceID int64) (string, error)
}
