package domain

import (
	"strings"
	"time"
)

// InvoiceStatus mirrors the remote billing system's invoice states.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid         InvoiceStatus = "Unpaid"
	InvoiceStatusPaid           InvoiceStatus = "Paid"
	InvoiceStatusOverdue        InvoiceStatus = "Overdue"
	InvoiceStatusCancelled      InvoiceStatus = "Cancelled"
	InvoiceStatusRefunded       InvoiceStatus = "Refunded"
	InvoiceStatusPaymentPending InvoiceStatus = "Payment Pending"
)

// ParseInvoiceStatus normalizes the remote status string.
func ParseInvoiceStatus(raw string) InvoiceStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "unpaid":
		return InvoiceStatusUnpaid
	case "paid":
		return InvoiceStatusPaid
	case "overdue":
		return InvoiceStatusOverdue
	case "cancelled", "canceled":
		return InvoiceStatusCancelled
	case "refunded":
		return InvoiceStatusRefunded
	case "payment pending", "paymentpending":
		return InvoiceStatusPaymentPending
	default:
		return InvoiceStatus(strings.TrimSpace(raw))
	}
}

// Settled reports whether the invoice no longer accepts payment.
func (s InvoiceStatus) Settled() bool {
	switch s {
	case InvoiceStatusPaid, InvoiceStatusCancelled, InvoiceStatusRefunded:
		return true
	default:
		return false
	}
}

// Payable reports whether a new payment attempt may be dispatched.
func (s InvoiceStatus) Payable() bool {
	switch s {
	case InvoiceStatusUnpaid, InvoiceStatusOverdue, InvoiceStatusPaymentPending:
		return true
	default:
		return false
	}
}

// Invoice is a read-only view of a remote invoice. The remote billing
// system stays the system of record; this is never persisted locally.
type Invoice struct {
	ID           int64
	ClientID     int64
	Balance      float64
	Total        float64
	CurrencyCode string
	// CurrencyPrefix carries the display symbol ("$", "৳", sometimes a
	// bare ISO code) used to infer the currency when CurrencyCode is
	// absent.
	CurrencyPrefix string
	Status         InvoiceStatus
	PaymentMethod  string
}

// MinorUnits returns the outstanding balance in integer cents.
func (i *Invoice) MinorUnits() int64 {
	if i == nil || i.Balance <= 0 {
		return 0
	}
	return int64(i.Balance*100 + 0.5)
}

// GatewayConfig is a resolved provider configuration.
type GatewayConfig struct {
	// Module is the normalized lower-case module name the settings were
	// found under.
	Module   string
	TestMode bool
	Settings map[string]string
}

// First returns the first present, non-empty value among candidate keys.
func (g *GatewayConfig) First(keys ...string) string {
	if g == nil {
		return ""
	}
	for _, key := range keys {
		if value := strings.TrimSpace(g.Settings[key]); value != "" {
			return value
		}
	}
	return ""
}

// TargetKind distinguishes dispatch outcomes presented to the caller.
type TargetKind string

const (
	// TargetRedirect sends the user to an external checkout URL.
	TargetRedirect TargetKind = "redirect"
	// TargetReload keeps the user on the invoice page; the page instructs
	// them how to pay (manual bank transfer).
	TargetReload TargetKind = "reload"
)

// RedirectTarget is the successful outcome of a dispatch.
type RedirectTarget struct {
	Kind TargetKind
	URL  string
	// Fallback marks that the target is the hosted billing page rather
	// than a native provider session.
	Fallback bool
}

// SettledPayment is a validated, completed provider payment ready to be
// recorded against the invoice.
type SettledPayment struct {
	InvoiceID     int64
	ClientID      int64
	TransactionID string
	Amount        float64
	Fee           float64
	Currency      string
	GatewayLabel  string
}

// PaymentRecord is the record-payment call issued to the remote system.
type PaymentRecord struct {
	InvoiceID     int64
	TransactionID string
	Amount        float64
	Fee           float64
	Gateway       string
	Date          time.Time
}

// CallbackRequest carries everything a provider callback delivered. The
// callback path is stateless: all correlation data must be in here or be
// re-derivable from the provider's own session object.
type CallbackRequest struct {
	Method string
	Params map[string]string
}

// Param returns a single callback parameter, trimmed.
func (r CallbackRequest) Param(key string) string {
	if r.Params == nil {
		return ""
	}
	return strings.TrimSpace(r.Params[key])
}
