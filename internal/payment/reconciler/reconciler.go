package reconciler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// Machine-readable callback failure reasons carried in the redirect URL.
// No session exists on this path, so the reason travels as a query
// parameter instead of a flash message.
const (
	ReasonInvoiceNotFound = "invoice_not_found"
	ReasonUnknownGateway  = "unknown_gateway"
	ReasonDeclined        = "payment_declined"
	ReasonNotPaid         = "payment_not_completed"
	ReasonInvalid         = "invalid_callback"
	ReasonRecordFailed    = "payment_record_failed"
)

// gatewayFamilies mirrors the dispatcher's module-to-family mapping for
// the callback side.
var gatewayFamilies = map[string]string{
	"stripe":          "stripe",
	"stripe_checkout": "stripe",
	"stripeofficial":  "stripe",
	"sslcommerz":      "sslcommerz",
	"sslcommerz_aio":  "sslcommerz",
}

// Outcome is the result of reconciling one provider callback. The entry
// point is stateless: everything the user needs rides on RedirectURL.
type Outcome struct {
	Success     bool
	RedirectURL string
	Reason      string
}

// Reconciler consumes provider completion callbacks with at-most-once
// settlement per invoice. Providers may deliver success, IPN and
// user-redirect callbacks independently and more than once; the effect
// here must stay idempotent under that multiplicity.
type Reconciler struct {
	billing    domain.BillingClient
	registry   *adapters.Registry
	portalBase string
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// New builds a Reconciler. portalBase is this portal's public base URL,
// used to build the post-callback redirect.
func New(billing domain.BillingClient, registry *adapters.Registry, portalBase string, m *metrics.Metrics, log *zap.Logger) *Reconciler {
	return &Reconciler{
		billing:    billing,
		registry:   registry,
		portalBase: strings.TrimRight(portalBase, "/"),
		metrics:    m,
		log:        log.Named("payment.reconciler"),
	}
}

// Reconcile validates a provider callback and records the payment exactly
// once.
func (r *Reconciler) Reconcile(ctx context.Context, invoiceID int64, gateway string, req domain.CallbackRequest) Outcome {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	log := logger.WithContext(ctx, r.log).With(
		zap.Int64("invoice_id", invoiceID),
		zap.String("gateway", gateway),
	)

	invoice, err := r.billing.Invoice(ctx, invoiceID)
	if err != nil {
		r.count(gateway, "not_found")
		return r.failure(invoiceID, ReasonInvoiceNotFound)
	}
	if invoice.Status.Settled() {
		// Duplicate delivery after settlement: succeed without a second
		// record-payment call.
		r.count(gateway, "duplicate")
		return r.success(invoiceID)
	}

	family, ok := gatewayFamilies[gateway]
	if !ok {
		r.count(gateway, "unknown_gateway")
		return r.failure(invoiceID, ReasonUnknownGateway)
	}
	adapter, ok := r.registry.Adapter(family)
	if !ok {
		r.count(gateway, "unknown_gateway")
		return r.failure(invoiceID, ReasonUnknownGateway)
	}

	settled, err := adapter.ValidateCallback(ctx, invoice, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProviderDeclined):
			r.count(gateway, "declined")
			return r.failure(invoiceID, ReasonDeclined)
		case errors.Is(err, domain.ErrSessionNotPaid):
			r.count(gateway, "not_paid")
			return r.failure(invoiceID, ReasonNotPaid)
		default:
			log.Warn("callback_rejected",
				zap.String("method", req.Method),
				zap.Any("params", logger.RedactParams(req.Params)),
				zap.Error(err),
			)
			r.count(gateway, "invalid")
			return r.failure(invoiceID, ReasonInvalid)
		}
	}

	// Idempotency gate: re-read invoice status immediately before the
	// record call to minimize the duplicate window. The remote system is
	// expected to reject duplicate transaction ids on its side as well.
	current, err := r.billing.Invoice(ctx, invoiceID)
	if err == nil && current.Status.Settled() {
		r.count(gateway, "duplicate")
		return r.success(invoiceID)
	}

	record := domain.PaymentRecord{
		InvoiceID:     invoiceID,
		TransactionID: settled.TransactionID,
		Amount:        settled.Amount,
		Fee:           settled.Fee,
		Gateway:       settled.GatewayLabel,
	}
	if err := r.billing.RecordPayment(ctx, record); err != nil {
		log.Error("record_payment_failed",
			zap.String("transaction_id", settled.TransactionID),
			zap.Error(err),
		)
		r.count(gateway, "record_failed")
		return r.failure(invoiceID, ReasonRecordFailed)
	}

	log.Info("payment_recorded",
		zap.String("transaction_id", settled.TransactionID),
		zap.Float64("amount", settled.Amount),
		zap.Float64("fee", settled.Fee),
	)
	r.count(gateway, "settled")
	return r.success(invoiceID)
}

func (r *Reconciler) success(invoiceID int64) Outcome {
	return Outcome{
		Success:     true,
		RedirectURL: fmt.Sprintf("%s/invoices/%d?payment=success", r.portalBase, invoiceID),
	}
}

func (r *Reconciler) failure(invoiceID int64, reason string) Outcome {
	return Outcome{
		RedirectURL: fmt.Sprintf("%s/invoices/%d?payment=error&reason=%s", r.portalBase, invoiceID, url.QueryEscape(reason)),
		Reason:      reason,
	}
}

func (r *Reconciler) count(gateway, outcome string) {
	if r.metrics != nil {
		r.metrics.RecordCallback(gateway, outcome)
	}
}
