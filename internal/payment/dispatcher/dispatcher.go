package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// gatewayTable maps remote gateway module names, case-insensitively, to
// the adapter family serving them. Unmapped gateways route to the SSO
// fallback: an unrecognized provider must never fail the checkout.
var gatewayTable = map[string]string{
	"stripe":          "stripe",
	"stripe_checkout": "stripe",
	"stripeofficial":  "stripe",
	"sslcommerz":      "sslcommerz",
	"sslcommerz_aio":  "sslcommerz",
	"banktransfer":    "banktransfer",
	"mailin":          "banktransfer",
}

// Dispatcher orchestrates a payment attempt: validates the invoice,
// selects the adapter for the requested gateway and returns a redirect
// target, degrading to the hosted billing page when a native session
// cannot be completed.
type Dispatcher struct {
	billing   domain.BillingClient
	registry  *adapters.Registry
	portalURL string
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// New builds a Dispatcher. portalURL is the remote billing system's
// public base, used for the terminal unsigned fallback.
func New(billing domain.BillingClient, registry *adapters.Registry, portalURL string, m *metrics.Metrics, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		billing:   billing,
		registry:  registry,
		portalURL: strings.TrimRight(portalURL, "/"),
		metrics:   m,
		log:       log.Named("payment.dispatcher"),
	}
}

// Dispatch runs one payment attempt for the invoice and gateway.
func (d *Dispatcher) Dispatch(ctx context.Context, invoiceID int64, gateway string) (*domain.RedirectTarget, error) {
	gateway = strings.ToLower(strings.TrimSpace(gateway))
	log := logger.WithContext(ctx, d.log).With(
		zap.Int64("invoice_id", invoiceID),
		zap.String("gateway", gateway),
	)

	invoice, err := d.billing.Invoice(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			d.count(gateway, "not_found")
			return nil, domain.ErrInvoiceNotFound
		}
		d.count(gateway, "billing_error")
		return nil, err
	}
	if !invoice.Status.Payable() {
		d.count(gateway, "already_settled")
		return nil, domain.ErrAlreadySettled
	}

	// Recorded before any adapter runs so the remote system's own UI
	// reflects the selection even when the attempt fails over to SSO.
	if err := d.billing.SetInvoicePaymentMethod(ctx, invoiceID, gateway); err != nil {
		log.Warn("payment_method_update_failed", zap.Error(err))
	}

	family, mapped := gatewayTable[gateway]
	if !mapped {
		log.Info("gateway_unmapped_using_fallback")
		d.count(gateway, "fallback")
		return d.fallback(ctx, invoice), nil
	}
	adapter, ok := d.registry.Adapter(family)
	if !ok {
		d.count(gateway, "fallback")
		return d.fallback(ctx, invoice), nil
	}

	target, err := adapter.CreateSession(ctx, invoice)
	if err != nil {
		if errors.Is(err, domain.ErrUseFallback) || errors.Is(err, domain.ErrNotConfigured) {
			log.Info("native_session_unavailable_using_fallback")
			d.count(gateway, "fallback")
			return d.fallback(ctx, invoice), nil
		}
		d.count(gateway, "error")
		return nil, err
	}

	if target.Kind == domain.TargetReload {
		d.count(gateway, "manual")
	} else {
		d.count(gateway, "native")
	}
	return target, nil
}

// fallback redirects to the hosted billing page through a short-lived SSO
// link deep-linked to the invoice. When token issuance itself fails, it
// degrades to the static unsigned invoice URL: dispatch never terminates
// in a dead end.
func (d *Dispatcher) fallback(ctx context.Context, invoice *domain.Invoice) *domain.RedirectTarget {
	redirect, err := d.billing.SSORedirect(ctx, invoice.ClientID, invoice.ID)
	if err != nil {
		logger.WithContext(ctx, d.log).Warn("sso_token_failed_using_static_url",
			zap.Int64("invoice_id", invoice.ID),
			zap.Error(err),
		)
		redirect = fmt.Sprintf("%s/viewinvoice.php?id=%d", d.portalURL, invoice.ID)
	}
	return &domain.RedirectTarget{
		Kind:     domain.TargetRedirect,
		URL:      redirect,
		Fallback: true,
	}
}

func (d *Dispatcher) count(gateway, outcome string) {
	if d.metrics != nil {
		d.metrics.RecordDispatch(gateway, outcome)
	}
}
