package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap/zaptest"
)

type fakeBilling struct {
	invoice    *domain.Invoice
	invoiceErr error
	ssoURL     string
	ssoErr     error

	methodUpdates []string
	recordCalls   int
}

func (b *fakeBilling) Invoice(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	if b.invoiceErr != nil {
		return nil, b.invoiceErr
	}
	return b.invoice, nil
}

func (b *fakeBilling) SetInvoicePaymentMethod(ctx context.Context, invoiceID int64, gateway string) error {
	b.methodUpdates = append(b.methodUpdates, gateway)
	return nil
}

func (b *fakeBilling) RecordPayment(ctx context.Context, record domain.PaymentRecord) error {
	b.recordCalls++
	return nil
}

func (b *fakeBilling) ApplyCredit(ctx context.Context, invoiceID int64, amount float64) error {
	return nil
}

func (b *fakeBilling) ClientCurrency(ctx context.Context, clientID int64) (string, error) {
	return "USD", nil
}

func (b *fakeBilling) SSORedirect(ctx context.Context, clientID, invoiceID int64) (string, error) {
	if b.ssoErr != nil {
		return "", b.ssoErr
	}
	return b.ssoURL, nil
}

type fakeAdapter struct {
	gateway  string
	target   *domain.RedirectTarget
	err      error
	sessions int
}

func (a *fakeAdapter) Gateway() string { return a.gateway }

func (a *fakeAdapter) CreateSession(ctx context.Context, invoice *domain.Invoice) (*domain.RedirectTarget, error) {
	a.sessions++
	return a.target, a.err
}

func (a *fakeAdapter) ValidateCallback(ctx context.Context, invoice *domain.Invoice, req domain.CallbackRequest) (*domain.SettledPayment, error) {
	return nil, domain.ErrInvalidCallback
}

func unpaidInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:           500,
		ClientID:     77,
		Balance:      25.00,
		CurrencyCode: "usd",
		Status:       domain.InvoiceStatusUnpaid,
	}
}

func newDispatcher(t *testing.T, billing *fakeBilling, adapterList ...domain.Adapter) *Dispatcher {
	t.Helper()
	return New(billing, adapters.NewRegistry(adapterList...), "https://billing.example.com", nil, zaptest.NewLogger(t))
}

func TestDispatchNativeSession(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice()}
	stripe := &fakeAdapter{
		gateway: "stripe",
		target:  &domain.RedirectTarget{Kind: domain.TargetRedirect, URL: "https://checkout/pay"},
	}
	d := newDispatcher(t, billing, stripe)

	target, err := d.Dispatch(context.Background(), 500, "stripe")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout/pay", target.URL)
	assert.False(t, target.Fallback)
	assert.Equal(t, []string{"stripe"}, billing.methodUpdates)
	assert.Equal(t, 1, stripe.sessions)
}

func TestDispatchModuleVariantRoutesToFamily(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice()}
	stripe := &fakeAdapter{
		gateway: "stripe",
		target:  &domain.RedirectTarget{Kind: domain.TargetRedirect, URL: "https://checkout/pay"},
	}
	d := newDispatcher(t, billing, stripe)

	_, err := d.Dispatch(context.Background(), 500, "Stripe_Checkout")
	require.NoError(t, err)
	assert.Equal(t, 1, stripe.sessions)
}

func TestDispatchUnknownGatewayFallsBackNeverErrors(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice(), ssoURL: "https://billing.example.com/sso?token=abc"}
	d := newDispatcher(t, billing)

	target, err := d.Dispatch(context.Background(), 500, "cryptopay")
	require.NoError(t, err)
	assert.True(t, target.Fallback)
	assert.Equal(t, "https://billing.example.com/sso?token=abc", target.URL)
	// The selected method is still recorded even for unmapped gateways.
	assert.Equal(t, []string{"cryptopay"}, billing.methodUpdates)
}

func TestDispatchAdapterFallbackError(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice(), ssoURL: "https://billing.example.com/sso?token=abc"}
	stripe := &fakeAdapter{gateway: "stripe", err: domain.ErrUseFallback}
	d := newDispatcher(t, billing, stripe)

	target, err := d.Dispatch(context.Background(), 500, "stripe")
	require.NoError(t, err)
	assert.True(t, target.Fallback)
}

func TestDispatchFallbackDegradesToStaticURLWhenSSOFails(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice(), ssoErr: errors.New("token issuance failed")}
	d := newDispatcher(t, billing)

	target, err := d.Dispatch(context.Background(), 500, "unknown_gateway")
	require.NoError(t, err)
	assert.True(t, target.Fallback)
	assert.Equal(t, "https://billing.example.com/viewinvoice.php?id=500", target.URL)
}

func TestDispatchSettledInvoiceRejected(t *testing.T) {
	invoice := unpaidInvoice()
	invoice.Status = domain.InvoiceStatusPaid
	billing := &fakeBilling{invoice: invoice}
	stripe := &fakeAdapter{gateway: "stripe"}
	d := newDispatcher(t, billing, stripe)

	_, err := d.Dispatch(context.Background(), 500, "stripe")
	require.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Zero(t, stripe.sessions, "no provider session for a settled invoice")
	assert.Empty(t, billing.methodUpdates)
}

func TestDispatchInvoiceNotFound(t *testing.T) {
	billing := &fakeBilling{invoiceErr: domain.ErrInvoiceNotFound}
	d := newDispatcher(t, billing)

	_, err := d.Dispatch(context.Background(), 999, "stripe")
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestDispatchMetricsSeparateBillingFailuresFromNotFound(t *testing.T) {
	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	require.NoError(t, err)

	billing := &fakeBilling{invoiceErr: errors.New("connection refused")}
	d := New(billing, adapters.NewRegistry(), "https://billing.example.com", m, zaptest.NewLogger(t))

	_, err = d.Dispatch(context.Background(), 500, "stripe")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrInvoiceNotFound)

	assert.Equal(t, 1.0, counterValue(t, registry, "orcus_payment_dispatch_total", map[string]string{"gateway": "stripe", "outcome": "billing_error"}))
	assert.Zero(t, counterValue(t, registry, "orcus_payment_dispatch_total", map[string]string{"gateway": "stripe", "outcome": "not_found"}))

	billing.invoiceErr = domain.ErrInvoiceNotFound
	_, err = d.Dispatch(context.Background(), 999, "stripe")
	require.ErrorIs(t, err, domain.ErrInvoiceNotFound)
	assert.Equal(t, 1.0, counterValue(t, registry, "orcus_payment_dispatch_total", map[string]string{"gateway": "stripe", "outcome": "not_found"}))
}

func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			matched := true
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					matched = false
					break
				}
			}
			if matched {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestDispatchBankTransferReloads(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice()}
	bank := &fakeAdapter{
		gateway: "banktransfer",
		target:  &domain.RedirectTarget{Kind: domain.TargetReload},
	}
	d := newDispatcher(t, billing, bank)

	target, err := d.Dispatch(context.Background(), 500, "mailin")
	require.NoError(t, err)
	assert.Equal(t, domain.TargetReload, target.Kind)
	assert.Equal(t, []string{"mailin"}, billing.methodUpdates)
}

func TestDispatchUnexpectedAdapterErrorPropagates(t *testing.T) {
	billing := &fakeBilling{invoice: unpaidInvoice()}
	stripe := &fakeAdapter{gateway: "stripe", err: errors.New("boom")}
	d := newDispatcher(t, billing, stripe)

	_, err := d.Dispatch(context.Background(), 500, "stripe")
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrUseFallback)
}
