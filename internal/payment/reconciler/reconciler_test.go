package reconciler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// settlingBilling flips the invoice to Paid once a payment is recorded,
// the way the remote system would.
type settlingBilling struct {
	invoice    *domain.Invoice
	invoiceErr error
	recordErr  error

	records []domain.PaymentRecord
}

func (b *settlingBilling) Invoice(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	if b.invoiceErr != nil {
		return nil, b.invoiceErr
	}
	copied := *b.invoice
	return &copied, nil
}

func (b *settlingBilling) SetInvoicePaymentMethod(ctx context.Context, invoiceID int64, gateway string) error {
	return nil
}

func (b *settlingBilling) RecordPayment(ctx context.Context, record domain.PaymentRecord) error {
	if b.recordErr != nil {
		return b.recordErr
	}
	b.records = append(b.records, record)
	b.invoice.Status = domain.InvoiceStatusPaid
	b.invoice.Balance = 0
	return nil
}

func (b *settlingBilling) ApplyCredit(ctx context.Context, invoiceID int64, amount float64) error {
	return nil
}

func (b *settlingBilling) ClientCurrency(ctx context.Context, clientID int64) (string, error) {
	return "USD", nil
}

func (b *settlingBilling) SSORedirect(ctx context.Context, clientID, invoiceID int64) (string, error) {
	return "", errors.New("not used")
}

type validatingAdapter struct {
	gateway string
	settled *domain.SettledPayment
	err     error
	calls   int
}

func (a *validatingAdapter) Gateway() string { return a.gateway }

func (a *validatingAdapter) CreateSession(ctx context.Context, invoice *domain.Invoice) (*domain.RedirectTarget, error) {
	return nil, domain.ErrUseFallback
}

func (a *validatingAdapter) ValidateCallback(ctx context.Context, invoice *domain.Invoice, req domain.CallbackRequest) (*domain.SettledPayment, error) {
	a.calls++
	return a.settled, a.err
}

func unpaidInvoice() *domain.Invoice {
	return &domain.Invoice{
		ID:       500,
		ClientID: 77,
		Balance:  25.00,
		Status:   domain.InvoiceStatusUnpaid,
	}
}

func settlement() *domain.SettledPayment {
	return &domain.SettledPayment{
		InvoiceID:     500,
		ClientID:      77,
		TransactionID: "pi_abc",
		Amount:        25.00,
		Fee:           1.03,
		Currency:      "usd",
		GatewayLabel:  "Stripe",
	}
}

func newReconciler(t *testing.T, billing *settlingBilling, adapterList ...domain.Adapter) *Reconciler {
	t.Helper()
	return New(billing, adapters.NewRegistry(adapterList...), "https://portal.example.com", nil, zaptest.NewLogger(t))
}

func TestReconcileRecordsPaymentOnce(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	stripe := &validatingAdapter{gateway: "stripe", settled: settlement()}
	r := newReconciler(t, billing, stripe)

	req := domain.CallbackRequest{Method: "GET", Params: map[string]string{"session_id": "cs_1"}}

	first := r.Reconcile(context.Background(), 500, "stripe", req)
	assert.True(t, first.Success)
	assert.Equal(t, "https://portal.example.com/invoices/500?payment=success", first.RedirectURL)

	// Same notification delivered again: still a success redirect, but no
	// second record-payment call.
	second := r.Reconcile(context.Background(), 500, "stripe", req)
	assert.True(t, second.Success)

	require.Len(t, billing.records, 1)
	record := billing.records[0]
	assert.Equal(t, "pi_abc", record.TransactionID)
	assert.Equal(t, 25.00, record.Amount)
	assert.Equal(t, 1.03, record.Fee)
	assert.Equal(t, "Stripe", record.Gateway)
}

func TestReconcileDeclinedNeverRecords(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	stripe := &validatingAdapter{gateway: "stripe", err: domain.ErrProviderDeclined}
	r := newReconciler(t, billing, stripe)

	outcome := r.Reconcile(context.Background(), 500, "stripe", domain.CallbackRequest{})
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonDeclined, outcome.Reason)
	assert.Contains(t, outcome.RedirectURL, "payment=error")
	assert.Contains(t, outcome.RedirectURL, "reason="+ReasonDeclined)
	assert.Empty(t, billing.records)
}

func TestReconcileNotPaidSession(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	stripe := &validatingAdapter{gateway: "stripe", err: domain.ErrSessionNotPaid}
	r := newReconciler(t, billing, stripe)

	outcome := r.Reconcile(context.Background(), 500, "stripe", domain.CallbackRequest{})
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonNotPaid, outcome.Reason)
	assert.Empty(t, billing.records)
}

func TestReconcileInvalidCallback(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	stripe := &validatingAdapter{gateway: "stripe", err: domain.ErrInvalidCallback}
	r := newReconciler(t, billing, stripe)

	outcome := r.Reconcile(context.Background(), 500, "stripe", domain.CallbackRequest{})
	assert.Equal(t, ReasonInvalid, outcome.Reason)
	assert.Empty(t, billing.records)
}

func TestReconcileRejectionLogRedactsParams(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	billing := &settlingBilling{invoice: unpaidInvoice()}
	stripe := &validatingAdapter{gateway: "stripe", err: domain.ErrInvalidCallback}
	r := New(billing, adapters.NewRegistry(stripe), "https://portal.example.com", nil, zap.New(core))

	req := domain.CallbackRequest{Method: "POST", Params: map[string]string{
		"cardnum": "4111111111111111",
		"val_id":  "v1",
	}}
	r.Reconcile(context.Background(), 500, "stripe", req)

	entries := observed.FilterMessage("callback_rejected").All()
	require.Len(t, entries, 1)
	params, ok := entries[0].ContextMap()["params"].(map[string]string)
	require.True(t, ok)
	assert.Equal(t, logger.RedactionMarker, params["cardnum"])
	assert.Equal(t, "v1", params["val_id"])
}

func TestReconcileUnknownGateway(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	r := newReconciler(t, billing)

	outcome := r.Reconcile(context.Background(), 500, "cryptopay", domain.CallbackRequest{})
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonUnknownGateway, outcome.Reason)
}

func TestReconcileInvoiceNotFound(t *testing.T) {
	billing := &settlingBilling{invoiceErr: domain.ErrInvoiceNotFound}
	r := newReconciler(t, billing)

	outcome := r.Reconcile(context.Background(), 999, "stripe", domain.CallbackRequest{})
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonInvoiceNotFound, outcome.Reason)
}

func TestReconcileSettledInvoiceSkipsValidation(t *testing.T) {
	invoice := unpaidInvoice()
	invoice.Status = domain.InvoiceStatusPaid
	billing := &settlingBilling{invoice: invoice}
	stripe := &validatingAdapter{gateway: "stripe", settled: settlement()}
	r := newReconciler(t, billing, stripe)

	outcome := r.Reconcile(context.Background(), 500, "stripe", domain.CallbackRequest{})
	assert.True(t, outcome.Success, "duplicate after settlement is still a success for the user")
	assert.Zero(t, stripe.calls, "no provider validation for an already settled invoice")
	assert.Empty(t, billing.records)
}

func TestReconcileRecordFailure(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice(), recordErr: errors.New("transid duplicate")}
	stripe := &validatingAdapter{gateway: "stripe", settled: settlement()}
	r := newReconciler(t, billing, stripe)

	outcome := r.Reconcile(context.Background(), 500, "stripe", domain.CallbackRequest{})
	assert.False(t, outcome.Success)
	assert.Equal(t, ReasonRecordFailed, outcome.Reason)
}

func TestReconcileRedirectReasonsAreURLSafe(t *testing.T) {
	billing := &settlingBilling{invoice: unpaidInvoice()}
	r := newReconciler(t, billing)

	outcome := r.Reconcile(context.Background(), 500, "weird gateway", domain.CallbackRequest{})
	assert.False(t, strings.ContainsAny(outcome.RedirectURL, " \n"), "redirect URL must be encoded: %s", outcome.RedirectURL)
}
