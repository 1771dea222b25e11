package stripe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tanviralimon/orcus-portal/internal/gatewayconfig"
	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// Restricted-scope keys cannot create hosted checkout sessions; there is
// no point attempting the call.
const restrictedKeyPrefix = "rk_"

// Adapter is the card-processor gateway adapter built on hosted checkout
// sessions.
type Adapter struct {
	resolver     domain.CredentialResolver
	billing      domain.BillingClient
	callbackBase string
	apiBase      string
	httpClient   *http.Client
	log          *zap.Logger
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithAPIBase overrides the provider API host.
func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = base }
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) { a.httpClient = httpClient }
}

// New builds the card gateway adapter. callbackBase is this portal's
// public base URL.
func New(resolver domain.CredentialResolver, billing domain.BillingClient, callbackBase string, log *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		resolver:     resolver,
		billing:      billing,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		log:          log.Named("gateway.stripe"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Gateway() string { return "stripe" }

// CreateSession builds a hosted checkout session with a single line item
// equal to the invoice's outstanding balance.
func (a *Adapter) CreateSession(ctx context.Context, invoice *domain.Invoice) (*domain.RedirectTarget, error) {
	secret, err := a.secretKey(ctx)
	if err != nil {
		return nil, err
	}

	currency, err := a.settlementCurrency(ctx, invoice)
	if err != nil {
		return nil, err
	}

	amount := invoice.MinorUnits()
	if amount <= 0 {
		return nil, domain.ErrInvoiceNotDue
	}

	callbackURL := fmt.Sprintf("%s/payment/%d/callback/stripe", a.callbackBase, invoice.ID)

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("success_url", callbackURL+"?session_id={CHECKOUT_SESSION_ID}")
	values.Set("cancel_url", callbackURL+"?status=cancelled")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", currency)
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(amount, 10))
	values.Set("line_items[0][price_data][product_data][name]", fmt.Sprintf("Invoice #%d", invoice.ID))
	values.Set("metadata[invoice_id]", strconv.FormatInt(invoice.ID, 10))
	values.Set("metadata[client_id]", strconv.FormatInt(invoice.ClientID, 10))
	values.Set("payment_intent_data[metadata][invoice_id]", strconv.FormatInt(invoice.ID, 10))

	session, err := newClient(secret, a.apiBase, a.httpClient).
		createCheckoutSession(ctx, values, fmt.Sprintf("invoice:%d", invoice.ID))
	if err != nil {
		logger.WithContext(ctx, a.log).Warn("checkout_session_failed",
			zap.Int64("invoice_id", invoice.ID),
			zap.Error(err),
		)
		return nil, domain.ErrUseFallback
	}
	if session.URL == "" {
		return nil, domain.ErrUseFallback
	}

	return &domain.RedirectTarget{Kind: domain.TargetRedirect, URL: session.URL}, nil
}

// ValidateCallback re-fetches the checkout session and requires the
// provider to report it as paid before returning a settlement.
func (a *Adapter) ValidateCallback(ctx context.Context, invoice *domain.Invoice, req domain.CallbackRequest) (*domain.SettledPayment, error) {
	if req.Param("status") == "cancelled" {
		return nil, domain.ErrProviderDeclined
	}
	sessionID := req.Param("session_id")
	if sessionID == "" {
		return nil, domain.ErrInvalidCallback
	}

	secret, err := a.secretKey(ctx)
	if err != nil {
		return nil, domain.ErrInvalidCallback
	}
	api := newClient(secret, a.apiBase, a.httpClient)

	session, err := api.retrieveCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, domain.ErrInvalidCallback
	}
	if !strings.EqualFold(session.PaymentStatus, "paid") {
		return nil, domain.ErrSessionNotPaid
	}
	if metaInvoice := strings.TrimSpace(session.Metadata["invoice_id"]); metaInvoice != "" {
		if parsed, parseErr := strconv.ParseInt(metaInvoice, 10, 64); parseErr == nil && parsed != invoice.ID {
			return nil, domain.ErrInvalidCallback
		}
	}

	transactionID := session.PaymentIntent
	if transactionID == "" {
		transactionID = session.ID
	}

	fee := a.lookupFee(ctx, api, session.PaymentIntent)

	return &domain.SettledPayment{
		InvoiceID:     invoice.ID,
		ClientID:      invoice.ClientID,
		TransactionID: transactionID,
		Amount:        float64(session.AmountTotal) / 100,
		Fee:           fee,
		Currency:      strings.ToLower(session.Currency),
		GatewayLabel:  "Stripe",
	}, nil
}

func (a *Adapter) secretKey(ctx context.Context) (string, error) {
	cfg, err := a.resolver.Resolve(ctx, a.Gateway())
	if err != nil {
		return "", domain.ErrUseFallback
	}
	if cfg == nil {
		return "", domain.ErrUseFallback
	}
	secret := gatewayconfig.Field(cfg, gatewayconfig.FieldSecretKey)
	if secret == "" {
		return "", domain.ErrUseFallback
	}
	if strings.HasPrefix(secret, restrictedKeyPrefix) {
		return "", domain.ErrUseFallback
	}
	return secret, nil
}

func (a *Adapter) settlementCurrency(ctx context.Context, invoice *domain.Invoice) (string, error) {
	if code := inferCurrency(invoice.CurrencyCode, invoice.CurrencyPrefix); code != "" {
		return code, nil
	}
	code, err := a.billing.ClientCurrency(ctx, invoice.ClientID)
	if err != nil || strings.TrimSpace(code) == "" {
		return "", domain.ErrUseFallback
	}
	return strings.ToLower(strings.TrimSpace(code)), nil
}

// lookupFee chains payment-intent, charge and balance-transaction lookups
// to obtain the provider fee. Best effort: any missing hop leaves the fee
// at zero.
func (a *Adapter) lookupFee(ctx context.Context, api *client, intentID string) float64 {
	if intentID == "" {
		return 0
	}
	log := logger.WithContext(ctx, a.log)

	intent, err := api.retrievePaymentIntent(ctx, intentID)
	if err != nil || intent.LatestCharge == "" {
		log.Warn("fee_lookup_incomplete", zap.String("hop", "payment_intent"), zap.Error(err))
		return 0
	}
	ch, err := api.retrieveCharge(ctx, intent.LatestCharge)
	if err != nil || ch.BalanceTransaction == "" {
		log.Warn("fee_lookup_incomplete", zap.String("hop", "charge"), zap.Error(err))
		return 0
	}
	txn, err := api.retrieveBalanceTransaction(ctx, ch.BalanceTransaction)
	if err != nil {
		log.Warn("fee_lookup_incomplete", zap.String("hop", "balance_transaction"), zap.Error(err))
		return 0
	}
	return float64(txn.Fee) / 100
}
