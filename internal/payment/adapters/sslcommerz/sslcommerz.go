package sslcommerz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/tanviralimon/orcus-portal/internal/gatewayconfig"
	"github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

const (
	productionBase = "https://securepay.sslcommerz.com"
	sandboxBase    = "https://sandbox.sslcommerz.com"

	sessionPath   = "/gwprocess/v4/api.php"
	validatorPath = "/validator/api/validationserverAPI.php"
)

// Adapter is the store-id/store-password regional gateway adapter.
type Adapter struct {
	resolver     domain.CredentialResolver
	callbackBase string
	liveBase     string
	sandboxBase  string
	httpClient   *http.Client
	genID        *snowflake.Node
	log          *zap.Logger
}

// Option customizes the adapter.
type Option func(*Adapter)

// WithBases overrides the provider hosts, used by tests.
func WithBases(live, sandbox string) Option {
	return func(a *Adapter) {
		a.liveBase = strings.TrimRight(live, "/")
		a.sandboxBase = strings.TrimRight(sandbox, "/")
	}
}

// WithHTTPClient overrides the HTTP client used for provider calls.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(a *Adapter) { a.httpClient = httpClient }
}

// New builds the regional gateway adapter. genID makes transaction
// references unique across attempts within the same second.
func New(resolver domain.CredentialResolver, callbackBase string, genID *snowflake.Node, log *zap.Logger, opts ...Option) *Adapter {
	a := &Adapter{
		resolver:     resolver,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		liveBase:     productionBase,
		sandboxBase:  sandboxBase,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		genID:        genID,
		log:          log.Named("gateway.sslcommerz"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Gateway() string { return "sslcommerz" }

type sessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

type validationResponse struct {
	Status      string `json:"status"`
	TranID      string `json:"tran_id"`
	ValID       string `json:"val_id"`
	Amount      string `json:"amount"`
	StoreAmount string `json:"store_amount"`
	Currency    string `json:"currency"`
	BankTranID  string `json:"bank_tran_id"`
	ValueA      string `json:"value_a"`
	ValueB      string `json:"value_b"`
}

// CreateSession posts a signed session-creation request. The success,
// fail and IPN URLs all point at the same reconciliation endpoint: the
// provider may invoke any subset of them, more than once.
func (a *Adapter) CreateSession(ctx context.Context, invoice *domain.Invoice) (*domain.RedirectTarget, error) {
	cfg, storeID, storePass, err := a.credentials(ctx)
	if err != nil {
		return nil, err
	}
	if invoice.Balance <= 0 {
		return nil, domain.ErrInvoiceNotDue
	}
	currency, err := a.currency(invoice)
	if err != nil {
		return nil, err
	}

	callbackURL := fmt.Sprintf("%s/payment/%d/callback/sslcommerz", a.callbackBase, invoice.ID)

	values := url.Values{}
	values.Set("store_id", storeID)
	values.Set("store_passwd", storePass)
	values.Set("total_amount", strconv.FormatFloat(invoice.Balance, 'f', 2, 64))
	values.Set("currency", currency)
	values.Set("tran_id", fmt.Sprintf("INV%d-%s", invoice.ID, a.genID.Generate().String()))
	values.Set("success_url", callbackURL+"?outcome=success")
	values.Set("fail_url", callbackURL+"?outcome=fail")
	values.Set("cancel_url", callbackURL+"?outcome=cancel")
	values.Set("ipn_url", callbackURL)
	values.Set("product_name", fmt.Sprintf("Invoice #%d", invoice.ID))
	values.Set("product_category", "invoice")
	values.Set("product_profile", "non-physical-goods")
	values.Set("cus_name", fmt.Sprintf("Client %d", invoice.ClientID))
	values.Set("cus_email", "unknown@localhost")
	values.Set("cus_add1", "n/a")
	values.Set("cus_city", "n/a")
	values.Set("cus_country", "n/a")
	values.Set("cus_phone", "n/a")
	values.Set("shipping_method", "NO")
	values.Set("num_of_item", "1")
	values.Set("value_a", strconv.FormatInt(invoice.ID, 10))
	values.Set("value_b", strconv.FormatInt(invoice.ClientID, 10))

	endpoint := a.base(cfg) + sessionPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, domain.ErrUseFallback
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logger.WithContext(ctx, a.log).Warn("session_create_failed",
			zap.Int64("invoice_id", invoice.ID),
			zap.Error(err),
		)
		return nil, domain.ErrUseFallback
	}
	defer resp.Body.Close()

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, domain.ErrUseFallback
	}
	if !strings.EqualFold(session.Status, "SUCCESS") || session.GatewayPageURL == "" {
		logger.WithContext(ctx, a.log).Warn("session_rejected",
			zap.Int64("invoice_id", invoice.ID),
			zap.String("reason", session.FailedReason),
		)
		return nil, domain.ErrUseFallback
	}

	return &domain.RedirectTarget{Kind: domain.TargetRedirect, URL: session.GatewayPageURL}, nil
}

// ValidateCallback independently re-validates the transaction against the
// provider's server-side validation endpoint. A client-supplied
// "status=VALID" alone is never trusted.
func (a *Adapter) ValidateCallback(ctx context.Context, invoice *domain.Invoice, req domain.CallbackRequest) (*domain.SettledPayment, error) {
	switch req.Param("outcome") {
	case "fail", "cancel":
		return nil, domain.ErrProviderDeclined
	}
	valID := req.Param("val_id")
	if valID == "" {
		return nil, domain.ErrInvalidCallback
	}

	cfg, storeID, storePass, err := a.credentials(ctx)
	if err != nil {
		return nil, domain.ErrInvalidCallback
	}

	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", storeID)
	query.Set("store_passwd", storePass)
	query.Set("format", "json")

	endpoint := a.base(cfg) + validatorPath + "?" + query.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.ErrInvalidCallback
	}

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.ErrInvalidCallback
	}
	defer resp.Body.Close()

	var validation validationResponse
	if err := json.NewDecoder(resp.Body).Decode(&validation); err != nil {
		return nil, domain.ErrInvalidCallback
	}
	switch strings.ToUpper(strings.TrimSpace(validation.Status)) {
	case "VALID", "VALIDATED":
	default:
		return nil, domain.ErrSessionNotPaid
	}
	if validation.ValueA != "" {
		if parsed, parseErr := strconv.ParseInt(validation.ValueA, 10, 64); parseErr == nil && parsed != invoice.ID {
			return nil, domain.ErrInvalidCallback
		}
	}

	amount, _ := strconv.ParseFloat(validation.Amount, 64)
	if amount <= 0 {
		return nil, domain.ErrInvalidCallback
	}
	// The validator reports the merchant's net in store_amount; the delta
	// is the provider fee. Best effort, fee stays zero when absent.
	fee := 0.0
	if storeAmount, parseErr := strconv.ParseFloat(validation.StoreAmount, 64); parseErr == nil && storeAmount > 0 && storeAmount < amount {
		fee = amount - storeAmount
	}

	transactionID := validation.BankTranID
	if transactionID == "" {
		transactionID = validation.TranID
	}
	if transactionID == "" {
		return nil, domain.ErrInvalidCallback
	}

	return &domain.SettledPayment{
		InvoiceID:     invoice.ID,
		ClientID:      invoice.ClientID,
		TransactionID: transactionID,
		Amount:        amount,
		Fee:           fee,
		Currency:      strings.ToLower(strings.TrimSpace(validation.Currency)),
		GatewayLabel:  "SSLCommerz",
	}, nil
}

func (a *Adapter) credentials(ctx context.Context) (*domain.GatewayConfig, string, string, error) {
	cfg, err := a.resolver.Resolve(ctx, a.Gateway())
	if err != nil || cfg == nil {
		return nil, "", "", domain.ErrUseFallback
	}
	storeID := gatewayconfig.Field(cfg, gatewayconfig.FieldStoreID)
	storePass := gatewayconfig.Field(cfg, gatewayconfig.FieldStorePassword)
	if storeID == "" || storePass == "" {
		return nil, "", "", domain.ErrUseFallback
	}
	return cfg, storeID, storePass, nil
}

func (a *Adapter) base(cfg *domain.GatewayConfig) string {
	if cfg != nil && cfg.TestMode {
		return a.sandboxBase
	}
	return a.liveBase
}

// currency resolves the ISO code to charge. Only an empty code or the
// taka symbol default to BDT; anything else unrecognized aborts to the
// hosted billing page rather than charging the wrong currency.
func (a *Adapter) currency(invoice *domain.Invoice) (string, error) {
	code := strings.TrimSpace(invoice.CurrencyCode)
	if code == "" {
		code = strings.TrimSpace(invoice.CurrencyPrefix)
	}
	if code == "" || code == "৳" {
		return "BDT", nil
	}
	if len(code) == 3 && isAlphaCode(code) {
		return strings.ToUpper(code), nil
	}
	return "", domain.ErrUseFallback
}

func isAlphaCode(code string) bool {
	for _, r := range code {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
