package whmcs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tanviralimon/orcus-portal/internal/config"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// API is the primary JSON API client with typed helpers for the actions
// the portal uses. It implements domain.BillingClient.
type API struct {
	*Client
	portalURL string
}

// NewAPIClient builds the primary API client.
func NewAPIClient(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *API {
	return &API{
		Client: NewClient(
			cfg.WHMCSAPIURL,
			cfg.WHMCSIdentifier,
			cfg.WHMCSSecret,
			cfg.WHMCSTimeout,
			cfg.WHMCSUploadTimeout,
			log.Named("whmcs.api"),
			WithMetrics(m),
		),
		portalURL: cfg.WHMCSPortalURL,
	}
}

// Invoice fetches one invoice. A domain "not found" error maps to
// domain.ErrInvoiceNotFound.
func (a *API) Invoice(ctx context.Context, invoiceID int64) (*domain.Invoice, error) {
	result, err := a.Call(ctx, "GetInvoice", Params{"invoiceid": formatInt(invoiceID)})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, domain.ErrInvoiceNotFound
		}
		// Auth, permission and transport failures are not "not found";
		// they keep their own classification.
		return nil, err
	}

	invoice := &domain.Invoice{
		ID:             readInt64(result, "invoiceid"),
		ClientID:       readInt64(result, "userid"),
		Balance:        readFloat(result, "balance"),
		Total:          readFloat(result, "total"),
		CurrencyCode:   readString(result, "currencycode"),
		CurrencyPrefix: readString(result, "currencyprefix"),
		Status:         domain.ParseInvoiceStatus(readString(result, "status")),
		PaymentMethod:  readString(result, "paymentmethod"),
	}
	if invoice.ID == 0 {
		invoice.ID = invoiceID
	}
	return invoice, nil
}

// SetInvoicePaymentMethod records the gateway the user selected so the
// remote system's own UI reflects it.
func (a *API) SetInvoicePaymentMethod(ctx context.Context, invoiceID int64, gateway string) error {
	_, err := a.Call(ctx, "UpdateInvoice", Params{
		"invoiceid":     formatInt(invoiceID),
		"paymentmethod": gateway,
	})
	return err
}

// RecordPayment posts a completed provider payment against the invoice.
// The remote system rejects duplicate transaction ids on its side.
func (a *API) RecordPayment(ctx context.Context, record domain.PaymentRecord) error {
	date := record.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	_, err := a.Call(ctx, "AddInvoicePayment", Params{
		"invoiceid": formatInt(record.InvoiceID),
		"transid":   record.TransactionID,
		"amount":    strconv.FormatFloat(record.Amount, 'f', 2, 64),
		"fees":      strconv.FormatFloat(record.Fee, 'f', 2, 64),
		"gateway":   record.Gateway,
		"date":      date.Format("2006-01-02 15:04:05"),
	})
	return err
}

// ApplyCredit applies account credit toward an invoice.
func (a *API) ApplyCredit(ctx context.Context, invoiceID int64, amount float64) error {
	_, err := a.Call(ctx, "ApplyCredit", Params{
		"invoiceid": formatInt(invoiceID),
		"amount":    strconv.FormatFloat(amount, 'f', 2, 64),
	})
	return err
}

// ClientCurrency returns the ISO currency code from the client's profile.
func (a *API) ClientCurrency(ctx context.Context, clientID int64) (string, error) {
	result, err := a.Call(ctx, "GetClientsDetails", Params{
		"clientid": formatInt(clientID),
		"stats":    "false",
	})
	if err != nil {
		return "", err
	}
	code := readString(result, "currency_code")
	if code == "" {
		client := readMap(result, "client")
		code = readString(client, "currency_code")
	}
	return code, nil
}

// SSORedirect issues a short-lived billing-scoped SSO URL that deep-links
// to the given invoice on the hosted billing page.
func (a *API) SSORedirect(ctx context.Context, clientID, invoiceID int64) (string, error) {
	result, err := a.Call(ctx, "CreateSsoToken", Params{
		"client_id":   formatInt(clientID),
		"destination": "clientarea:invoices",
	})
	if err != nil {
		return "", err
	}
	redirect := readString(result, "redirect_url")
	if redirect == "" {
		return "", invalidResponseError("CreateSsoToken", "response is missing redirect url")
	}
	return appendDeepLink(redirect, invoiceID), nil
}

// InvoiceURL is the static, unsigned invoice page used as the terminal
// fallback when SSO token issuance fails.
func (a *API) InvoiceURL(invoiceID int64) string {
	return fmt.Sprintf("%s/viewinvoice.php?id=%d", a.portalURL, invoiceID)
}

func appendDeepLink(redirect string, invoiceID int64) string {
	deepLink := url.QueryEscape(fmt.Sprintf("/viewinvoice.php?id=%d", invoiceID))
	separator := "?"
	if parsed, err := url.Parse(redirect); err == nil && parsed.RawQuery != "" {
		separator = "&"
	}
	return redirect + separator + "sso_redirect_path=" + deepLink
}
