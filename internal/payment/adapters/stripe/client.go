package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIBase = "https://api.stripe.com"

type checkoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

type paymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	LatestCharge string `json:"latest_charge"`
}

type charge struct {
	ID                 string `json:"id"`
	BalanceTransaction string `json:"balance_transaction"`
}

type balanceTransaction struct {
	ID       string `json:"id"`
	Fee      int64  `json:"fee"`
	Net      int64  `json:"net"`
	Currency string `json:"currency"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

type client struct {
	apiKey     string
	apiBase    string
	httpClient *http.Client
}

func newClient(apiKey, apiBase string, httpClient *http.Client) *client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	return &client{
		apiKey:     strings.TrimSpace(apiKey),
		apiBase:    strings.TrimRight(apiBase, "/"),
		httpClient: httpClient,
	}
}

func (c *client) createCheckoutSession(ctx context.Context, values url.Values, idempotencyKey string) (*checkoutSession, error) {
	var session checkoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", values, idempotencyKey, &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return &session, nil
}

func (c *client) retrieveCheckoutSession(ctx context.Context, sessionID string) (*checkoutSession, error) {
	var session checkoutSession
	if err := c.do(ctx, http.MethodGet, "/v1/checkout/sessions/"+url.PathEscape(sessionID), nil, "", &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, errors.New("stripe_response_invalid")
	}
	return &session, nil
}

func (c *client) retrievePaymentIntent(ctx context.Context, intentID string) (*paymentIntent, error) {
	var intent paymentIntent
	if err := c.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, "", &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *client) retrieveCharge(ctx context.Context, chargeID string) (*charge, error) {
	var ch charge
	if err := c.do(ctx, http.MethodGet, "/v1/charges/"+url.PathEscape(chargeID), nil, "", &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *client) retrieveBalanceTransaction(ctx context.Context, txnID string) (*balanceTransaction, error) {
	var txn balanceTransaction
	if err := c.do(ctx, http.MethodGet, "/v1/balance_transactions/"+url.PathEscape(txnID), nil, "", &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (c *client) do(ctx context.Context, method, path string, values url.Values, idempotencyKey string, out any) error {
	if c.apiKey == "" {
		return errors.New("stripe_key_missing")
	}
	body := ""
	if values != nil {
		body = values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return errors.New("stripe_request_failed")
		}
		message := strings.TrimSpace(apiErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return errors.New(message)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
