package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
)

type startPaymentRequest struct {
	Gateway string `json:"gateway" binding:"required"`
}

type startPaymentResponse struct {
	URL      string `json:"url,omitempty"`
	Reload   bool   `json:"reload,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// StartPayment kicks off a payment attempt for an invoice and returns
// where the browser should go next.
func (s *Server) StartPayment(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceId"), 10, 64)
	if err != nil || invoiceID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req startPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	target, err := s.dispatcher.Dispatch(c.Request.Context(), invoiceID, req.Gateway)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, startPaymentResponse{
		URL:      target.URL,
		Reload:   target.Kind == domain.TargetReload,
		Fallback: target.Fallback,
	})
}

type applyCreditRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// ApplyCredit pays an invoice, fully or in part, from the client's
// account credit balance. The remote system enforces the available
// balance.
func (s *Server) ApplyCredit(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceId"), 10, 64)
	if err != nil || invoiceID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req applyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.billing.ApplyCredit(c.Request.Context(), invoiceID, req.Amount); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applied": true})
}

// PaymentCallback terminates provider return and notification URLs. The
// outcome always ends in a redirect back to the invoice page; failures
// ride along as query parameters because no session exists on this path.
func (s *Server) PaymentCallback(c *gin.Context) {
	invoiceID, err := strconv.ParseInt(c.Param("invoiceId"), 10, 64)
	if err != nil || invoiceID <= 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	outcome := s.reconciler.Reconcile(
		c.Request.Context(),
		invoiceID,
		c.Param("gateway"),
		domain.CallbackRequest{
			Method: c.Request.Method,
			Params: callbackParams(c),
		},
	)

	c.Redirect(http.StatusFound, outcome.RedirectURL)
}

// callbackParams merges query and form parameters, with the form winning
// on conflicts. Providers split their payloads across both.
func callbackParams(c *gin.Context) map[string]string {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	if c.Request.Method == http.MethodPost {
		_ = c.Request.ParseForm()
		for key, values := range c.Request.PostForm {
			if len(values) > 0 {
				params[key] = values[0]
			}
		}
	}
	return params
}
