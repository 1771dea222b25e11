package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"github.com/tanviralimon/orcus-portal/internal/whmcs"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var apiErr *whmcs.APIError
	if errors.As(err, &apiErr) {
		// Remote billing failures surface the scrubbed user message, never
		// the raw remote text.
		switch apiErr.Kind {
		case whmcs.KindDomain:
			return http.StatusBadRequest, errorPayload{
				Type:    "billing_error",
				Message: apiErr.UserMessage(),
			}
		default:
			return http.StatusBadGateway, errorPayload{
				Type:    "billing_unavailable",
				Message: apiErr.UserMessage(),
			}
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ErrNotFound),
		errors.Is(err, domain.ErrInvoiceNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, domain.ErrAlreadySettled):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "invoice is already settled",
		}
	case errors.Is(err, domain.ErrInvoiceNotDue):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "invoice has no balance due",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
