package banktransfer

import (
	"context"

	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/zap"
)

// Adapter is the manual bank-transfer gateway. There is no external
// session: the dispatcher has already recorded the payment-method
// selection, so the caller is told to redisplay the invoice in place,
// where the static bank details for the invoice's currency live.
type Adapter struct {
	log *zap.Logger
}

// New builds the manual gateway adapter.
func New(log *zap.Logger) *Adapter {
	return &Adapter{log: log.Named("gateway.banktransfer")}
}

func (a *Adapter) Gateway() string { return "banktransfer" }

// CreateSession makes no external calls and returns an in-place reload
// instruction.
func (a *Adapter) CreateSession(ctx context.Context, invoice *domain.Invoice) (*domain.RedirectTarget, error) {
	if !invoice.Status.Payable() {
		return nil, domain.ErrAlreadySettled
	}
	return &domain.RedirectTarget{Kind: domain.TargetReload}, nil
}

// ValidateCallback is never reached for manual transfers: the remote
// billing system records these payments when an operator confirms them.
func (a *Adapter) ValidateCallback(ctx context.Context, invoice *domain.Invoice, req domain.CallbackRequest) (*domain.SettledPayment, error) {
	return nil, domain.ErrInvalidCallback
}
