package whmcs

import (
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"go.uber.org/fx"
)

// Module wires the primary API client and the two side-channel clients.
var Module = fx.Module("whmcs",
	fx.Provide(
		NewAPIClient,
		NewDNSClient,
		NewSSOClient,
		func(api *API) domain.BillingClient { return api },
	),
)
