package gatewayconfig

import (
	"github.com/tanviralimon/orcus-portal/internal/config"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"github.com/tanviralimon/orcus-portal/internal/whmcs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the credential resolver against the SSO side channel.
var Module = fx.Module("gatewayconfig",
	fx.Provide(func(cfg config.Config, sso *whmcs.SSOClient, log *zap.Logger) *Resolver {
		return NewResolver(sso, cfg.GatewayConfigTTL, log)
	}),
	fx.Provide(func(r *Resolver) domain.CredentialResolver { return r }),
)
