package payment

import (
	"github.com/bwmarrin/snowflake"
	"github.com/tanviralimon/orcus-portal/internal/config"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters/banktransfer"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters/sslcommerz"
	"github.com/tanviralimon/orcus-portal/internal/payment/adapters/stripe"
	"github.com/tanviralimon/orcus-portal/internal/payment/dispatcher"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"github.com/tanviralimon/orcus-portal/internal/payment/reconciler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(func(cfg config.Config, resolver domain.CredentialResolver, billing domain.BillingClient, genID *snowflake.Node, log *zap.Logger) *adapters.Registry {
		return adapters.NewRegistry(
			stripe.New(resolver, billing, cfg.PortalBaseURL, log),
			sslcommerz.New(resolver, cfg.PortalBaseURL, genID, log),
			banktransfer.New(log),
		)
	}),
	fx.Provide(func(cfg config.Config, billing domain.BillingClient, registry *adapters.Registry, m *metrics.Metrics, log *zap.Logger) *dispatcher.Dispatcher {
		return dispatcher.New(billing, registry, cfg.WHMCSPortalURL, m, log)
	}),
	fx.Provide(func(cfg config.Config, billing domain.BillingClient, registry *adapters.Registry, m *metrics.Metrics, log *zap.Logger) *reconciler.Reconciler {
		return reconciler.New(billing, registry, cfg.PortalBaseURL, m, log)
	}),
)
