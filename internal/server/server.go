package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tanviralimon/orcus-portal/internal/config"
	"github.com/tanviralimon/orcus-portal/internal/gatewayconfig"
	"github.com/tanviralimon/orcus-portal/internal/observability"
	obslogger "github.com/tanviralimon/orcus-portal/internal/observability/logger"
	"github.com/tanviralimon/orcus-portal/internal/payment"
	"github.com/tanviralimon/orcus-portal/internal/payment/dispatcher"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
	"github.com/tanviralimon/orcus-portal/internal/payment/reconciler"
	"github.com/tanviralimon/orcus-portal/internal/ratelimit"
	"github.com/tanviralimon/orcus-portal/internal/whmcs"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	whmcs.Module,
	gatewayconfig.Module,
	payment.Module,
	ratelimit.Module,
	fx.Provide(newEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func newEngine(cfg config.Config, log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log.Named("http")))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	dispatcher *dispatcher.Dispatcher
	reconciler *reconciler.Reconciler
	billing    domain.BillingClient
	dns        *whmcs.DNSClient
	sso        *whmcs.SSOClient
	limiter    *ratelimit.TokenBucket
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Dispatcher *dispatcher.Dispatcher
	Reconciler *reconciler.Reconciler
	Billing    domain.BillingClient
	DNS        *whmcs.DNSClient
	SSO        *whmcs.SSOClient
	Limiter    *ratelimit.TokenBucket
	Log        *zap.Logger
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		dispatcher: p.Dispatcher,
		reconciler: p.Reconciler,
		billing:    p.Billing,
		dns:        p.DNS,
		sso:        p.SSO,
		limiter:    p.Limiter,
		log:        p.Log.Named("server"),
	}

	s.registerPaymentRoutes()
	s.registerCatalogRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPaymentRoutes() {
	pay := s.engine.Group("/payment")

	pay.POST("/:invoiceId/pay", s.PaymentRateLimit(1, 5), s.StartPayment)
	pay.POST("/:invoiceId/credit", s.PaymentRateLimit(1, 5), s.ApplyCredit)

	// Providers deliver callbacks with whichever method suits them: user
	// redirects arrive as GET, server-to-server notifications as POST.
	pay.GET("/:invoiceId/callback/:gateway", s.PaymentCallback)
	pay.POST("/:invoiceId/callback/:gateway", s.PaymentCallback)
}

func (s *Server) registerCatalogRoutes() {
	api := s.engine.Group("/api")

	api.GET("/product-groups", s.ListProductGroups)
	api.GET("/services/:id", s.GetServiceInfo)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http_listen_failed", zap.Error(err))
				}
			}()
			log.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
