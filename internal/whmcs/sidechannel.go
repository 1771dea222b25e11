package whmcs

import (
	"context"
	"time"

	"github.com/tanviralimon/orcus-portal/internal/config"
	"github.com/tanviralimon/orcus-portal/internal/observability/metrics"
	"go.uber.org/zap"
)

// The remote host exposes two side-channel scripts next to the standard
// API: a DNS-management channel and an SSO/service-info channel. They are
// authenticated the same way and differ only in endpoint and, for the SSO
// channel, in per-action timeouts.

// DNSClient talks to the DNS-management side channel.
type DNSClient struct {
	*Client
}

// SSOClient talks to the SSO/service-info side channel.
type SSOClient struct {
	*Client
}

// slowSSOActions internally chain a second outbound call to the
// virtualization control plane, so they get an extended timeout.
func slowSSOActions(timeout time.Duration) map[string]time.Duration {
	return map[string]time.Duration{
		"GetServiceInfo": timeout,
		"SsoLogin":       timeout,
	}
}

// NewDNSClient builds the DNS side-channel client.
func NewDNSClient(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *DNSClient {
	return &DNSClient{
		Client: NewClient(
			cfg.WHMCSDNSURL,
			cfg.WHMCSIdentifier,
			cfg.WHMCSSecret,
			cfg.WHMCSTimeout,
			cfg.WHMCSUploadTimeout,
			log.Named("whmcs.dns"),
			WithMetrics(m),
		),
	}
}

// NewSSOClient builds the SSO side-channel client.
func NewSSOClient(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *SSOClient {
	return &SSOClient{
		Client: NewClient(
			cfg.WHMCSSSOURL,
			cfg.WHMCSIdentifier,
			cfg.WHMCSSecret,
			cfg.WHMCSTimeout,
			cfg.WHMCSUploadTimeout,
			log.Named("whmcs.sso"),
			WithMetrics(m),
			WithSlowActions(slowSSOActions(cfg.WHMCSSlowTimeout)),
		),
	}
}

// GatewayConfig fetches the raw settings payload for one gateway module.
// A nil result means the module has no stored configuration.
func (c *SSOClient) GatewayConfig(ctx context.Context, module string) (map[string]string, error) {
	result, err := c.Call(ctx, "GetGatewayConfig", Params{"gateway": module})
	if err != nil {
		return nil, err
	}
	settings := readStringMap(result, "settings")
	if settings == nil {
		settings = readStringMap(result, "config")
	}
	if len(settings) == 0 {
		return nil, nil
	}
	return settings, nil
}

// ServiceInfo fetches control-plane details for one service. Slow action.
func (c *SSOClient) ServiceInfo(ctx context.Context, serviceID int64) (map[string]any, error) {
	return c.Call(ctx, "GetServiceInfo", Params{"serviceid": formatInt(serviceID)})
}

// SSOLogin requests a short-lived single-sign-on redirect URL for a client.
func (c *SSOClient) SSOLogin(ctx context.Context, clientID int64, destination string) (string, error) {
	params := Params{"clientid": formatInt(clientID)}
	if destination != "" {
		params["destination"] = destination
	}
	result, err := c.Call(ctx, "SsoLogin", params)
	if err != nil {
		return "", err
	}
	redirect := readString(result, "redirect_url")
	if redirect == "" {
		redirect = readString(result, "url")
	}
	if redirect == "" {
		return "", invalidResponseError("SsoLogin", "response is missing redirect url")
	}
	return redirect, nil
}

// ProductGroups lists product groups exposed only on the side channel.
func (c *DNSClient) ProductGroups(ctx context.Context) (map[string]any, error) {
	return c.Call(ctx, "GetProductGroups", nil)
}
