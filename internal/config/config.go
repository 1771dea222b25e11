package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	HTTPAddr string

	// Remote billing system. Identifier and secret carry no defaults on
	// purpose: startup fails when they are missing instead of falling back
	// to embedded credentials.
	WHMCSAPIURL        string
	WHMCSDNSURL        string
	WHMCSSSOURL        string
	WHMCSIdentifier    string
	WHMCSSecret        string
	WHMCSPortalURL     string
	WHMCSTimeout       time.Duration
	WHMCSSlowTimeout   time.Duration
	WHMCSUploadTimeout time.Duration

	// Public base URL of this portal, used to build provider callback URLs.
	PortalBaseURL string

	GatewayConfigTTL time.Duration
}

var (
	ErrMissingCredentials = errors.New("missing_whmcs_credentials")
	ErrMissingAPIURL      = errors.New("missing_whmcs_api_url")
	ErrMissingPortalURL   = errors.New("missing_portal_base_url")
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	apiURL := strings.TrimRight(strings.TrimSpace(getenv("WHMCS_API_URL", "")), "/")

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "orcus-portal"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		WHMCSAPIURL:        apiURL,
		WHMCSDNSURL:        getenv("WHMCS_DNS_URL", sideChannelURL(apiURL, "orcus_dns.php")),
		WHMCSSSOURL:        getenv("WHMCS_SSO_URL", sideChannelURL(apiURL, "orcus_sso.php")),
		WHMCSIdentifier:    strings.TrimSpace(getenv("WHMCS_API_IDENTIFIER", "")),
		WHMCSSecret:        strings.TrimSpace(getenv("WHMCS_API_SECRET", "")),
		WHMCSPortalURL:     strings.TrimRight(getenv("WHMCS_PORTAL_URL", ""), "/"),
		WHMCSTimeout:       getenvDuration("WHMCS_TIMEOUT", 10*time.Second),
		WHMCSSlowTimeout:   getenvDuration("WHMCS_SLOW_TIMEOUT", 45*time.Second),
		WHMCSUploadTimeout: getenvDuration("WHMCS_UPLOAD_TIMEOUT", 30*time.Second),

		PortalBaseURL: strings.TrimRight(getenv("PORTAL_BASE_URL", ""), "/"),

		GatewayConfigTTL: getenvDuration("GATEWAY_CONFIG_TTL", time.Hour),
	}

	return cfg
}

// Validate rejects configurations that cannot reach the remote billing
// system. There is deliberately no fallback credential branch.
func (c Config) Validate() error {
	if c.WHMCSAPIURL == "" {
		return ErrMissingAPIURL
	}
	if c.WHMCSIdentifier == "" || c.WHMCSSecret == "" {
		return ErrMissingCredentials
	}
	if c.PortalBaseURL == "" {
		return ErrMissingPortalURL
	}
	return nil
}

func sideChannelURL(apiURL, script string) string {
	if apiURL == "" {
		return ""
	}
	if idx := strings.LastIndex(apiURL, "/"); idx >= 0 {
		return apiURL[:idx+1] + script
	}
	return apiURL + "/" + script
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return def
}
