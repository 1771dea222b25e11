package gatewayconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
)

func TestFieldResolvesNamingVariants(t *testing.T) {
	cases := []struct {
		name     string
		settings map[string]string
		logical  string
		want     string
	}{
		{"camel case", map[string]string{"secretKey": "sk_live_a"}, FieldSecretKey, "sk_live_a"},
		{"snake case", map[string]string{"secret_key": "sk_live_b"}, FieldSecretKey, "sk_live_b"},
		{"live prefix", map[string]string{"live_secret_key": "sk_live_c"}, FieldSecretKey, "sk_live_c"},
		{"api key alias", map[string]string{"api_key": "sk_live_d"}, FieldSecretKey, "sk_live_d"},
		{"store id variants", map[string]string{"storeId": "shop01"}, FieldStoreID, "shop01"},
		{"store password variants", map[string]string{"store_passwd": "pw"}, FieldStorePassword, "pw"},
		{"missing", map[string]string{"other": "x"}, FieldSecretKey, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &domain.GatewayConfig{Module: "stripe", Settings: tc.settings}
			assert.Equal(t, tc.want, Field(cfg, tc.logical))
		})
	}
}

func TestFieldPrefersTestVariantsInTestMode(t *testing.T) {
	cfg := &domain.GatewayConfig{
		Module:   "stripe",
		TestMode: true,
		Settings: map[string]string{
			"secretKey":       "sk_live_a",
			"test_secret_key": "sk_test_a",
		},
	}
	assert.Equal(t, "sk_test_a", Field(cfg, FieldSecretKey))
}

func TestFieldNeverMixesTestAndLiveSecrets(t *testing.T) {
	// A test store password exists, so the live secret key must not leak
	// into a test-mode resolution even though no test secret key is set.
	cfg := &domain.GatewayConfig{
		Module:   "sslcommerz",
		TestMode: true,
		Settings: map[string]string{
			"secretKey":         "sk_live_a",
			"test_store_passwd": "pw_test",
		},
	}
	assert.Equal(t, "", Field(cfg, FieldSecretKey))
	assert.Equal(t, "pw_test", Field(cfg, FieldStorePassword))
}

func TestFieldTestModeFallsBackForNonSecretFields(t *testing.T) {
	cfg := &domain.GatewayConfig{
		Module:   "sslcommerz",
		TestMode: true,
		Settings: map[string]string{
			"store_id":          "shop01",
			"test_store_passwd": "pw_test",
		},
	}
	// store_id has no test variant configured; falling back to live is
	// fine because it is not a secret.
	assert.Equal(t, "shop01", Field(cfg, FieldStoreID))
}

func TestFieldLiveModeIgnoresTestVariants(t *testing.T) {
	cfg := &domain.GatewayConfig{
		Module: "stripe",
		Settings: map[string]string{
			"secretKey":       "sk_live_a",
			"test_secret_key": "sk_test_a",
		},
	}
	assert.Equal(t, "sk_live_a", Field(cfg, FieldSecretKey))
}

func TestFieldNilConfig(t *testing.T) {
	assert.Equal(t, "", Field(nil, FieldSecretKey))
}
