package gatewayconfig

import (
	"github.com/tanviralimon/orcus-portal/internal/payment/domain"
)

// Logical field names resolved across provider module variants.
const (
	FieldSecretKey      = "secret_key"
	FieldPublishableKey = "publishable_key"
	FieldStoreID        = "store_id"
	FieldStorePassword  = "store_password"
	FieldInstructions   = "instructions"
)

// Settings use inconsistent field naming across remote versions and
// module variants. Candidate keys are static data in priority order, not
// code branches.
var liveFieldCandidates = map[string][]string{
	FieldSecretKey:      {"secretKey", "secret_key", "live_secret_key", "liveSecretKey", "apiKey", "api_key"},
	FieldPublishableKey: {"publishableKey", "publishable_key", "live_publishable_key", "livePublishableKey"},
	FieldStoreID:        {"store_id", "storeId", "storeID"},
	FieldStorePassword:  {"store_passwd", "store_password", "storePassword"},
	FieldInstructions:   {"instructions", "bankInstructions", "details"},
}

var testFieldCandidates = map[string][]string{
	FieldSecretKey:      {"test_secret_key", "testSecretKey", "sandbox_secret_key"},
	FieldPublishableKey: {"test_publishable_key", "testPublishableKey", "sandbox_publishable_key"},
	FieldStoreID:        {"test_store_id", "testStoreId", "sandbox_store_id"},
	FieldStorePassword:  {"test_store_passwd", "testStorePassword", "sandbox_store_passwd"},
}

// secretFields must never mix live and test values within one resolved
// config: when test mode is on and a test variant of any secret field is
// present, the live variants of secret fields are not consulted.
var secretFields = map[string]bool{
	FieldSecretKey:     true,
	FieldStorePassword: true,
}

// Field resolves a logical field against a provider's settings. In test
// mode, test-prefixed variants are tried first; only when absent does
// resolution fall back to the live variants.
func Field(cfg *domain.GatewayConfig, logical string) string {
	if cfg == nil {
		return ""
	}
	if cfg.TestMode {
		if value := cfg.First(testFieldCandidates[logical]...); value != "" {
			return value
		}
		if secretFields[logical] && hasTestSecret(cfg) {
			return ""
		}
	}
	return cfg.First(liveFieldCandidates[logical]...)
}

func hasTestSecret(cfg *domain.GatewayConfig) bool {
	for logical, isSecret := range secretFields {
		if !isSecret {
			continue
		}
		if cfg.First(testFieldCandidates[logical]...) != "" {
			return true
		}
	}
	return false
}
