package stripe

import (
	"strings"
)

// symbolTable maps literal currency prefixes to ISO codes. Multi-rune
// prefixes come first so "R$" never matches as "$".
var symbolTable = []struct {
	prefix string
	code   string
}{
	{"R$", "brl"},
	{"A$", "aud"},
	{"C$", "cad"},
	{"NZ$", "nzd"},
	{"S$", "sgd"},
	{"HK$", "hkd"},
	{"RM", "myr"},
	{"Rp", "idr"},
	{"CHF", "chf"},
	{"kr", "sek"},
	{"zł", "pln"},
	{"$", "usd"},
	{"£", "gbp"},
	{"€", "eur"},
	{"৳", "bdt"},
	{"₹", "inr"},
	{"¥", "jpy"},
	{"₩", "krw"},
	{"₦", "ngn"},
	{"₱", "php"},
	{"₨", "pkr"},
	{"₫", "vnd"},
	{"฿", "thb"},
	{"₺", "try"},
	{"₽", "rub"},
	{"₴", "uah"},
}

// inferCurrency resolves an ISO code from the invoice's explicit currency
// field or its display prefix. Returns "" when neither yields a code, in
// which case the caller falls back to the client's profile currency.
func inferCurrency(code, prefix string) string {
	code = strings.TrimSpace(code)
	if code != "" {
		return strings.ToLower(code)
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	for _, entry := range symbolTable {
		if strings.HasPrefix(prefix, entry.prefix) {
			return entry.code
		}
	}
	if isAlpha3(prefix) {
		return strings.ToLower(prefix)
	}
	return ""
}

func isAlpha3(value string) bool {
	if len(value) != 3 {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
