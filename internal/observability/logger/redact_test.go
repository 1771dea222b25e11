package logger

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactParams(t *testing.T) {
	params := map[string]string{
		"action":    "GetInvoice",
		"invoiceid": "500",
		"password":  "hunter2",
		"password2": "hunter2-confirm",
		"cardnum":   "4242424242424242",
		"cardcvv":   "123",
		"secret":    "abc",
	}

	out := RedactParams(params)

	assert.Equal(t, "GetInvoice", out["action"])
	assert.Equal(t, "500", out["invoiceid"])
	assert.Equal(t, RedactionMarker, out["password"])
	assert.Equal(t, RedactionMarker, out["password2"])
	assert.Equal(t, RedactionMarker, out["cardnum"])
	assert.Equal(t, RedactionMarker, out["cardcvv"])
	assert.Equal(t, RedactionMarker, out["secret"])

	// The input map is untouched.
	assert.Equal(t, "hunter2", params["password"])
}

func TestRedactParamsKeyVariants(t *testing.T) {
	out := RedactParams(map[string]string{
		"card_num":    "4242",
		"card-cvv":    "999",
		"api_secret":  "s",
		"accesskey":   "k",
		"description": "plain",
	})

	assert.Equal(t, RedactionMarker, out["card_num"])
	assert.Equal(t, RedactionMarker, out["card-cvv"])
	assert.Equal(t, RedactionMarker, out["api_secret"])
	assert.Equal(t, RedactionMarker, out["accesskey"])
	assert.Equal(t, "plain", out["description"])
}

func TestRedactValues(t *testing.T) {
	values := url.Values{}
	values.Set("action", "SsoLogin")
	values.Set("identifier", "ident-123")
	values.Add("tag", "a")
	values.Add("tag", "b")

	out := RedactValues(values)

	assert.Equal(t, "SsoLogin", out["action"])
	assert.Equal(t, RedactionMarker, out["identifier"])
	assert.Equal(t, "a,b", out["tag"])
}
