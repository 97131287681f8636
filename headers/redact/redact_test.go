// headers/redact/redact_test.go
package redact

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRedactSensitiveHeaderData tests the RedactSensitiveHeaderData function to ensure it correctly redacts sensitive data.
func TestRedactSensitiveHeaderData(t *testing.T) {
	cases := []struct {
		name              string
		hideSensitiveData bool
		key               string
		value             string
		expected          string
	}{
		{"Sensitive Key With Redaction", true, "AccessToken", "some-sensitive-token", "REDACTED"},
		{"Sensitive Key Without Redaction", false, "AccessToken", "some-sensitive-token", "some-sensitive-token"},
		{"Refresh Token With Redaction", true, "authorizer_refresh_token", "refresh", "REDACTED"},
		{"Non-Sensitive Key With Redaction", true, "User-Agent", "MyCustomAgent", "MyCustomAgent"},
		{"Non-Sensitive Key Without Redaction", false, "User-Agent", "MyCustomAgent", "MyCustomAgent"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := RedactSensitiveHeaderData(tc.hideSensitiveData, tc.key, tc.value)
			assert.Equal(t, tc.expected, result, "Redacted value should match the expected outcome")
		})
	}
}

func TestRedactQuery(t *testing.T) {
	query := url.Values{
		"component_access_token": {"component-secret"},
		"token":                  {"custom"},
		"lang":                   {"zh_CN"},
	}

	got := RedactQuery(true, query, "token")

	assert.Equal(t, "REDACTED", got.Get("component_access_token"))
	assert.Equal(t, "REDACTED", got.Get("token"))
	assert.Equal(t, "zh_CN", got.Get("lang"))
	assert.Equal(t, "component-secret", query.Get("component_access_token"), "input must not be modified")

	assert.Equal(t, query, RedactQuery(false, query))
}

func TestRedactURL(t *testing.T) {
	raw := "https://api.weixin.qq.com/cgi-bin/component/api_authorizer_token?component_access_token=secret"

	assert.Equal(t, raw, RedactURL(false, raw))
	assert.Equal(t,
		"https://api.weixin.qq.com/cgi-bin/component/api_authorizer_token?component_access_token=REDACTED",
		RedactURL(true, raw),
	)

	assert.Equal(t, "://missing-scheme?access_token=secret", RedactURL(false, "://missing-scheme?access_token=secret"))
	assert.Equal(t, "REDACTED", RedactURL(true, "://missing-scheme?access_token=secret"))
}

func TestRedactHeaders(t *testing.T) {
	headers := http.Header{
		"Authorization": {"Bearer abc"},
		"Accept":        {"application/json"},
	}

	got := RedactHeaders(true, headers)

	assert.Equal(t, []string{"REDACTED"}, got["Authorization"])
	assert.Equal(t, []string{"application/json"}, got["Accept"])
}
