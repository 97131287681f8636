// headers/redact/redact.go
package redact

import (
	"net/http"
	"net/url"
)

const redacted = "REDACTED"

// sensitiveKeys are header names, query parameters and log field names whose values are credentials.
var sensitiveKeys = map[string]bool{
	"AccessToken":              true,
	"RefreshToken":             true,
	"Authorization":            true,
	"access_token":             true,
	"component_access_token":   true,
	"authorizer_access_token":  true,
	"authorizer_refresh_token": true,
}

// IsSensitiveKey reports whether values stored under key must be hidden from logs.
func IsSensitiveKey(key string) bool {
	return sensitiveKeys[key]
}

// RedactSensitiveHeaderData redacts sensitive data based on the hideSensitiveData flag.
func RedactSensitiveHeaderData(hideSensitiveData bool, key, value string) string {
	if hideSensitiveData && IsSensitiveKey(key) {
		return redacted
	}
	return value
}

// RedactQuery returns a copy of query with sensitive parameters replaced.
// extraKeys names additional parameters to hide, e.g. a custom token query name.
func RedactQuery(hideSensitiveData bool, query url.Values, extraKeys ...string) url.Values {
	out := make(url.Values, len(query))
	for key, values := range query {
		copied := make([]string, len(values))
		copy(copied, values)
		if hideSensitiveData && (IsSensitiveKey(key) || contains(extraKeys, key)) {
			for i := range copied {
				copied[i] = redacted
			}
		}
		out[key] = copied
	}
	return out
}

// RedactURL returns rawURL with sensitive query parameters replaced. With redaction disabled rawURL is
// returned unchanged; otherwise unparseable input is replaced by "REDACTED" as a whole.
func RedactURL(hideSensitiveData bool, rawURL string, extraKeys ...string) string {
	if !hideSensitiveData {
		return rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return redacted
	}
	parsed.RawQuery = RedactQuery(true, parsed.Query(), extraKeys...).Encode()
	return parsed.String()
}

// RedactHeaders returns a copy of headers with credential headers replaced.
func RedactHeaders(hideSensitiveData bool, headers http.Header) map[string][]string {
	out := make(map[string][]string, len(headers))
	for key, values := range headers {
		copied := make([]string, len(values))
		for i, value := range values {
			copied[i] = RedactSensitiveHeaderData(hideSensitiveData, key, value)
		}
		out[key] = copied
	}
	return out
}

func contains(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
