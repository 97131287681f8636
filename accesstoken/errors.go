// accesstoken/errors.go
package accesstoken

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredential is returned by NewTokenManager when required Credential fields are missing.
	ErrInvalidCredential = errors.New("accesstoken: invalid credential")
	// ErrNoHTTPClient is returned when no HTTPClient has been supplied.
	ErrNoHTTPClient = errors.New("accesstoken: http client is required")
)

// RefreshError is returned when the token endpoint answers without a usable
// authorizer_access_token. Response holds the compact JSON body for diagnostics.
type RefreshError struct {
	Response string // Response is the serialized response body.
	ErrCode  int    // ErrCode is the platform error code, when present.
	ErrMsg   string // ErrMsg is the platform error message, when present.
	Err      error  // Err is set when the body could not be decoded at all.
}

// Error implements error.
func (e *RefreshError) Error() string {
	if e.ErrCode != 0 {
		return fmt.Sprintf("request AccessToken fail (errcode %d: %s). response: %s", e.ErrCode, e.ErrMsg, e.Response)
	}
	return "request AccessToken fail. response: " + e.Response
}

// Unwrap returns the decode error, if any.
func (e *RefreshError) Unwrap() error {
	return e.Err
}
