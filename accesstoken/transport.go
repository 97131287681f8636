// accesstoken/transport.go
package accesstoken

import (
	"fmt"
	"net/http"
)

// Transport is an http.RoundTripper that adds the manager's query fields to every request.
type Transport struct {
	Manager *TokenManager
	Base    http.RoundTripper // Base defaults to http.DefaultTransport.
}

// NewTransport wraps base so that requests carry the access token of tm.
func NewTransport(tm *TokenManager, base http.RoundTripper) *Transport {
	return &Transport{Manager: tm, Base: base}
}

// RoundTrip implements http.RoundTripper. The caller's request is not modified.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	fields, err := t.Manager.GetQueryFields(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, fmt.Errorf("accesstoken: attach access token: %w", err)
	}

	clone := req.Clone(req.Context())
	query := clone.URL.Query()
	for name, value := range fields {
		query.Set(name, value)
	}
	clone.URL.RawQuery = query.Encode()

	return t.base().RoundTrip(clone)
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
