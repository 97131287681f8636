// httpclient/request.go
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/headers/redact"
	"github.com/deploymenttheory/go-api-authorizer-token/response"
	"github.com/deploymenttheory/go-api-authorizer-token/version"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Get issues a GET request to endpoint with query merged into any query already present on the URL
// and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, endpoint string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, query, nil, out)
}

// PostJSON JSON-encodes body, POSTs it to endpoint and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, endpoint string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, query, body, out)
}

// Do executes a single request. A 2xx response is decoded into out; any other status is
// returned as *response.APIError. Errors from the underlying transport are wrapped with %w.
func (c *Client) Do(ctx context.Context, method, endpoint string, query url.Values, body, out any) error {
	log := c.Logger

	requestURL, err := buildURL(endpoint, query)
	if err != nil {
		log.Warn("Failed to build request URL", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}
	logURL := redact.RedactURL(c.config.HideSensitiveData, requestURL, c.config.SensitiveQueryKeys...)

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("X-Request-Id", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	log.LogRequestStart("request_start", requestID, method, logURL, redact.RedactHeaders(c.config.HideSensitiveData, req.Header))
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		log.LogError("request_error", method, logURL, 0, "", err, "")
		return fmt.Errorf("%s %s: %w", method, logURL, err)
	}
	defer resp.Body.Close()

	log.LogRequestEnd("request_end", requestID, method, logURL, resp.StatusCode, time.Since(start))

	if !response.IsSuccessStatusCode(resp.StatusCode) {
		return response.HandleAPIErrorResponse(resp, logURL, log)
	}

	return response.HandleAPISuccessResponse(resp, out, log)
}

// buildURL merges query into the query string already carried by endpoint.
func buildURL(endpoint string, query url.Values) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing endpoint: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("endpoint must be an absolute URL: %q", endpoint)
	}

	if len(query) > 0 {
		merged := parsed.Query()
		for key, values := range query {
			for _, value := range values {
				merged.Add(key, value)
			}
		}
		parsed.RawQuery = merged.Encode()
	}

	return parsed.String(), nil
}
