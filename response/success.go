// response/success.go
/* Responsible for handling successful API responses. It reads the response body, logs the raw response details,
and decodes JSON content into the caller supplied value. */
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"go.uber.org/zap"
)

// jsonMimeTypes are the content types decoded as JSON. text/plain is included because the
// WeChat API serves JSON under that label.
var jsonMimeTypes = map[string]bool{
	"application/json": true,
	"text/json":        true,
	"text/plain":       true,
	"":                 true,
}

// IsSuccessStatusCode reports whether statusCode is in the 2xx range.
func IsSuccessStatusCode(statusCode int) bool {
	return statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
}

// HandleAPISuccessResponse reads the response body and decodes it into out.
// A nil out discards the body. When out is a *json.RawMessage the body is stored verbatim.
func HandleAPISuccessResponse(resp *http.Response, out any, log logger.Logger) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return log.Error("Failed to read response body", zap.Error(err))
	}

	log.Debug("Raw HTTP Response", zap.Int("status_code", resp.StatusCode), zap.Int("body_size", len(bodyBytes)))

	if out == nil {
		return nil
	}

	contentType := resp.Header.Get("Content-Type")
	mimeType, _ := ParseContentTypeHeader(contentType)
	if !jsonMimeTypes[mimeType] {
		log.Warn("Unexpected MIME type in success response", zap.String("content_type", contentType))
		return fmt.Errorf("unexpected MIME type: %s", contentType)
	}

	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], bytes.TrimSpace(bodyBytes)...)
		return nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Warn("JSON Unmarshal error", zap.String("content_type", contentType), zap.Error(err))
		return fmt.Errorf("decoding response body: %w", err)
	}

	return nil
}
