// response/error.go
// This package provides utility functions and structures for handling and categorizing HTTP responses.
package response

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// APIError represents a non-2xx response returned by the remote API.
type APIError struct {
	StatusCode  int    `json:"status_code"`       // HTTP status code
	Method      string `json:"method"`            // HTTP method used for the request
	URL         string `json:"url"`               // The URL of the HTTP request
	Message     string `json:"message"`           // Summary of the error
	ErrCode     int    `json:"errcode,omitempty"` // Platform error code, when the body carries one
	RawResponse string `json:"raw_response"`      // Raw response body for debugging
}

// Error returns a string representation of the APIError, making it compatible with the error interface.
func (e *APIError) Error() string {
	message := e.Message
	if message == "" {
		message = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API Error: StatusCode=%d, Method=%s, URL=%s, Message=%s", e.StatusCode, e.Method, e.URL, message)
}

// HandleAPIErrorResponse reads the body of a non-2xx response into an APIError and logs it.
// url is passed in explicitly so callers can hand over a redacted form.
func HandleAPIErrorResponse(resp *http.Response, url string, log logger.Logger) *APIError {
	apiError := &APIError{
		StatusCode: resp.StatusCode,
		URL:        url,
		Message:    "API Error Response",
	}
	if resp.Request != nil {
		apiError.Method = resp.Request.Method
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		apiError.RawResponse = "Failed to read response body"
		log.Warn("Failed to read error response body", zap.Int("status_code", resp.StatusCode), zap.Error(err))
		return apiError
	}

	mimeType, _ := ParseContentTypeHeader(resp.Header.Get("Content-Type"))
	switch mimeType {
	case "application/json":
		parseJSONResponse(bodyBytes, apiError)
	case "application/xml", "text/xml":
		parseXMLResponse(bodyBytes, apiError)
	case "text/html":
		parseHTMLResponse(bodyBytes, apiError)
	case "text/plain":
		parseTextResponse(bodyBytes, apiError)
	default:
		apiError.RawResponse = string(bodyBytes)
		apiError.Message = "Unknown content type error"
	}

	log.LogError("api_error_response", apiError.Method, apiError.URL, apiError.StatusCode, resp.Status, apiError, apiError.RawResponse)

	return apiError
}

// platformError is the error envelope used by the WeChat API and similar platforms.
type platformError struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	Message string `json:"message"`
}

// parseJSONResponse attempts to parse the JSON error response and update the APIError structure.
func parseJSONResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	var envelope platformError
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		apiError.Message = "Failed to decode JSON error response"
		return
	}

	apiError.ErrCode = envelope.ErrCode
	switch {
	case envelope.ErrMsg != "":
		apiError.Message = envelope.ErrMsg
	case envelope.Message != "":
		apiError.Message = envelope.Message
	default:
		apiError.Message = "An unknown error occurred"
	}
}

// parseXMLResponse dynamically parses XML error responses and accumulates potential error messages.
func parseXMLResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	doc, err := xmlquery.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		return
	}

	var messages []string
	var traverse func(*xmlquery.Node)
	traverse = func(n *xmlquery.Node) {
		if n.Type == xmlquery.TextNode && strings.TrimSpace(n.Data) != "" {
			messages = append(messages, strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			traverse(c)
		}
	}

	traverse(doc)

	if len(messages) > 0 {
		apiError.Message = strings.Join(messages, "; ")
	} else {
		apiError.Message = "Failed to extract error details from XML response"
	}
}

// parseTextResponse treats a text/plain body as JSON when it looks like JSON, since the
// WeChat endpoints label JSON payloads as text/plain.
func parseTextResponse(bodyBytes []byte, apiError *APIError) {
	if json.Valid(bodyBytes) {
		parseJSONResponse(bodyBytes, apiError)
		return
	}

	bodyText := string(bodyBytes)
	apiError.RawResponse = bodyText
	apiError.Message = bodyText
}

// parseHTMLResponse extracts meaningful information from an HTML error response,
// concatenating all text within <p> tags and links found within them.
func parseHTMLResponse(bodyBytes []byte, apiError *APIError) {
	apiError.RawResponse = string(bodyBytes)

	doc, err := html.Parse(bytes.NewReader(bodyBytes))
	if err != nil {
		return
	}

	var messages []string
	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			var pContent strings.Builder
			var traverseChildren func(*html.Node)
			traverseChildren = func(c *html.Node) {
				if c.Type == html.TextNode {
					pContent.WriteString(strings.TrimSpace(c.Data) + " ")
				} else if c.Type == html.ElementNode && c.Data == "a" {
					for _, attr := range c.Attr {
						if attr.Key == "href" {
							pContent.WriteString("[Link: " + attr.Val + "] ")
							break
						}
					}
				}
				for child := c.FirstChild; child != nil; child = child.NextSibling {
					traverseChildren(child)
				}
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				traverseChildren(child)
			}
			if finalContent := strings.TrimSpace(pContent.String()); finalContent != "" {
				messages = append(messages, finalContent)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)

	if len(messages) > 0 {
		apiError.Message = strings.Join(messages, "; ")
	} else {
		apiError.Message = "HTML Error: See 'RawResponse' field for details."
	}
}
