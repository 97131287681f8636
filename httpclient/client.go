// httpclient/client.go
/* The httpclient package provides the JSON over HTTP transport used to talk to the token-issuing
endpoint and to the API calls that carry the resulting token. It encodes request bodies, tags every
request with a request id, logs request start and end with credentials redacted, and maps non-2xx
responses to *response.APIError. Transport failures are returned wrapped but otherwise untouched;
retries are left to the caller. */
package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"github.com/deploymenttheory/go-api-authorizer-token/proxy"
	"github.com/deploymenttheory/go-api-authorizer-token/redirecthandler"
	"go.uber.org/zap"
)

const (
	DefaultTimeout           = 10 * time.Second
	DefaultHideSensitiveData = true
)

// ClientConfig holds the transport settings for a Client.
type ClientConfig struct {
	Timeout time.Duration

	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	ProxyAuthToken string

	// HideSensitiveData redacts token query parameters and headers in log output.
	HideSensitiveData bool
	// SensitiveQueryKeys lists extra query parameters to redact, e.g. a custom token query name.
	SensitiveQueryKeys []string

	// FollowRedirects enables redirect handling; otherwise a 3xx response is returned as an APIError.
	FollowRedirects bool
	MaxRedirects    int
}

// Client is a JSON HTTP client.
type Client struct {
	config ClientConfig
	http   *http.Client
	Logger logger.Logger
}

// BuildClient creates a new Client with the provided configuration.
func BuildClient(config ClientConfig, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if err := validateClientConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{Timeout: config.Timeout}

	if err := proxy.InitializeProxy(httpClient, config.ProxyURL, config.ProxyUsername, config.ProxyPassword, config.ProxyAuthToken, log); err != nil {
		return nil, err
	}

	if config.FollowRedirects && config.MaxRedirects == 0 {
		config.MaxRedirects = redirecthandler.DefaultMaxRedirects
	}
	if err := redirecthandler.SetupRedirectHandler(httpClient, config.FollowRedirects, config.MaxRedirects, config.HideSensitiveData, log); err != nil {
		return nil, err
	}

	log.Debug("HTTP client initialized", zap.Duration("timeout", config.Timeout), zap.Bool("proxy", config.ProxyURL != ""))

	return &Client{
		config: config,
		http:   httpClient,
		Logger: log,
	}, nil
}

// NewClient wraps an existing *http.Client, e.g. the one returned by httptest.Server.Client.
func NewClient(httpClient *http.Client, config ClientConfig, log logger.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Client{config: config, http: httpClient, Logger: log}
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func validateClientConfig(config ClientConfig) error {
	if config.Timeout < 0 {
		return errors.New("timeout cannot be less than 0 seconds")
	}
	if config.MaxRedirects < 0 {
		return errors.New("max redirects cannot be less than 0")
	}
	if config.ProxyURL == "" && (config.ProxyUsername != "" || config.ProxyPassword != "" || config.ProxyAuthToken != "") {
		return errors.New("proxy credentials supplied without a proxy URL")
	}
	return nil
}
