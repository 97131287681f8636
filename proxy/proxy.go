// proxy.go

package proxy

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-api-authorizer-token/headers/redact"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"go.uber.org/zap"
)

// InitializeProxy routes httpClient through proxyURL.
// It supports proxy authentication using username/password or a bearer token (e.g. for SSO gateways).
// An empty proxyURL leaves the client untouched.
func InitializeProxy(httpClient *http.Client, proxyURL, proxyUsername, proxyPassword, authToken string, log logger.Logger) error {
	if proxyURL == "" {
		return nil
	}

	parsedProxyURL, err := url.Parse(proxyURL)
	if err != nil {
		log.Warn("Failed to parse proxy URL", zap.Error(err))
		return fmt.Errorf("parsing proxy URL: %w", err)
	}
	if parsedProxyURL.Scheme == "" || parsedProxyURL.Host == "" {
		return log.Error("Proxy URL must be absolute", zap.String("ProxyURL", proxyURL))
	}

	transport := &http.Transport{
		Proxy: http.ProxyURL(parsedProxyURL),
	}

	switch {
	case proxyUsername != "" && proxyPassword != "":
		parsedProxyURL.User = url.UserPassword(proxyUsername, proxyPassword)
	case authToken != "":
		transport.ProxyConnectHeader = http.Header{
			"Authorization": []string{"Bearer " + authToken},
		}
	}

	httpClient.Transport = transport

	log.Info("Proxy configured",
		zap.String("ProxyURL", parsedProxyURL.Redacted()),
		zap.String("ProxyAuthToken", redact.RedactSensitiveHeaderData(true, "Authorization", authToken)),
	)
	return nil
}
