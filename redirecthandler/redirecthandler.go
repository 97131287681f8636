// redirecthandler/redirecthandler.go
package redirecthandler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/deploymenttheory/go-api-authorizer-token/headers/redact"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"go.uber.org/zap"
)

const DefaultMaxRedirects = 5

// RedirectHandler is the redirect policy of the token client. It caps the number of hops, stops on
// loops and refuses to carry token query parameters to another host.
type RedirectHandler struct {
	Logger            logger.Logger
	MaxRedirects      int      // Maximum allowed redirects.
	SensitiveHeaders  []string // Headers removed on cross-host redirects.
	HideSensitiveData bool     // Redact token values in redirect log entries.
}

// NewRedirectHandler creates a new instance of RedirectHandler.
func NewRedirectHandler(log logger.Logger, maxRedirects int) *RedirectHandler {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &RedirectHandler{
		Logger:            log,
		MaxRedirects:      maxRedirects,
		SensitiveHeaders:  []string{"Authorization", "Cookie"},
		HideSensitiveData: true,
	}
}

// AddSensitiveHeader allows adding configurable sensitive headers.
func (r *RedirectHandler) AddSensitiveHeader(header string) {
	r.SensitiveHeaders = append(r.SensitiveHeaders, header)
}

// WithRedirectHandling applies the redirect handling policy to an http.Client.
func (r *RedirectHandler) WithRedirectHandling(client *http.Client) {
	client.CheckRedirect = r.checkRedirect
}

// checkRedirect is an http.Client CheckRedirect func. req is the request about to be sent,
// via the requests already made, oldest first.
func (r *RedirectHandler) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= r.MaxRedirects {
		r.Logger.Warn("Maximum redirects reached", zap.Int("maxRedirects", r.MaxRedirects))
		return &MaxRedirectsError{MaxRedirects: r.MaxRedirects}
	}

	history := make([]*url.URL, 0, len(via)+1)
	for _, v := range via {
		history = append(history, v.URL)
	}
	history = append(history, req.URL)
	if hasLoop(history) {
		r.Logger.Warn("Redirect loop detected", zap.String("url", r.redacted(req.URL)))
		return &RedirectLoopError{URL: r.redacted(req.URL)}
	}

	previous := via[len(via)-1].URL
	if req.URL.Host != previous.Host {
		if key, ok := sensitiveQueryKey(req.URL.Query()); ok {
			r.Logger.Warn("Refusing cross-host redirect carrying a token",
				zap.String("from", r.redacted(previous)),
				zap.String("to", r.redacted(req.URL)),
				zap.String("parameter", key),
			)
			return &CrossHostRedirectError{From: previous.Host, To: req.URL.Host}
		}
		r.secureRequest(req)
	}

	r.Logger.Info("Redirecting request",
		zap.String("originalURL", r.redacted(previous)),
		zap.String("newURL", r.redacted(req.URL)),
		zap.Int("redirectCount", len(via)),
	)
	return nil
}

func (r *RedirectHandler) redacted(u *url.URL) string {
	return redact.RedactURL(r.HideSensitiveData, u.String())
}

// secureRequest removes sensitive headers from a request bound for another host.
func (r *RedirectHandler) secureRequest(req *http.Request) {
	for _, header := range r.SensitiveHeaders {
		req.Header.Del(header)
	}
}

func sensitiveQueryKey(query url.Values) (string, bool) {
	for key := range query {
		if redact.IsSensitiveKey(key) {
			return key, true
		}
	}
	return "", false
}

// hasLoop checks if there's a loop in the redirect history.
func hasLoop(history []*url.URL) bool {
	seen := make(map[string]struct{}, len(history))
	for _, u := range history {
		if _, exists := seen[u.String()]; exists {
			return true
		}
		seen[u.String()] = struct{}{}
	}
	return false
}

// RedirectLoopError represents an error when a redirect loop is detected.
type RedirectLoopError struct {
	URL string
}

func (e *RedirectLoopError) Error() string {
	return fmt.Sprintf("redirect loop detected at %s", e.URL)
}

// MaxRedirectsError represents an error when the maximum number of redirects is reached.
type MaxRedirectsError struct {
	MaxRedirects int
}

func (e *MaxRedirectsError) Error() string {
	return fmt.Sprintf("maximum redirects reached: %d", e.MaxRedirects)
}

// CrossHostRedirectError is returned when a redirect would send a token to another host.
type CrossHostRedirectError struct {
	From string
	To   string
}

func (e *CrossHostRedirectError) Error() string {
	return fmt.Sprintf("refusing redirect from %s to %s with token query parameters", e.From, e.To)
}

// SetupRedirectHandler configures redirect handling on client. When followRedirects is false the
// first redirect response is returned to the caller as is.
func SetupRedirectHandler(client *http.Client, followRedirects bool, maxRedirects int, hideSensitiveData bool, log logger.Logger) error {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if !followRedirects {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
		return nil
	}

	if maxRedirects < 1 {
		return log.Error("Invalid maxRedirects value", zap.Int("maxRedirects", maxRedirects))
	}

	redirectHandler := NewRedirectHandler(log, maxRedirects)
	redirectHandler.HideSensitiveData = hideSensitiveData
	redirectHandler.WithRedirectHandling(client)
	log.Debug("Redirect handling enabled", zap.Int("MaxRedirects", maxRedirects))
	return nil
}
