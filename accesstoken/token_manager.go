// accesstoken/token_manager.go
package accesstoken

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/cache"
	"github.com/deploymenttheory/go-api-authorizer-token/headers/redact"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTokenRefreshEndpoint = "https://api.weixin.qq.com/cgi-bin/component/api_authorizer_token"
	DefaultQueryName            = "access_token"
	DefaultCacheKeyPrefix       = "easywechat.common.access_token."
	DefaultSafetyMargin         = 1500 * time.Second
	DefaultTokenLifetime        = 7200 * time.Second
)

// HTTPClient is the transport the manager refreshes tokens through. httpclient.Client satisfies it.
// PostJSON must JSON-encode body, attach query to endpoint and decode a 2xx body into out.
type HTTPClient interface {
	PostJSON(ctx context.Context, endpoint string, query url.Values, body, out any) error
}

// TokenManager holds one Credential and keeps its authorizer access token fresh.
// It is safe for concurrent use.
type TokenManager struct {
	mu   sync.RWMutex
	cred Credential

	client            HTTPClient
	cache             cache.Cache
	log               logger.Logger
	queryName         string
	endpoint          string
	cacheKeyPrefix    string
	safetyMargin      time.Duration
	hideSensitiveData bool
	now               func() time.Time

	refreshGroup singleflight.Group
}

// Option configures a TokenManager.
type Option func(*TokenManager)

// WithCache shares tokens through c. Without a cache only the in-memory Credential is consulted.
func WithCache(c cache.Cache) Option {
	return func(tm *TokenManager) { tm.cache = c }
}

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(log logger.Logger) Option {
	return func(tm *TokenManager) {
		if log != nil {
			tm.log = log
		}
	}
}

// WithQueryName sets the query parameter name returned by GetQueryFields.
func WithQueryName(name string) Option {
	return func(tm *TokenManager) {
		if name != "" {
			tm.queryName = name
		}
	}
}

// WithTokenRefreshEndpoint overrides the refresh endpoint.
func WithTokenRefreshEndpoint(endpoint string) Option {
	return func(tm *TokenManager) {
		if endpoint != "" {
			tm.endpoint = endpoint
		}
	}
}

// WithCacheKeyPrefix overrides the prefix of cache keys.
func WithCacheKeyPrefix(prefix string) Option {
	return func(tm *TokenManager) { tm.cacheKeyPrefix = prefix }
}

// WithSafetyMargin sets how much earlier than the server-reported lifetime a cached token expires.
func WithSafetyMargin(margin time.Duration) Option {
	return func(tm *TokenManager) {
		if margin >= 0 {
			tm.safetyMargin = margin
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(tm *TokenManager) {
		if now != nil {
			tm.now = now
		}
	}
}

// WithHideSensitiveData controls whether token values are redacted in log output.
func WithHideSensitiveData(hide bool) Option {
	return func(tm *TokenManager) { tm.hideSensitiveData = hide }
}

// NewTokenManager validates cred and returns a manager that refreshes through client.
func NewTokenManager(cred Credential, client HTTPClient, opts ...Option) (*TokenManager, error) {
	if err := cred.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, ErrNoHTTPClient
	}

	tm := &TokenManager{
		cred:              cred,
		client:            client,
		log:               logger.NewNopLogger(),
		queryName:         DefaultQueryName,
		endpoint:          DefaultTokenRefreshEndpoint,
		cacheKeyPrefix:    DefaultCacheKeyPrefix,
		safetyMargin:      DefaultSafetyMargin,
		hideSensitiveData: true,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}

	tm.log = tm.log.With(zap.String("authorizer_appid", cred.AuthorizerID))
	return tm, nil
}

// GetToken returns a valid authorizer access token.
//
// Unless forceRefresh is set, the held token is returned while it is unexpired, and a configured
// cache is consulted before the remote endpoint. Errors from the refresh call are returned as is.
func (tm *TokenManager) GetToken(ctx context.Context, forceRefresh bool) (string, error) {
	if !forceRefresh {
		if tm.CheckExpires() {
			tm.mu.RLock()
			token := tm.cred.AccessToken
			tm.mu.RUnlock()
			return token, nil
		}

		if token, ok := tm.fetchCached(ctx); ok {
			return token, nil
		}
	}

	resp, err := tm.RefreshFromServer(ctx)
	if err != nil {
		return "", err
	}
	return resp.AuthorizerAccessToken, nil
}

// CheckExpires reports whether the held access token is still valid, i.e. now is strictly
// before ExpiresAt. No skew buffer is applied.
func (tm *TokenManager) CheckExpires() bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.now().Before(tm.cred.ExpiresAt)
}

// GetQueryFields returns the query parameter that authenticates an outbound API call.
func (tm *TokenManager) GetQueryFields(ctx context.Context) (map[string]string, error) {
	token, err := tm.GetToken(ctx, false)
	if err != nil {
		return nil, err
	}
	return map[string]string{tm.QueryName(): token}, nil
}

// CacheKey is the key the token is cached under: prefix, component appid, ".", authorizer appid.
// The authorizer suffix keeps authorizers of one component apart, so keys do not match those of
// easywechat, which caches under prefix + appid alone.
func (tm *TokenManager) CacheKey() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cacheKeyPrefix + tm.cred.ApplicationID + "." + tm.cred.AuthorizerID
}

func (tm *TokenManager) fetchCached(ctx context.Context) (string, bool) {
	c := tm.Cache()
	if c == nil {
		return "", false
	}

	key := tm.CacheKey()
	token, ok, err := c.Fetch(ctx, key)
	if err != nil {
		tm.log.Warn("Token cache lookup failed, refreshing from server", zap.String("key", key), zap.Error(err))
		return "", false
	}
	if !ok || token == "" {
		return "", false
	}

	tm.log.Debug("Authorizer access token served from cache",
		zap.String("key", key),
		zap.String("access_token", redact.RedactSensitiveHeaderData(tm.hideSensitiveData, "access_token", token)),
	)
	return token, true
}

// ApplicationID returns the component application id.
func (tm *TokenManager) ApplicationID() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cred.ApplicationID
}

// Secret returns the component application secret.
func (tm *TokenManager) Secret() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cred.ApplicationSecret
}

// AuthorizerID returns the authorizer application id.
func (tm *TokenManager) AuthorizerID() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cred.AuthorizerID
}

// Credential returns a snapshot of the current credential state.
func (tm *TokenManager) Credential() Credential {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cred
}

// Cache returns the configured cache, or nil.
func (tm *TokenManager) Cache() cache.Cache {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.cache
}

// SetCache replaces the cache. nil disables caching.
func (tm *TokenManager) SetCache(c cache.Cache) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.cache = c
}

// HTTPClient returns the refresh transport.
func (tm *TokenManager) HTTPClient() HTTPClient {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.client
}

// SetHTTPClient replaces the refresh transport.
func (tm *TokenManager) SetHTTPClient(client HTTPClient) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.client = client
}

// QueryName returns the query parameter name used by GetQueryFields.
func (tm *TokenManager) QueryName() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.queryName
}

// SetQueryName sets the query parameter name. An empty name restores DefaultQueryName.
func (tm *TokenManager) SetQueryName(name string) {
	if name == "" {
		name = DefaultQueryName
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.queryName = name
}
