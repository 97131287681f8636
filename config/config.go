// config/config.go
// Description: configuration of the authorizer token tooling, loaded from a JSON file, a .env file,
// environment variables and command line flags.
package config

import (
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/accesstoken"
	"github.com/deploymenttheory/go-api-authorizer-token/httpclient"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"github.com/deploymenttheory/go-api-authorizer-token/redirecthandler"
)

const (
	CacheBackendNone     = "none"
	CacheBackendMemory   = "memory"
	CacheBackendFile     = "file"
	CacheBackendPostgres = "postgres"
)

const (
	DefaultLogLevelString        = "LogLevelInfo"
	DefaultLogOutputFormatString = logger.LogOutputJSON
	DefaultCacheBackend          = CacheBackendFile
	DefaultHideSensitiveData     = true
	DefaultTimeout               = httpclient.DefaultTimeout
	DefaultSafetyMargin          = accesstoken.DefaultSafetyMargin
	DefaultMaxRedirects          = redirecthandler.DefaultMaxRedirects
)

// Config holds every setting needed to build a TokenManager and its collaborators.
type Config struct {
	// Component and authorizer identity.
	ComponentAppID         string    `json:"component_appid" validate:"required"`
	ComponentAppSecret     string    `json:"component_appsecret"`
	AuthorizerAppID        string    `json:"authorizer_appid" validate:"required"`
	AuthorizerAccessToken  string    `json:"authorizer_access_token"`
	AuthorizerRefreshToken string    `json:"authorizer_refresh_token" validate:"required"`
	ComponentAccessToken   string    `json:"component_access_token" validate:"required"`
	ExpiresAt              time.Time `json:"expires_at"`

	// Token endpoint and request shaping.
	TokenRefreshEndpoint string `json:"token_refresh_endpoint" validate:"omitempty,url"`
	QueryName            string `json:"query_name"`

	// Cache.
	CacheBackend   string   `json:"cache_backend" validate:"oneof=none memory file postgres"`
	CacheDir       string   `json:"cache_dir"`
	DatabaseURL    string   `json:"database_url" validate:"required_if=CacheBackend postgres"`
	CacheKeyPrefix string   `json:"cache_key_prefix"`
	SafetyMargin   Duration `json:"safety_margin"`

	// Transport.
	Timeout        Duration `json:"timeout"`
	ProxyURL       string   `json:"proxy_url" validate:"omitempty,url"`
	ProxyUsername  string   `json:"proxy_username"`
	ProxyPassword  string   `json:"proxy_password"`
	ProxyAuthToken string   `json:"proxy_auth_token"`

	FollowRedirects bool `json:"follow_redirects"`
	MaxRedirects    int  `json:"max_redirects" validate:"gte=0"`

	// Logging.
	LogLevel          string `json:"log_level" validate:"oneof=LogLevelDebug LogLevelInfo LogLevelWarn LogLevelError LogLevelDPanic LogLevelPanic LogLevelFatal LogLevelNone"`
	LogOutputFormat   string `json:"log_output_format" validate:"oneof=json pretty"`
	HideSensitiveData bool   `json:"hide_sensitive_data"`
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		TokenRefreshEndpoint: accesstoken.DefaultTokenRefreshEndpoint,
		QueryName:            accesstoken.DefaultQueryName,
		CacheBackend:         DefaultCacheBackend,
		CacheKeyPrefix:       accesstoken.DefaultCacheKeyPrefix,
		SafetyMargin:         Duration(DefaultSafetyMargin),
		Timeout:              Duration(DefaultTimeout),
		LogLevel:             DefaultLogLevelString,
		LogOutputFormat:      DefaultLogOutputFormatString,
		HideSensitiveData:    DefaultHideSensitiveData,
		MaxRedirects:         DefaultMaxRedirects,
	}
}

// Credential returns the accesstoken.Credential described by c.
func (c *Config) Credential() accesstoken.Credential {
	return accesstoken.Credential{
		ApplicationID:     c.ComponentAppID,
		ApplicationSecret: c.ComponentAppSecret,
		AuthorizerID:      c.AuthorizerAppID,
		AccessToken:       c.AuthorizerAccessToken,
		RefreshToken:      c.AuthorizerRefreshToken,
		ExpiresAt:         c.ExpiresAt,
		ComponentToken:    c.ComponentAccessToken,
	}
}

// ClientConfig returns the HTTP transport settings described by c.
func (c *Config) ClientConfig() httpclient.ClientConfig {
	cfg := httpclient.ClientConfig{
		Timeout:           c.Timeout.Duration(),
		ProxyURL:          c.ProxyURL,
		ProxyUsername:     c.ProxyUsername,
		ProxyPassword:     c.ProxyPassword,
		ProxyAuthToken:    c.ProxyAuthToken,
		HideSensitiveData: c.HideSensitiveData,
		FollowRedirects:   c.FollowRedirects,
		MaxRedirects:      c.MaxRedirects,
	}
	if c.QueryName != "" && c.QueryName != accesstoken.DefaultQueryName {
		cfg.SensitiveQueryKeys = []string{c.QueryName}
	}
	return cfg
}

// TokenManagerOptions returns the accesstoken options described by c. The cache is not included;
// it is opened separately because it may need a database connection.
func (c *Config) TokenManagerOptions() []accesstoken.Option {
	return []accesstoken.Option{
		accesstoken.WithTokenRefreshEndpoint(c.TokenRefreshEndpoint),
		accesstoken.WithQueryName(c.QueryName),
		accesstoken.WithCacheKeyPrefix(c.CacheKeyPrefix),
		accesstoken.WithSafetyMargin(c.SafetyMargin.Duration()),
		accesstoken.WithHideSensitiveData(c.HideSensitiveData),
	}
}

// Level returns the parsed log level.
func (c *Config) Level() logger.LogLevel {
	return logger.ParseLogLevelFromString(c.LogLevel)
}
