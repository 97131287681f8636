// config/load.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const ConfigFileExtension = ".json"

// LoadConfigFromFile loads configuration settings from a JSON file.
// Fields missing from the file keep their default values.
func LoadConfigFromFile(path string) (*Config, error) {
	absPath, err := validateFilePath(path)
	if err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	byteValue, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("could not read file: %w", err)
	}

	config := NewConfig()
	if err := json.Unmarshal(byteValue, config); err != nil {
		return nil, fmt.Errorf("could not unmarshal JSON: %w", err)
	}

	SetDefaultValues(config)
	return config, nil
}

// LoadConfigFromEnv builds a Config from defaults overridden by environment variables read through getenv.
func LoadConfigFromEnv(getenv func(string) string) (*Config, error) {
	config := NewConfig()
	if err := config.LoadEnv(getenv); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadDotEnv applies the variables of dir/.env. A missing file is not an error.
func (c *Config) LoadDotEnv(dir string) error {
	envMap, err := godotenv.Read(filepath.Join(dir, ".env"))

	switch {
	case err == nil:
		return c.LoadEnv(func(key string) string {
			return envMap[key]
		})
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("could not read .env: %w", err)
	}
}

// LoadEnv overrides fields with the non-empty environment variables read through getenv.
func (c *Config) LoadEnv(getenv func(string) string) error {
	setString := func(o *string) func(string) error {
		return func(value string) error {
			*o = value
			return nil
		}
	}
	setBool := func(o *bool) func(string) error {
		return func(value string) error {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return err
			}
			*o = b
			return nil
		}
	}
	setInt := func(o *int) func(string) error {
		return func(value string) error {
			n, err := strconv.Atoi(value)
			if err != nil {
				return err
			}
			*o = n
			return nil
		}
	}
	setDuration := func(o *Duration) func(string) error {
		return o.Set
	}
	setTime := func(o *time.Time) func(string) error {
		return func(value string) error {
			t, err := parseTime(value)
			if err != nil {
				return err
			}
			*o = t
			return nil
		}
	}

	envMap := map[string]func(string) error{
		"COMPONENT_APPID":             setString(&c.ComponentAppID),
		"COMPONENT_APPSECRET":         setString(&c.ComponentAppSecret),
		"AUTHORIZER_APPID":            setString(&c.AuthorizerAppID),
		"AUTHORIZER_ACCESS_TOKEN":     setString(&c.AuthorizerAccessToken),
		"AUTHORIZER_REFRESH_TOKEN":    setString(&c.AuthorizerRefreshToken),
		"COMPONENT_ACCESS_TOKEN":      setString(&c.ComponentAccessToken),
		"AUTHORIZER_TOKEN_EXPIRES_AT": setTime(&c.ExpiresAt),
		"TOKEN_REFRESH_ENDPOINT":      setString(&c.TokenRefreshEndpoint),
		"TOKEN_QUERY_NAME":            setString(&c.QueryName),
		"CACHE_BACKEND":               setString(&c.CacheBackend),
		"CACHE_DIR":                   setString(&c.CacheDir),
		"DATABASE_URL":                setString(&c.DatabaseURL),
		"CACHE_KEY_PREFIX":            setString(&c.CacheKeyPrefix),
		"SAFETY_MARGIN":               setDuration(&c.SafetyMargin),
		"CUSTOM_TIMEOUT":              setDuration(&c.Timeout),
		"PROXY_URL":                   setString(&c.ProxyURL),
		"PROXY_USERNAME":              setString(&c.ProxyUsername),
		"PROXY_PASSWORD":              setString(&c.ProxyPassword),
		"PROXY_AUTH_TOKEN":            setString(&c.ProxyAuthToken),
		"FOLLOW_REDIRECTS":            setBool(&c.FollowRedirects),
		"MAX_REDIRECTS":               setInt(&c.MaxRedirects),
		"LOG_LEVEL":                   setString(&c.LogLevel),
		"LOG_OUTPUT_FORMAT":           setString(&c.LogOutputFormat),
		"HIDE_SENSITIVE_DATA":         setBool(&c.HideSensitiveData),
	}

	var errs []error
	for key, parseFn := range envMap {
		value := strings.TrimSpace(getenv(key))
		if value == "" {
			continue
		}
		if err := parseFn(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// FlagSet returns a flag set bound to c, so callers can register extra flags before parsing.
func (c *Config) FlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringVar(&c.ComponentAppID, "component-appid", c.ComponentAppID, "Component application id")
	fs.StringVar(&c.ComponentAppSecret, "component-appsecret", c.ComponentAppSecret, "Component application secret")
	fs.StringVarP(&c.AuthorizerAppID, "authorizer-appid", "a", c.AuthorizerAppID, "Authorizer application id")
	fs.StringVar(&c.AuthorizerAccessToken, "access-token", c.AuthorizerAccessToken, "Currently held authorizer access token")
	fs.StringVarP(&c.AuthorizerRefreshToken, "refresh-token", "r", c.AuthorizerRefreshToken, "Authorizer refresh token")
	fs.StringVarP(&c.ComponentAccessToken, "component-token", "t", c.ComponentAccessToken, "Component access token")
	fs.StringVarP(&c.TokenRefreshEndpoint, "endpoint", "e", c.TokenRefreshEndpoint, "Token refresh endpoint")
	fs.StringVar(&c.QueryName, "query-name", c.QueryName, "Query parameter name carrying the access token")
	fs.StringVarP(&c.CacheBackend, "cache", "c", c.CacheBackend, "Cache backend (none, memory, file, postgres)")
	fs.StringVar(&c.CacheDir, "cache-dir", c.CacheDir, "Directory of the file cache")
	fs.StringVarP(&c.DatabaseURL, "database", "d", c.DatabaseURL, "PostgreSQL connection string of the postgres cache")
	fs.StringVar(&c.CacheKeyPrefix, "cache-prefix", c.CacheKeyPrefix, "Cache key prefix")
	fs.Var(&c.SafetyMargin, "safety-margin", "How much earlier than its lifetime a cached token expires")
	fs.Var(&c.Timeout, "timeout", "HTTP request timeout")
	fs.StringVar(&c.ProxyURL, "proxy", c.ProxyURL, "Proxy URL")
	fs.StringVar(&c.ProxyUsername, "proxy-username", c.ProxyUsername, "Proxy basic auth username")
	fs.StringVar(&c.ProxyPassword, "proxy-password", c.ProxyPassword, "Proxy basic auth password")
	fs.StringVar(&c.ProxyAuthToken, "proxy-auth-token", c.ProxyAuthToken, "Proxy bearer token")
	fs.BoolVar(&c.FollowRedirects, "follow-redirects", c.FollowRedirects, "Follow redirects from the token endpoint")
	fs.IntVar(&c.MaxRedirects, "max-redirects", c.MaxRedirects, "Maximum redirects to follow")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)")
	fs.StringVar(&c.LogOutputFormat, "log-format", c.LogOutputFormat, "Log output format (json, pretty)")
	fs.BoolVar(&c.HideSensitiveData, "hide-sensitive-data", c.HideSensitiveData, "Redact tokens in log output")

	return fs
}

// ParseFlags overrides fields with command line flags.
func (c *Config) ParseFlags(args []string) error {
	return c.FlagSet("authorizer-token").Parse(args)
}

// SetDefaultValues fills empty fields with their default values.
func SetDefaultValues(config *Config) {
	defaults := NewConfig()
	setDefaultString(&config.TokenRefreshEndpoint, defaults.TokenRefreshEndpoint)
	setDefaultString(&config.QueryName, defaults.QueryName)
	setDefaultString(&config.CacheBackend, defaults.CacheBackend)
	setDefaultString(&config.LogLevel, defaults.LogLevel)
	setDefaultString(&config.LogOutputFormat, defaults.LogOutputFormat)
	setDefaultDuration(&config.Timeout, defaults.Timeout)
}

func setDefaultString(field *string, defaultValue string) {
	if *field == "" {
		*field = defaultValue
	}
}

func setDefaultDuration(field *Duration, defaultValue Duration) {
	if *field == 0 {
		*field = defaultValue
	}
}

// parseTime accepts RFC 3339 timestamps or unix seconds.
func parseTime(value string) (time.Time, error) {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(n, 0), nil
	}
	return time.Parse(time.RFC3339, value)
}

func validateFilePath(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	absPath, err := filepath.EvalSymlinks(cleanPath)
	if err != nil {
		return "", fmt.Errorf("unable to resolve the absolute path of the configuration file: %s, error: %w", path, err)
	}

	if filepath.Ext(absPath) != ConfigFileExtension {
		return "", fmt.Errorf("invalid file extension for configuration file: %s, expected .json", path)
	}

	return absPath, nil
}
