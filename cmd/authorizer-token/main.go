// Command authorizer-token prints a valid WeChat authorizer access token, refreshing it through the
// component token endpoint when the held one has expired.
//
// Settings are read, in increasing precedence, from defaults, a JSON file (--config), a .env file in
// the working directory, environment variables and flags.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/deploymenttheory/go-api-authorizer-token/accesstoken"
	"github.com/deploymenttheory/go-api-authorizer-token/cache"
	"github.com/deploymenttheory/go-api-authorizer-token/cache/filecache"
	"github.com/deploymenttheory/go-api-authorizer-token/cache/pgcache"
	"github.com/deploymenttheory/go-api-authorizer-token/config"
	"github.com/deploymenttheory/go-api-authorizer-token/httpclient"
	"github.com/deploymenttheory/go-api-authorizer-token/logger"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const commandName = "authorizer-token"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{
		getenv:      os.Getenv,
		getwd:       os.Getwd,
		stdout:      os.Stdout,
		buildLogger: logger.BuildLogger,
	}
	if err := c.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "%s: %v\n", commandName, err)
		os.Exit(1)
	}
}

type cli struct {
	getenv      func(string) string
	getwd       func() (string, error)
	stdout      io.Writer
	buildLogger func(level logger.LogLevel, format string) logger.Logger
}

type options struct {
	configPath string
	force      bool
	query      bool
	asJSON     bool
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.StringVar(&o.configPath, "config", o.configPath, "JSON configuration file")
	fs.BoolVarP(&o.force, "force", "f", o.force, "Refresh even if the held token is still valid")
	fs.BoolVarP(&o.query, "query", "q", o.query, "Print the query fields (name=value) instead of the bare token")
	fs.BoolVar(&o.asJSON, "json", o.asJSON, "Print the token state as JSON, including a rotated refresh token")
}

// output is the --json representation of the token state.
type output struct {
	AuthorizerAppID        string    `json:"authorizer_appid"`
	AuthorizerAccessToken  string    `json:"authorizer_access_token"`
	AuthorizerRefreshToken string    `json:"authorizer_refresh_token"`
	ExpiresAt              time.Time `json:"expires_at,omitempty"`
}

func (c *cli) loadConfig(args []string) (*config.Config, options, error) {
	var opts options

	// First pass only discovers --config so the file can sit below env and flags.
	probe := config.NewConfig().FlagSet(commandName)
	opts.register(probe)
	if err := probe.Parse(args); err != nil {
		return nil, opts, err
	}

	cfg := config.NewConfig()
	if opts.configPath != "" {
		loaded, err := config.LoadConfigFromFile(opts.configPath)
		if err != nil {
			return nil, opts, err
		}
		cfg = loaded
	}

	wd, err := c.getwd()
	if err != nil {
		return nil, opts, err
	}
	if err := cfg.LoadDotEnv(wd); err != nil {
		return nil, opts, err
	}
	if err := cfg.LoadEnv(c.getenv); err != nil {
		return nil, opts, err
	}

	fs := cfg.FlagSet(commandName)
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return nil, opts, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, opts, err
	}
	return cfg, opts, nil
}

func (c *cli) run(ctx context.Context, args []string) error {
	cfg, opts, err := c.loadConfig(args)
	if err != nil {
		return err
	}

	log := c.buildLogger(cfg.Level(), cfg.LogOutputFormat)

	client, err := httpclient.BuildClient(cfg.ClientConfig(), log)
	if err != nil {
		return err
	}

	tokenCache, closeCache, err := openCache(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	tmOpts := append(cfg.TokenManagerOptions(), accesstoken.WithLogger(log))
	if tokenCache != nil {
		tmOpts = append(tmOpts, accesstoken.WithCache(tokenCache))
	}

	tm, err := accesstoken.NewTokenManager(cfg.Credential(), client, tmOpts...)
	if err != nil {
		return err
	}

	switch {
	case opts.query:
		if opts.force {
			if _, err := tm.GetToken(ctx, true); err != nil {
				return err
			}
		}
		fields, err := tm.GetQueryFields(ctx)
		if err != nil {
			return err
		}
		return printFields(c.stdout, fields)

	case opts.asJSON:
		token, err := tm.GetToken(ctx, opts.force)
		if err != nil {
			return err
		}
		cred := tm.Credential()
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(output{
			AuthorizerAppID:        cred.AuthorizerID,
			AuthorizerAccessToken:  token,
			AuthorizerRefreshToken: cred.RefreshToken,
			ExpiresAt:              cred.ExpiresAt,
		})

	default:
		token, err := tm.GetToken(ctx, opts.force)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(c.stdout, token)
		return err
	}
}

// openCache opens the configured cache backend. The returned func releases it.
func openCache(ctx context.Context, cfg *config.Config, log logger.Logger) (cache.Cache, func(), error) {
	noop := func() {}

	switch cfg.CacheBackend {
	case config.CacheBackendNone:
		return nil, noop, nil

	case config.CacheBackendMemory:
		return cache.NewMemory(), noop, nil

	case config.CacheBackendFile:
		store, err := filecache.New(cfg.CacheDir)
		if err != nil {
			return nil, noop, err
		}
		log.Debug("Using file token cache", zap.String("dir", store.Dir()))
		return store, noop, nil

	case config.CacheBackendPostgres:
		pool, err := pgcache.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		store := pgcache.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		log.Debug("Using postgres token cache")
		return store, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

func printFields(w io.Writer, fields map[string]string) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s=%s\n", name, fields[name]); err != nil {
			return err
		}
	}
	return nil
}
