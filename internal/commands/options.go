// Package commands implements the apicall command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gaborage/go-apicall/apiclient"
	"github.com/gaborage/go-apicall/cache"
	"github.com/gaborage/go-apicall/cache/redis"
	"github.com/gaborage/go-apicall/config"
	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/observability"
)

// GlobalOptions are the flags shared by every subcommand.
type GlobalOptions struct {
	ConfigPath string
}

// CallOptions hold the flags of a call subcommand.
type CallOptions struct {
	Retry   bool
	Headers []string
	Timeout time.Duration
}

// session owns everything built from configuration for one command run.
type session struct {
	client   *apiclient.Client
	log      logger.Logger
	provider observability.Provider
	store    cache.Cache
	lastErr  error
}

// Retry bounds used by --retry when the config leaves retries unlimited.
const (
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
)

func newSession(ctx context.Context, global *GlobalOptions, retry bool, stderr io.Writer) (*session, error) {
	cfg, err := config.Load(global.ConfigPath)
	if err != nil {
		return nil, err
	}
	if retry {
		boundRetries(&cfg.Client.Retry)
	}

	s := &session{log: newLogger(cfg.Log, stderr)}

	if s.provider, err = observability.NewProvider(&cfg.Observability); err != nil {
		return nil, err
	}

	hooks := apiclient.Hooks{Results: s.captureResults}
	if cfg.Cache.Enabled {
		if s.store, err = openStore(cfg.Cache); err != nil {
			_ = s.close(ctx)
			return nil, err
		}
		hooks = cache.NewResponseCache(s.store, cfg.Cache.TTL, s.log, cache.WithVary(cfg.Cache.Vary...)).Hooks(hooks)
	}

	s.client, err = apiclient.NewFromConfig(cfg,
		apiclient.WithLogger(s.log),
		apiclient.WithObservability(s.provider),
		apiclient.WithHooks(hooks),
	)
	if err != nil {
		_ = s.close(ctx)
		return nil, err
	}
	return s, nil
}

// captureResults keeps the transport error so the command can report it.
func (s *session) captureResults(ctx context.Context, call *apiclient.CallContext) (any, error) {
	s.lastErr = call.Error
	return apiclient.DefaultResults(ctx, call)
}

func (s *session) close(ctx context.Context) error {
	var errs []error
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.provider != nil {
		errs = append(errs, s.provider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// boundRetries caps a retrying CLI call, which would otherwise resend
// without pause for as long as the upstream keeps failing.
func boundRetries(rc *config.RetryConfig) {
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = defaultRetryAttempts
	}
	if rc.Backoff <= 0 {
		rc.Backoff = defaultRetryBackoff
	}
}

func newLogger(lc config.LogConfig, w io.Writer) logger.Logger {
	if lc.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return logger.NewWithWriter(w, lc.Level, nil)
}

func openStore(cc config.CacheConfig) (cache.Cache, error) {
	if cc.Redis.Host == "" {
		return cache.NewMemory(), nil
	}
	return redis.NewClient(redis.FromConfig(cc.Redis))
}

// parseArgs turns key=value pairs into call arguments.
func parseArgs(pairs []string) (apiclient.Args, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	args := make(apiclient.Args, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid argument %q: expected key=value", p)
		}
		args[k] = v
	}
	return args, nil
}

// parseHeaders turns Name: value or Name=value flags into a header map.
func parseHeaders(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(flags))
	for _, f := range flags {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			k, v, ok = strings.Cut(f, "=")
		}
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid header %q: expected name:value", f)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
