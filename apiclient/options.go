package apiclient

import (
	"golang.org/x/time/rate"

	"github.com/gaborage/go-apicall/config"
	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/observability"
	"github.com/gaborage/go-apicall/transport"
)

// Option adjusts the Config derived from loaded configuration.
type Option func(*Config)

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithTransport replaces the configured built-in adapter.
func WithTransport(t transport.Transport) Option {
	return func(c *Config) { c.Transport = t }
}

// WithHooks merges h over any hooks set so far.
func WithHooks(h Hooks) Option {
	return func(c *Config) { c.Hooks = c.Hooks.Merge(h) }
}

// WithMock enables mock mode with table. The delay range comes from
// client.mock.delay.
func WithMock(table MockTable) Option {
	return func(c *Config) { c.Mock = table }
}

// WithObservability records call spans and metrics on p.
func WithObservability(p observability.Provider) Option {
	return func(c *Config) { c.Observability = p }
}

// WithHostCall injects the waPC host function used by the wapc adapter.
func WithHostCall(fn transport.HostCallFunc) Option {
	return func(c *Config) { c.TransportSettings.HostCall = fn }
}

// NewFromConfig builds a Client from loaded configuration.
func NewFromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, config.NewInvalidFieldError("config", "cannot be nil", nil)
	}

	cc := cfg.Client
	c := Config{
		URL:           cc.URL,
		Header:        cc.Header,
		TransportName: cc.Transport,
		TransportSettings: transport.Settings{
			Timeout:   cc.Timeout,
			Namespace: cc.WAPC.Namespace,
			Insecure:  cc.WAPC.Insecure,
		},
		MockDelay:    MockDelay{Min: cc.Mock.Delay.Min, Max: cc.Mock.Delay.Max},
		MaxAttempts:  cc.Retry.MaxAttempts,
		RetryBackoff: cc.Retry.Backoff,
	}

	if cc.RateLimit.RPS > 0 {
		burst := cc.RateLimit.Burst
		if burst < 1 {
			burst = 1
		}
		c.RateLimiter = rate.NewLimiter(rate.Limit(cc.RateLimit.RPS), burst)
	}

	for _, opt := range opts {
		opt(&c)
	}

	return New(c)
}
