package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-apicall/apiclient"
	"github.com/gaborage/go-apicall/logger"
	"github.com/gaborage/go-apicall/transport"
)

// DefaultTTL is used when NewResponseCache is given a non-positive TTL.
const DefaultTTL = time.Minute

const keyPrefix = "apicall:"

// DefaultVary lists the headers that partition cached responses unless
// WithVary says otherwise.
var DefaultVary = []string{"Authorization", "Cookie"}

// ResponseCache serves GET calls from a Cache and fills it with successful
// responses.
type ResponseCache struct {
	store Cache
	ttl   time.Duration
	log   logger.Logger
	vary  []string
	group singleflight.Group
	now   func() time.Time
}

// Option configures a ResponseCache.
type Option func(*ResponseCache)

// WithVary replaces DefaultVary. Calls whose values differ for any of the
// named headers never share an entry. No names shares entries across all
// headers.
func WithVary(names ...string) Option {
	return func(rc *ResponseCache) {
		rc.vary = normalizeVary(names)
	}
}

// NewResponseCache wraps store. A nil log discards cache warnings.
func NewResponseCache(store Cache, ttl time.Duration, log logger.Logger, opts ...Option) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	rc := &ResponseCache{
		store: store,
		ttl:   ttl,
		log:   log,
		vary:  normalizeVary(DefaultVary),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

func normalizeVary(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

// Key identifies a call by method, full URL and its arguments in sorted order.
// Calls carrying vary headers get a digest suffix on top of it.
func Key(method, url string, args apiclient.Args) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(url)
	if len(args) > 0 {
		b.WriteByte('?')
		b.WriteString(transport.Values(map[string]any(args)).Encode())
	}
	return b.String()
}

// entryKey extends Key with a digest of the vary header values, so header
// values such as credentials never appear in store keys.
func (rc *ResponseCache) entryKey(method, url string, args apiclient.Args, header func(string) string) string {
	key := Key(method, url, args)

	h := sha256.New()
	varied := false
	for _, name := range rc.vary {
		v := header(name)
		if v == "" {
			continue
		}
		varied = true
		h.Write([]byte(name))
		h.Write([]byte{'='})
		h.Write([]byte(v))
		h.Write([]byte{'\n'})
	}
	if !varied {
		return key
	}
	return key + " #" + hex.EncodeToString(h.Sum(nil))
}

// callKey uses the call's effective headers: per-call values over the
// client defaults captured at call entry.
func (rc *ResponseCache) callKey(call *apiclient.CallContext) string {
	return rc.entryKey(call.Method, call.BaseURL+call.Action, call.Args, call.HeaderValue)
}

// Lookup is an apiclient.CacheHook. It returns the stored *transport.Response
// for a GET call, or nil on a miss. Concurrent lookups of one key share a
// single store read.
func (rc *ResponseCache) Lookup(ctx context.Context, call *apiclient.CallContext) (any, error) {
	if call.Method != http.MethodGet {
		return nil, nil
	}

	key := rc.callKey(call)
	v, err, _ := rc.group.Do(key, func() (any, error) {
		return rc.store.Get(ctx, key)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	resp, storedAt, err := DecodeResponse(v.([]byte))
	if err != nil {
		return nil, NewOperationError("decode", key, err)
	}

	rc.log.Debug().
		Str("key", key).
		Dur("age", rc.now().Sub(storedAt)).
		Msg("Response cache hit")
	return resp, nil
}

// Results wraps next so that every successful GET response is stored before
// next computes the call's value. A nil next uses apiclient.DefaultResults.
// Store failures are logged and never change the result.
func (rc *ResponseCache) Results(next apiclient.ResultsHook) apiclient.ResultsHook {
	if next == nil {
		next = apiclient.DefaultResults
	}
	return func(ctx context.Context, call *apiclient.CallContext) (any, error) {
		rc.remember(ctx, call)
		return next(ctx, call)
	}
}

// Hooks returns the Cache and Results hooks wired to rc, keeping any other
// hook in base.
func (rc *ResponseCache) Hooks(base apiclient.Hooks) apiclient.Hooks {
	base.Cache = rc.Lookup
	base.Results = rc.Results(base.Results)
	return base
}

// Invalidate removes the stored response for a GET call made with header as
// its effective headers. Only the vary headers in header matter.
func (rc *ResponseCache) Invalidate(ctx context.Context, url string, args apiclient.Args, header map[string]string) error {
	lookup := (&apiclient.CallContext{Header: header}).HeaderValue
	return rc.store.Delete(ctx, rc.entryKey(http.MethodGet, url, args, lookup))
}

func (rc *ResponseCache) remember(ctx context.Context, call *apiclient.CallContext) {
	if call.Method != http.MethodGet || call.Error != nil || !call.Response.IsSuccess() {
		return
	}

	key := rc.callKey(call)
	data, err := EncodeResponse(call.Response, rc.now())
	if err == nil {
		err = rc.store.Set(ctx, key, data, rc.ttl)
	}
	if err != nil {
		rc.log.Warn().
			Err(err).
			Str("key", key).
			Msg("Failed to store response in cache")
	}
}
