package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gaborage/go-apicall/cache/internal/tracking"
)

type memoryEntry struct {
	value      []byte
	expiration time.Time // zero means no expiration
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiration.IsZero() && now.After(e.expiration)
}

// DefaultSweepInterval is how often NewMemory drops expired entries in the
// background unless WithSweepInterval says otherwise.
const DefaultSweepInterval = time.Minute

// Memory is an in-process Cache. Expired entries are dropped lazily when
// read and by Sweep, which a background goroutine runs until Close.
type Memory struct {
	data    sync.Map // key: string, value: *memoryEntry
	closed  atomic.Bool
	closeCh chan struct{}
	now     func() time.Time
}

var _ Cache = (*Memory)(nil)

// MemoryOption configures a Memory store.
type MemoryOption func(*memoryOptions)

type memoryOptions struct {
	sweepInterval time.Duration
}

// WithSweepInterval sets the background sweep period. Zero or negative
// disables the sweeper; expired entries are then only dropped when read or
// by an explicit Sweep.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(o *memoryOptions) { o.sweepInterval = d }
}

// NewMemory creates an empty in-memory store. Close stops its sweeper.
func NewMemory(opts ...MemoryOption) *Memory {
	o := memoryOptions{sweepInterval: DefaultSweepInterval}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Memory{now: time.Now, closeCh: make(chan struct{})}
	if o.sweepInterval > 0 {
		go m.sweepLoop(o.sweepInterval)
	}
	return m
}

func (m *Memory) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.closeCh:
			return
		}
	}
}

// Get retrieves a value from the cache.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := m.get(ctx, key)
	tracking.RecordCacheOperation(ctx, tracking.SystemMemory, tracking.OpGet, time.Since(start), err == nil, ignoreNotFound(err))
	return value, err
}

func (m *Memory) get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.closed.Load() {
		return nil, ErrClosed
	}

	val, ok := m.data.Load(key)
	if !ok {
		return nil, ErrNotFound
	}

	entry := val.(*memoryEntry)
	if entry.expired(m.now()) {
		m.data.CompareAndDelete(key, val)
		return nil, ErrNotFound
	}
	return entry.value, nil
}

// Set stores a copy of value with TTL. A zero TTL never expires.
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	start := time.Now()
	err := m.set(ctx, key, value, ttl)
	tracking.RecordCacheOperation(ctx, tracking.SystemMemory, tracking.OpSet, time.Since(start), false, err)
	return err
}

func (m *Memory) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}
	if ttl < 0 {
		return ErrInvalidTTL
	}

	entry := &memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiration = m.now().Add(ttl)
	}
	m.data.Store(key, entry)
	return nil
}

// Delete removes a value from the cache.
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}
	m.data.Delete(key)
	tracking.RecordCacheOperation(ctx, tracking.SystemMemory, tracking.OpDelete, 0, false, nil)
	return nil
}

// Health reports ErrClosed after Close.
func (m *Memory) Health(context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0
	m.data.Range(func(key, val any) bool {
		if val.(*memoryEntry).expired(now) && m.data.CompareAndDelete(key, val) {
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	n := 0
	m.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Close stops the sweeper and empties the store. Repeated calls return
// ErrClosed.
func (m *Memory) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	close(m.closeCh)
	m.data.Clear()
	return nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
