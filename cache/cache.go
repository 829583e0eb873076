package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Entry is a memoized result.
type Entry struct {
	Value []byte `msgpack:"value"`
	// ComputedAt is when the value was computed. It does not change on hits.
	ComputedAt time.Time `msgpack:"computed_at"`
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Cache memoizes computations in a Store. It is safe for concurrent use:
// concurrent misses on the same key share one computation.
type Cache struct {
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	metrics *metrics

	group singleflight.Group
	// gen is bumped by Clear so that computations started before a clear
	// neither write into the cleared store nor absorb callers arriving after
	// it.
	gen atomic.Uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithClock replaces time.Now for ComputedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithRegisterer registers hit, miss and error counters on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) { c.metrics = newMetrics(reg) }
}

// New creates a Cache over store.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewMemoryCache is shorthand for New(NewMemory(), opts...).
func NewMemoryCache(opts ...Option) *Cache {
	return New(NewMemory(), opts...)
}

// Store returns the underlying store.
func (c *Cache) Store() Store {
	return c.store
}

type flightResult struct {
	entry Entry
	hit   bool
}

// GetOrCompute returns the entry stored under key. On a miss it runs compute,
// stores the result and returns it. hit reports whether the entry came from
// the store. A failed computation is returned as is and nothing is stored, so
// the next call computes again.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute ComputeFunc) (entry Entry, hit bool, err error) {
	if e, ok := c.lookup(ctx, key); ok {
		c.metrics.hit()
		c.logger.Debug("cache hit", zap.String("key", key))
		return e, true, nil
	}

	gen := c.gen.Load()
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		if e, ok := c.lookup(ctx, key); ok {
			return flightResult{entry: e, hit: true}, nil
		}
		c.metrics.miss()
		c.logger.Debug("cache miss", zap.String("key", key))

		value, err := compute(ctx)
		if err != nil {
			c.metrics.fail()
			return nil, err
		}
		e := Entry{Value: value, ComputedAt: c.now()}
		if c.gen.Load() != gen {
			return flightResult{entry: e}, nil
		}
		data, err := msgpack.Marshal(&e)
		if err != nil {
			return nil, fmt.Errorf("cache: encode entry: %w", err)
		}
		if err := c.store.Set(ctx, key, data); err != nil {
			c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		}
		return flightResult{entry: e}, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	r := v.(flightResult)
	if r.hit {
		c.metrics.hit()
	}
	return r.entry, r.hit, nil
}

// Get returns the entry stored under key without computing anything.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	return c.lookup(ctx, key)
}

// Invalidate removes a single key.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.store.Delete(ctx, key)
}

// Clear empties the store. Afterwards every key is a miss.
func (c *Cache) Clear(ctx context.Context) error {
	c.gen.Add(1)
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	c.logger.Debug("cache cleared")
	return nil
}

// Close closes the underlying store.
func (c *Cache) Close() error {
	return c.store.Close()
}

func (c *Cache) lookup(ctx context.Context, key string) (Entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return Entry{}, false
	}
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		c.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return Entry{}, false
	}
	return e, true
}

// Key derives a cache key from parts. Maps are encoded with sorted keys, so
// equal inputs always give equal keys.
func Key(parts ...any) (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	for i, p := range parts {
		if err := enc.Encode(p); err != nil {
			return "", fmt.Errorf("cache: key part %d: %w", i, err)
		}
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

type metrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	f := promauto.With(reg)
	return &metrics{
		hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "stimconv",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Number of conversions served from the cache",
		}),
		misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "stimconv",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Number of conversions computed on a cache miss",
		}),
		errors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "stimconv",
			Subsystem: "cache",
			Name:      "errors_total",
			Help:      "Number of failed computations",
		}),
	}
}

func (m *metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *metrics) fail() {
	if m != nil {
		m.errors.Inc()
	}
}
