package converters

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HugeFrog24/stimconv/cache"
	"github.com/HugeFrog24/stimconv/stim"
)

// Memo is the cached form of a Converter.
type Memo struct {
	conv  Converter
	cache *cache.Cache

	mu  sync.Mutex
	ts  time.Time
	hit bool
}

// NewMemo wraps c with cache. A nil cache disables memoization: every Convert
// calls Transform.
func NewMemo(c Converter, ch *cache.Cache) *Memo {
	return &Memo{conv: c, cache: ch}
}

// Converter returns the wrapped converter.
func (m *Memo) Converter() Converter {
	return m.conv
}

// Key returns the cache key of converting s with the wrapped converter.
func (m *Memo) Key(s stim.Stim) (string, error) {
	return Key(m.conv, s)
}

// Convert returns the converted stimulus, from the cache when possible.
// Errors from Transform are returned unchanged and leave no cache entry.
func (m *Memo) Convert(ctx context.Context, s stim.Stim) (stim.Stim, error) {
	if err := checkInput(m.conv, s); err != nil {
		return nil, err
	}
	if m.cache == nil {
		out, err := m.conv.Transform(ctx, s)
		if err != nil {
			return nil, err
		}
		m.record(time.Now(), false)
		return out, nil
	}

	key, err := m.Key(s)
	if err != nil {
		return nil, err
	}
	entry, hit, err := m.cache.GetOrCompute(ctx, key, func(ctx context.Context) ([]byte, error) {
		out, err := m.conv.Transform(ctx, s)
		if err != nil {
			return nil, err
		}
		return stim.Marshal(out)
	})
	if err != nil {
		return nil, err
	}
	out, err := stim.Unmarshal(entry.Value)
	if err != nil {
		return nil, fmt.Errorf("converters: %s: cached result: %w", m.conv.Name(), err)
	}
	m.record(entry.ComputedAt, hit)
	return out, nil
}

func (m *Memo) record(ts time.Time, hit bool) {
	m.mu.Lock()
	m.ts = ts
	m.hit = hit
	m.mu.Unlock()
}

// Timestamp is when the result last returned by Convert was computed. It stays
// the same across cache hits and changes when the result is recomputed.
func (m *Memo) Timestamp() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ts
}

// Cached reports whether the last Convert was served from the cache.
func (m *Memo) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hit
}

// Convert is a one-shot cached conversion of s with c.
func Convert(ctx context.Context, ch *cache.Cache, c Converter, s stim.Stim) (stim.Stim, error) {
	return NewMemo(c, ch).Convert(ctx, s)
}

// Key derives the cache key for converting s with c from the converter name,
// its configuration and the fingerprint of s.
func Key(c Converter, s stim.Stim) (string, error) {
	key, err := cache.Key(c.Name(), c.Config(), s.Fingerprint())
	if err != nil {
		return "", fmt.Errorf("converters: %s: %w", c.Name(), err)
	}
	return key, nil
}
