// Package tilecache stores satellite reference tiles keyed by quantized
// geographic coordinates, fetching them through an injected provider on miss.
package tilecache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/signalsfoundry/drone-geolocator/internal/logging"
)

// ErrFetchFailed wraps any failure of the underlying tile fetch (timeout,
// network error, provider error). It is recoverable: callers are expected to
// degrade gracefully rather than abort.
var ErrFetchFailed = errors.New("tile fetch failed")

// Fetcher is the external imagery collaborator. Implementations should
// honour ctx cancellation; the cache bounds every call with its configured
// fetch timeout.
type Fetcher interface {
	FetchTile(ctx context.Context, lat, lon float64, zoom int) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, lat, lon float64, zoom int) ([]byte, error)

func (f FetcherFunc) FetchTile(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	return f(ctx, lat, lon, zoom)
}

// Clock supplies the cache's notion of now, so TTL expiry is testable
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// MetricsRecorder receives cache activity for Prometheus-friendly counters.
type MetricsRecorder interface {
	TileLookup(result string) // "hit" | "stale" | "miss"
	TileFetch(duration time.Duration, err error)
}

// keyPrecision is the number of decimal places lat/lon are rounded to when
// forming a cache key, so nearby requests share an entry. At 4 decimals a
// key cell spans roughly 11 m of latitude.
const keyPrecision = 4

// Key identifies a cached tile: quantized coordinates plus zoom.
type Key struct {
	LatE4 int64
	LonE4 int64
	Zoom  int
}

// KeyFor quantizes a coordinate into a cache key.
func KeyFor(lat, lon float64, zoom int) Key {
	const scale = 1e4 // 10^keyPrecision
	return Key{
		LatE4: int64(math.Round(lat * scale)),
		LonE4: int64(math.Round(lon * scale)),
		Zoom:  zoom,
	}
}

// String renders the key the way tiles are named on disk.
func (k Key) String() string {
	const scale = 1e4
	return fmt.Sprintf("sat_%.*f_%.*f_%d",
		keyPrecision, float64(k.LatE4)/scale,
		keyPrecision, float64(k.LonE4)/scale,
		k.Zoom)
}

type entry struct {
	data      []byte
	fetchedAt time.Time
}

// Cache is a thread-safe tile store with a freshness policy: entries older
// than the TTL are refetched. Lookups are O(1) on the in-memory map; an
// optional spill directory persists tiles across restarts.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry

	fetcher      Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	dir          string
	clock        Clock
	log          logging.Logger
	metrics      MetricsRecorder
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the entry freshness window. Default 24h.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithFetchTimeout bounds each provider call so a stalled fetch cannot block
// the caller indefinitely. Default 5s.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithDir enables on-disk persistence of fetched tiles under dir.
func WithDir(dir string) Option {
	return func(c *Cache) { c.dir = dir }
}

// WithClock replaces the wall clock, mainly for TTL tests.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log logging.Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics attaches an optional cache activity recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(c *Cache) { c.metrics = m }
}

// New constructs a cache around the given fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		entries:      make(map[Key]entry),
		fetcher:      fetcher,
		ttl:          24 * time.Hour,
		fetchTimeout: 5 * time.Second,
		clock:        systemClock{},
		log:          logging.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the tile for (lat, lon, zoom), serving a fresh cached
// copy when one exists and otherwise fetching through the provider under the
// configured timeout. Fetch failures are reported as a wrapped ErrFetchFailed.
func (c *Cache) GetOrFetch(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	key := KeyFor(lat, lon, zoom)
	now := c.clock.Now()

	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	switch {
	case ok && now.Sub(e.fetchedAt) < c.ttl:
		c.recordLookup("hit")
		return e.data, nil
	case ok:
		c.recordLookup("stale")
	default:
		if data, when, found := c.loadFromDisk(key); found && now.Sub(when) < c.ttl {
			c.store(key, data, when)
			c.recordLookup("hit")
			return data, nil
		}
		c.recordLookup("miss")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	start := now
	data, err := c.fetcher.FetchTile(fetchCtx, lat, lon, zoom)
	if c.metrics != nil {
		c.metrics.TileFetch(c.clock.Now().Sub(start), err)
	}
	if err != nil {
		c.log.Warn(ctx, "tile fetch failed",
			logging.String("key", key.String()),
			logging.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	c.store(key, data, c.clock.Now())
	c.saveToDisk(key, data)

	c.log.Debug(ctx, "tile fetched",
		logging.String("key", key.String()),
		logging.Int("bytes", len(data)),
	)
	return data, nil
}

// Len reports the number of in-memory entries, fresh or stale.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) store(key Key, data []byte, fetchedAt time.Time) {
	c.mu.Lock()
	c.entries[key] = entry{data: data, fetchedAt: fetchedAt}
	c.mu.Unlock()
}

func (c *Cache) recordLookup(result string) {
	if c.metrics != nil {
		c.metrics.TileLookup(result)
	}
}
