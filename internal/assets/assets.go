// Package assets fetches and decodes the 3D model shown by the viewer.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/showcase/internal/engine/animation"
	"github.com/Faultbox/showcase/internal/engine/scene"
	"github.com/Faultbox/showcase/internal/logger"
)

// ErrUnsupportedScheme is returned for URLs that are neither http(s), file,
// nor a local path.
var ErrUnsupportedScheme = errors.New("unsupported url scheme")

// Progress reports bytes received. total is -1 when the size is unknown.
type Progress func(loaded, total int64)

// Model is a decoded asset: a node tree plus the clips that animate it.
type Model struct {
	URL   string
	Root  *scene.Node
	Clips []*animation.Clip
}

// Dispose releases the geometry and materials of every mesh in the model.
func (m *Model) Dispose() {
	if m == nil || m.Root == nil {
		return
	}
	scene.DisposeDrawables(m.Root)
}

// Options configures a Loader.
type Options struct {
	// Timeout bounds one Load; 0 waits until the context ends.
	Timeout time.Duration
	// Cache keeps fetched bytes so reloading the same URL skips the network.
	Cache bool
	// Client overrides the HTTP client.
	Client *http.Client
}

// Loader fetches model bytes by URL and decodes them.
type Loader struct {
	client  *http.Client
	cache   *Cache
	timeout time.Duration
	log     *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(opts Options) *Loader {
	l := &Loader{
		client:  opts.Client,
		timeout: opts.Timeout,
		log:     logger.Named("assets"),
	}
	if l.client == nil {
		l.client = &http.Client{}
	}
	if opts.Cache {
		l.cache = NewCache()
	}
	return l
}

// Load fetches and decodes the model at url. It blocks; callers that must not
// block run it on a goroutine.
func (l *Loader) Load(ctx context.Context, url string, progress Progress) (*Model, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	data, err := l.Fetch(ctx, url, progress)
	if err != nil {
		return nil, err
	}

	model, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	model.URL = url

	l.log.Info("model loaded",
		zap.String("url", url),
		zap.Int("bytes", len(data)),
		zap.Int("clips", len(model.Clips)),
		zap.Duration("took", time.Since(start)),
	)
	return model, nil
}

// Fetch returns the raw bytes at url, from cache when enabled.
func (l *Loader) Fetch(ctx context.Context, url string, progress Progress) ([]byte, error) {
	if l.cache != nil {
		if data, ok := l.cache.Get(url); ok {
			if progress != nil {
				progress(int64(len(data)), int64(len(data)))
			}
			return data, nil
		}
	}

	data, err := fetch(ctx, l.client, url, progress)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		l.cache.Set(url, data)
	}
	return data, nil
}

// CacheStats returns cache hits and misses; both are 0 without a cache.
func (l *Loader) CacheStats() (hits, misses int) {
	if l.cache == nil {
		return 0, 0
	}
	return l.cache.Stats()
}

// Cache is an in-memory cache of fetched bytes keyed by URL.
type Cache struct {
	data map[string][]byte
	mu   sync.RWMutex

	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string][]byte),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
