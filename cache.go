package webserv

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"
)

// listingCache memoizes generated autoindex HTML pages, keyed by directory
// path, so a hot directory isn't re-read and re-rendered on every request.
// It is invalidated by watching each cached directory with fsnotify, and
// deduplicates concurrent regeneration of the same directory with a
// singleflight.Group.
type listingCache struct {
	once     sync.Once
	maxBytes int
	cache    *fastcache.Cache
	group    singleflight.Group
	keys     sync.Map // dir path -> xxhash key

	watcher     *fsnotify.Watcher
	watchedDirs sync.Map // dir path -> struct{}{}
	logger      *Logger
}

// newListingCache returns a listingCache able to hold up to maxMemoryBytes
// of rendered listing pages.
func newListingCache(maxMemoryBytes int, logger *Logger) *listingCache {
	c := &listingCache{maxBytes: maxMemoryBytes, logger: logger}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		// A cache that can't invalidate itself is worse than no
		// cache; fall back to uncached rendering.
		if logger != nil {
			logger.Errorf("webserv: listing cache watcher unavailable: %v", err)
		}
		return c
	}
	c.watcher = w

	go c.watchLoop()
	return c
}

func (c *listingCache) watchLoop() {
	if c.watcher == nil {
		return
	}
	for {
		select {
		case e, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.invalidateDir(e.Name)
			c.invalidateDir(filepath.Dir(e.Name))
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			if c.logger != nil {
				c.logger.Errorf("webserv: listing cache watcher error: %v", err)
			}
		}
	}
}

func (c *listingCache) ensure() {
	c.once.Do(func() {
		if c.maxBytes <= 0 {
			c.maxBytes = 32 * 1024 * 1024
		}
		c.cache = fastcache.New(c.maxBytes)
	})
}

func dirCacheKey(dir string) []byte {
	h := xxhash.Sum64String(dir)
	return []byte(fmt.Sprintf("%016x", h))
}

// invalidateDir drops dir's cached listing, e.g. in response to an
// fsnotify event on a watched directory.
func (c *listingCache) invalidateDir(dir string) {
	c.ensure()
	c.cache.Del(dirCacheKey(dir))
}

// Get returns a cached listing for dir, or generates one with gen (at most
// once per concurrent burst of requests for the same dir, via
// singleflight), caches it, and starts watching dir for changes.
func (c *listingCache) Get(dir string, gen func() ([]byte, error)) ([]byte, error) {
	c.ensure()

	key := dirCacheKey(dir)
	if b := c.cache.Get(nil, key); len(b) > 0 {
		return b, nil
	}

	v, err, _ := c.group.Do(dir, func() (interface{}, error) {
		b, err := gen()
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, b)
		c.watchDir(dir)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *listingCache) watchDir(dir string) {
	if c.watcher == nil {
		return
	}
	if _, loaded := c.watchedDirs.LoadOrStore(dir, struct{}{}); loaded {
		return
	}
	if err := c.watcher.Add(dir); err != nil && c.logger != nil {
		c.logger.Errorf("webserv: failed to watch %s: %v", dir, err)
	}
}

// Close stops the underlying watcher.
func (c *listingCache) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}
