package bloglist

import (
	"context"
	"sync"
	"time"
)

// BlogCache is an in-memory cache of the full blog list with TTL.
// Writers call Invalidate after every change to the blogs or users tables.
type BlogCache struct {
	mu      sync.RWMutex
	blogs   []Blog
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

// NewBlogCache creates a BlogCache backed by the given Store.
func NewBlogCache(s *Store, ttl time.Duration) *BlogCache {
	return &BlogCache{store: s, ttl: ttl}
}

func (c *BlogCache) valid() bool {
	return c.blogs != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *BlogCache) Invalidate() {
	c.mu.Lock()
	c.blogs = nil
	c.mu.Unlock()
}

// ListBlogs returns all blogs, reloading from the store when stale.
// It tries a read lock first; only takes a write lock if a reload is needed.
// The returned slice is shared and must not be modified.
func (c *BlogCache) ListBlogs(ctx context.Context) ([]Blog, error) {
	c.mu.RLock()
	if c.valid() {
		blogs := c.blogs
		c.mu.RUnlock()
		return blogs, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.blogs, nil
	}
	blogs, err := c.store.ListBlogs(ctx)
	if err != nil {
		return nil, err
	}
	c.blogs = blogs
	c.fetched = time.Now()
	return blogs, nil
}
