package blogimageeditor

import (
	"context"
	"sync"
	"time"

	"github.com/Hamzashehzad1/blogimageeditor/wordpress"
)

// maxCachedPosts bounds the cache across all connections.
const maxCachedPosts = 1024

type postKey struct {
	connectionID int64
	postID       int64
}

type cachedPost struct {
	post    wordpress.Post
	fetched time.Time
}

// PostCache is an in-memory cache of WordPress posts with TTL, keyed by
// connection and post ID. Suggestion requests for the same post reuse one
// fetch until the entry expires or the post is saved. Expired entries are
// dropped when read, and a full cache sweeps them before evicting the oldest.
type PostCache struct {
	mu      sync.RWMutex
	entries map[postKey]cachedPost
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewPostCache creates an empty PostCache.
func NewPostCache(ttl time.Duration) *PostCache {
	return &PostCache{entries: make(map[postKey]cachedPost), ttl: ttl, max: maxCachedPosts, now: time.Now}
}

func (c *PostCache) valid(e cachedPost, ok bool) bool {
	return ok && c.ttl > 0 && c.now().Sub(e.fetched) < c.ttl
}

// Get returns the cached post, calling load on a miss or expiry.
func (c *PostCache) Get(ctx context.Context, connectionID, postID int64, load func(context.Context, int64) (wordpress.Post, error)) (wordpress.Post, error) {
	key := postKey{connectionID, postID}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if c.valid(e, ok) {
		return e.post, nil
	}
	if ok {
		c.dropExpired(key)
	}

	post, err := load(ctx, postID)
	if err != nil {
		return wordpress.Post{}, err
	}
	c.Put(connectionID, post)
	return post, nil
}

// dropExpired deletes key unless another caller refreshed it meanwhile.
func (c *PostCache) dropExpired(key postKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !c.valid(e, ok) {
		delete(c.entries, key)
	}
}

// Put stores post for connectionID.
func (c *PostCache) Put(connectionID int64, post wordpress.Post) {
	key := postKey{connectionID, post.ID}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok && c.max > 0 && len(c.entries) >= c.max {
		c.evictLocked()
	}
	c.entries[key] = cachedPost{post: post, fetched: c.now()}
}

// evictLocked removes expired entries, then the oldest one if that freed
// nothing. c.mu must be held.
func (c *PostCache) evictLocked() {
	var (
		oldest    postKey
		oldestAt  time.Time
		haveOlder bool
	)
	for k, e := range c.entries {
		if !c.valid(e, true) {
			delete(c.entries, k)
			continue
		}
		if !haveOlder || e.fetched.Before(oldestAt) {
			oldest, oldestAt, haveOlder = k, e.fetched, true
		}
	}
	if len(c.entries) >= c.max && haveOlder {
		delete(c.entries, oldest)
	}
}

// Len reports how many entries are held, expired or not.
func (c *PostCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops one post so the next read triggers a fresh load.
func (c *PostCache) Invalidate(connectionID, postID int64) {
	c.mu.Lock()
	delete(c.entries, postKey{connectionID, postID})
	c.mu.Unlock()
}

// InvalidateConnection drops every post of a connection.
func (c *PostCache) InvalidateConnection(connectionID int64) {
	c.mu.Lock()
	for k := range c.entries {
		if k.connectionID == connectionID {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
