// Package memory provides an in-process driven.Cache backed by bounded,
// expiring LRUs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/arah-ai/arah/internal/core/domain"
	"github.com/arah-ai/arah/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.Cache = (*Cache)(nil)

// DefaultSize bounds the number of entries per TTL when none is given.
const DefaultSize = 4096

// Cache keeps one expirable LRU per distinct TTL, so each key namespace ages
// out on the TTL it was written with. A non-positive TTL never expires.
//
// Each LRU with a TTL runs a cleanup goroutine for the life of the process.
type Cache struct {
	size int

	mu   sync.RWMutex
	lrus map[time.Duration]*expirable.LRU[string, []byte]
}

// New creates a cache holding at most size entries per TTL. ttls are the
// lifetimes callers will use; others are added on first Set.
func New(size int, ttls ...time.Duration) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	c := &Cache{size: size, lrus: make(map[time.Duration]*expirable.LRU[string, []byte])}
	for _, ttl := range ttls {
		c.lru(ttl)
	}
	return c
}

func (c *Cache) lru(ttl time.Duration) *expirable.LRU[string, []byte] {
	ttl = max(ttl, 0)
	c.mu.RLock()
	l, ok := c.lrus[ttl]
	c.mu.RUnlock()
	if ok {
		return l
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if l, ok := c.lrus[ttl]; ok {
		return l
	}
	l = expirable.NewLRU[string, []byte](c.size, nil, ttl)
	c.lrus[ttl] = l
	return l
}

func (c *Cache) partitions() []*expirable.LRU[string, []byte] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*expirable.LRU[string, []byte], 0, len(c.lrus))
	for _, l := range c.lrus {
		out = append(out, l)
	}
	return out
}

// Get implements driven.Cache.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	for _, l := range c.partitions() {
		if v, ok := l.Get(key); ok {
			return append([]byte(nil), v...), nil
		}
	}
	return nil, domain.ErrCacheMiss
}

// Set implements driven.Cache. A key rewritten with another ttl moves to
// that ttl's LRU.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	target := c.lru(ttl)
	for _, l := range c.partitions() {
		if l != target {
			l.Remove(key)
		}
	}
	target.Add(key, append([]byte(nil), value...))
	return nil
}

// Delete implements driven.Cache.
func (c *Cache) Delete(_ context.Context, key string) error {
	for _, l := range c.partitions() {
		l.Remove(key)
	}
	return nil
}

// Len returns the number of stored entries, including expired ones the
// cleanup goroutine has not reached yet.
func (c *Cache) Len() int {
	n := 0
	for _, l := range c.partitions() {
		n += l.Len()
	}
	return n
}
