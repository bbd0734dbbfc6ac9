// Package cache is a size-bounded LRU cache with per-entry expiry.
//
// A Cache is owned by the component that needs it; nothing here is global.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

type PutOptions struct {
	TTL time.Duration
}

type PutOption func(*PutOptions)

// WithTTL overrides the cache's default time to live for one entry.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *PutOptions) {
		o.TTL = ttl
	}
}

type Options struct {
	// Size bounds the number of entries. Defaults to 128.
	Size int
	// TTL is the default time to live. Zero means entries never expire.
	TTL time.Duration
	// Now is the clock used for expiry. Defaults to time.Now.
	Now func() time.Time
}

type entry struct {
	key     string
	val     any
	expires time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	size  int
	ttl   time.Duration
	now   func() time.Time
	ll    *list.List
	items map[string]*list.Element
}

func New(opts Options) *Cache {
	if opts.Size <= 0 {
		opts.Size = 128
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		size:  opts.Size,
		ttl:   opts.TTL,
		now:   opts.Now,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

// Get returns the value for key. Expired entries are removed and reported
// as missing.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ele, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := ele.Value.(*entry)
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		c.remove(ele)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

func (c *Cache) Put(key string, val any, opts ...PutOption) {
	o := PutOptions{TTL: c.ttl}
	for _, opt := range opts {
		opt(&o)
	}

	var expires time.Time
	if o.TTL > 0 {
		expires = c.now().Add(o.TTL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ele, ok := c.items[key]; ok {
		c.ll.MoveToFront(ele)
		e := ele.Value.(*entry)
		e.val = val
		e.expires = expires
		return
	}

	c.items[key] = c.ll.PushFront(&entry{key: key, val: val, expires: expires})
	if c.ll.Len() > c.size {
		if last := c.ll.Back(); last != nil {
			c.remove(last)
		}
	}
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ele, ok := c.items[key]; ok {
		c.remove(ele)
	}
}

// DeletePrefix removes every key starting with prefix.
func (c *Cache) DeletePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, ele := range c.items {
		if strings.HasPrefix(key, prefix) {
			c.remove(ele)
		}
	}
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) remove(ele *list.Element) {
	c.ll.Remove(ele)
	delete(c.items, ele.Value.(*entry).key)
}

// Typed is a view of a Cache holding values of one type.
type Typed[T any] struct {
	c *Cache
}

func NewTyped[T any](c *Cache) Typed[T] { return Typed[T]{c: c} }

func (t Typed[T]) Get(key string) (out T, ok bool) {
	var v any
	v, ok = t.c.Get(key)
	if !ok {
		return out, false
	}
	if out, ok = v.(T); !ok {
		return out, false
	}
	return
}

func (t Typed[T]) Put(key string, val T, opts ...PutOption) {
	t.c.Put(key, val, opts...)
}
