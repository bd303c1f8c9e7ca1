// Package cache memoizes built hypermedia documents keyed by content type and
// request fingerprint, with TTL expiry and event-driven invalidation.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/strata-cms/strata/pkg/contenttree"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

// DefaultPrefix namespaces document cache keys.
const DefaultPrefix = "strata-"

// Options configure a document cache.
type Options struct {
	// Size is the maximum number of cached documents.
	Size int

	// TTL is the per-entry lifetime.
	TTL time.Duration

	// Prefix namespaces keys; DefaultPrefix when empty.
	Prefix string

	Log hclog.Logger
}

// Cache is an expiring LRU of built documents. It satisfies the engine's
// DocumentCache and consumes content events for invalidation.
type Cache struct {
	lru    *expirable.LRU[string, *hypermedia.Document]
	prefix string
	log    hclog.Logger
}

// New builds a document cache. Concurrent access is safe; concurrent misses
// for one key may each run the builder and the last write wins.
func New(opts Options) *Cache {
	if opts.Size <= 0 {
		opts.Size = 1024
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Log == nil {
		opts.Log = hclog.NewNullLogger()
	}
	return &Cache{
		lru:    expirable.NewLRU[string, *hypermedia.Document](opts.Size, nil, opts.TTL),
		prefix: opts.Prefix,
		log:    opts.Log,
	}
}

// Key derives the cache key for a request: the prefix, the content-type alias
// and a hex digest of the lowercased path-and-query.
func (c *Cache) Key(contentTypeAlias, pathAndQuery string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(pathAndQuery)))
	return c.prefix + contentTypeAlias + "-" + hex.EncodeToString(sum[:])
}

// GetOrBuild returns the cached document for the request, building and
// storing it on a miss.
func (c *Cache) GetOrBuild(contentTypeAlias, pathAndQuery string, build func() (*hypermedia.Document, error)) (*hypermedia.Document, error) {
	key := c.Key(contentTypeAlias, pathAndQuery)
	if doc, ok := c.lru.Get(key); ok {
		c.log.Debug("cache hit", "key", key)
		return doc, nil
	}

	doc, err := build()
	if err != nil {
		return nil, err
	}
	c.lru.Add(key, doc)
	c.log.Debug("cache store", "key", key)
	return doc, nil
}

// InvalidateType drops every cached document built for the given content type.
func (c *Cache) InvalidateType(contentTypeAlias string) int {
	prefix := c.prefix + contentTypeAlias + "-"
	dropped := 0
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
			dropped++
		}
	}
	if dropped > 0 {
		c.log.Debug("cache invalidated", "type", contentTypeAlias, "entries", dropped)
	}
	return dropped
}

// Purge drops everything.
func (c *Cache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// HandleEvent invalidates the event's content type on publish, unpublish and
// delete. Wire it to a contenttree.Notifier.
func (c *Cache) HandleEvent(ev contenttree.Event) {
	switch ev.Kind {
	case contenttree.EventPublish, contenttree.EventUnpublish, contenttree.EventDelete:
		c.InvalidateType(ev.ContentTypeAlias)
	}
}
