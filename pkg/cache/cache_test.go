package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-cms/strata/pkg/contenttree"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	return New(Options{Size: 16, TTL: time.Minute})
}

func buildDoc(title string) func() (*hypermedia.Document, error) {
	return func() (*hypermedia.Document, error) {
		doc := hypermedia.NewDocument(false)
		doc.Title = title
		return doc, nil
	}
}

func TestCache_GetOrBuild(t *testing.T) {
	t.Run("builds on miss and serves on hit", func(t *testing.T) {
		c := testCache(t)
		builds := 0
		build := func() (*hypermedia.Document, error) {
			builds++
			return buildDoc("Alpha")()
		}

		doc, err := c.GetOrBuild("article", "/articles/alpha?", build)
		require.NoError(t, err)
		assert.Equal(t, "Alpha", doc.Title)

		again, err := c.GetOrBuild("article", "/articles/alpha?", build)
		require.NoError(t, err)
		assert.Same(t, doc, again)
		assert.Equal(t, 1, builds)
	})

	t.Run("build failures are not cached", func(t *testing.T) {
		c := testCache(t)
		boom := errors.New("boom")
		_, err := c.GetOrBuild("article", "/a?", func() (*hypermedia.Document, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, c.Len())
	})

	t.Run("key is case-insensitive on the path and query", func(t *testing.T) {
		c := testCache(t)
		assert.Equal(t,
			c.Key("article", "/Articles?Select=Name"),
			c.Key("article", "/articles?select=name"))
	})

	t.Run("key separates content types", func(t *testing.T) {
		c := testCache(t)
		assert.NotEqual(t,
			c.Key("article", "/x?"),
			c.Key("page", "/x?"))
	})
}

func TestCache_Invalidation(t *testing.T) {
	t.Run("invalidate drops only the named type", func(t *testing.T) {
		c := testCache(t)
		_, err := c.GetOrBuild("article", "/a?", buildDoc("A"))
		require.NoError(t, err)
		_, err = c.GetOrBuild("article", "/b?", buildDoc("B"))
		require.NoError(t, err)
		_, err = c.GetOrBuild("page", "/p?", buildDoc("P"))
		require.NoError(t, err)

		assert.Equal(t, 2, c.InvalidateType("article"))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("publish events invalidate through HandleEvent", func(t *testing.T) {
		c := testCache(t)
		notifier := &contenttree.Notifier{}
		notifier.Subscribe(c.HandleEvent)

		_, err := c.GetOrBuild("article", "/a?", buildDoc("A"))
		require.NoError(t, err)
		require.Equal(t, 1, c.Len())

		notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventPublish,
			NodeID:           10,
			ContentTypeAlias: "article",
		})
		assert.Zero(t, c.Len())
	})

	t.Run("purge drops everything", func(t *testing.T) {
		c := testCache(t)
		_, err := c.GetOrBuild("article", "/a?", buildDoc("A"))
		require.NoError(t, err)
		c.Purge()
		assert.Zero(t, c.Len())
	})
}
