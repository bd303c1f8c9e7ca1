package hypermedia

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-cms/strata/pkg/contenttree"
)

func queryRequest(t *testing.T, rawURL string) *Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return ParseRequest("GET", u, 1000)
}

func TestProjector_DescendantNodes(t *testing.T) {
	_, home := siteFixture()
	p := &Projector{}

	names := func(nodes []contenttree.Node) []string {
		out := make([]string, len(nodes))
		for i, n := range nodes {
			out[i] = n.Name()
		}
		return out
	}

	t.Run("empty value expands the whole subtree", func(t *testing.T) {
		req := queryRequest(t, "/?descendants")
		nodes := p.DescendantNodes(req, home)
		// Articles + 6 articles + About.
		assert.Len(t, nodes, 8)
	})

	t.Run("numeric value bounds the depth", func(t *testing.T) {
		req := queryRequest(t, "/?descendants=1")
		nodes := p.DescendantNodes(req, home)
		assert.ElementsMatch(t, []string{"Articles", "About"}, names(nodes))
	})

	t.Run("alias value filters by content type", func(t *testing.T) {
		req := queryRequest(t, "/?descendants=article")
		nodes := p.DescendantNodes(req, home)
		assert.Len(t, nodes, 6)
		for _, n := range nodes {
			assert.Equal(t, "article", n.ContentTypeAlias())
		}
	})

	t.Run("comma list unions per-alias filters", func(t *testing.T) {
		req := queryRequest(t, "/?descendants=article,page")
		nodes := p.DescendantNodes(req, home)
		assert.Len(t, nodes, 7)
	})

	t.Run("absent parameter expands nothing", func(t *testing.T) {
		req := queryRequest(t, "/")
		assert.Nil(t, p.DescendantNodes(req, home))
	})
}

func TestProjector_SortNodes(t *testing.T) {
	p := &Projector{}

	mk := func(name string, sortOrder int, props ...contenttree.Property) *fakeNode {
		return &fakeNode{name: name, sortOrder: sortOrder, props: props}
	}

	t.Run("defaults to sort order ascending", func(t *testing.T) {
		req := queryRequest(t, "/")
		nodes := []contenttree.Node{mk("b", 2), mk("a", 1), mk("c", 3)}
		sorted := p.SortNodes(req, nodes)
		assert.Equal(t, "a", sorted[0].Name())
		assert.Equal(t, "c", sorted[2].Name())
	})

	t.Run("orderbydesc wins over orderby", func(t *testing.T) {
		req := queryRequest(t, "/?orderby=name&orderbydesc=name")
		nodes := []contenttree.Node{mk("a", 0), mk("c", 1), mk("b", 2)}
		sorted := p.SortNodes(req, nodes)
		assert.Equal(t, "c", sorted[0].Name())
		assert.Equal(t, "a", sorted[2].Name())
	})

	t.Run("name ordering is case-insensitive", func(t *testing.T) {
		req := queryRequest(t, "/?orderby=name")
		nodes := []contenttree.Node{mk("banana", 0), mk("Apple", 1)}
		sorted := p.SortNodes(req, nodes)
		assert.Equal(t, "Apple", sorted[0].Name())
	})

	t.Run("date-like property sorts missing values first", func(t *testing.T) {
		req := queryRequest(t, "/?orderby=eventDate")
		nodes := []contenttree.Node{
			mk("late", 0, contenttree.Property{Alias: "eventDate", Value: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}),
			mk("none", 1),
			mk("early", 2, contenttree.Property{Alias: "eventDate", Value: "2024-01-15T10:00:00Z"}),
		}
		sorted := p.SortNodes(req, nodes)
		assert.Equal(t, "none", sorted[0].Name())
		assert.Equal(t, "early", sorted[1].Name())
		assert.Equal(t, "late", sorted[2].Name())
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		req := queryRequest(t, "/?orderby=name")
		nodes := []contenttree.Node{mk("b", 0), mk("a", 1)}
		p.SortNodes(req, nodes)
		assert.Equal(t, "b", nodes[0].Name())
	})
}

func TestProjector_SkipTake(t *testing.T) {
	p := &Projector{}
	nodes := []contenttree.Node{
		&fakeNode{name: "1"}, &fakeNode{name: "2"}, &fakeNode{name: "3"},
		&fakeNode{name: "4"}, &fakeNode{name: "5"},
	}

	t.Run("skip beyond the end empties the list", func(t *testing.T) {
		req := queryRequest(t, "/?skip=10")
		assert.Empty(t, p.SkipTake(req, nodes))
	})

	t.Run("skip then take", func(t *testing.T) {
		req := queryRequest(t, "/?skip=1&take=2")
		out := p.SkipTake(req, nodes)
		require.Len(t, out, 2)
		assert.Equal(t, "2", out[0].Name())
		assert.Equal(t, "3", out[1].Name())
	})

	t.Run("non-numeric skip is ignored", func(t *testing.T) {
		req := queryRequest(t, "/?skip=lots")
		assert.Len(t, p.SkipTake(req, nodes), 5)
	})
}

func TestAncestorOrSelf(t *testing.T) {
	store, _ := siteFixture()
	alpha, err := store.NodeByID(10)
	require.NoError(t, err)

	t.Run("matches self", func(t *testing.T) {
		got := AncestorOrSelf(alpha, "article")
		require.NotNil(t, got)
		assert.Equal(t, 10, got.ID())
	})

	t.Run("matches an ancestor case-insensitively", func(t *testing.T) {
		got := AncestorOrSelf(alpha, "HOME")
		require.NotNil(t, got)
		assert.Equal(t, 1, got.ID())
	})

	t.Run("nil when nothing matches", func(t *testing.T) {
		assert.Nil(t, AncestorOrSelf(alpha, "nosuch"))
	})
}
