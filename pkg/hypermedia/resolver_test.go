package hypermedia

import (
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-cms/strata/pkg/contenttree"
)

func resolverFixture() (*Resolver, *fakeStore) {
	store := newFakeStore()
	store.addMedia(&fakeNode{id: 500, name: "hero.jpg", urlPath: "/media/hero.jpg"})
	store.addMedia(&fakeNode{id: 501, name: "thumb.jpg", urlPath: "/media/thumb.jpg"})
	return &Resolver{Store: store, Log: testLogger()}, store
}

func resolveRequest(t *testing.T, rawURL string) *Request {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return ParseRequest("GET", u, 1000)
}

func TestResolver_Media(t *testing.T) {
	r, store := resolverFixture()

	t.Run("comma-joined ids become comma-joined urls", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveMedia=photo")
		got := r.Resolve(req, contenttree.Property{Alias: "photo", Value: "500,501"})
		assert.Equal(t, "/media/hero.jpg,/media/thumb.jpg", got)
	})

	t.Run("an unknown id degrades to the failure sentinel", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveMedia=photo")
		got := r.Resolve(req, contenttree.Property{Alias: "photo", Value: "999"})
		assert.Equal(t, "#", got)
	})

	t.Run("a node sequence becomes a url array dropping empties", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveMedia=photos")
		val := []contenttree.Node{store.media[500], &fakeNode{id: 502}}
		got := r.Resolve(req, contenttree.Property{Alias: "photos", Value: val})
		assert.Equal(t, []string{"/media/hero.jpg"}, got)
	})

	t.Run("an unrequested media reference degrades to its id", func(t *testing.T) {
		req := resolveRequest(t, "/")
		got := r.Resolve(req, contenttree.Property{Alias: "photo", Value: store.media[500]})
		assert.Equal(t, 500, got)
	})
}

func TestResolver_ToIDs(t *testing.T) {
	r, store := resolverFixture()

	t.Run("node sequence becomes an id array", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveToIds=picks")
		val := []contenttree.Node{store.media[500], store.media[501]}
		got := r.Resolve(req, contenttree.Property{Alias: "picks", Value: val})
		assert.Equal(t, []int{500, 501}, got)
	})

	t.Run("empty sequence becomes an empty object", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveToIds=picks")
		got := r.Resolve(req, contenttree.Property{Alias: "picks", Value: []contenttree.Node{}})
		assert.Equal(t, map[string]any{}, got)
	})

	t.Run("single node becomes its id string", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveToIds=pick")
		got := r.Resolve(req, contenttree.Property{Alias: "pick", Value: store.media[500]})
		assert.Equal(t, "500", got)
	})

	t.Run("a single content node also becomes its id string", func(t *testing.T) {
		req := resolveRequest(t, "/?resolveToIds=pick")
		got := r.Resolve(req, contenttree.Property{Alias: "pick", Value: &fakeNode{id: 42, name: "Pick"}})
		assert.Equal(t, "42", got)
	})
}

func TestResolver_Text(t *testing.T) {
	r, _ := resolverFixture()

	t.Run("html=false strips markup", func(t *testing.T) {
		req := resolveRequest(t, "/?html=false")
		got := r.Resolve(req, contenttree.Property{Alias: "body", Value: "<p>Hello <b>world</b></p>"})
		assert.Equal(t, "Hello world", got)
	})

	t.Run("encodeHTML escapes markup", func(t *testing.T) {
		req := resolveRequest(t, "/?encodeHTML=true")
		got := r.Resolve(req, contenttree.Property{Alias: "body", Value: "<p>x</p>"})
		assert.Equal(t, "&lt;p&gt;x&lt;/p&gt;", got)
	})

	t.Run("multi-text json array decodes to a string slice", func(t *testing.T) {
		req := resolveRequest(t, "/")
		got := r.Resolve(req, contenttree.Property{
			Alias:       "tags",
			Value:       `["go","cms"]`,
			EditorAlias: contenttree.EditorMultipleText,
		})
		assert.Equal(t, []string{"go", "cms"}, got)
	})

	t.Run("multi-text newline form decodes to a string slice", func(t *testing.T) {
		req := resolveRequest(t, "/")
		got := r.Resolve(req, contenttree.Property{
			Alias:       "tags",
			Value:       "go\r\ncms",
			EditorAlias: contenttree.EditorMultipleText,
		})
		assert.Equal(t, []string{"go", "cms"}, got)
	})
}

func TestResolver_Nested(t *testing.T) {
	r, store := resolverFixture()
	spotlight := store.addNode(&fakeNode{
		id: 600, name: "Spotlight", alias: "article", urlPath: "/spotlight",
	})
	r.Project = func(req *Request, node contenttree.Node) (any, error) {
		return map[string]any{"name": node.Name()}, nil
	}

	bags := fmt.Sprintf(`[{"headline":"First","link":"%s","image":"%s","tags":["a","b"]}]`,
		contenttree.DocumentReference(spotlight.key),
		contenttree.MediaReference(store.media[500].key))

	nested := func(alias, raw string) contenttree.Property {
		return contenttree.Property{
			Alias:       alias,
			Value:       raw,
			EditorAlias: contenttree.EditorNestedContent,
		}
	}

	t.Run("bag values project references and keep scalars", func(t *testing.T) {
		req := resolveRequest(t, "/")
		got := r.Resolve(req, nested("blocks", bags))

		items, ok := got.([]any)
		require.True(t, ok)
		require.Len(t, items, 1)

		bag := items[0].(map[string]any)
		assert.Equal(t, "First", bag["headline"])
		assert.Equal(t, map[string]any{"name": "Spotlight"}, bag["link"])
		assert.Equal(t, "/media/hero.jpg", bag["image"])
		// Array-valued sub-properties are dropped from the bag.
		assert.NotContains(t, bag, "tags")
	})

	t.Run("select filters the sub-properties", func(t *testing.T) {
		req := resolveRequest(t, "/?select=headline")
		got := r.Resolve(req, nested("blocks", bags))

		items := got.([]any)
		require.Len(t, items, 1)
		assert.Equal(t, map[string]any{"headline": "First"}, items[0])
	})

	t.Run("an unknown reference key keeps the raw string", func(t *testing.T) {
		dangling := contenttree.DocumentReference(uuid.New())
		req := resolveRequest(t, "/")
		got := r.Resolve(req, nested("blocks", fmt.Sprintf(`[{"link":"%s"}]`, dangling)))

		items := got.([]any)
		require.Len(t, items, 1)
		assert.Equal(t, map[string]any{"link": dangling}, items[0])
	})

	t.Run("undecodable values pass through unchanged", func(t *testing.T) {
		req := resolveRequest(t, "/")
		got := r.Resolve(req, nested("blocks", "not json"))
		assert.Equal(t, "not json", got)
	})
}

func TestGuessType(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want string
	}{
		{"nil", nil, "text"},
		{"plain string", "hello", "text"},
		{"true literal", "True", "checkbox"},
		{"false literal", "False", "checkbox"},
		{"bool", true, "checkbox"},
		{"numeric string", "42", "number"},
		{"int", 7, "number"},
		{"iso date string", "2024-06-01T10:30:00Z", "date"},
		{"time value", time.Now(), "date"},
		{"html", HTML("<p>x</p>"), "htmlstring"},
		{"string slice", []string{"a"}, "array"},
		{"any slice", []any{1}, "array"},
		{"map", map[string]any{}, "dynamic"},
		{"document", &Document{}, "dynamic"},
		{"dash without time shape", "a-b", "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessType(tt.val))
		})
	}
}

func TestCoerce(t *testing.T) {
	t.Run("number guess converts to int", func(t *testing.T) {
		assert.Equal(t, 42, CoerceGuess("42", "number"))
	})

	t.Run("checkbox guess converts to bool", func(t *testing.T) {
		assert.Equal(t, true, CoerceGuess("True", "checkbox"))
		assert.Equal(t, false, CoerceGuess("False", "checkbox"))
	})

	t.Run("storage coercion follows the schema kind", func(t *testing.T) {
		n, err := CoerceForStorage(contenttree.KindInteger, "17")
		require.NoError(t, err)
		assert.Equal(t, 17, n)

		d, err := CoerceForStorage(contenttree.KindDate, "2024-06-01")
		require.NoError(t, err)
		assert.Equal(t, 2024, d.(time.Time).Year())

		_, err = CoerceForStorage(contenttree.KindInteger, "seventeen")
		assert.Error(t, err)
	})
}
