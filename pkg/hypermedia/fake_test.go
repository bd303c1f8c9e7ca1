package hypermedia

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
)

func testLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

// fakeNode is an in-memory contenttree.Node for engine tests.
type fakeNode struct {
	id        int
	key       uuid.UUID
	name      string
	alias     string
	urlPath   string
	urlName   string
	path      string
	level     int
	sortOrder int
	created   time.Time
	updated   time.Time
	itemType  contenttree.ItemType
	parent    *fakeNode
	children  []*fakeNode
	props     []contenttree.Property
}

var _ contenttree.Node = (*fakeNode)(nil)

func (n *fakeNode) ID() int                        { return n.id }
func (n *fakeNode) Key() uuid.UUID                 { return n.key }
func (n *fakeNode) Name() string                   { return n.name }
func (n *fakeNode) ContentTypeAlias() string       { return n.alias }
func (n *fakeNode) CreateDate() time.Time          { return n.created }
func (n *fakeNode) UpdateDate() time.Time          { return n.updated }
func (n *fakeNode) SortOrder() int                 { return n.sortOrder }
func (n *fakeNode) Level() int                     { return n.level }
func (n *fakeNode) URL() string                    { return n.urlPath }
func (n *fakeNode) URLName() string                { return n.urlName }
func (n *fakeNode) Path() string                   { return n.path }
func (n *fakeNode) ItemType() contenttree.ItemType { return n.itemType }

func (n *fakeNode) Parent() contenttree.Node {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

func (n *fakeNode) Children() []contenttree.Node {
	out := make([]contenttree.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out
}

func (n *fakeNode) Properties() []contenttree.Property {
	return n.props
}

func (n *fakeNode) Property(alias string) (contenttree.Property, bool) {
	for _, p := range n.props {
		if strings.EqualFold(p.Alias, alias) {
			return p, true
		}
	}
	return contenttree.Property{}, false
}

// fakeStore is an in-memory contenttree.Store. Mutations operate on the node
// maps directly so a created node is immediately readable.
type fakeStore struct {
	nodes     map[int]*fakeNode
	media     map[int]*fakeNode
	schemas   map[string]*contenttree.Schema
	users     map[string]*contenttree.Principal
	protected map[string][]string // path prefix -> allowed groups
	notifier  *contenttree.Notifier
	nextID    int
}

var _ contenttree.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		nodes:     map[int]*fakeNode{},
		media:     map[int]*fakeNode{},
		schemas:   map[string]*contenttree.Schema{},
		users:     map[string]*contenttree.Principal{},
		protected: map[string][]string{},
		notifier:  &contenttree.Notifier{},
		nextID:    1000,
	}
}

func (s *fakeStore) addNode(n *fakeNode) *fakeNode {
	s.nodes[n.id] = n
	if n.key == uuid.Nil {
		n.key = uuid.New()
	}
	if n.parent != nil {
		n.parent.children = append(n.parent.children, n)
		n.level = n.parent.level + 1
		n.path = n.parent.path + "," + fmt.Sprint(n.id)
	} else {
		n.level = 1
		n.path = "-1," + fmt.Sprint(n.id)
	}
	return n
}

func (s *fakeStore) addMedia(n *fakeNode) *fakeNode {
	n.itemType = contenttree.ItemTypeMedia
	if n.key == uuid.Nil {
		n.key = uuid.New()
	}
	s.media[n.id] = n
	return n
}

func (s *fakeStore) NodeByID(id int) (contenttree.Node, error) {
	if n, ok := s.nodes[id]; ok {
		return n, nil
	}
	return nil, nil
}

func (s *fakeStore) NodeByKey(key uuid.UUID) (contenttree.Node, error) {
	for _, n := range s.nodes {
		if n.key == key {
			return n, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) MediaByID(id int) (contenttree.Node, error) {
	if n, ok := s.media[id]; ok {
		return n, nil
	}
	return nil, fmt.Errorf("media %d not found", id)
}

func (s *fakeStore) MediaByKey(key uuid.UUID) (contenttree.Node, error) {
	for _, n := range s.media {
		if n.key == key {
			return n, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Schema(alias string) (*contenttree.Schema, error) {
	for key, schema := range s.schemas {
		if strings.EqualFold(key, alias) {
			return schema, nil
		}
	}
	return nil, fmt.Errorf("schema %q not found", alias)
}

func (s *fakeStore) Create(parentID int, typeAlias string, m contenttree.Mutation) (contenttree.Node, error) {
	parent, ok := s.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("parent %d not found", parentID)
	}

	s.nextID++
	props := make([]contenttree.Property, 0, len(m.Properties))
	for alias, val := range m.Properties {
		props = append(props, contenttree.Property{Alias: alias, Value: val})
	}
	created := s.addNode(&fakeNode{
		id:        s.nextID,
		name:      m.Name,
		alias:     typeAlias,
		urlName:   strings.ToLower(m.Name),
		urlPath:   parent.urlPath + "/" + strings.ToLower(m.Name),
		sortOrder: len(parent.children),
		created:   time.Now(),
		updated:   time.Now(),
		parent:    parent,
		props:     props,
	})

	if m.Publish {
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventPublish,
			NodeID:           created.id,
			ContentTypeAlias: typeAlias,
		})
		return created, nil
	}
	return parent, nil
}

func (s *fakeStore) Update(id int, m contenttree.Mutation) (contenttree.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d not found", id)
	}
	n.name = m.Name
	for alias, val := range m.Properties {
		replaced := false
		for i := range n.props {
			if strings.EqualFold(n.props[i].Alias, alias) {
				n.props[i].Value = val
				replaced = true
				break
			}
		}
		if !replaced {
			n.props = append(n.props, contenttree.Property{Alias: alias, Value: val})
		}
	}
	n.updated = time.Now()
	if m.Publish {
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventPublish,
			NodeID:           id,
			ContentTypeAlias: n.alias,
		})
	}
	return n, nil
}

func (s *fakeStore) Delete(id int, hard bool) (contenttree.Node, error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node %d not found", id)
	}
	if !hard {
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventUnpublish,
			NodeID:           id,
			ContentTypeAlias: n.alias,
		})
		return n, nil
	}

	delete(s.nodes, id)
	if n.parent != nil {
		kept := n.parent.children[:0]
		for _, c := range n.parent.children {
			if c.id != id {
				kept = append(kept, c)
			}
		}
		n.parent.children = kept
	}
	s.notifier.Notify(contenttree.Event{
		Kind:             contenttree.EventDelete,
		NodeID:           id,
		ContentTypeAlias: n.alias,
	})
	if n.parent == nil {
		return nil, nil
	}
	return n.parent, nil
}

func (s *fakeStore) IsProtected(path string) bool {
	for prefix := range s.protected {
		if path == prefix || strings.HasPrefix(path, prefix+",") {
			return true
		}
	}
	return false
}

func (s *fakeStore) HasAccess(path string, principal *contenttree.Principal) bool {
	for prefix, groups := range s.protected {
		if path != prefix && !strings.HasPrefix(path, prefix+",") {
			continue
		}
		for _, g := range groups {
			if principal.InGroup(g) {
				return true
			}
		}
		return false
	}
	return true
}

func (s *fakeStore) UserByName(username string) (*contenttree.Principal, error) {
	return s.users[username], nil
}

// siteFixture builds a small published site:
//
//	/ (home)
//	  /articles (articleList)
//	    /articles/a .. /articles/f (article, sortOrder 0..5)
//	  /about (page, protected to "staff")
func siteFixture() (*fakeStore, *fakeNode) {
	s := newFakeStore()

	s.schemas["home"] = &contenttree.Schema{
		Alias: "home", Name: "Home",
		AllowedChildAliases: []string{"articleList", "page"},
	}
	s.schemas["articleList"] = &contenttree.Schema{
		Alias: "articleList", Name: "Article List",
		AllowedChildAliases: []string{"article"},
		Properties: []contenttree.SchemaProperty{
			{Alias: "intro", Name: "Intro", EditorAlias: contenttree.EditorTextbox},
		},
	}
	s.schemas["article"] = &contenttree.Schema{
		Alias: "article", Name: "Article",
		Properties: []contenttree.SchemaProperty{
			{Alias: "title", Name: "Title", EditorAlias: contenttree.EditorTextbox},
			{Alias: "publishedAt", Name: "Published At", EditorAlias: contenttree.EditorDatePicker, Kind: contenttree.KindDate},
		},
	}
	s.schemas["page"] = &contenttree.Schema{Alias: "page", Name: "Page"}

	home := s.addNode(&fakeNode{
		id: 1, name: "Home", alias: "home", urlPath: "/", urlName: "",
		created: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		updated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	articles := s.addNode(&fakeNode{
		id: 2, name: "Articles", alias: "articleList",
		urlPath: "/articles", urlName: "articles", parent: home,
		created: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		updated: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		props: []contenttree.Property{
			{Alias: "intro", Value: "All the news", EditorAlias: contenttree.EditorTextbox},
		},
	})
	for i, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo", "Foxtrot"} {
		s.addNode(&fakeNode{
			id: 10 + i, name: name, alias: "article",
			urlPath: "/articles/" + strings.ToLower(name), urlName: strings.ToLower(name),
			sortOrder: i, parent: articles,
			created: time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC),
			updated: time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC),
			props: []contenttree.Property{
				{Alias: "title", Value: name + " headline", EditorAlias: contenttree.EditorTextbox},
			},
		})
	}
	about := s.addNode(&fakeNode{
		id: 3, name: "About", alias: "page",
		urlPath: "/about", urlName: "about", sortOrder: 1, parent: home,
		created: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		updated: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	})
	s.protected[about.path] = []string{"staff"}

	s.users["admin"] = &contenttree.Principal{Username: "admin", Groups: []string{"admin", "staff"}}
	s.users["reader"] = &contenttree.Principal{Username: "reader", Groups: []string{"readers"}}

	return s, home
}

// allowAll grants every capability regardless of principal, for tests that
// exercise paths behind the capability gate.
type allowAll struct{}

func (allowAll) Capabilities(p *contenttree.Principal, sc *contenttree.Schema) Capabilities {
	return Capabilities{
		CanCreate: sc != nil && len(sc.AllowedChildAliases) > 0,
		CanUpdate: true,
		CanDelete: true,
	}
}
