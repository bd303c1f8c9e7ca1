package gormstore

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// node adapts a ContentNode row to the contenttree.Node interface. Parent and
// children load lazily and memoize for the life of the request snapshot.
type node struct {
	st *Store
	m  ContentNode

	parent       contenttree.Node
	parentLoaded bool
	children     []contenttree.Node
	kidsLoaded   bool
}

var _ contenttree.Node = (*node)(nil)

func (n *node) ID() int                  { return int(n.m.ID) }
func (n *node) Key() uuid.UUID           { return n.m.Key }
func (n *node) Name() string             { return n.m.Name }
func (n *node) ContentTypeAlias() string { return n.m.TypeAlias }
func (n *node) CreateDate() time.Time    { return n.m.CreatedAt }
func (n *node) UpdateDate() time.Time    { return n.m.UpdatedAt }
func (n *node) SortOrder() int           { return n.m.SortOrder }
func (n *node) Level() int               { return n.m.Level }
func (n *node) URL() string              { return n.m.URLPath }
func (n *node) URLName() string          { return n.m.URLName }
func (n *node) Path() string             { return n.m.Path }

func (n *node) ItemType() contenttree.ItemType {
	if n.m.ItemType == itemTypeMedia {
		return contenttree.ItemTypeMedia
	}
	return contenttree.ItemTypeContent
}

func (n *node) Parent() contenttree.Node {
	if n.parentLoaded {
		return n.parent
	}
	n.parentLoaded = true
	if n.m.ParentID == nil {
		return nil
	}
	m, err := GetNodeByID(n.st.db, *n.m.ParentID)
	if err != nil {
		n.st.log.Warn("loading parent", "node", n.m.ID, "error", err)
		return nil
	}
	n.parent = &node{st: n.st, m: *m}
	return n.parent
}

func (n *node) Children() []contenttree.Node {
	if n.kidsLoaded {
		return n.children
	}
	n.kidsLoaded = true
	rows, err := GetChildren(n.st.db, n.m.ID)
	if err != nil {
		n.st.log.Warn("loading children", "node", n.m.ID, "error", err)
		return nil
	}
	n.children = make([]contenttree.Node, 0, len(rows))
	for _, row := range rows {
		n.children = append(n.children, &node{st: n.st, m: row})
	}
	return n.children
}

func (n *node) Properties() []contenttree.Property {
	props := make([]contenttree.Property, 0, len(n.m.Properties))
	for _, p := range n.m.Properties {
		props = append(props, contenttree.Property{
			Alias:       p.Alias,
			Value:       p.Value,
			EditorAlias: p.EditorAlias,
		})
	}
	return props
}

func (n *node) Property(alias string) (contenttree.Property, bool) {
	for _, p := range n.m.Properties {
		if strings.EqualFold(p.Alias, alias) {
			return contenttree.Property{
				Alias:       p.Alias,
				Value:       p.Value,
				EditorAlias: p.EditorAlias,
			}, true
		}
	}
	return contenttree.Property{}, false
}
