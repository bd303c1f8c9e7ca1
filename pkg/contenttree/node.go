package contenttree

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemType distinguishes regular content from media items.
type ItemType int

const (
	ItemTypeContent ItemType = iota
	ItemTypeMedia
)

// Node is one item in the hierarchical content store. Implementations are
// supplied by the host; the projection engine only reads through this
// interface. A Node is a snapshot: the engine assumes its accessors are cheap
// and stable for the duration of one request.
type Node interface {
	// ID is the stable integer identity of the node.
	ID() int

	// Key is the stable UUID identity of the node.
	Key() uuid.UUID

	// Name is the display name of the node.
	Name() string

	// ContentTypeAlias is the alias of the node's content-type schema.
	ContentTypeAlias() string

	// Parent returns the parent node, or nil for a root node.
	Parent() Node

	// Children returns the node's children in storage order.
	Children() []Node

	// CreateDate and UpdateDate are the node's lifecycle timestamps.
	CreateDate() time.Time
	UpdateDate() time.Time

	// SortOrder is the node's position among its siblings.
	SortOrder() int

	// Level is the node's depth in the tree, 1 for roots.
	Level() int

	// URL is the node's public URL path.
	URL() string

	// URLName is the URL segment for the node itself.
	URLName() string

	// Path is the comma-separated chain of ancestor ids ending in the
	// node's own id, e.g. "-1,1001,1011".
	Path() string

	// ItemType reports whether the node is content or media.
	ItemType() ItemType

	// Properties returns the node's declared content properties.
	Properties() []Property

	// Property returns a single property by alias, case-insensitively.
	Property(alias string) (Property, bool)
}

// Property is one named content value on a node. Value holds one of the
// closed set of property variants: string, int, float64, bool, time.Time,
// []string, []any, a Node or []Node reference, or nil.
type Property struct {
	Alias       string
	Value       any
	EditorAlias string
}

// Reference schemes for content and media references embedded in property
// values, e.g. "strata://document/ec4aafcc-0c25-4f25-a8fe-705bfae1d324".
const (
	refDocumentPrefix = "strata://document/"
	refMediaPrefix    = "strata://media/"
)

// Reference is a parsed content or media reference.
type Reference struct {
	ItemType ItemType
	Key      uuid.UUID
}

// DocumentReference returns the canonical string form of a content reference.
func DocumentReference(key uuid.UUID) string {
	return refDocumentPrefix + key.String()
}

// MediaReference returns the canonical string form of a media reference.
func MediaReference(key uuid.UUID) string {
	return refMediaPrefix + key.String()
}

// IsReference reports whether s looks like a content or media reference.
func IsReference(s string) bool {
	ls := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(ls, refDocumentPrefix) || strings.HasPrefix(ls, refMediaPrefix)
}

// ParseReference parses a "strata://document/<uuid>" or "strata://media/<uuid>"
// string into a Reference.
func ParseReference(s string) (Reference, error) {
	ls := strings.ToLower(strings.TrimSpace(s))
	var (
		itemType ItemType
		rest     string
	)
	switch {
	case strings.HasPrefix(ls, refDocumentPrefix):
		itemType = ItemTypeContent
		rest = ls[len(refDocumentPrefix):]
	case strings.HasPrefix(ls, refMediaPrefix):
		itemType = ItemTypeMedia
		rest = ls[len(refMediaPrefix):]
	default:
		return Reference{}, fmt.Errorf("not a content reference: %q", s)
	}

	key, err := uuid.Parse(rest)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid reference key in %q: %w", s, err)
	}
	return Reference{ItemType: itemType, Key: key}, nil
}
