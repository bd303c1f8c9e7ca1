package contenttree

// FacetKind tells the document transform how to treat a facet: most are plain
// values, but a few drive the class header and the self/parent/child links.
type FacetKind int

const (
	// FacetValue is a plain structural value emitted into the property map.
	FacetValue FacetKind = iota

	// FacetClass is the content-type-alias facet; it drives the document's
	// class/title header in addition to being emitted as a property.
	FacetClass

	// FacetSelf is the node URL facet; it drives the _Self link and the Url
	// property.
	FacetSelf

	// FacetParent drives the _Parent link.
	FacetParent

	// FacetChildren drives the _Child links.
	FacetChildren
)

// Facet is one structural facet of a node: a fixed name plus an extraction
// function. The facet table replaces the runtime introspection the original
// system performed over its content interface, so the structural surface of a
// document is a static, testable mapping.
type Facet struct {
	Name  string
	Kind  FacetKind
	Value func(Node) any
}

var facets = []Facet{
	{Name: "Children", Kind: FacetChildren},
	{Name: "ContentTypeAlias", Kind: FacetClass, Value: func(n Node) any { return n.ContentTypeAlias() }},
	{Name: "CreateDate", Kind: FacetValue, Value: func(n Node) any { return n.CreateDate() }},
	{Name: "Id", Kind: FacetValue, Value: func(n Node) any { return n.ID() }},
	{Name: "Key", Kind: FacetValue, Value: func(n Node) any { return n.Key().String() }},
	{Name: "Level", Kind: FacetValue, Value: func(n Node) any { return n.Level() }},
	{Name: "Name", Kind: FacetValue, Value: func(n Node) any { return n.Name() }},
	{Name: "Parent", Kind: FacetParent},
	{Name: "Path", Kind: FacetValue, Value: func(n Node) any { return n.Path() }},
	{Name: "SortOrder", Kind: FacetValue, Value: func(n Node) any { return n.SortOrder() }},
	{Name: "UpdateDate", Kind: FacetValue, Value: func(n Node) any { return n.UpdateDate() }},
	{Name: "Url", Kind: FacetSelf, Value: func(n Node) any { return n.URL() }},
	{Name: "UrlName", Kind: FacetValue, Value: func(n Node) any { return n.URLName() }},
}

// Facets returns the structural facets of a node in their fixed, alphabetical
// emission order. Callers must not mutate the returned slice.
func Facets() []Facet {
	return facets
}
