package contenttree

import "strings"

// Storage kinds for schema properties. These drive how posted form values are
// coerced before being handed to the Mutator.
type PropertyKind int

const (
	KindString PropertyKind = iota
	KindInteger
	KindDate
)

// Well-known property editor aliases. The resolver gives the multi-text and
// nested editors schema-driven treatment; everything else passes through.
const (
	EditorTextbox       = "Strata.Textbox"
	EditorTextarea      = "Strata.Textarea"
	EditorRichText      = "Strata.RichText"
	EditorDatePicker    = "Strata.DatePicker"
	EditorCheckbox      = "Strata.Checkbox"
	EditorNumeric       = "Strata.Numeric"
	EditorMediaPicker   = "Strata.MediaPicker"
	EditorContentPicker = "Strata.ContentPicker"
	EditorMultipleText  = "Strata.MultipleTextstring"
	EditorNestedContent = "Strata.NestedContent"
)

// SchemaProperty is one declared property on a content-type schema.
type SchemaProperty struct {
	Alias       string
	Name        string
	Group       string
	Description string
	Validation  string
	EditorAlias string
	Kind        PropertyKind
	Mandatory   bool

	// Prevalues are schema-declared allowed values, when any.
	Prevalues []string
}

// Schema is the structural definition associated with a content type: its
// declared properties, its parent schema and the child types it allows.
type Schema struct {
	Alias string
	Name  string

	// ParentAlias names the schema this one inherits properties from;
	// empty for a root schema.
	ParentAlias string

	// AllowedChildAliases lists the content-type aliases that may be
	// created under nodes of this type.
	AllowedChildAliases []string

	Properties []SchemaProperty
}

// Property returns the declared property with the given alias, or false.
// Matching is case-insensitive to mirror property lookup on nodes.
func (s *Schema) Property(alias string) (SchemaProperty, bool) {
	for _, p := range s.Properties {
		if strings.EqualFold(p.Alias, alias) {
			return p, true
		}
	}
	return SchemaProperty{}, false
}

// AllowsChild reports whether the schema allows children of the given alias.
func (s *Schema) AllowsChild(alias string) bool {
	for _, a := range s.AllowedChildAliases {
		if strings.EqualFold(a, alias) {
			return true
		}
	}
	return false
}
