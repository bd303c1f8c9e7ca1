package hypermedia

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Link relation kinds.
const (
	RelSelf   = "_Self"
	RelParent = "_Parent"
	RelChild  = "_Child"
)

// Link is a hypermedia link descriptor: rel carries the relation kind and the
// target's content-type alias.
type Link struct {
	Rel   []string `json:"rel"`
	Title string   `json:"title"`
	Href  string   `json:"href"`
}

// Action is a state-transition descriptor. Href is set on idempotent
// discovery actions (method GET); Action is set on the corresponding
// submission endpoint.
type Action struct {
	Class  []string `json:"class"`
	Title  string   `json:"title"`
	Method string   `json:"method"`
	Href   string   `json:"href,omitempty"`
	Action string   `json:"action,omitempty"`
	Type   string   `json:"type,omitempty"`
}

// RichValue is the non-simple rendering of a property: the value plus its
// display title and, for content properties, the inferred type and editor.
type RichValue struct {
	Title          string `json:"title"`
	Value          any    `json:"value"`
	Type           string `json:"type,omitempty"`
	PropertyEditor string `json:"propertyEditor,omitempty"`
}

// HTML marks a string value as pre-rendered markup so type inference can
// report it as htmlstring.
type HTML string

// MarshalJSON renders the markup as a plain JSON string.
func (h HTML) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(h))
}

// Document is the hypermedia projection of one content node. Keys marshal in
// the fixed order class, title, properties, entities, actions, links;
// entities/actions/links are present only when non-empty, and actions/links
// are never emitted in simple mode.
type Document struct {
	Class      []string
	Title      string
	Properties *PropertyMap
	Entities   []*Document
	Actions    []Action
	Links      []Link

	// Simple collapses the class list to a comma-joined string and keeps
	// property values bare instead of RichValue-wrapped.
	Simple bool
}

// NewDocument returns an empty document with an initialized property map.
func NewDocument(simple bool) *Document {
	return &Document{Properties: NewPropertyMap(), Simple: simple}
}

// MarshalJSON emits the document with its fixed key order.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField := func(name string, v any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}

	if len(d.Class) > 0 {
		var cls any = d.Class
		if d.Simple {
			cls = strings.Join(d.Class, ",")
		}
		if err := writeField("class", cls); err != nil {
			return nil, err
		}
	}
	if d.Title != "" {
		if err := writeField("title", d.Title); err != nil {
			return nil, err
		}
	}
	if d.Properties != nil {
		if err := writeField("properties", d.Properties); err != nil {
			return nil, err
		}
	}
	if len(d.Entities) > 0 {
		if err := writeField("entities", d.Entities); err != nil {
			return nil, err
		}
	}
	if !d.Simple {
		if len(d.Actions) > 0 {
			if err := writeField("actions", d.Actions); err != nil {
				return nil, err
			}
		}
		if len(d.Links) > 0 {
			if err := writeField("links", d.Links); err != nil {
				return nil, err
			}
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// PropertyMap is a case-insensitively keyed, case-insensitively sorted map of
// property name to value. The first-set spelling of a name is kept as its
// display form; setting an existing name replaces its value in place.
type PropertyMap struct {
	names []string       // display spellings
	index map[string]int // lower(name) -> position in names
	vals  map[string]any // lower(name) -> value
}

// NewPropertyMap returns an empty property map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{
		index: make(map[string]int),
		vals:  make(map[string]any),
	}
}

// Set stores a value under the given name, replacing any existing value with
// the same case-insensitive name.
func (m *PropertyMap) Set(name string, v any) {
	key := strings.ToLower(name)
	if _, ok := m.index[key]; !ok {
		m.index[key] = len(m.names)
		m.names = append(m.names, name)
	}
	m.vals[key] = v
}

// Get returns the value stored under the name, case-insensitively.
func (m *PropertyMap) Get(name string) (any, bool) {
	v, ok := m.vals[strings.ToLower(name)]
	return v, ok
}

// Has reports whether the name is present, case-insensitively.
func (m *PropertyMap) Has(name string) bool {
	_, ok := m.vals[strings.ToLower(name)]
	return ok
}

// Len returns the number of entries.
func (m *PropertyMap) Len() int {
	return len(m.names)
}

// Keys returns the display names sorted case-insensitively.
func (m *PropertyMap) Keys() []string {
	keys := make([]string, len(m.names))
	copy(keys, m.names)
	sort.SliceStable(keys, func(i, j int) bool {
		return strings.ToLower(keys[i]) < strings.ToLower(keys[j])
	})
	return keys
}

// Restrict drops every entry whose lowercase name is not in keep. Names in
// keep that are absent from the map are ignored.
func (m *PropertyMap) Restrict(keep []string) {
	allowed := make(map[string]bool, len(keep))
	for _, k := range keep {
		allowed[strings.ToLower(k)] = true
	}

	var names []string
	for _, n := range m.names {
		key := strings.ToLower(n)
		if allowed[key] {
			names = append(names, n)
		} else {
			delete(m.vals, key)
			delete(m.index, key)
		}
	}
	m.names = names
	for i, n := range m.names {
		m.index[strings.ToLower(n)] = i
	}
}

// MarshalJSON emits entries in case-insensitive name order.
func (m *PropertyMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(m.vals[strings.ToLower(name)])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
