package hypermedia

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// XML renders the document as an XML fragment rooted at the given element
// name. The shape mirrors the JSON rendering: repeated <class> elements, a
// <properties> container keyed by property name, nested <entity>, <action>
// and <link> elements. encoding/xml cannot marshal map-shaped data, so the
// walk is done by hand.
func (d *Document) XML(root string) string {
	var b strings.Builder
	d.writeXML(&b, root)
	return b.String()
}

func (d *Document) writeXML(b *strings.Builder, root string) {
	fmt.Fprintf(b, "<%s>", root)
	for _, c := range d.Class {
		writeXMLElement(b, "class", c)
	}
	if d.Title != "" {
		writeXMLElement(b, "title", d.Title)
	}
	if d.Properties != nil && d.Properties.Len() > 0 {
		b.WriteString("<properties>")
		for _, name := range d.Properties.Keys() {
			v, _ := d.Properties.Get(name)
			writeXMLValue(b, xmlName(name), v)
		}
		b.WriteString("</properties>")
	}
	if len(d.Entities) > 0 {
		b.WriteString("<entities>")
		for _, e := range d.Entities {
			e.writeXML(b, "entity")
		}
		b.WriteString("</entities>")
	}
	if !d.Simple {
		if len(d.Actions) > 0 {
			b.WriteString("<actions>")
			for _, a := range d.Actions {
				b.WriteString("<action>")
				for _, c := range a.Class {
					writeXMLElement(b, "class", c)
				}
				writeXMLElement(b, "title", a.Title)
				writeXMLElement(b, "method", a.Method)
				if a.Href != "" {
					writeXMLElement(b, "href", a.Href)
				}
				if a.Action != "" {
					writeXMLElement(b, "action", a.Action)
				}
				if a.Type != "" {
					writeXMLElement(b, "type", a.Type)
				}
				b.WriteString("</action>")
			}
			b.WriteString("</actions>")
		}
		if len(d.Links) > 0 {
			b.WriteString("<links>")
			for _, l := range d.Links {
				b.WriteString("<link>")
				for _, r := range l.Rel {
					writeXMLElement(b, "rel", r)
				}
				writeXMLElement(b, "title", l.Title)
				writeXMLElement(b, "href", l.Href)
				b.WriteString("</link>")
			}
			b.WriteString("</links>")
		}
	}
	fmt.Fprintf(b, "</%s>", root)
}

func writeXMLValue(b *strings.Builder, name string, v any) {
	switch val := v.(type) {
	case nil:
		fmt.Fprintf(b, "<%s/>", name)
	case *Document:
		val.writeXML(b, name)
	case RichValue:
		fmt.Fprintf(b, "<%s>", name)
		writeXMLElement(b, "title", val.Title)
		writeXMLValue(b, "value", val.Value)
		if val.Type != "" {
			writeXMLElement(b, "type", val.Type)
		}
		if val.PropertyEditor != "" {
			writeXMLElement(b, "propertyEditor", val.PropertyEditor)
		}
		fmt.Fprintf(b, "</%s>", name)
	case []any:
		fmt.Fprintf(b, "<%s>", name)
		for _, item := range val {
			writeXMLValue(b, "item", item)
		}
		fmt.Fprintf(b, "</%s>", name)
	case []string:
		fmt.Fprintf(b, "<%s>", name)
		for _, item := range val {
			writeXMLElement(b, "item", item)
		}
		fmt.Fprintf(b, "</%s>", name)
	case map[string]any:
		fmt.Fprintf(b, "<%s>", name)
		for _, k := range sortedMapKeys(val) {
			writeXMLValue(b, xmlName(k), val[k])
		}
		fmt.Fprintf(b, "</%s>", name)
	case time.Time:
		writeXMLElement(b, name, val.Format(time.RFC3339))
	default:
		writeXMLElement(b, name, fmt.Sprintf("%v", val))
	}
}

func writeXMLElement(b *strings.Builder, name, text string) {
	fmt.Fprintf(b, "<%s>", name)
	_ = xml.EscapeText(b, []byte(text))
	fmt.Fprintf(b, "</%s>", name)
}

var xmlNameInvalid = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// xmlName makes a property name safe to use as an element name.
func xmlName(name string) string {
	clean := xmlNameInvalid.ReplaceAllString(name, "")
	if clean == "" || (clean[0] >= '0' && clean[0] <= '9') {
		clean = "_" + clean
	}
	return clean
}

func sortedMapKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
