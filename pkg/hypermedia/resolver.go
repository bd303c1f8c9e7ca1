package hypermedia

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// mediaFailure is the sentinel value a property degrades to when a requested
// media resolution fails.
const mediaFailure = "#"

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Resolver transforms a single raw property value according to the request's
// resolution parameters: media URL resolution, reference-to-id resolution,
// HTML stripping/encoding, and the schema-driven multi-text and nested-bag
// editor transforms. Resolution failures never propagate; they degrade to
// sentinel or message values per the contract of each transform.
type Resolver struct {
	Store contenttree.Reader
	Log   hclog.Logger

	// Project renders a node referenced from inside a nested property bag.
	// Wired by the engine to its one-level document transform.
	Project func(req *Request, node contenttree.Node) (any, error)
}

// Resolve applies every transform the request asks of this property and
// returns the resolved value.
func (r *Resolver) Resolve(req *Request, prop contenttree.Property) any {
	val := prop.Value

	switch prop.EditorAlias {
	case contenttree.EditorMultipleText:
		val = r.resolveMultiText(val)
	case contenttree.EditorNestedContent:
		val = r.resolveNested(req, val)
	}

	val = r.resolveMedia(req, prop.Alias, val)
	val = r.resolveToIDs(req, prop.Alias, val)

	// A media reference neither resolver claimed degrades to its id. This
	// must run after both resolvers so a resolveToIds-named property still
	// sees the node itself.
	if node, ok := val.(contenttree.Node); ok && node.ItemType() == contenttree.ItemTypeMedia {
		val = node.ID()
	}

	if strings.EqualFold(req.HTML, "false") {
		val = htmlTagPattern.ReplaceAllString(stringify(val), "")
	}
	if req.EncodeHTML {
		if s, ok := val.(string); ok {
			val = html.EscapeString(s)
		}
	}

	return val
}

// resolveMedia maps a property requested for media resolution onto URLs: a
// comma-joined id string becomes a comma-joined URL string, a node sequence
// becomes an array of URLs (entries without a URL dropped), a single node
// becomes its URL. Any failure degrades the value to "#". Properties not
// named by resolveMedia pass through untouched.
func (r *Resolver) resolveMedia(req *Request, alias string, val any) any {
	if !req.ResolveMedia[strings.ToLower(alias)] {
		return val
	}
	resolved, err := r.mediaValue(val)
	if err != nil {
		r.Log.Debug("media resolution failed", "property", alias, "error", err)
		return mediaFailure
	}
	return resolved
}

func (r *Resolver) mediaValue(val any) (any, error) {
	switch v := val.(type) {
	case string:
		if v == "" {
			return v, nil
		}
		ids := strings.Split(v, ",")
		urls := make([]string, 0, len(ids))
		for _, raw := range ids {
			id, err := strconv.Atoi(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid media id %q: %w", raw, err)
			}
			media, err := r.Store.MediaByID(id)
			if err != nil {
				return nil, err
			}
			urls = append(urls, media.URL())
		}
		return strings.Join(urls, ","), nil

	case []contenttree.Node:
		urls := make([]string, 0, len(v))
		for _, item := range v {
			if item != nil && item.URL() != "" {
				urls = append(urls, item.URL())
			}
		}
		return urls, nil

	case contenttree.Node:
		return v.URL(), nil

	default:
		return val, nil
	}
}

// resolveToIDs maps reference values to bare ids when the property is named
// by resolveToIds: a node sequence becomes an id array (or an empty object
// when the sequence is empty), a single node becomes its id as a string.
// Failures surface as the error message.
func (r *Resolver) resolveToIDs(req *Request, alias string, val any) any {
	named := false
	for _, key := range req.ResolveToIDs {
		if strings.EqualFold(alias, key) {
			named = true
			break
		}
	}
	if !named {
		return val
	}

	switch v := val.(type) {
	case []contenttree.Node:
		if len(v) == 0 {
			return map[string]any{}
		}
		ids := make([]int, 0, len(v))
		for _, item := range v {
			if item == nil {
				return "nil node in reference sequence"
			}
			ids = append(ids, item.ID())
		}
		return ids

	case contenttree.Node:
		return strconv.Itoa(v.ID())

	default:
		return val
	}
}

// resolveMultiText round-trips the multi-value text editor through its array
// encoding: a stored JSON array or newline-joined string becomes []string.
func (r *Resolver) resolveMultiText(val any) any {
	switch v := val.(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return []string{}
		}
		var items []string
		if err := json.Unmarshal([]byte(v), &items); err == nil {
			return items
		}
		return strings.Split(strings.ReplaceAll(v, "\r\n", "\n"), "\n")
	default:
		return val
	}
}

// resolveNested decodes the nested-content editor's embedded array of
// property bags and resolves each bag value: content references project to
// nested documents, media references to their URLs, everything else to its
// string form. Only selected sub-properties are kept when a select filter is
// active.
func (r *Resolver) resolveNested(req *Request, val any) any {
	raw, ok := val.(string)
	if !ok || raw == "" {
		return val
	}

	var bags []map[string]any
	if err := json.Unmarshal([]byte(raw), &bags); err != nil {
		r.Log.Debug("nested content decode failed", "error", err)
		return val
	}

	selected := make(map[string]bool, len(req.Select))
	for _, name := range req.Select {
		selected[name] = true
	}
	useAll := len(req.Select) == 0

	items := make([]any, 0, len(bags))
	for _, bag := range bags {
		props := make(map[string]any, len(bag))
		for name, item := range bag {
			if !useAll && !selected[strings.ToLower(name)] {
				continue
			}
			if _, isArray := item.([]any); isArray {
				continue
			}
			props[name] = r.resolveNestedValue(req, stringify(item))
		}
		items = append(items, props)
	}
	return items
}

func (r *Resolver) resolveNestedValue(req *Request, item string) any {
	if !contenttree.IsReference(item) {
		return item
	}
	ref, err := contenttree.ParseReference(item)
	if err != nil {
		return item
	}

	switch ref.ItemType {
	case contenttree.ItemTypeContent:
		node, err := r.Store.NodeByKey(ref.Key)
		if err != nil || node == nil {
			return item
		}
		if r.Project != nil {
			if doc, err := r.Project(req, node); err == nil {
				return doc
			}
		}
		return item

	case contenttree.ItemTypeMedia:
		media, err := r.Store.MediaByKey(ref.Key)
		if err != nil || media == nil {
			return item
		}
		return media.URL()
	}
	return item
}

// GuessType infers the display type annotation for a resolved value. The
// inference feeds the non-simple document shape and the coercion of posted
// form values.
func GuessType(val any) string {
	switch v := val.(type) {
	case nil:
		return "text"
	case string:
		if v == "True" || v == "False" {
			return "checkbox"
		}
		if strings.Contains(v, "-") && strings.Contains(v, "T") && strings.Contains(v, ":") {
			if _, err := dateparse.ParseAny(v); err == nil {
				return "date"
			}
		}
		if _, err := strconv.Atoi(v); err == nil {
			return "number"
		}
		return "text"
	case int, int32, int64:
		return "number"
	case bool:
		return "checkbox"
	case time.Time:
		return "date"
	case HTML:
		return "htmlstring"
	case []any, []string, []int, []contenttree.Node:
		return "array"
	case *Document, map[string]any:
		return "dynamic"
	default:
		return "text"
	}
}

// CoerceGuess converts a value to the native type its guessed annotation
// names: number to integer, checkbox to boolean, anything else passes
// through.
func CoerceGuess(val any, guess string) any {
	switch guess {
	case "number":
		n, err := strconv.Atoi(stringify(val))
		if err != nil {
			return val
		}
		return n
	case "checkbox":
		return stringify(val) == "True"
	case "htmlstring":
		return stringify(val)
	default:
		return val
	}
}

// CoerceForStorage converts a posted form value into the native type the
// schema declares for the property.
func CoerceForStorage(kind contenttree.PropertyKind, raw any) (any, error) {
	switch kind {
	case contenttree.KindDate:
		t, err := dateparse.ParseAny(stringify(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid date value %q: %w", raw, err)
		}
		return t, nil
	case contenttree.KindInteger:
		n, err := strconv.Atoi(stringify(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q: %w", raw, err)
		}
		return n, nil
	default:
		return stringify(raw), nil
	}
}

func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case HTML:
		return string(v)
	case float64:
		// JSON numbers decode as float64; render integral ones without
		// a fraction so id lists survive the round trip.
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
