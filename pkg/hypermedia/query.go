package hypermedia

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// dateKeyLayout is the zero-padded sortable representation used when ordering
// by a date-like property.
const dateKeyLayout = "200601021504"

// Projector interprets the declarative query parameters (descendants,
// children, ancestor, orderby, skip, take) against a node and the tree
// reachable from it.
type Projector struct {
	Log hclog.Logger
}

// DescendantNodes expands the descendants parameter: empty value means all
// descendants, a numeric value bounds the depth, a comma-separated value is
// the union of per-alias filters (duplicates kept), anything else filters by
// a single content-type alias. Ordering and skip/take are applied afterwards.
func (p *Projector) DescendantNodes(req *Request, node contenttree.Node) []contenttree.Node {
	if !req.HasDescendants {
		return nil
	}

	var nodes []contenttree.Node
	arg := strings.TrimSpace(req.Descendants)
	switch {
	case arg == "":
		nodes = collectDescendants(node, -1, "")
	case isAllDigits(arg):
		depth, _ := strconv.Atoi(arg)
		nodes = collectDescendants(node, depth, "")
	case strings.Contains(arg, ","):
		for _, alias := range strings.Split(arg, ",") {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			nodes = append(nodes, collectDescendants(node, -1, alias)...)
		}
	default:
		nodes = collectDescendants(node, -1, arg)
	}

	return p.SkipTake(req, p.SortNodes(req, nodes))
}

// ChildNodes expands the children parameter. Children are order-only: the
// where parameter is accepted but filters nothing.
func (p *Projector) ChildNodes(req *Request, node contenttree.Node) []contenttree.Node {
	if !req.HasChildren {
		return nil
	}
	return p.SkipTake(req, p.SortNodes(req, node.Children()))
}

// AncestorOrSelf walks from the node to the root and returns the first node
// whose content-type alias matches, or nil.
func AncestorOrSelf(node contenttree.Node, alias string) contenttree.Node {
	for n := node; n != nil; n = n.Parent() {
		if strings.EqualFold(n.ContentTypeAlias(), alias) {
			return n
		}
	}
	return nil
}

// SortNodes orders nodes by the requested field. orderbydesc takes precedence
// over orderby; with neither present the order is stable by sort order
// ascending. Named fields are updatedate, name, createdate and sortorder;
// any other field sorts by the property of that name, treating date-like
// aliases as zero-padded date keys with missing values sorting first.
func (p *Projector) SortNodes(req *Request, nodes []contenttree.Node) []contenttree.Node {
	sorted := make([]contenttree.Node, len(nodes))
	copy(sorted, nodes)

	field := "sortorder"
	desc := false
	switch {
	case req.OrderByDesc != "":
		field = strings.ToLower(req.OrderByDesc)
		desc = true
	case req.OrderBy != "":
		field = strings.ToLower(req.OrderBy)
	}

	less := lessByField(field)
	sort.SliceStable(sorted, func(i, j int) bool {
		if desc {
			return less(sorted[j], sorted[i])
		}
		return less(sorted[i], sorted[j])
	})
	return sorted
}

// SkipTake pages the node list: skip first, then take. Non-numeric values
// leave the list untouched; take defaults to the configured maximum.
func (p *Projector) SkipTake(req *Request, nodes []contenttree.Node) []contenttree.Node {
	if skip, ok := req.SkipCount(); ok {
		if skip >= len(nodes) {
			nodes = nil
		} else {
			nodes = nodes[skip:]
		}
	}
	if take, ok := req.TakeCount(); ok && take < len(nodes) {
		nodes = nodes[:take]
	}
	return nodes
}

func lessByField(field string) func(a, b contenttree.Node) bool {
	switch field {
	case "updatedate":
		return func(a, b contenttree.Node) bool { return a.UpdateDate().Before(b.UpdateDate()) }
	case "createdate":
		return func(a, b contenttree.Node) bool { return a.CreateDate().Before(b.CreateDate()) }
	case "name":
		return func(a, b contenttree.Node) bool {
			return strings.ToLower(a.Name()) < strings.ToLower(b.Name())
		}
	case "sortorder":
		return func(a, b contenttree.Node) bool { return a.SortOrder() < b.SortOrder() }
	default:
		return func(a, b contenttree.Node) bool {
			return propertySortKey(a, field) < propertySortKey(b, field)
		}
	}
}

// propertySortKey renders a node's property as a comparable string. A
// date-like property alias sorts by a zero-padded date key, with missing or
// unparseable values taking the minimum date.
func propertySortKey(node contenttree.Node, field string) string {
	prop, ok := node.Property(field)

	if strings.Contains(strings.ToLower(field), "date") {
		if ok && prop.Value != nil {
			switch v := prop.Value.(type) {
			case time.Time:
				return v.Format(dateKeyLayout)
			default:
				if t, err := dateparse.ParseAny(stringify(v)); err == nil {
					return t.Format(dateKeyLayout)
				}
			}
		}
		return time.Time{}.Format(dateKeyLayout)
	}

	if !ok || prop.Value == nil {
		return ""
	}
	return stringify(prop.Value)
}

// collectDescendants walks the subtree below node in document order. depth
// bounds the walk when non-negative (1 = children only); alias filters by
// content type when non-empty.
func collectDescendants(node contenttree.Node, depth int, alias string) []contenttree.Node {
	var out []contenttree.Node
	var walk func(n contenttree.Node, level int)
	walk = func(n contenttree.Node, level int) {
		if depth >= 0 && level > depth {
			return
		}
		for _, child := range n.Children() {
			if alias == "" || strings.EqualFold(child.ContentTypeAlias(), alias) {
				out = append(out, child)
			}
			walk(child, level+1)
		}
	}
	walk(node, 1)
	return out
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
