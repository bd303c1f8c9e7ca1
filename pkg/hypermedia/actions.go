package hypermedia

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// ActionBuilder generates the capability-gated state-transition actions for a
// node: GET discovery actions describing what the principal may do, and the
// POST/PUT/DELETE submission actions for an in-flight action parameter.
type ActionBuilder struct {
	Schemas contenttree.SchemaService
	Log     hclog.Logger
}

// param is one ordered query pair on an action href.
type param struct {
	key, value string
}

// NodeActions builds the action list for a node under the request's
// capability flags. Discovery actions are emitted only when no action
// parameter is active; submission actions only when action and a matching
// doctype are present. Any active action also yields a trailing Cancel.
func (b *ActionBuilder) NodeActions(req *Request, node contenttree.Node) []Action {
	var actions []Action

	schema, err := b.Schemas.Schema(node.ContentTypeAlias())
	if err != nil {
		b.Log.Debug("schema lookup failed building actions",
			"alias", node.ContentTypeAlias(), "error", err)
		return nil
	}

	if req.Action == "" {
		actions = append(actions, b.discoveryActions(req, node, schema)...)
		return actions
	}

	actions = append(actions, b.submissionActions(req, node, schema)...)
	actions = append(actions, Action{
		Class:  []string{node.ContentTypeAlias()},
		Title:  "Cancel",
		Method: "GET",
		Action: Href(req, node),
		Type:   req.ContentType,
	})
	return actions
}

func (b *ActionBuilder) discoveryActions(req *Request, node contenttree.Node, schema *contenttree.Schema) []Action {
	var actions []Action

	if req.Capabilities.CanCreate {
		for _, childAlias := range schema.AllowedChildAliases {
			child, err := b.Schemas.Schema(childAlias)
			if err != nil {
				b.Log.Debug("allowed child schema missing", "alias", childAlias, "error", err)
				continue
			}
			actions = append(actions, Action{
				Class:  formClasses(child.Alias),
				Title:  fmt.Sprintf("Create %s", child.Name),
				Method: "GET",
				Href: Href(req, node,
					param{"action", "create"},
					param{"doctype", child.Alias},
					param{"publish", "false"}),
				Type: req.ContentType,
			})
		}
	}

	if req.Capabilities.CanUpdate {
		actions = append(actions, Action{
			Class:  formClasses(schema.Alias),
			Title:  fmt.Sprintf("Update %s", schema.Name),
			Method: "GET",
			Href: Href(req, node,
				param{"action", "update"},
				param{"doctype", schema.Alias},
				param{"publish", "false"}),
			Type: req.ContentType,
		})
	}

	if req.Capabilities.CanDelete {
		actions = append(actions, Action{
			Class:  formClasses(schema.Alias),
			Title:  fmt.Sprintf("Remove %s", schema.Name),
			Method: "GET",
			Href: Href(req, node,
				param{"action", "remove"},
				param{"doctype", schema.Alias},
				param{"delete", "false"}),
			Type: req.ContentType,
		})
	}

	return actions
}

func (b *ActionBuilder) submissionActions(req *Request, node contenttree.Node, schema *contenttree.Schema) []Action {
	var actions []Action

	switch req.Action {
	case "create":
		if req.DocType == "" || !schema.AllowsChild(req.DocType) {
			return nil
		}
		child, err := b.Schemas.Schema(req.DocType)
		if err != nil {
			b.Log.Debug("create doctype schema missing", "alias", req.DocType, "error", err)
			return nil
		}
		actions = append(actions, Action{
			Class:  formClasses(child.Alias),
			Title:  fmt.Sprintf("Save %s", child.Name),
			Method: "POST",
			Action: Href(req, node,
				param{"doctype", child.Alias},
				param{"publish", "true"}),
			Type: req.ContentType,
		})

	case "update":
		if !strings.EqualFold(schema.Alias, req.DocType) {
			return nil
		}
		actions = append(actions, Action{
			Class:  formClasses(schema.Alias),
			Title:  fmt.Sprintf("Update %s", schema.Name),
			Method: "PUT",
			Action: Href(req, node,
				param{"doctype", schema.Alias},
				param{"publish", "true"}),
			Type: req.ContentType,
		})

	case "remove":
		if !strings.EqualFold(schema.Alias, req.DocType) {
			return nil
		}
		actions = append(actions, Action{
			Class:  formClasses(schema.Alias),
			Title:  fmt.Sprintf("Remove %s", schema.Name),
			Method: "DELETE",
			Action: Href(req, node,
				param{"doctype", schema.Alias},
				param{"delete", "false"}),
			Type: req.ContentType,
		})
	}

	return actions
}

// Href builds an absolute href for a node with optional ordered query pairs.
func Href(req *Request, node contenttree.Node, params ...param) string {
	href := req.BaseURL + node.URL()
	sep := "?"
	for _, p := range params {
		href += sep + p.key + "=" + url.QueryEscape(p.value)
		sep = "&"
	}
	return href
}

// formClasses returns the sorted class pair for a form-capable action.
func formClasses(alias string) []string {
	classes := []string{alias, "x-form"}
	sort.Strings(classes)
	return classes
}
