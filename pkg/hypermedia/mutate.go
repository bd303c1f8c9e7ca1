package hypermedia

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// processForm is the mutation path: capability checks, form decoding and
// coercion, the store mutation, and a re-projection of whichever node the
// mutator hands back.
func (e *Engine) processForm(req *Request, node contenttree.Node) (*Document, error) {
	var (
		result contenttree.Node
		err    error
	)

	switch req.Method {
	case "POST":
		result, err = e.createNode(req, node)
	case "PUT", "PATCH":
		result, err = e.updateNode(req, node)
	case "DELETE":
		result, err = e.deleteNode(req, node)
	default:
		return nil, stageError("ProcessForm",
			fmt.Errorf("method %s: %w", req.Method, ErrInvalidAction))
	}
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, stageError("ProcessForm", ErrNodeNotFound)
	}

	// Project the mutation result the same way a fresh read would, with the
	// form parameters no longer in play.
	read := *req
	read.Method = "GET"
	read.Action = ""
	read.DocType = ""
	read.Form = nil
	return e.processRequest(&read, result)
}

func (e *Engine) createNode(req *Request, node contenttree.Node) (contenttree.Node, error) {
	if !req.Capabilities.CanCreate {
		return nil, stageError("Create", ErrAccessDenied)
	}
	if req.DocType == "" {
		return nil, stageError("Create",
			fmt.Errorf("doctype is required: %w", ErrMissingParameter))
	}

	parent, err := e.Store.Schema(node.ContentTypeAlias())
	if err != nil || !parent.AllowsChild(req.DocType) {
		return nil, stageError("Create",
			fmt.Errorf("doctype %q not allowed under %q: %w",
				req.DocType, node.ContentTypeAlias(), ErrInvalidAction))
	}
	schema, err := e.Store.Schema(req.DocType)
	if err != nil {
		return nil, stageError("Create",
			fmt.Errorf("doctype %q: %w", req.DocType, ErrNodeNotFound))
	}

	mut, err := e.buildMutation(req, schema)
	if err != nil {
		return nil, err
	}

	created, err := e.Store.Create(node.ID(), schema.Alias, mut)
	if err != nil {
		return nil, stageError("Create", err)
	}
	e.Log.Info("created node", "parent", node.ID(), "type", schema.Alias,
		"name", mut.Name, "published", mut.Publish)
	return created, nil
}

func (e *Engine) updateNode(req *Request, node contenttree.Node) (contenttree.Node, error) {
	if !req.Capabilities.CanUpdate {
		return nil, stageError("Update", ErrAccessDenied)
	}

	schema, err := e.Store.Schema(node.ContentTypeAlias())
	if err != nil {
		return nil, stageError("Update",
			fmt.Errorf("schema %q: %w", node.ContentTypeAlias(), ErrNodeNotFound))
	}

	mut, err := e.buildMutation(req, schema)
	if err != nil {
		return nil, err
	}

	updated, err := e.Store.Update(node.ID(), mut)
	if err != nil {
		return nil, stageError("Update", err)
	}
	e.Log.Info("updated node", "node", node.ID(), "published", mut.Publish)
	return updated, nil
}

func (e *Engine) deleteNode(req *Request, node contenttree.Node) (contenttree.Node, error) {
	if !req.Capabilities.CanDelete {
		return nil, stageError("Delete", ErrAccessDenied)
	}

	result, err := e.Store.Delete(node.ID(), req.HardDelete)
	if err != nil {
		return nil, stageError("Delete", err)
	}
	e.Log.Info("deleted node", "node", node.ID(), "hard", req.HardDelete)
	return result, nil
}

// mutationHead is the well-known, non-property slice of a mutation body.
type mutationHead struct {
	Name        string `mapstructure:"name"`
	ReleaseDate string `mapstructure:"releaseDate"`
	ExpireDate  string `mapstructure:"expireDate"`
}

// buildMutation turns the decoded form body into a coerced Mutation. The name
// field is mandatory; the scheduling fields must parse as dates when present.
// Fields the schema does not declare, and fields whose values cannot be
// coerced, are skipped with the errors collected for the log rather than
// failing the mutation.
func (e *Engine) buildMutation(req *Request, schema *contenttree.Schema) (contenttree.Mutation, error) {
	mut := contenttree.Mutation{
		Properties: make(map[string]any),
		Publish:    req.Publish,
	}

	var head mutationHead
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &head,
		WeaklyTypedInput: true,
		MatchName:        strings.EqualFold,
	})
	if err != nil {
		return mut, stageError("BuildMutation", err)
	}
	if err := dec.Decode(req.Form); err != nil {
		return mut, stageError("BuildMutation", fmt.Errorf("decoding form: %w", err))
	}

	if err := validation.Validate(head.Name, validation.Required); err != nil {
		return mut, stageError("BuildMutation",
			fmt.Errorf("name: %w", ErrMissingParameter))
	}
	mut.Name = head.Name

	var parseErrs *multierror.Error
	if t, ok, err := parseFormDate("releaseDate", head.ReleaseDate); err != nil {
		return mut, stageError("BuildMutation", err)
	} else if ok {
		mut.ReleaseDate = &t
	}
	if t, ok, err := parseFormDate("expireDate", head.ExpireDate); err != nil {
		return mut, stageError("BuildMutation", err)
	} else if ok {
		mut.ExpireDate = &t
	}

	for key, raw := range req.Form {
		switch strings.ToLower(key) {
		case "name", "releasedate", "expiredate", "publish":
			continue
		}

		sp, ok := schema.Property(key)
		if !ok {
			e.Log.Debug("skipping undeclared form field", "field", key)
			continue
		}

		val, err := CoerceForStorage(sp.Kind, raw)
		if err != nil {
			parseErrs = multierror.Append(parseErrs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		mut.Properties[sp.Alias] = val
	}

	if err := parseErrs.ErrorOrNil(); err != nil {
		e.Log.Warn("form fields skipped during coercion", "error", err)
	}
	return mut, nil
}

// parseFormDate parses an optional date-valued form field. ok is false when
// the field is absent or empty.
func parseFormDate(name, raw string) (time.Time, bool, error) {
	if raw == "" {
		return time.Time{}, false, nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return t, true, nil
}
