package hypermedia

import (
	"fmt"
	"strings"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// FormField is one input descriptor on a form-definition document.
type FormField struct {
	Title          string   `json:"title"`
	Value          any      `json:"value"`
	Type           string   `json:"type"`
	PropertyEditor string   `json:"propertyEditor,omitempty"`
	Description    string   `json:"description,omitempty"`
	Mandatory      bool     `json:"mandatory,omitempty"`
	Validation     string   `json:"validation,omitempty"`
	Prevalues      []string `json:"prevalues,omitempty"`
}

// buildForm renders the form-definition document for an action/doctype pair:
// the declared fields of the target schema (inherited fields included), the
// synthetic name field, the scheduling fields on create and update, and the
// submission actions. A request lacking the capability its action needs falls
// back to the plain read path.
func (e *Engine) buildForm(req *Request, node contenttree.Node) (*Document, error) {
	var (
		allowed bool
		verb    string
	)
	switch strings.ToLower(req.Action) {
	case "create":
		allowed, verb = req.Capabilities.CanCreate, "Create"
	case "update":
		allowed, verb = req.Capabilities.CanUpdate, "Update"
	case "remove":
		allowed, verb = req.Capabilities.CanDelete, "Remove"
	default:
		return nil, stageError("BuildForm",
			fmt.Errorf("unknown action %q: %w", req.Action, ErrInvalidAction))
	}
	if !allowed {
		e.Log.Debug("form request without capability, serving read",
			"action", req.Action, "node", node.ID())
		return e.processRequest(req, node)
	}

	schema, err := e.Store.Schema(req.DocType)
	if err != nil {
		return nil, stageError("BuildForm",
			fmt.Errorf("doctype %q: %w", req.DocType, ErrNodeNotFound))
	}
	if strings.EqualFold(req.Action, "create") {
		parent, err := e.Store.Schema(node.ContentTypeAlias())
		if err != nil || !parent.AllowsChild(schema.Alias) {
			return nil, stageError("BuildForm",
				fmt.Errorf("doctype %q not allowed under %q: %w",
					schema.Alias, node.ContentTypeAlias(), ErrInvalidAction))
		}
	}

	// Update and remove forms show the node's current values; create starts
	// blank.
	var current contenttree.Node
	if !strings.EqualFold(req.Action, "create") {
		current = node
	}

	doc := NewDocument(req.Simple)
	doc.Class = formClasses(schema.Alias)
	doc.Title = fmt.Sprintf("%s %s", verb, schema.Name)

	name := any("")
	if current != nil {
		name = current.Name()
	}
	doc.Properties.Set("Name", FormField{
		Title:      "Name",
		Value:      name,
		Type:       "text",
		Mandatory:  true,
		Validation: `([^\s]*)`,
	})

	// The scheduling fields only make sense when the submission will write;
	// a remove form still lists the fields about to go away.
	if !strings.EqualFold(req.Action, "remove") {
		doc.Properties.Set("ReleaseDate", FormField{Title: "Release Date", Value: "", Type: "date"})
		doc.Properties.Set("ExpireDate", FormField{Title: "Expire Date", Value: "", Type: "date"})
	}

	for _, sp := range e.schemaFields(schema) {
		val := any("")
		if current != nil {
			if prop, ok := current.Property(sp.Alias); ok {
				val = prop.Value
			}
		}
		doc.Properties.Set(sp.Alias, FormField{
			Title:          titleize(sp.Alias),
			Value:          val,
			Type:           formFieldType(sp),
			PropertyEditor: sp.EditorAlias,
			Description:    sp.Description,
			Mandatory:      sp.Mandatory,
			Validation:     sp.Validation,
			Prevalues:      sp.Prevalues,
		})
	}

	doc.Actions = e.actions.NodeActions(req, node)
	return doc, nil
}

// schemaFields returns the schema's declared properties with inherited ones
// first, walking the parent chain root-down. The walk is cycle-guarded.
func (e *Engine) schemaFields(schema *contenttree.Schema) []contenttree.SchemaProperty {
	var chain []*contenttree.Schema
	seen := map[string]bool{}
	for s := schema; s != nil && !seen[strings.ToLower(s.Alias)]; {
		seen[strings.ToLower(s.Alias)] = true
		chain = append([]*contenttree.Schema{s}, chain...)
		if s.ParentAlias == "" {
			break
		}
		parent, err := e.Store.Schema(s.ParentAlias)
		if err != nil {
			e.Log.Debug("parent schema missing", "alias", s.ParentAlias, "error", err)
			break
		}
		s = parent
	}

	var fields []contenttree.SchemaProperty
	emitted := map[string]bool{}
	for _, s := range chain {
		for _, sp := range s.Properties {
			key := strings.ToLower(sp.Alias)
			if emitted[key] {
				continue
			}
			emitted[key] = true
			fields = append(fields, sp)
		}
	}
	return fields
}

// formFieldType maps a schema property to the input type its form field
// advertises.
func formFieldType(sp contenttree.SchemaProperty) string {
	switch sp.EditorAlias {
	case contenttree.EditorCheckbox:
		return "checkbox"
	case contenttree.EditorDatePicker:
		return "date"
	case contenttree.EditorNumeric:
		return "number"
	case contenttree.EditorTextarea, contenttree.EditorRichText:
		return "textarea"
	default:
		switch sp.Kind {
		case contenttree.KindInteger:
			return "number"
		case contenttree.KindDate:
			return "date"
		default:
			return "text"
		}
	}
}
