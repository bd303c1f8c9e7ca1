package hypermedia

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// defaultResolveDepth caps resolveContent recursion. The own-id and Path
// guards prevent direct self-reference but not genuine cycles in the tree.
const defaultResolveDepth = 3

// DocumentCache memoizes built documents for plain GET reads. Concurrent
// misses for one key may each run the builder; last writer wins.
type DocumentCache interface {
	GetOrBuild(contentTypeAlias, pathAndQuery string, build func() (*Document, error)) (*Document, error)
}

// Engine is the projection orchestrator: it resolves capabilities, dispatches
// a request to the read, form-definition or mutation path, and turns the
// resulting node into a hypermedia document.
type Engine struct {
	Store contenttree.Store
	Auth  Authorizer
	Cache DocumentCache
	Log   hclog.Logger

	resolver  *Resolver
	projector *Projector
	actions   *ActionBuilder

	// MaxResolveDepth bounds resolveContent recursion.
	MaxResolveDepth int
}

// NewEngine wires an engine over a content store. cache may be nil, in which
// case every read builds.
func NewEngine(store contenttree.Store, auth Authorizer, cache DocumentCache, log hclog.Logger) *Engine {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	e := &Engine{
		Store:           store,
		Auth:            auth,
		Cache:           cache,
		Log:             log,
		projector:       &Projector{Log: log.Named("query")},
		actions:         &ActionBuilder{Schemas: store, Log: log.Named("actions")},
		MaxResolveDepth: defaultResolveDepth,
	}
	e.resolver = &Resolver{
		Store: store,
		Log:   log.Named("resolver"),
		Project: func(req *Request, node contenttree.Node) (any, error) {
			return e.simplify(req, node, false, nil, nil, e.MaxResolveDepth)
		},
	}
	return e
}

// Process runs the request state machine against the addressed node and
// returns the projected document.
func (e *Engine) Process(req *Request, node contenttree.Node) (*Document, error) {
	if node == nil {
		return nil, stageError("Process", ErrNodeNotFound)
	}

	e.resolveCapabilities(req, node)

	switch req.Method {
	case "OPTIONS":
		return NewDocument(req.Simple), nil

	case "GET":
		if req.WantsFormDefinition() {
			return e.buildForm(req, node)
		}
		if req.NoCache || e.Cache == nil {
			e.Log.Debug("skipping cache", "nocache", req.NoCache, "node", node.ID())
			return e.processRequest(req, node)
		}
		return e.Cache.GetOrBuild(node.ContentTypeAlias(), req.PathAndQuery(), func() (*Document, error) {
			return e.processRequest(req, node)
		})

	default:
		return e.processForm(req, node)
	}
}

// resolveCapabilities derives the request's capability flags from the
// principal and the target node's schema. Flags stay false for anonymous
// callers or when the schema cannot be resolved.
func (e *Engine) resolveCapabilities(req *Request, node contenttree.Node) {
	if req.Principal == nil || e.Auth == nil {
		return
	}
	schema, err := e.Store.Schema(node.ContentTypeAlias())
	if err != nil {
		e.Log.Warn("schema lookup failed resolving capabilities",
			"alias", node.ContentTypeAlias(), "error", err)
		return
	}
	req.Capabilities = e.Auth.Capabilities(req.Principal, schema)
}

// processRequest is the read path: current-model override, ancestor
// short-circuit, descendant/children expansion, actions, and the final
// node-to-document transform.
func (e *Engine) processRequest(req *Request, node contenttree.Node) (*Document, error) {
	e.Log.Debug("building document", "node", node.ID(), "name", node.Name())

	model := node
	if req.CurrentModel != "" {
		id, err := strconv.Atoi(req.CurrentModel)
		if err != nil {
			return nil, stageError("ProcessRequest",
				fmt.Errorf("invalid currentmodel %q: %w", req.CurrentModel, ErrNodeNotFound))
		}
		override, err := e.Store.NodeByID(id)
		if err != nil || override == nil {
			return nil, stageError("ProcessRequest",
				fmt.Errorf("currentmodel %d: %w", id, ErrNodeNotFound))
		}
		model = override
	}

	if req.Ancestor != "" {
		ancestor := AncestorOrSelf(model, req.Ancestor)
		if ancestor == nil {
			return nil, stageError("ProcessRequest",
				fmt.Errorf("no ancestor %q: %w", req.Ancestor, ErrNodeNotFound))
		}
		return e.simplify(req, ancestor, false, nil, nil, 0)
	}

	var entities []*Document
	for _, n := range e.projector.DescendantNodes(req, model) {
		entity, err := e.simplify(req, n, false, nil, nil, 0)
		if err != nil {
			e.Log.Debug("skipping descendant entity", "node", n.ID(), "error", err)
			continue
		}
		entities = append(entities, entity)
	}
	for _, n := range e.projector.ChildNodes(req, model) {
		entity, err := e.simplify(req, n, false, nil, nil, 0)
		if err != nil {
			e.Log.Debug("skipping child entity", "node", n.ID(), "error", err)
			continue
		}
		entities = append(entities, entity)
	}

	var actions []Action
	if !req.Simple && req.Capabilities.Any() {
		actions = e.actions.NodeActions(req, model)
	}

	return e.simplify(req, model, true, entities, actions, 0)
}

// simplify is the node-to-document transform: the ordered structural facet
// walk, the content property sweep through the resolver, select filtering and
// the entity/action/link attachment rules.
func (e *Engine) simplify(req *Request, node contenttree.Node, isRoot bool, entities []*Document, actions []Action, depth int) (*Document, error) {
	if !HasAccess(e.Store, node, req.Principal) {
		return nil, stageError("Simplify", ErrAccessDenied)
	}

	doc := NewDocument(req.Simple)

	for _, facet := range contenttree.Facets() {
		switch facet.Kind {
		case contenttree.FacetChildren:
			for _, child := range node.Children() {
				if !HasAccess(e.Store, child, req.Principal) {
					continue
				}
				doc.Links = append(doc.Links, Link{
					Rel:   []string{RelChild, child.ContentTypeAlias()},
					Title: child.Name(),
					Href:  Href(req, child),
				})
			}

		case contenttree.FacetParent:
			if parent := node.Parent(); parent != nil && HasAccess(e.Store, parent, req.Principal) {
				doc.Links = append(doc.Links, Link{
					Rel:   []string{RelParent, parent.ContentTypeAlias()},
					Title: parent.Name(),
					Href:  Href(req, parent),
				})
			}

		case contenttree.FacetSelf:
			doc.Links = append(doc.Links, Link{
				Rel:   []string{RelSelf, node.ContentTypeAlias()},
				Title: node.Name(),
				Href:  Href(req, node),
			})
			e.setFacet(req, doc, facet.Name, node.URL())

		case contenttree.FacetClass:
			classes := []string{node.ContentTypeAlias()}
			if isRoot && req.HasDescendants {
				classes = append(classes, "Descendants")
			}
			if isRoot && req.HasChildren {
				classes = append(classes, "Children")
			}
			sort.Strings(classes)
			doc.Class = classes
			doc.Title = node.Name()
			e.setFacet(req, doc, facet.Name, node.ContentTypeAlias())

		default:
			e.setFacet(req, doc, facet.Name, facet.Value(node))
		}
	}

	for _, prop := range node.Properties() {
		if len(req.Select) > 0 && !containsFold(req.Select, prop.Alias) {
			continue
		}

		val := e.resolveProperty(req, node, prop, depth)
		guess := GuessType(val)
		val = CoerceGuess(val, guess)

		if req.Simple {
			doc.Properties.Set(firstUpper(prop.Alias), val)
		} else {
			doc.Properties.Set(prop.Alias, RichValue{
				Title:          titleize(prop.Alias),
				Value:          val,
				Type:           guess,
				PropertyEditor: prop.EditorAlias,
			})
		}
	}

	if len(req.Select) > 0 {
		doc.Properties.Restrict(req.Select)
	}

	doc.Entities = entities
	doc.Actions = actions
	return doc, nil
}

// resolveProperty runs one property through the resolver and then through
// resolveContent recursion. Per-property failures degrade to the error's
// string form; they never abort the enclosing document.
func (e *Engine) resolveProperty(req *Request, node contenttree.Node, prop contenttree.Property, depth int) (val any) {
	defer func() {
		if r := recover(); r != nil {
			e.Log.Error("property resolution panicked", "property", prop.Alias, "panic", r)
			val = fmt.Sprintf("property resolution error: %v", r)
		}
	}()

	val = e.resolver.Resolve(req, prop)
	val = e.resolveContentRefs(req, node, prop.Alias, val, depth)
	return val
}

// resolveContentRefs re-projects id-valued properties named by resolveContent
// into nested documents. The node's own id and any property literally named
// Path are skipped to avoid self-reference, and depth is capped.
func (e *Engine) resolveContentRefs(req *Request, owner contenttree.Node, alias string, val any, depth int) any {
	if depth >= e.MaxResolveDepth || !containsFold(req.ResolveContent, alias) {
		return val
	}
	if strings.EqualFold(alias, "Path") {
		return val
	}

	project := func(id int) (any, bool) {
		if id == owner.ID() {
			return nil, false
		}
		target, err := e.Store.NodeByID(id)
		if err != nil || target == nil {
			return nil, false
		}
		doc, err := e.simplify(req, target, false, nil, nil, depth+1)
		if err != nil {
			e.Log.Debug("resolveContent projection failed", "id", id, "error", err)
			return nil, false
		}
		return doc, true
	}

	switch v := val.(type) {
	case int:
		if doc, ok := project(v); ok {
			return doc
		}
		return val

	case string:
		parts := strings.Split(v, ",")
		docs := make([]any, 0, len(parts))
		for _, part := range parts {
			id, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return val
			}
			if doc, ok := project(id); ok {
				docs = append(docs, doc)
			}
		}
		if len(docs) == 0 {
			return val
		}
		return docs

	default:
		return val
	}
}

func (e *Engine) setFacet(req *Request, doc *Document, name string, val any) {
	if req.Simple {
		doc.Properties.Set(name, val)
		return
	}
	doc.Properties.Set(name, RichValue{Title: titleize(name), Value: val})
}

var camelBoundary = regexp.MustCompile(`(\B[A-Z])`)

// titleize inserts spaces at camel-case boundaries and upper-cases the first
// letter: "sortOrder" becomes "Sort Order".
func titleize(name string) string {
	return firstUpper(camelBoundary.ReplaceAllString(name, " $1"))
}

func firstUpper(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func containsFold(list []string, name string) bool {
	for _, item := range list {
		if strings.EqualFold(item, name) {
			return true
		}
	}
	return false
}
