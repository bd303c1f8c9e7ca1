package hypermedia

import (
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// Capabilities are the per-request mutation gates for the current principal.
// They default to false and are only ever granted, never revoked, within one
// request.
type Capabilities struct {
	CanCreate bool
	CanUpdate bool
	CanDelete bool
}

// Any reports whether at least one capability is granted.
func (c Capabilities) Any() bool {
	return c.CanCreate || c.CanUpdate || c.CanDelete
}

// Authorizer computes capability flags for a principal against the schema of
// the node being addressed.
type Authorizer interface {
	Capabilities(p *contenttree.Principal, s *contenttree.Schema) Capabilities
}

// Request is the parsed, request-local state for one inbound call: the query
// parameters the projection language understands, the resolved principal, and
// the capability flags derived from it. There is no ambient request state
// anywhere else in the engine.
type Request struct {
	Method      string
	Path        string
	RawQuery    string
	BaseURL     string // scheme://host, no trailing slash
	ContentType string // negotiated response content type

	Principal *contenttree.Principal
	Simple    bool

	Action         string
	DocType        string
	CurrentModel   string
	EncodeHTML     bool
	ResolveContent []string
	ResolveMedia   map[string]bool
	ResolveToIDs   []string
	Ancestor       string
	Descendants    string
	HasDescendants bool
	Children       string
	HasChildren    bool
	Select         []string
	Where          string
	HTML           string
	Skip           string
	Take           string
	NoCache        bool
	OrderBy        string
	OrderByDesc    string
	Publish        bool
	HardDelete     bool

	// Form is the decoded body of a mutating request.
	Form map[string]any

	Capabilities Capabilities
}

// ParseRequest builds a Request from an HTTP method and URL. maxItems is the
// default page size applied when no take parameter is supplied.
func ParseRequest(method string, u *url.URL, maxItems int) *Request {
	q := u.Query()

	req := &Request{
		Method:       strings.ToUpper(method),
		Path:         u.Path,
		RawQuery:     u.RawQuery,
		Action:       q.Get("action"),
		DocType:      q.Get("doctype"),
		CurrentModel: q.Get("currentmodel"),
		Ancestor:     q.Get("ancestor"),
		Where:        q.Get("where"),
		HTML:         q.Get("html"),
		Skip:         q.Get("skip"),
		Take:         q.Get("take"),
		OrderBy:      q.Get("orderby"),
		OrderByDesc:  q.Get("orderbydesc"),
	}

	req.EncodeHTML = parseBool(q.Get("encodeHTML"))
	req.NoCache = q.Has("nocache") && q.Get("nocache") != "false"
	req.Publish = parseBool(q.Get("publish"))
	req.HardDelete = parseBool(q.Get("delete"))

	req.ResolveContent = splitLower(q.Get("resolveContent"))
	req.ResolveToIDs = splitLower(q.Get("resolveToIds"))
	req.Select = splitLower(q.Get("select"))

	req.ResolveMedia = make(map[string]bool)
	for _, name := range splitLower(q.Get("resolveMedia")) {
		req.ResolveMedia[name] = true
	}

	req.HasDescendants = q.Has("descendants")
	req.Descendants = q.Get("descendants")
	req.HasChildren = q.Has("children")
	req.Children = q.Get("children")

	if req.Take == "" && maxItems > 0 {
		req.Take = strconv.Itoa(maxItems)
	}

	return req
}

// PathAndQuery returns the lowercased path?query string the cache fingerprint
// is derived from.
func (r *Request) PathAndQuery() string {
	return strings.ToLower(r.Path + "?" + r.RawQuery)
}

// SkipCount returns the parsed skip value; ok is false when skip is absent or
// non-numeric.
func (r *Request) SkipCount() (int, bool) {
	return numericParam(r.Skip)
}

// TakeCount returns the parsed take value; ok is false when take is absent or
// non-numeric.
func (r *Request) TakeCount() (int, bool) {
	return numericParam(r.Take)
}

// WantsFormDefinition reports whether the request addresses the
// form-definition path (GET with both action and doctype present).
func (r *Request) WantsFormDefinition() bool {
	return r.Action != "" && r.DocType != ""
}

func numericParam(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	if err := validation.Validate(s, is.Digit); err != nil {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseBool(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

// splitLower splits a comma-separated parameter into lowercased, trimmed,
// non-empty entries.
func splitLower(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
