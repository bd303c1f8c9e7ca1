package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/strata-cms/strata/internal/server"
	"github.com/strata-cms/strata/pkg/hypermedia"
)

// Response content types.
const (
	contentTypeJSON = "application/json"
	contentTypeXML  = "application/xml"
)

// Path suffixes that force a representation regardless of the Accept header:
// .ujson is the simple JSON shape, .uhateoas the full hypermedia JSON shape,
// .uxml the XML shape.
const (
	suffixSimpleJSON = ".ujson"
	suffixHypermedia = ".uhateoas"
	suffixXML        = ".uxml"
)

// ContentHandler serves the projection engine over HTTP. Every content URL is
// routed here; the node is addressed by the request path.
func ContentHandler(srv server.Server) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errResp := func(httpCode int, userErrMsg, logErrMsg string, err error) {
			srv.Logger.Error(logErrMsg,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			http.Error(w, userErrMsg, httpCode)
		}

		nodePath, contentType, simple := negotiate(r)

		node, err := srv.Store.NodeByURL(nodePath)
		if err != nil {
			errResp(http.StatusInternalServerError, "Error resolving content",
				"error resolving node by url", err)
			return
		}
		if node == nil {
			errResp(http.StatusNotFound, "Content not found",
				"no published node at path", nil)
			return
		}

		principal, err := srv.Sessions.Resolve(r)
		if err != nil {
			errResp(http.StatusInternalServerError, "Error resolving session",
				"error resolving principal", err)
			return
		}

		req := hypermedia.ParseRequest(r.Method, r.URL, srv.Config.Query.MaxItems)
		req.Principal = principal
		req.Simple = simple
		req.ContentType = contentType
		req.BaseURL = baseURL(srv, r)

		switch r.Method {
		case "POST", "PUT", "PATCH", "DELETE":
			form, err := decodeForm(r)
			if err != nil {
				errResp(http.StatusBadRequest,
					fmt.Sprintf("Bad request: %q", err),
					"error decoding mutation body", err)
				return
			}
			req.Form = form
		case "GET", "OPTIONS":
			// Read path.
		default:
			errResp(http.StatusMethodNotAllowed, "Method not allowed",
				"unsupported method", nil)
			return
		}

		doc, err := srv.Engine.Process(req, node)
		if err != nil {
			code, msg := errorStatus(err)
			errResp(code, msg, "error processing request", err)
			return
		}

		if r.Method == "GET" {
			if req.NoCache {
				w.Header().Set("Cache-Control", "no-store")
			} else {
				maxAge := int(srv.Config.CacheTTL().Seconds())
				w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge))
			}
		}

		if contentType == contentTypeXML {
			w.Header().Set("Content-Type", contentTypeXML+"; charset=utf-8")
			fmt.Fprint(w, doc.XML("document"))
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON+"; charset=utf-8")
		enc := json.NewEncoder(w)
		if err := enc.Encode(doc); err != nil {
			srv.Logger.Error("error encoding response", "error", err)
		}
	})
}

// negotiate determines the node path and representation: a recognized path
// suffix wins, then the Accept header, then full JSON.
func negotiate(r *http.Request) (nodePath, contentType string, simple bool) {
	p := r.URL.Path
	switch {
	case strings.HasSuffix(p, suffixSimpleJSON):
		return normalizePath(strings.TrimSuffix(p, suffixSimpleJSON)), contentTypeJSON, true
	case strings.HasSuffix(p, suffixHypermedia):
		return normalizePath(strings.TrimSuffix(p, suffixHypermedia)), contentTypeJSON, false
	case strings.HasSuffix(p, suffixXML):
		return normalizePath(strings.TrimSuffix(p, suffixXML)), contentTypeXML, false
	}

	accept := r.Header.Get("Accept")
	if mt, _, err := mime.ParseMediaType(strings.Split(accept, ",")[0]); err == nil {
		if mt == contentTypeXML || mt == "text/xml" {
			return normalizePath(p), contentTypeXML, false
		}
	}
	return normalizePath(p), contentTypeJSON, false
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func baseURL(srv server.Server, r *http.Request) string {
	if srv.Config.BaseURL != "" {
		return strings.TrimSuffix(srv.Config.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// decodeForm reads a mutation body: JSON objects and url-encoded forms both
// decode to the flat field map the engine consumes. An empty body is a valid
// empty form (a DELETE carries none).
func decodeForm(r *http.Request) (map[string]any, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		form := make(map[string]any, len(r.PostForm))
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}
		return form, nil
	}

	var form map[string]any
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		// An absent body is a valid empty form; a DELETE carries none.
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return form, nil
}

// errorStatus maps engine errors onto HTTP status codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, hypermedia.ErrAccessDenied):
		return http.StatusForbidden, "Access denied"
	case errors.Is(err, hypermedia.ErrNodeNotFound):
		return http.StatusNotFound, "Content not found"
	case errors.Is(err, hypermedia.ErrMissingParameter):
		return http.StatusBadRequest, "Missing required parameter"
	case errors.Is(err, hypermedia.ErrInvalidAction):
		return http.StatusBadRequest, "Invalid action"
	default:
		return http.StatusInternalServerError, "Error processing request"
	}
}
