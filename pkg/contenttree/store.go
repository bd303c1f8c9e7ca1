package contenttree

import (
	"time"

	"github.com/google/uuid"
)

// Principal is the already-authenticated caller of a request. Authentication
// itself is out of scope; the engine only ever consumes a resolved Principal.
type Principal struct {
	Username string
	Groups   []string
}

// InGroup reports whether the principal belongs to the named group.
func (p *Principal) InGroup(group string) bool {
	if p == nil {
		return false
	}
	for _, g := range p.Groups {
		if g == group {
			return true
		}
	}
	return false
}

// Reader resolves nodes and media items by identity.
type Reader interface {
	NodeByID(id int) (Node, error)
	NodeByKey(key uuid.UUID) (Node, error)
	MediaByID(id int) (Node, error)
	MediaByKey(key uuid.UUID) (Node, error)
}

// SchemaService resolves content-type schemas by alias.
type SchemaService interface {
	Schema(alias string) (*Schema, error)
}

// Mutation carries the already-coerced fields of a create or update request.
type Mutation struct {
	Name        string
	ReleaseDate *time.Time
	ExpireDate  *time.Time

	// Properties maps property alias to its coerced value. Per-field
	// application errors are the store's to swallow; a field that cannot
	// be applied must not fail the whole mutation.
	Properties map[string]any

	Publish bool
}

// Mutator performs content mutations. All methods return the node the caller
// should project next: the created node (or the unchanged parent when the new
// node stays unpublished), the updated node, or the parent of a hard-deleted
// node.
type Mutator interface {
	Create(parentID int, typeAlias string, m Mutation) (Node, error)
	Update(id int, m Mutation) (Node, error)

	// Delete hard-deletes when hard is true, otherwise unpublishes.
	Delete(id int, hard bool) (Node, error)
}

// AccessChecker answers path-protection questions for the access filter.
type AccessChecker interface {
	// IsProtected reports whether the given node path has an access rule.
	IsProtected(path string) bool

	// HasAccess reports whether the principal may read the protected path.
	HasAccess(path string, principal *Principal) bool
}

// UserService resolves principals by username, with group memberships
// populated.
type UserService interface {
	UserByName(username string) (*Principal, error)
}

// Store aggregates every capability the projection engine consumes from the
// host content store.
type Store interface {
	Reader
	SchemaService
	Mutator
	AccessChecker
	UserService
}
