package hypermedia

import "github.com/strata-cms/strata/pkg/contenttree"

// HasAccess is the access control filter: a node on a protected path is
// visible only when the principal passes the store's access check;
// unprotected nodes are always visible.
func HasAccess(ac contenttree.AccessChecker, node contenttree.Node, principal *contenttree.Principal) bool {
	if ac == nil || node == nil {
		return node != nil
	}
	if ac.IsProtected(node.Path()) {
		return ac.HasAccess(node.Path(), principal)
	}
	return true
}
