// Package contenttree defines the boundary between the hypermedia projection
// engine and the hierarchical content store that hosts it: the read-only node
// abstraction, the content-type schema, the mutation and access-control
// capabilities, and the publish/unpublish/delete notifier used for cache
// invalidation.
//
// The engine only ever consumes these interfaces; the reference gorm-backed
// implementation lives in internal/store/gormstore.
package contenttree
