// Package gormstore implements the content store over a relational database.
package gormstore

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/iancoleman/strcase"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/strata-cms/strata/pkg/contenttree"
)

// Store is the gorm-backed content store. It implements contenttree.Store and
// emits publish/unpublish/delete events through its notifier.
type Store struct {
	db       *gorm.DB
	log      hclog.Logger
	notifier *contenttree.Notifier
}

// Open connects to the configured database, runs the schema migration and
// returns a ready store.
func Open(driver, dsn string, notifier *contenttree.Notifier, log hclog.Logger) (*Store, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if notifier == nil {
		notifier = &contenttree.Notifier{}
	}

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driver, err)
	}

	if err := db.AutoMigrate(
		&ContentNode{},
		&ContentProperty{},
		&ContentType{},
		&ContentTypeProperty{},
		&User{},
		&AccessRule{},
	); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{db: db, log: log, notifier: notifier}, nil
}

// DB exposes the underlying handle for seeding and tests.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Notifier returns the event fan-out mutations publish into.
func (s *Store) Notifier() *contenttree.Notifier {
	return s.notifier
}

// NodeByID resolves a published content node.
func (s *Store) NodeByID(id int) (contenttree.Node, error) {
	return s.itemByID(id, itemTypeContent)
}

// NodeByKey resolves a published content node by its stable key.
func (s *Store) NodeByKey(key uuid.UUID) (contenttree.Node, error) {
	return s.itemByKey(key, itemTypeContent)
}

// MediaByID resolves a media item.
func (s *Store) MediaByID(id int) (contenttree.Node, error) {
	return s.itemByID(id, itemTypeMedia)
}

// MediaByKey resolves a media item by its stable key.
func (s *Store) MediaByKey(key uuid.UUID) (contenttree.Node, error) {
	return s.itemByKey(key, itemTypeMedia)
}

// NodeByURL resolves a published content node by URL path. The root node
// answers for "/".
func (s *Store) NodeByURL(urlPath string) (contenttree.Node, error) {
	m, err := GetNodeByURL(s.db, urlPath)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &node{st: s, m: *m}, nil
}

func (s *Store) itemByID(id int, itemType string) (contenttree.Node, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid node id %d", id)
	}
	m, err := GetNodeByID(s.db, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if m.ItemType != itemType {
		return nil, nil
	}
	return &node{st: s, m: *m}, nil
}

func (s *Store) itemByKey(key uuid.UUID, itemType string) (contenttree.Node, error) {
	m, err := GetNodeByKey(s.db, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if m.ItemType != itemType {
		return nil, nil
	}
	return &node{st: s, m: *m}, nil
}

// Schema resolves a content-type schema by alias.
func (s *Store) Schema(alias string) (*contenttree.Schema, error) {
	ct, err := GetContentType(s.db, alias)
	if err != nil {
		return nil, fmt.Errorf("schema %q: %w", alias, err)
	}

	schema := &contenttree.Schema{
		Alias:               ct.Alias,
		Name:                ct.Name,
		ParentAlias:         ct.ParentAlias,
		AllowedChildAliases: splitCSV(ct.AllowedChildren),
	}
	for _, p := range ct.Properties {
		schema.Properties = append(schema.Properties, contenttree.SchemaProperty{
			Alias:       p.Alias,
			Name:        p.Name,
			Group:       p.Group,
			Description: p.Description,
			Validation:  p.Validation,
			EditorAlias: p.EditorAlias,
			Kind:        contenttree.PropertyKind(p.Kind),
			Mandatory:   p.Mandatory,
			Prevalues:   splitCSV(p.Prevalues),
		})
	}
	return schema, nil
}

// Create inserts a node under the given parent. The unpublished create
// returns the parent so the caller keeps projecting a visible node.
func (s *Store) Create(parentID int, typeAlias string, mut contenttree.Mutation) (contenttree.Node, error) {
	parent, err := GetNodeByID(s.db, uint(parentID))
	if err != nil {
		return nil, fmt.Errorf("create parent %d: %w", parentID, err)
	}

	var created ContentNode
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var siblings int64
		if err := tx.Model(&ContentNode{}).Where("parent_id = ?", parent.ID).Count(&siblings).Error; err != nil {
			return err
		}

		pid := parent.ID
		created = ContentNode{
			Name:      mut.Name,
			URLName:   strcase.ToKebab(mut.Name),
			TypeAlias: typeAlias,
			ItemType:  itemTypeContent,
			ParentID:  &pid,
			Level:     parent.Level + 1,
			SortOrder: int(siblings),
			Published: mut.Publish,
			ReleaseAt: mut.ReleaseDate,
			ExpireAt:  mut.ExpireDate,
		}
		if err := created.Validate(); err != nil {
			return err
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		// Path and URL need the assigned id.
		created.Path = parent.Path + "," + strconv.Itoa(int(created.ID))
		created.URLPath = strings.TrimSuffix(parent.URLPath, "/") + "/" + created.URLName
		if err := tx.Model(&created).Updates(map[string]any{
			"path":     created.Path,
			"url_path": created.URLPath,
		}).Error; err != nil {
			return err
		}

		return s.saveProperties(tx, created.ID, typeAlias, mut.Properties)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("node created", "id", created.ID, "type", typeAlias, "published", mut.Publish)
	if mut.Publish {
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventPublish,
			NodeID:           int(created.ID),
			ContentTypeAlias: typeAlias,
		})
		return s.NodeByID(int(created.ID))
	}
	return s.NodeByID(parentID)
}

// Update applies the mutation to an existing node and returns it.
func (s *Store) Update(id int, mut contenttree.Mutation) (contenttree.Node, error) {
	m, err := GetNodeByID(s.db, uint(id))
	if err != nil {
		return nil, fmt.Errorf("update node %d: %w", id, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"name":       mut.Name,
			"release_at": mut.ReleaseDate,
			"expire_at":  mut.ExpireDate,
		}
		if mut.Publish {
			updates["published"] = true
		}
		if err := tx.Model(m).Updates(updates).Error; err != nil {
			return err
		}
		return s.saveProperties(tx, m.ID, m.TypeAlias, mut.Properties)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("node updated", "id", id, "published", mut.Publish)
	if mut.Publish {
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventPublish,
			NodeID:           id,
			ContentTypeAlias: m.TypeAlias,
		})
	}
	return s.NodeByID(id)
}

// Delete unpublishes the node, or removes its whole subtree when hard is
// true. A hard delete returns the parent; an unpublish returns the node.
func (s *Store) Delete(id int, hard bool) (contenttree.Node, error) {
	m, err := GetNodeByID(s.db, uint(id))
	if err != nil {
		return nil, fmt.Errorf("delete node %d: %w", id, err)
	}

	if !hard {
		if err := s.db.Model(m).Update("published", false).Error; err != nil {
			return nil, err
		}
		s.log.Debug("node unpublished", "id", id)
		s.notifier.Notify(contenttree.Event{
			Kind:             contenttree.EventUnpublish,
			NodeID:           id,
			ContentTypeAlias: m.TypeAlias,
		})
		return &node{st: s, m: *m}, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var subtree []ContentNode
		if err := tx.Where("path LIKE ?", m.Path+",%").Or("id = ?", m.ID).Find(&subtree).Error; err != nil {
			return err
		}
		for _, n := range subtree {
			if err := tx.Where("node_id = ?", n.ID).Delete(&ContentProperty{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&ContentNode{}, n.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug("node deleted", "id", id)
	s.notifier.Notify(contenttree.Event{
		Kind:             contenttree.EventDelete,
		NodeID:           id,
		ContentTypeAlias: m.TypeAlias,
	})

	if m.ParentID == nil {
		return nil, nil
	}
	return s.NodeByID(int(*m.ParentID))
}

// saveProperties upserts the mutation's property values, tagging each with
// the editor alias its schema declares. A value for an undeclared alias is
// skipped, not fatal.
func (s *Store) saveProperties(tx *gorm.DB, nodeID uint, typeAlias string, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}

	schema, err := s.Schema(typeAlias)
	if err != nil {
		return err
	}

	for alias, val := range props {
		sp, ok := schema.Property(alias)
		if !ok {
			s.log.Debug("skipping property without schema", "alias", alias)
			continue
		}

		value := fmt.Sprintf("%v", val)
		var existing ContentProperty
		err := tx.Where("node_id = ? AND LOWER(alias) = ?", nodeID, strings.ToLower(sp.Alias)).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Model(&existing).Update("value", value).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			prop := ContentProperty{
				NodeID:      nodeID,
				Alias:       sp.Alias,
				EditorAlias: sp.EditorAlias,
				Value:       value,
			}
			if err := tx.Create(&prop).Error; err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// IsProtected reports whether any access rule covers the path.
func (s *Store) IsProtected(path string) bool {
	rules, err := GetAccessRules(s.db)
	if err != nil {
		s.log.Warn("loading access rules", "error", err)
		return false
	}
	for _, rule := range rules {
		if pathCovered(path, rule.PathPrefix) {
			return true
		}
	}
	return false
}

// HasAccess reports whether the principal may read the protected path: the
// principal must be in a group of every rule covering it.
func (s *Store) HasAccess(path string, principal *contenttree.Principal) bool {
	rules, err := GetAccessRules(s.db)
	if err != nil {
		s.log.Warn("loading access rules", "error", err)
		return false
	}
	for _, rule := range rules {
		if !pathCovered(path, rule.PathPrefix) {
			continue
		}
		allowed := false
		for _, g := range splitCSV(rule.Groups) {
			if principal.InGroup(g) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

// UserByName resolves a stored user to a principal.
func (s *Store) UserByName(username string) (*contenttree.Principal, error) {
	u, err := GetUserByName(s.db, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contenttree.Principal{
		Username: u.Username,
		Groups:   splitCSV(u.Groups),
	}, nil
}

// pathCovered reports whether an id-chain path falls under a rule prefix.
// Matching is on id boundaries so "-1,1" does not cover "-1,10".
func pathCovered(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+",")
}
