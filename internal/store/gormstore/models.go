package gormstore

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemType column discriminators.
const (
	itemTypeContent = "content"
	itemTypeMedia   = "media"
)

// ContentNode is one node of the content tree. Content and media share the
// table, discriminated by ItemType. Path is the comma-joined id chain from
// the root, "-1,12,37" style, and is what access rules match against.
type ContentNode struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Key       uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_content_nodes_key" json:"key"`
	Name      string    `gorm:"type:varchar(500);not null" json:"name"`
	URLName   string    `gorm:"type:varchar(500)" json:"urlName"`
	URLPath   string    `gorm:"type:varchar(2000);index:idx_content_nodes_url" json:"urlPath"`
	TypeAlias string    `gorm:"type:varchar(255);not null;index:idx_content_nodes_type" json:"typeAlias"`
	ItemType  string    `gorm:"type:varchar(20);not null;default:'content'" json:"itemType"`

	ParentID  *uint  `gorm:"index:idx_content_nodes_parent" json:"parentId,omitempty"`
	Path      string `gorm:"type:varchar(2000)" json:"path"`
	Level     int    `json:"level"`
	SortOrder int    `gorm:"index:idx_content_nodes_sort" json:"sortOrder"`

	Published bool       `gorm:"not null;default:false;index:idx_content_nodes_published" json:"published"`
	ReleaseAt *time.Time `json:"releaseAt,omitempty"`
	ExpireAt  *time.Time `json:"expireAt,omitempty"`

	Properties []ContentProperty `gorm:"foreignKey:NodeID" json:"properties,omitempty"`
}

// TableName specifies the table name.
func (ContentNode) TableName() string {
	return "content_nodes"
}

// BeforeCreate ensures the node key is set.
func (n *ContentNode) BeforeCreate(tx *gorm.DB) error {
	if n.Key == uuid.Nil {
		n.Key = uuid.New()
	}
	if n.ItemType == "" {
		n.ItemType = itemTypeContent
	}
	return nil
}

// Validate checks required fields before a save.
func (n *ContentNode) Validate() error {
	return validation.ValidateStruct(n,
		validation.Field(&n.Name, validation.Required, validation.Length(1, 500)),
		validation.Field(&n.TypeAlias, validation.Required),
	)
}

// ContentProperty is one stored property value on a node. Values are stored
// in their string form; the projection layer interprets them by editor alias.
type ContentProperty struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	NodeID uint `gorm:"not null;index:idx_content_properties_node" json:"nodeId"`

	Alias       string `gorm:"type:varchar(255);not null;index:idx_content_properties_alias" json:"alias"`
	EditorAlias string `gorm:"type:varchar(255)" json:"editorAlias"`
	Value       string `gorm:"type:text" json:"value"`
}

// TableName specifies the table name.
func (ContentProperty) TableName() string {
	return "content_properties"
}

// ContentType is a stored content-type schema.
type ContentType struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Alias       string `gorm:"type:varchar(255);not null;uniqueIndex:idx_content_types_alias" json:"alias"`
	Name        string `gorm:"type:varchar(500);not null" json:"name"`
	ParentAlias string `gorm:"type:varchar(255)" json:"parentAlias,omitempty"`

	// AllowedChildren is the comma-joined list of child type aliases.
	AllowedChildren string `gorm:"type:varchar(2000)" json:"allowedChildren,omitempty"`

	Properties []ContentTypeProperty `gorm:"foreignKey:TypeID" json:"properties,omitempty"`
}

// TableName specifies the table name.
func (ContentType) TableName() string {
	return "content_types"
}

// Validate checks required fields before a save.
func (t *ContentType) Validate() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.Alias, validation.Required),
		validation.Field(&t.Name, validation.Required),
	)
}

// ContentTypeProperty is one declared property on a content-type schema.
type ContentTypeProperty struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	TypeID uint `gorm:"not null;index:idx_content_type_properties_type" json:"typeId"`

	Alias       string `gorm:"type:varchar(255);not null" json:"alias"`
	Name        string `gorm:"type:varchar(500)" json:"name"`
	Group       string `gorm:"type:varchar(255)" json:"group,omitempty"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Validation  string `gorm:"type:varchar(500)" json:"validation,omitempty"`
	EditorAlias string `gorm:"type:varchar(255)" json:"editorAlias"`
	Kind        int    `json:"kind"`
	Mandatory   bool   `json:"mandatory"`

	// Prevalues is the comma-joined list of allowed values, when constrained.
	Prevalues string `gorm:"type:text" json:"prevalues,omitempty"`
}

// TableName specifies the table name.
func (ContentTypeProperty) TableName() string {
	return "content_type_properties"
}

// User is a stored principal with comma-joined group memberships.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Username string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_username" json:"username"`
	Groups   string `gorm:"type:varchar(2000)" json:"groups,omitempty"`
}

// TableName specifies the table name.
func (User) TableName() string {
	return "users"
}

// AccessRule protects a subtree: every node whose id-chain path starts with
// PathPrefix is readable only by members of the rule's groups.
type AccessRule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`

	PathPrefix string `gorm:"type:varchar(2000);not null;index:idx_access_rules_path" json:"pathPrefix"`
	Groups     string `gorm:"type:varchar(2000)" json:"groups,omitempty"`
}

// TableName specifies the table name.
func (AccessRule) TableName() string {
	return "access_rules"
}

// GetNodeByID retrieves a node with its properties preloaded.
func GetNodeByID(db *gorm.DB, id uint) (*ContentNode, error) {
	var node ContentNode
	err := db.Preload("Properties").First(&node, id).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNodeByKey retrieves a node by its stable key.
func GetNodeByKey(db *gorm.DB, key uuid.UUID) (*ContentNode, error) {
	var node ContentNode
	err := db.Preload("Properties").Where("key = ?", key).First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNodeByURL retrieves a published node by its URL path.
func GetNodeByURL(db *gorm.DB, urlPath string) (*ContentNode, error) {
	var node ContentNode
	err := db.Preload("Properties").
		Where("url_path = ? AND published = ?", urlPath, true).
		First(&node).Error
	if err != nil {
		return nil, err
	}
	return &node, nil
}

// GetChildren retrieves the published children of a node in sort order.
func GetChildren(db *gorm.DB, parentID uint) ([]ContentNode, error) {
	var children []ContentNode
	err := db.Preload("Properties").
		Where("parent_id = ? AND published = ?", parentID, true).
		Order("sort_order ASC, id ASC").
		Find(&children).Error
	return children, err
}

// GetContentType retrieves a schema by alias, properties preloaded.
func GetContentType(db *gorm.DB, alias string) (*ContentType, error) {
	var ct ContentType
	err := db.Preload("Properties").
		Where("LOWER(alias) = ?", strings.ToLower(alias)).
		First(&ct).Error
	if err != nil {
		return nil, err
	}
	return &ct, nil
}

// GetUserByName retrieves a user by username.
func GetUserByName(db *gorm.DB, username string) (*User, error) {
	var user User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAccessRules retrieves every access rule.
func GetAccessRules(db *gorm.DB) ([]AccessRule, error) {
	var rules []AccessRule
	err := db.Order("id ASC").Find(&rules).Error
	return rules, err
}

// splitCSV splits a comma-joined column into trimmed, non-empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
