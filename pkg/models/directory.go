package models

import "time"

// DirectoryOwnership records the immutable creator-owner of a directory.
type DirectoryOwnership struct {
	DirectoryID string    `gorm:"primaryKey;size:36" json:"directory_id"`
	UserID      string    `gorm:"index;not null;size:255" json:"user_id"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for DirectoryOwnership.
func (DirectoryOwnership) TableName() string {
	return "directory_ownerships"
}

// DirectoryAttribute is a generic key/value attribute of a directory.
// The cached relative path lives here under KeyPath.
type DirectoryAttribute struct {
	DirectoryID string    `gorm:"primaryKey;size:36" json:"directory_id"`
	Key         string    `gorm:"primaryKey;column:attr_key;size:64" json:"key"`
	Value       string    `gorm:"not null;size:4096" json:"value"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for DirectoryAttribute.
func (DirectoryAttribute) TableName() string {
	return "directory_attributes"
}

// MetadataRecord is the (uuid, key, value) view over ownership and attribute rows.
type MetadataRecord struct {
	UUID  string `json:"uuid" yaml:"uuid"`
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// OwnershipRecord converts an ownership row into its MetadataRecord view.
func OwnershipRecord(o *DirectoryOwnership) *MetadataRecord {
	return &MetadataRecord{UUID: o.DirectoryID, Key: KeyOwner, Value: o.UserID}
}

// AttributeRecord converts an attribute row into its MetadataRecord view.
func AttributeRecord(a *DirectoryAttribute) *MetadataRecord {
	return &MetadataRecord{UUID: a.DirectoryID, Key: a.Key, Value: a.Value}
}
