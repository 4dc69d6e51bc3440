// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import "encoding/json"

// All timestamps are integer milliseconds since the Unix epoch. Arbitrary
// JSON documents (event metadata, entity properties, memory values) are
// stored as serialized text and decoded on demand; the storage layer never
// interprets their structure.

// TimelineEvent is one entry in the temporal event log. Date is the UTC
// calendar date of Timestamp, stored redundantly for range queries.
type TimelineEvent struct {
	ID          string  `gorm:"primaryKey" json:"id"`
	Timestamp   int64   `gorm:"not null;index" json:"timestamp"`
	Date        string  `gorm:"size:10;not null;index" json:"date"`
	Type        string  `gorm:"not null;index" json:"type"`
	Namespace   string  `gorm:"index" json:"namespace,omitempty"`
	Title       string  `json:"title,omitempty"`
	Metadata    string  `gorm:"type:text" json:"metadata,omitempty"`
	FullDataKey *string `gorm:"index" json:"full_data_key,omitempty"`
	CreatedAt   int64   `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt   int64   `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// TableName specifies the table name for TimelineEvent
func (TimelineEvent) TableName() string {
	return "loom_timeline_events"
}

// MetadataMap decodes the serialized event metadata.
func (e *TimelineEvent) MetadataMap() (map[string]interface{}, error) {
	return DecodeDocument(e.Metadata)
}

// FullDetail is the out-of-line payload of a timeline event, keyed as
// "{type}:{event_id}:full". It is owned by the event that created it and is
// deleted in the same transaction as that event. AccessedAt is bumped on
// every read; it is bookkeeping, not an eviction signal.
type FullDetail struct {
	Key        string `gorm:"primaryKey" json:"key"`
	Data       string `gorm:"type:text" json:"data"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	AccessedAt int64  `json:"accessed_at"`
}

// TableName specifies the table name for FullDetail
func (FullDetail) TableName() string {
	return "loom_full_details"
}

// DataMap decodes the serialized payload.
func (d *FullDetail) DataMap() (map[string]interface{}, error) {
	return DecodeDocument(d.Data)
}

// Entity is a typed named record in the context graph. Names are globally
// unique across all entities.
type Entity struct {
	ID         string `gorm:"primaryKey" json:"id"`
	Type       string `gorm:"not null;index" json:"type"`
	Name       string `gorm:"uniqueIndex;not null" json:"name"`
	Properties string `gorm:"type:text" json:"properties,omitempty"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt  int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

// TableName specifies the table name for Entity
func (Entity) TableName() string {
	return "loom_entities"
}

// PropertiesMap decodes the serialized entity properties.
func (e *Entity) PropertiesMap() (map[string]interface{}, error) {
	return DecodeDocument(e.Properties)
}

// EntityVersion is an append-only snapshot of an entity's properties taken
// at each mutation. Versions form a gapless sequence starting at 1; the
// latest snapshot always equals the entity's current properties.
type EntityVersion struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	EntityID     string `gorm:"index;not null" json:"entity_id"`
	Version      int    `gorm:"not null" json:"version"`
	Properties   string `gorm:"type:text" json:"properties,omitempty"`
	ChangedBy    string `json:"changed_by"`
	ChangedAt    int64  `gorm:"not null" json:"changed_at"`
	ChangeReason string `json:"change_reason,omitempty"`

	// Foreign key relationship
	Entity Entity `gorm:"foreignKey:EntityID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for EntityVersion
func (EntityVersion) TableName() string {
	return "loom_entity_versions"
}

// EntityRelation is a typed directed edge between two entities. Both
// endpoints must exist at creation time; deleting either entity removes
// the relation.
type EntityRelation struct {
	ID           string `gorm:"primaryKey" json:"id"`
	FromEntityID string `gorm:"index;not null" json:"from_entity_id"`
	RelationType string `gorm:"not null" json:"relation_type"`
	ToEntityID   string `gorm:"index;not null" json:"to_entity_id"`
	Properties   string `gorm:"type:text" json:"properties,omitempty"`
	CreatedAt    int64  `gorm:"autoCreateTime:milli" json:"created_at"`

	// Foreign key relationships
	FromEntity Entity `gorm:"foreignKey:FromEntityID;constraint:OnDelete:CASCADE" json:"-"`
	ToEntity   Entity `gorm:"foreignKey:ToEntityID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for EntityRelation
func (EntityRelation) TableName() string {
	return "loom_entity_relations"
}

// Memory is a namespaced key-value record with optional expiry. A memory is
// logically absent once the current time passes ExpiresAt, even before the
// row is physically reclaimed.
type Memory struct {
	Key       string `gorm:"primaryKey" json:"key"`
	Value     string `gorm:"type:text" json:"value"`
	Namespace string `gorm:"index" json:"namespace,omitempty"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
	ExpiresAt *int64 `gorm:"index" json:"expires_at,omitempty"`
}

// TableName specifies the table name for Memory
func (Memory) TableName() string {
	return "loom_memories"
}

// ValueAny decodes the serialized memory value.
func (m *Memory) ValueAny() (interface{}, error) {
	if m.Value == "" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal([]byte(m.Value), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// EncodeDocument serializes an arbitrary JSON-compatible value for storage.
// Nil encodes to the empty string.
func EncodeDocument(v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	if m, ok := v.(map[string]interface{}); ok && m == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeDocument deserializes a stored document into a generic mapping.
// The empty string decodes to nil.
func DecodeDocument(s string) (map[string]interface{}, error) {
	if s == "" {
		return nil, nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, err
	}
	return m, nil
}
