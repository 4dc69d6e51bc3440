// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/praxis-labs/loom-mcp/internal/database"
)

// Relation direction filters
const (
	DirectionFrom = "from"
	DirectionTo   = "to"
	DirectionBoth = "both"
)

const initialChangeReason = "Initial creation"

// EntityStore manages versioned named entities and the typed directed
// relations between them.
type EntityStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEntityStore creates an entity store on the shared database handle
func NewEntityStore(db *gorm.DB) *EntityStore {
	return &EntityStore{db: db, now: time.Now}
}

// CreateEntityInput holds parameters for creating an entity
type CreateEntityInput struct {
	Type       string
	Name       string
	Properties map[string]interface{}
}

// CreateRelationInput holds parameters for creating a relation. From and To
// accept an entity id or name.
type CreateRelationInput struct {
	From       string
	Relation   string
	To         string
	Properties map[string]interface{}
}

// EntityTypeCount is an aggregate count for one entity type
type EntityTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// CreateEntity inserts a new entity together with its version-1 snapshot in
// one transaction. Entity names are globally unique; a duplicate fails
// before anything is written.
func (s *EntityStore) CreateEntity(in CreateEntityInput, actor string) (*database.Entity, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, NewValidationError("entity type is required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("entity name is required")
	}

	var count int64
	if err := s.db.Model(&database.Entity{}).Where("name = ?", in.Name).Count(&count).Error; err != nil {
		return nil, storageErr("create entity", err)
	}
	if count > 0 {
		return nil, NewValidationError("entity with name %q already exists", in.Name)
	}

	properties, err := database.EncodeDocument(in.Properties)
	if err != nil {
		return nil, NewValidationError("properties are not serializable: %v", err)
	}

	now := s.now().UnixMilli()
	entity := &database.Entity{
		ID:         uuid.NewString(),
		Type:       in.Type,
		Name:       in.Name,
		Properties: properties,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(entity).Error; err != nil {
			return err
		}
		version := &database.EntityVersion{
			EntityID:     entity.ID,
			Version:      1,
			Properties:   properties,
			ChangedBy:    actor,
			ChangedAt:    now,
			ChangeReason: initialChangeReason,
		}
		return tx.Create(version).Error
	})
	if err != nil {
		return nil, storageErr("create entity", err)
	}
	return entity, nil
}

// GetEntity retrieves an entity by id or by name
func (s *EntityStore) GetEntity(idOrName string) (*database.Entity, error) {
	var entity database.Entity
	err := s.db.First(&entity, "id = ? OR name = ?", idOrName, idOrName).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("entity", idOrName)
	}
	if err != nil {
		return nil, storageErr("get entity", err)
	}
	return &entity, nil
}

// ListEntitiesByType lists entities of one type ordered by name
func (s *EntityStore) ListEntitiesByType(entityType string, limit int) ([]database.Entity, error) {
	if limit <= 0 {
		limit = 1000
	}
	var entities []database.Entity
	err := s.db.Where("type = ?", entityType).
		Order("name ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, storageErr("list entities by type", err)
	}
	return entities, nil
}

// ListAllEntities lists every entity ordered by type then name
func (s *EntityStore) ListAllEntities(limit int) ([]database.Entity, error) {
	if limit <= 0 {
		limit = 1000
	}
	var entities []database.Entity
	err := s.db.Order("type ASC, name ASC").Limit(limit).Find(&entities).Error
	if err != nil {
		return nil, storageErr("list entities", err)
	}
	return entities, nil
}

// UpdateEntity replaces an entity's properties wholesale and appends the
// next version snapshot, both in one transaction. The version sequence is
// gapless: the new version is max(existing)+1.
func (s *EntityStore) UpdateEntity(idOrName string, properties map[string]interface{}, actor, reason string) (*database.Entity, error) {
	entity, err := s.GetEntity(idOrName)
	if err != nil {
		return nil, err
	}

	encoded, err := database.EncodeDocument(properties)
	if err != nil {
		return nil, NewValidationError("properties are not serializable: %v", err)
	}

	var maxVersion int64
	err = s.db.Model(&database.EntityVersion{}).
		Where("entity_id = ?", entity.ID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&maxVersion).Error
	if err != nil {
		return nil, storageErr("update entity", err)
	}

	now := s.now().UnixMilli()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&database.Entity{}).
			Where("id = ?", entity.ID).
			Updates(map[string]interface{}{"properties": encoded, "updated_at": now}).Error
		if err != nil {
			return err
		}
		version := &database.EntityVersion{
			EntityID:     entity.ID,
			Version:      int(maxVersion) + 1,
			Properties:   encoded,
			ChangedBy:    actor,
			ChangedAt:    now,
			ChangeReason: reason,
		}
		return tx.Create(version).Error
	})
	if err != nil {
		return nil, storageErr("update entity", err)
	}

	entity.Properties = encoded
	entity.UpdatedAt = now
	return entity, nil
}

// DeleteEntity removes an entity, its version history, and every relation
// referencing it as either endpoint, in one transaction.
func (s *EntityStore) DeleteEntity(idOrName string) error {
	entity, err := s.GetEntity(idOrName)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&database.EntityVersion{}, "entity_id = ?", entity.ID).Error; err != nil {
			return err
		}
		if err := tx.Delete(&database.EntityRelation{}, "from_entity_id = ? OR to_entity_id = ?", entity.ID, entity.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&database.Entity{}, "id = ?", entity.ID).Error
	})
	return storageErr("delete entity", err)
}

// GetEntityVersions returns an entity's version history, newest first
func (s *EntityStore) GetEntityVersions(idOrName string, limit int) ([]database.EntityVersion, error) {
	entity, err := s.GetEntity(idOrName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var versions []database.EntityVersion
	err = s.db.Where("entity_id = ?", entity.ID).
		Order("version DESC").
		Limit(limit).
		Find(&versions).Error
	if err != nil {
		return nil, storageErr("get entity versions", err)
	}
	return versions, nil
}

// CreateRelation inserts a typed directed relation after resolving both
// endpoints. Either endpoint missing fails with NotFoundError.
func (s *EntityStore) CreateRelation(in CreateRelationInput) (*database.EntityRelation, error) {
	if in.From == "" || in.Relation == "" || in.To == "" {
		return nil, NewValidationError("from, relation and to are required")
	}

	from, err := s.GetEntity(in.From)
	if err != nil {
		return nil, err
	}
	to, err := s.GetEntity(in.To)
	if err != nil {
		return nil, err
	}

	properties, err := database.EncodeDocument(in.Properties)
	if err != nil {
		return nil, NewValidationError("properties are not serializable: %v", err)
	}

	relation := &database.EntityRelation{
		ID:           uuid.NewString(),
		FromEntityID: from.ID,
		RelationType: in.Relation,
		ToEntityID:   to.ID,
		Properties:   properties,
		CreatedAt:    s.now().UnixMilli(),
	}
	if err := s.db.Create(relation).Error; err != nil {
		return nil, storageErr("create relation", err)
	}
	return relation, nil
}

// GetEntityRelations lists relations touching an entity. Direction selects
// outgoing ("from"), incoming ("to") or either ("both"); relationType is an
// optional exact filter. Newest first.
func (s *EntityStore) GetEntityRelations(idOrName, direction, relationType string) ([]database.EntityRelation, error) {
	entity, err := s.GetEntity(idOrName)
	if err != nil {
		return nil, err
	}

	tx := s.db.Model(&database.EntityRelation{})
	switch direction {
	case DirectionFrom:
		tx = tx.Where("from_entity_id = ?", entity.ID)
	case DirectionTo:
		tx = tx.Where("to_entity_id = ?", entity.ID)
	case DirectionBoth, "":
		tx = tx.Where("(from_entity_id = ? OR to_entity_id = ?)", entity.ID, entity.ID)
	default:
		return nil, NewValidationError("direction must be one of from, to, both")
	}
	if relationType != "" {
		tx = tx.Where("relation_type = ?", relationType)
	}

	var relations []database.EntityRelation
	if err := tx.Order("created_at DESC").Find(&relations).Error; err != nil {
		return nil, storageErr("get entity relations", err)
	}
	return relations, nil
}

// DeleteRelation removes a relation by id. Idempotent: reports whether a
// row was actually removed and never fails on a missing id.
func (s *EntityStore) DeleteRelation(id string) (bool, error) {
	result := s.db.Delete(&database.EntityRelation{}, "id = ?", id)
	if result.Error != nil {
		return false, storageErr("delete relation", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetEntityTimeline cross-references an entity against the event log by
// substring-matching its name inside serialized event metadata, newest
// first. This is a best-effort textual join, not referential integrity:
// false positives and negatives are possible.
func (s *EntityStore) GetEntityTimeline(idOrName string, limit int) ([]database.TimelineEvent, error) {
	entity, err := s.GetEntity(idOrName)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var events []database.TimelineEvent
	err = s.db.Where("metadata LIKE ?"+likeEscape, containsPattern(entity.Name)).
		Order("timestamp DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, storageErr("get entity timeline", err)
	}
	return events, nil
}

// SearchEntities finds entities whose name or serialized properties contain
// the term, with an optional type filter, ordered by name.
func (s *EntityStore) SearchEntities(term, entityType string, limit int) ([]database.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	pattern := containsPattern(term)

	tx := s.db.Where("(name LIKE ?"+likeEscape+" OR properties LIKE ?"+likeEscape+")", pattern, pattern)
	if entityType != "" {
		tx = tx.Where("type = ?", entityType)
	}

	var entities []database.Entity
	if err := tx.Order("name ASC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, storageErr("search entities", err)
	}
	return entities, nil
}

// GetEntityTypeStats returns entity counts grouped by type
func (s *EntityStore) GetEntityTypeStats() ([]EntityTypeCount, error) {
	var rows []EntityTypeCount
	err := s.db.Model(&database.Entity{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get entity type stats", err)
	}
	return rows, nil
}
