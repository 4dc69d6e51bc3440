// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/praxis-labs/loom-mcp/internal/database"
)

// MemoryStore manages the namespaced key-value records with optional TTL.
// Expiry is lazy: an expired memory is treated as absent by every read path
// while the row lingers until CleanExpiredMemories reclaims it.
type MemoryStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMemoryStore creates a memory store on the shared database handle
func NewMemoryStore(db *gorm.DB) *MemoryStore {
	return &MemoryStore{db: db, now: time.Now}
}

// StoreMemoryInput holds parameters for storing a memory. TTLSeconds, when
// set, is converted to an absolute expiry timestamp at write time.
type StoreMemoryInput struct {
	Key        string
	Value      interface{}
	Namespace  string
	TTLSeconds *int64
}

// MemoryStats is the aggregate view of the memory table
type MemoryStats struct {
	Total       int64            `json:"total"`
	ByNamespace map[string]int64 `json:"by_namespace"`
	Expired     int64            `json:"expired"`
}

// aliveClause filters out logically expired rows
const aliveClause = "(expires_at IS NULL OR expires_at >= ?)"

func (s *MemoryStore) nowMilli() int64 {
	return s.now().UnixMilli()
}

func expired(m *database.Memory, now int64) bool {
	return m.ExpiresAt != nil && *m.ExpiresAt < now
}

// StoreMemory creates or replaces a memory by key. An absent TTL means the
// memory never expires.
func (s *MemoryStore) StoreMemory(in StoreMemoryInput) (*database.Memory, error) {
	if strings.TrimSpace(in.Key) == "" {
		return nil, NewValidationError("memory key is required")
	}
	if in.Value == nil {
		return nil, NewValidationError("memory value is required")
	}

	value, err := database.EncodeDocument(in.Value)
	if err != nil {
		return nil, NewValidationError("value is not serializable: %v", err)
	}

	now := s.nowMilli()
	var expiresAt *int64
	if in.TTLSeconds != nil {
		e := now + *in.TTLSeconds*1000
		expiresAt = &e
	}

	memory := &database.Memory{
		Key:       in.Key,
		Value:     value,
		Namespace: in.Namespace,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiresAt,
	}
	err = s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"namespace":  in.Namespace,
			"updated_at": now,
			"expires_at": expiresAt,
		}),
	}).Create(memory).Error
	if err != nil {
		return nil, storageErr("store memory", err)
	}
	return memory, nil
}

// RetrieveMemory returns a memory by key. An expired memory is NotFound
// regardless of whether the row has been physically reclaimed yet.
func (s *MemoryStore) RetrieveMemory(key string) (*database.Memory, error) {
	var memory database.Memory
	err := s.db.First(&memory, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("memory", key)
	}
	if err != nil {
		return nil, storageErr("retrieve memory", err)
	}
	if expired(&memory, s.nowMilli()) {
		return nil, NewNotFoundError("memory", key)
	}
	return &memory, nil
}

// DeleteMemory removes a memory by key. Idempotent: reports whether a row
// was actually removed.
func (s *MemoryStore) DeleteMemory(key string) (bool, error) {
	result := s.db.Delete(&database.Memory{}, "key = ?", key)
	if result.Error != nil {
		return false, storageErr("delete memory", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListMemories lists non-expired memories, optionally filtered by exact
// namespace and by key pattern (trailing-* convention; everything else
// matches literally).
func (s *MemoryStore) ListMemories(namespace, pattern string) ([]database.Memory, error) {
	tx := s.db.Where(aliveClause, s.nowMilli())
	if namespace != "" {
		tx = tx.Where("namespace = ?", namespace)
	}
	if pattern != "" {
		tx = tx.Where("key LIKE ?"+likeEscape, keyPattern(pattern))
	}

	var memories []database.Memory
	if err := tx.Order("key ASC").Find(&memories).Error; err != nil {
		return nil, storageErr("list memories", err)
	}
	return memories, nil
}

// SearchMemories finds non-expired memories whose serialized value contains
// the term, optionally scoped to a namespace.
func (s *MemoryStore) SearchMemories(term, namespace string) ([]database.Memory, error) {
	tx := s.db.Where(aliveClause, s.nowMilli()).
		Where("value LIKE ?"+likeEscape, containsPattern(term))
	if namespace != "" {
		tx = tx.Where("namespace = ?", namespace)
	}

	var memories []database.Memory
	if err := tx.Order("updated_at DESC").Find(&memories).Error; err != nil {
		return nil, storageErr("search memories", err)
	}
	return memories, nil
}

// BulkStoreMemories stores every entry inside one transaction: either all
// are committed or none are. Returns the number stored.
func (s *MemoryStore) BulkStoreMemories(list []StoreMemoryInput) (int, error) {
	now := s.nowMilli()

	// Validate everything up front so no transaction is opened for input
	// that can never commit.
	type prepared struct {
		in    StoreMemoryInput
		value string
	}
	entries := make([]prepared, 0, len(list))
	for _, in := range list {
		if strings.TrimSpace(in.Key) == "" {
			return 0, NewValidationError("memory key is required")
		}
		if in.Value == nil {
			return 0, NewValidationError("memory value is required for key %q", in.Key)
		}
		value, err := database.EncodeDocument(in.Value)
		if err != nil {
			return 0, NewValidationError("value for key %q is not serializable: %v", in.Key, err)
		}
		entries = append(entries, prepared{in: in, value: value})
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			var expiresAt *int64
			if e.in.TTLSeconds != nil {
				exp := now + *e.in.TTLSeconds*1000
				expiresAt = &exp
			}
			memory := &database.Memory{
				Key:       e.in.Key,
				Value:     e.value,
				Namespace: e.in.Namespace,
				CreatedAt: now,
				UpdatedAt: now,
				ExpiresAt: expiresAt,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "key"}},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"value":      e.value,
					"namespace":  e.in.Namespace,
					"updated_at": now,
					"expires_at": expiresAt,
				}),
			}).Create(memory).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, storageErr("bulk store memories", err)
	}
	return len(entries), nil
}

// BulkDeleteMemories deletes every key matching the pattern in one
// transaction and returns the count removed.
func (s *MemoryStore) BulkDeleteMemories(pattern string) (int64, error) {
	if pattern == "" {
		return 0, NewValidationError("pattern is required")
	}

	var deleted int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&database.Memory{}, "key LIKE ?"+likeEscape, keyPattern(pattern))
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, storageErr("bulk delete memories", err)
	}
	return deleted, nil
}

// HasMemory reports whether a non-expired memory exists for the key
func (s *MemoryStore) HasMemory(key string) (bool, error) {
	var count int64
	err := s.db.Model(&database.Memory{}).
		Where("key = ?", key).
		Where(aliveClause, s.nowMilli()).
		Count(&count).Error
	if err != nil {
		return false, storageErr("has memory", err)
	}
	return count > 0, nil
}

// UpdateMemoryTTL recomputes a memory's expiry from now, or clears it when
// ttlSeconds is nil (never expires). The memory must currently be alive.
func (s *MemoryStore) UpdateMemoryTTL(key string, ttlSeconds *int64) (*database.Memory, error) {
	memory, err := s.RetrieveMemory(key)
	if err != nil {
		return nil, err
	}

	now := s.nowMilli()
	var expiresAt *int64
	if ttlSeconds != nil {
		e := now + *ttlSeconds*1000
		expiresAt = &e
	}

	err = s.db.Model(&database.Memory{}).
		Where("key = ?", key).
		Updates(map[string]interface{}{"expires_at": expiresAt, "updated_at": now}).Error
	if err != nil {
		return nil, storageErr("update memory ttl", err)
	}

	memory.ExpiresAt = expiresAt
	memory.UpdatedAt = now
	return memory, nil
}

// GetMemoryStats returns the physical row count, counts per namespace, and
// how many rows are expired but not yet purged.
func (s *MemoryStore) GetMemoryStats() (*MemoryStats, error) {
	stats := &MemoryStats{ByNamespace: make(map[string]int64)}

	if err := s.db.Model(&database.Memory{}).Count(&stats.Total).Error; err != nil {
		return nil, storageErr("get memory stats", err)
	}

	var rows []struct {
		Namespace string
		Count     int64
	}
	err := s.db.Model(&database.Memory{}).
		Select("namespace, COUNT(*) AS count").
		Group("namespace").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get memory stats", err)
	}
	for _, row := range rows {
		stats.ByNamespace[row.Namespace] = row.Count
	}

	err = s.db.Model(&database.Memory{}).
		Where("expires_at IS NOT NULL AND expires_at < ?", s.nowMilli()).
		Count(&stats.Expired).Error
	if err != nil {
		return nil, storageErr("get memory stats", err)
	}
	return stats, nil
}

// CleanExpiredMemories physically deletes every expired memory and returns
// the count removed. Safe to call at any frequency; idempotent.
func (s *MemoryStore) CleanExpiredMemories() (int64, error) {
	result := s.db.Delete(&database.Memory{}, "expires_at IS NOT NULL AND expires_at < ?", s.nowMilli())
	if result.Error != nil {
		return 0, storageErr("clean expired memories", result.Error)
	}
	return result.RowsAffected, nil
}
