// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AllModels returns all database models for migration
func AllModels() []interface{} {
	return []interface{}{
		&TimelineEvent{},
		&FullDetail{},
		&Entity{},
		&EntityVersion{},
		&EntityRelation{},
		&Memory{},
	}
}

// Migrate runs database migrations for all models. AutoMigrate only creates
// what is absent, so this is safe to run on every startup.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// DropAllTables drops all tables (use with caution!)
func DropAllTables(db *gorm.DB) error {
	// Drop in reverse order to avoid foreign key constraints
	models := []interface{}{
		&Memory{},
		&EntityRelation{},
		&EntityVersion{},
		&Entity{},
		&FullDetail{},
		&TimelineEvent{},
	}

	for _, model := range models {
		if err := db.Migrator().DropTable(model); err != nil {
			return fmt.Errorf("failed to drop table: %w", err)
		}
	}

	return nil
}

// CreateIndexes creates additional indexes for better query performance
func CreateIndexes(db *gorm.DB) error {
	// Composite indexes for frequently queried combinations
	indexes := []struct {
		table   string
		columns []string
		name    string
		unique  bool
	}{
		{
			table:   "loom_timeline_events",
			columns: []string{"date", "type"},
			name:    "idx_events_date_type",
		},
		{
			table:   "loom_timeline_events",
			columns: []string{"date", "timestamp"},
			name:    "idx_events_date_timestamp",
		},
		{
			// Guards the gapless per-entity version sequence.
			table:   "loom_entity_versions",
			columns: []string{"entity_id", "version"},
			name:    "idx_versions_entity_version",
			unique:  true,
		},
		{
			table:   "loom_entity_relations",
			columns: []string{"from_entity_id", "relation_type"},
			name:    "idx_relations_from_type",
		},
		{
			table:   "loom_entity_relations",
			columns: []string{"to_entity_id", "relation_type"},
			name:    "idx_relations_to_type",
		},
		{
			table:   "loom_memories",
			columns: []string{"namespace", "expires_at"},
			name:    "idx_memories_namespace_expires",
		},
	}

	for _, idx := range indexes {
		hasIndex := db.Migrator().HasIndex(idx.table, idx.name)
		if !hasIndex {
			// Raw SQL: GORM doesn't support composite indexes well
			kind := "INDEX"
			if idx.unique {
				kind = "UNIQUE INDEX"
			}
			sql := fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)",
				kind,
				idx.name,
				idx.table,
				joinColumns(idx.columns))

			if err := db.Exec(sql).Error; err != nil {
				return fmt.Errorf("failed to create index %s: %w", idx.name, err)
			}
		}
	}

	return nil
}

// joinColumns joins column names with commas
func joinColumns(columns []string) string {
	result := ""
	for i, col := range columns {
		if i > 0 {
			result += ", "
		}
		result += col
	}
	return result
}
