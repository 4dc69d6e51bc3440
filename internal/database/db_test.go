// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLite(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	cfg := &Config{
		Type:       "sqlite",
		SQLitePath: dbPath,
		LogLevel:   logger.Silent,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	require.NotNil(t, db)

	// Test connection
	err = Ping(db)
	assert.NoError(t, err)

	// Cleanup
	err = Close(db)
	assert.NoError(t, err)
}

func TestConnect_InvalidType(t *testing.T) {
	cfg := &Config{
		Type:     "mysql",
		LogLevel: logger.Silent,
	}

	db, err := Connect(cfg)
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestEnsureSQLiteDir(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "subdir", "another", "test.db")

	err := ensureSQLiteDir(dbPath)
	require.NoError(t, err)

	// Check that the directory was created
	dir := filepath.Dir(dbPath)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestMigrate(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	cfg := &Config{
		Type:       "sqlite",
		SQLitePath: dbPath,
		LogLevel:   logger.Silent,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	// Run migrations
	err = Migrate(db)
	require.NoError(t, err)

	// Verify tables exist
	tables := []string{
		"loom_timeline_events",
		"loom_full_details",
		"loom_entities",
		"loom_entity_versions",
		"loom_entity_relations",
		"loom_memories",
	}

	for _, table := range tables {
		hasTable := db.Migrator().HasTable(table)
		assert.True(t, hasTable, "table %s should exist", table)
	}
}

func TestCreateIndexes(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	cfg := &Config{
		Type:       "sqlite",
		SQLitePath: dbPath,
		LogLevel:   logger.Silent,
	}

	db, err := Connect(cfg)
	require.NoError(t, err)
	defer func() { _ = Close(db) }()

	require.NoError(t, Migrate(db))
	require.NoError(t, CreateIndexes(db))

	// Running again must be a no-op thanks to IF NOT EXISTS
	require.NoError(t, CreateIndexes(db))
}

func TestModels_TableNames(t *testing.T) {
	tests := []struct {
		model     interface{ TableName() string }
		tableName string
	}{
		{TimelineEvent{}, "loom_timeline_events"},
		{FullDetail{}, "loom_full_details"},
		{Entity{}, "loom_entities"},
		{EntityVersion{}, "loom_entity_versions"},
		{EntityRelation{}, "loom_entity_relations"},
		{Memory{}, "loom_memories"},
	}

	for _, tt := range tests {
		t.Run(tt.tableName, func(t *testing.T) {
			assert.Equal(t, tt.tableName, tt.model.TableName())
		})
	}
}

func TestEncodeDecodeDocument(t *testing.T) {
	encoded, err := EncodeDocument(map[string]interface{}{"mood": "good", "count": float64(3)})
	require.NoError(t, err)
	assert.Contains(t, encoded, `"mood"`)

	decoded, err := DecodeDocument(encoded)
	require.NoError(t, err)
	assert.Equal(t, "good", decoded["mood"])
	assert.Equal(t, float64(3), decoded["count"])
}

func TestEncodeDocument_Nil(t *testing.T) {
	encoded, err := EncodeDocument(nil)
	require.NoError(t, err)
	assert.Equal(t, "", encoded)

	decoded, err := DecodeDocument("")
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
