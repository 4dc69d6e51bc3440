// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/praxis-labs/loom-mcp/internal/database"
)

// openTestDB creates a fresh migrated sqlite database in a temp directory
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
		LogLevel:   logger.Silent,
	}

	db, err := database.Connect(cfg)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.CreateIndexes(db))

	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
