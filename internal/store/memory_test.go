// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func TestStoreMemory_Upsert(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	first, err := s.StoreMemory(StoreMemoryInput{Key: "prefs:editor", Value: "vim", Namespace: "prefs"})
	require.NoError(t, err)

	second, err := s.StoreMemory(StoreMemoryInput{Key: "prefs:editor", Value: "emacs", Namespace: "prefs"})
	require.NoError(t, err)

	got, err := s.RetrieveMemory("prefs:editor")
	require.NoError(t, err)
	assert.Equal(t, second.Value, got.Value)
	// Replacing preserves the original creation time
	assert.Equal(t, first.CreatedAt, got.CreatedAt)

	value, err := got.ValueAny()
	require.NoError(t, err)
	assert.Equal(t, "emacs", value)
}

func TestStoreMemory_Validation(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: " ", Value: "x"})
	assert.True(t, IsValidation(err))

	_, err = s.StoreMemory(StoreMemoryInput{Key: "k", Value: nil})
	assert.True(t, IsValidation(err))
}

func TestRetrieveMemory_LazyExpiry(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "temp", Value: "data", TTLSeconds: int64Ptr(60)})
	require.NoError(t, err)

	// Still alive before the deadline
	_, err = s.RetrieveMemory("temp")
	require.NoError(t, err)

	// Jump past the deadline without touching the row
	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err = s.RetrieveMemory("temp")
	assert.True(t, IsNotFound(err))

	has, err := s.HasMemory("temp")
	require.NoError(t, err)
	assert.False(t, has)

	// The row is still physically present until cleanup runs
	stats, err := s.GetMemoryStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Equal(t, int64(1), stats.Expired)
}

func TestDeleteMemory_Idempotent(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "k", Value: "v"})
	require.NoError(t, err)

	removed, err := s.DeleteMemory("k")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.DeleteMemory("k")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestListMemories(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	seed := []StoreMemoryInput{
		{Key: "dev:editor", Value: "vim", Namespace: "dev"},
		{Key: "dev:shell", Value: "zsh", Namespace: "dev"},
		{Key: "home:city", Value: "Paris", Namespace: "home"},
	}
	for _, in := range seed {
		_, err := s.StoreMemory(in)
		require.NoError(t, err)
	}
	// Expired entries never appear in listings
	_, err := s.StoreMemory(StoreMemoryInput{Key: "dev:stale", Value: "x", Namespace: "dev", TTLSeconds: int64Ptr(-1)})
	require.NoError(t, err)

	all, err := s.ListMemories("", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	dev, err := s.ListMemories("dev", "")
	require.NoError(t, err)
	assert.Len(t, dev, 2)

	prefixed, err := s.ListMemories("", "dev:*")
	require.NoError(t, err)
	assert.Len(t, prefixed, 2)

	exact, err := s.ListMemories("", "home:city")
	require.NoError(t, err)
	require.Len(t, exact, 1)
	assert.Equal(t, "home:city", exact[0].Key)
}

func TestListMemories_PatternEscaping(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "100%off", Value: "deal", Namespace: "promo"})
	require.NoError(t, err)
	_, err = s.StoreMemory(StoreMemoryInput{Key: "100xoff", Value: "decoy", Namespace: "promo"})
	require.NoError(t, err)

	// % in the pattern must match literally, not as a wildcard
	got, err := s.ListMemories("promo", "100%off")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "100%off", got[0].Key)
}

func TestSearchMemories(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "a", Value: map[string]interface{}{"city": "Paris"}, Namespace: "travel"})
	require.NoError(t, err)
	_, err = s.StoreMemory(StoreMemoryInput{Key: "b", Value: map[string]interface{}{"city": "Lyon"}, Namespace: "travel"})
	require.NoError(t, err)
	_, err = s.StoreMemory(StoreMemoryInput{Key: "c", Value: "Paris notes", Namespace: "notes"})
	require.NoError(t, err)

	results, err := s.SearchMemories("Paris", "")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = s.SearchMemories("Paris", "travel")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Key)
}

func TestBulkStoreMemories_AllOrNothing(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	count, err := s.BulkStoreMemories([]StoreMemoryInput{
		{Key: "a", Value: 1},
		{Key: "b", Value: 2, TTLSeconds: int64Ptr(3600)},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// One invalid entry rejects the whole batch before any write
	_, err = s.BulkStoreMemories([]StoreMemoryInput{
		{Key: "c", Value: 3},
		{Key: "", Value: 4},
	})
	assert.True(t, IsValidation(err))

	_, err = s.RetrieveMemory("c")
	assert.True(t, IsNotFound(err))
}

func TestBulkDeleteMemories(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	for _, key := range []string{"scratch:a", "scratch:b", "keep:c"} {
		_, err := s.StoreMemory(StoreMemoryInput{Key: key, Value: "v"})
		require.NoError(t, err)
	}

	deleted, err := s.BulkDeleteMemories("scratch:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := s.ListMemories("", "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "keep:c", remaining[0].Key)

	_, err = s.BulkDeleteMemories("")
	assert.True(t, IsValidation(err))
}

func TestUpdateMemoryTTL(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "k", Value: "v", TTLSeconds: int64Ptr(60)})
	require.NoError(t, err)

	// Clearing the TTL makes the memory permanent
	memory, err := s.UpdateMemoryTTL("k", nil)
	require.NoError(t, err)
	assert.Nil(t, memory.ExpiresAt)

	// Setting a TTL computes the deadline from now
	memory, err = s.UpdateMemoryTTL("k", int64Ptr(120))
	require.NoError(t, err)
	require.NotNil(t, memory.ExpiresAt)
	assert.Greater(t, *memory.ExpiresAt, memory.UpdatedAt)

	_, err = s.UpdateMemoryTTL("missing", int64Ptr(60))
	assert.True(t, IsNotFound(err))
}

func TestCleanExpiredMemories(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	_, err := s.StoreMemory(StoreMemoryInput{Key: "dead", Value: "x", TTLSeconds: int64Ptr(-1)})
	require.NoError(t, err)
	_, err = s.StoreMemory(StoreMemoryInput{Key: "alive", Value: "y"})
	require.NoError(t, err)

	removed, err := s.CleanExpiredMemories()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stats, err := s.GetMemoryStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Total)
	assert.Zero(t, stats.Expired)

	// Nothing left to reclaim
	removed, err = s.CleanExpiredMemories()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestGetMemoryStats_ByNamespace(t *testing.T) {
	s := NewMemoryStore(openTestDB(t))

	for _, in := range []StoreMemoryInput{
		{Key: "a", Value: 1, Namespace: "dev"},
		{Key: "b", Value: 2, Namespace: "dev"},
		{Key: "c", Value: 3, Namespace: "home"},
	} {
		_, err := s.StoreMemory(in)
		require.NoError(t, err)
	}

	stats, err := s.GetMemoryStats()
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByNamespace["dev"])
	assert.Equal(t, int64(1), stats.ByNamespace["home"])
}
