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

func TestStoreEvent_DerivesDate(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC).UnixMilli()
	id, err := s.StoreEvent(StoreEventInput{
		Type:      "journal_entry",
		Timestamp: ts,
		Title:     "Morning reflection",
		Metadata:  map[string]interface{}{"mood": "good"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	event, err := s.GetEvent(id)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", event.Date)
	assert.Equal(t, ts, event.Timestamp)
	assert.Equal(t, "journal_entry", event.Type)
	assert.Nil(t, event.FullDataKey)

	metadata, err := event.MetadataMap()
	require.NoError(t, err)
	assert.Equal(t, "good", metadata["mood"])
}

func TestStoreEvent_TimestampForms(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	tests := []struct {
		name      string
		timestamp interface{}
		wantDate  string
		wantErr   bool
	}{
		{"epoch millis int64", int64(1710498600000), "2024-03-15", false},
		{"epoch millis float", float64(1710498600000), "2024-03-15", false},
		{"rfc3339 string", "2024-03-15T10:30:00Z", "2024-03-15", false},
		{"bare date string", "2024-03-15", "2024-03-15", false},
		{"space-separated string", "2024-03-15 10:30:00", "2024-03-15", false},
		{"missing", nil, "", true},
		{"garbage string", "not a time", "", true},
		{"wrong type", []string{"x"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: tt.timestamp})
			if tt.wantErr {
				assert.True(t, IsValidation(err), "expected validation error, got %v", err)
				return
			}
			require.NoError(t, err)

			event, err := s.GetEvent(id)
			require.NoError(t, err)
			assert.Equal(t, tt.wantDate, event.Date)
		})
	}
}

func TestStoreEvent_RequiresType(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	_, err := s.StoreEvent(StoreEventInput{Type: "  ", Timestamp: int64(1)})
	assert.True(t, IsValidation(err))
}

func TestGetEvent_NotFound(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	_, err := s.GetEvent("missing")
	assert.True(t, IsNotFound(err))
}

func TestGetTimeline(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	base := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)
	for i, eventType := range []string{"journal_entry", "task", "journal_entry"} {
		_, err := s.StoreEvent(StoreEventInput{
			Type:      eventType,
			Timestamp: base.Add(time.Duration(i) * time.Hour).UnixMilli(),
		})
		require.NoError(t, err)
	}
	// One event on a different day must not show up
	_, err := s.StoreEvent(StoreEventInput{Type: "task", Timestamp: "2024-03-16"})
	require.NoError(t, err)

	result, err := s.GetTimeline(TimelineQuery{Date: "2024-03-15"})
	require.NoError(t, err)
	require.Len(t, result.Events, 3)
	assert.Equal(t, 3, result.Stats.Total)
	assert.Equal(t, 2, result.Stats.ByType["journal_entry"])
	assert.Equal(t, 1, result.Stats.ByType["task"])

	// Ascending timestamp order
	for i := 1; i < len(result.Events); i++ {
		assert.LessOrEqual(t, result.Events[i-1].Timestamp, result.Events[i].Timestamp)
	}

	// Type filter narrows both events and stats
	filtered, err := s.GetTimeline(TimelineQuery{Date: "2024-03-15", Type: "task"})
	require.NoError(t, err)
	require.Len(t, filtered.Events, 1)
	assert.Equal(t, 1, filtered.Stats.Total)
}

func TestGetTimeline_InvalidDate(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	for _, date := range []string{"", "2024-3-15", "15/03/2024", "2024-03-15T00:00:00"} {
		_, err := s.GetTimeline(TimelineQuery{Date: date})
		assert.True(t, IsValidation(err), "date %q should be rejected", date)
	}
}

func TestGetTimelineRange_InclusiveBounds(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	for _, date := range []string{"2023-12-31", "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		_, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: date})
		require.NoError(t, err)
	}

	result, err := s.GetTimelineRange("2024-01-01", "2024-01-03", "", 0)
	require.NoError(t, err)
	require.Len(t, result.Events, 3)
	assert.Equal(t, "2024-01-01", result.Events[0].Date)
	assert.Equal(t, "2024-01-03", result.Events[2].Date)
}

func TestExpandEvent_RoundTrip(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	id, err := s.StoreEvent(StoreEventInput{Type: "journal_entry", Timestamp: "2024-03-15"})
	require.NoError(t, err)

	event, err := s.ExpandEvent(id, map[string]interface{}{"body": "long form text"})
	require.NoError(t, err)
	require.NotNil(t, event.FullDataKey)
	assert.Equal(t, "journal_entry:"+id+":full", *event.FullDataKey)

	detail, err := s.GetFullDetails(*event.FullDataKey)
	require.NoError(t, err)
	data, err := detail.DataMap()
	require.NoError(t, err)
	assert.Equal(t, "long form text", data["body"])

	// Re-expanding replaces the payload under the same key
	again, err := s.ExpandEvent(id, map[string]interface{}{"body": "revised"})
	require.NoError(t, err)
	assert.Equal(t, *event.FullDataKey, *again.FullDataKey)

	detail, err = s.GetFullDetails(*again.FullDataKey)
	require.NoError(t, err)
	data, err = detail.DataMap()
	require.NoError(t, err)
	assert.Equal(t, "revised", data["body"])
}

func TestExpandEvent_NotFound(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	_, err := s.ExpandEvent("missing", map[string]interface{}{"x": 1})
	assert.True(t, IsNotFound(err))
}

func TestGetFullDetails_BumpsAccessedAt(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: "2024-03-15"})
	require.NoError(t, err)
	event, err := s.ExpandEvent(id, map[string]interface{}{"x": "y"})
	require.NoError(t, err)

	later := time.Now().Add(5 * time.Minute)
	s.now = func() time.Time { return later }

	detail, err := s.GetFullDetails(*event.FullDataKey)
	require.NoError(t, err)
	assert.Equal(t, later.UnixMilli(), detail.AccessedAt)
}

func TestGetEventWithFullDetails(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: "2024-03-15"})
	require.NoError(t, err)

	// Without expansion: bare event, no payload
	got, err := s.GetEventWithFullDetails(id)
	require.NoError(t, err)
	assert.Nil(t, got.FullData)

	_, err = s.ExpandEvent(id, map[string]interface{}{"body": "details"})
	require.NoError(t, err)

	got, err = s.GetEventWithFullDetails(id)
	require.NoError(t, err)
	require.NotNil(t, got.FullData)
	assert.Equal(t, "details", got.FullData["body"])
}

func TestGetEventWithFullDetails_DegradesOnMissingPayload(t *testing.T) {
	db := openTestDB(t)
	s := NewTimelineStore(db)

	id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: "2024-03-15"})
	require.NoError(t, err)
	event, err := s.ExpandEvent(id, map[string]interface{}{"x": 1})
	require.NoError(t, err)

	// Simulate the inconsistent state of a dangling full_data_key
	require.NoError(t, db.Exec("DELETE FROM loom_full_details WHERE key = ?", *event.FullDataKey).Error)

	got, err := s.GetEventWithFullDetails(id)
	require.NoError(t, err)
	assert.Nil(t, got.FullData)
	assert.Equal(t, id, got.ID)
}

func TestUpdateEvent(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: "2024-03-15", Title: "before"})
	require.NoError(t, err)

	title := "after"
	event, err := s.UpdateEvent(id, UpdateEventInput{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "after", event.Title)
	assert.Equal(t, "2024-03-15", event.Date)

	// Updating the timestamp recomputes the date
	event, err = s.UpdateEvent(id, UpdateEventInput{Timestamp: "2024-04-01T12:00:00Z"})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", event.Date)

	// An empty update is a no-op returning the unchanged event
	unchanged, err := s.UpdateEvent(id, UpdateEventInput{})
	require.NoError(t, err)
	assert.Equal(t, event.UpdatedAt, unchanged.UpdatedAt)
	assert.Equal(t, "after", unchanged.Title)
}

func TestDeleteEvent_RemovesDetail(t *testing.T) {
	db := openTestDB(t)
	s := NewTimelineStore(db)

	id, err := s.StoreEvent(StoreEventInput{Type: "note", Timestamp: "2024-03-15"})
	require.NoError(t, err)
	event, err := s.ExpandEvent(id, map[string]interface{}{"x": 1})
	require.NoError(t, err)
	key := *event.FullDataKey

	require.NoError(t, s.DeleteEvent(id))

	_, err = s.GetEvent(id)
	assert.True(t, IsNotFound(err))
	_, err = s.GetFullDetails(key)
	assert.True(t, IsNotFound(err))

	// Deleting again reports NotFound
	err = s.DeleteEvent(id)
	assert.True(t, IsNotFound(err))
}

func TestGetTimelineSummaryAndEventTypes(t *testing.T) {
	s := NewTimelineStore(openTestDB(t))

	for _, eventType := range []string{"task", "task", "journal_entry"} {
		_, err := s.StoreEvent(StoreEventInput{Type: eventType, Timestamp: "2024-03-15"})
		require.NoError(t, err)
	}
	_, err := s.StoreEvent(StoreEventInput{Type: "task", Timestamp: "2024-03-16"})
	require.NoError(t, err)

	summary, err := s.GetTimelineSummary("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, int64(3), summary.Total)
	assert.Equal(t, int64(2), summary.ByType["task"])
	assert.Equal(t, int64(1), summary.ByType["journal_entry"])

	types, err := s.GetEventTypes()
	require.NoError(t, err)
	require.Len(t, types, 2)
	assert.Equal(t, "task", types[0].Type)
	assert.Equal(t, int64(3), types[0].Count)
}
