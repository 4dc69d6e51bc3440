// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package store

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/praxis-labs/loom-mcp/internal/database"
)

var dateFormat = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// timestampLayouts are tried in order when a timestamp arrives as a string.
// Bare dates are interpreted as midnight UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimelineStore is the append-mostly log of timestamped events with lazy
// full-detail expansion.
type TimelineStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewTimelineStore creates a timeline store on the shared database handle
func NewTimelineStore(db *gorm.DB) *TimelineStore {
	return &TimelineStore{db: db, now: time.Now}
}

// StoreEventInput holds parameters for storing a timeline event. Timestamp
// accepts an integer of epoch milliseconds or a date/time string.
type StoreEventInput struct {
	Type      string
	Timestamp interface{}
	Namespace string
	Title     string
	Metadata  map[string]interface{}
}

// TimelineQuery holds parameters for querying a single day
type TimelineQuery struct {
	Date  string
	Type  string
	Limit int
}

// TimelineStats is the count breakdown computed over a returned event set
type TimelineStats struct {
	Total  int            `json:"total"`
	ByType map[string]int `json:"by_type"`
}

// TimelineResult bundles events with their stats
type TimelineResult struct {
	Events []database.TimelineEvent `json:"events"`
	Stats  TimelineStats            `json:"stats"`
}

// UpdateEventInput holds the partial updates for an event. Nil fields are
// left untouched.
type UpdateEventInput struct {
	Title     *string
	Namespace *string
	Metadata  map[string]interface{}
	Timestamp interface{}
}

// EventWithDetails is an event with its full payload attached when present
type EventWithDetails struct {
	database.TimelineEvent
	FullData map[string]interface{} `json:"full_data,omitempty"`
}

// TypeCount is an aggregate count for one event type
type TypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// TimelineSummary is the aggregate view of a single day
type TimelineSummary struct {
	Date   string           `json:"date"`
	Total  int64            `json:"total"`
	ByType map[string]int64 `json:"by_type"`
}

// NormalizeTimestamp converts an accepted timestamp value (integer epoch
// milliseconds or a date/time string) to epoch milliseconds.
func NormalizeTimestamp(v interface{}) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, NewValidationError("timestamp is required")
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, NewValidationError("timestamp is not a finite number")
		}
		return int64(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, NewValidationError("invalid timestamp: %s", t.String())
		}
		return NormalizeTimestamp(f)
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.ParseInLocation(layout, t, time.UTC); err == nil {
				return parsed.UnixMilli(), nil
			}
		}
		return 0, NewValidationError("invalid timestamp: %q", t)
	default:
		return 0, NewValidationError("timestamp must be an integer or a date/time string")
	}
}

// dateOf derives the UTC calendar date of an epoch-millisecond timestamp
func dateOf(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

func validateDate(date string) error {
	if !dateFormat.MatchString(date) {
		return NewValidationError("invalid date %q, expected YYYY-MM-DD", date)
	}
	return nil
}

// fullDataKeyFor derives the deterministic payload key for an event
func fullDataKeyFor(eventType, eventID string) string {
	return fmt.Sprintf("%s:%s:full", eventType, eventID)
}

// StoreEvent validates and inserts a new event, returning its id. The event
// starts without a full-detail payload.
func (s *TimelineStore) StoreEvent(in StoreEventInput) (string, error) {
	if strings.TrimSpace(in.Type) == "" {
		return "", NewValidationError("event type is required")
	}
	ts, err := NormalizeTimestamp(in.Timestamp)
	if err != nil {
		return "", err
	}
	metadata, err := database.EncodeDocument(in.Metadata)
	if err != nil {
		return "", NewValidationError("metadata is not serializable: %v", err)
	}

	now := s.now().UnixMilli()
	event := &database.TimelineEvent{
		ID:        ulid.Make().String(),
		Timestamp: ts,
		Date:      dateOf(ts),
		Type:      in.Type,
		Namespace: in.Namespace,
		Title:     in.Title,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.Create(event).Error; err != nil {
		return "", storageErr("store event", err)
	}
	return event.ID, nil
}

// GetEvent retrieves a single event by id
func (s *TimelineStore) GetEvent(id string) (*database.TimelineEvent, error) {
	var event database.TimelineEvent
	err := s.db.First(&event, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("event", id)
	}
	if err != nil {
		return nil, storageErr("get event", err)
	}
	return &event, nil
}

// GetTimeline returns the events of one calendar date ordered by ascending
// timestamp, plus a by-type breakdown of the returned set.
func (s *TimelineStore) GetTimeline(q TimelineQuery) (*TimelineResult, error) {
	if err := validateDate(q.Date); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 1000
	}

	tx := s.db.Where("date = ?", q.Date)
	if q.Type != "" {
		tx = tx.Where("type = ?", q.Type)
	}

	var events []database.TimelineEvent
	if err := tx.Order("timestamp ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, storageErr("get timeline", err)
	}
	return &TimelineResult{Events: events, Stats: statsFor(events)}, nil
}

// GetTimelineRange returns events with dates in the inclusive [start, end]
// range, ordered by ascending timestamp.
func (s *TimelineStore) GetTimelineRange(start, end, eventType string, limit int) (*TimelineResult, error) {
	if err := validateDate(start); err != nil {
		return nil, err
	}
	if err := validateDate(end); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10000
	}

	tx := s.db.Where("date BETWEEN ? AND ?", start, end)
	if eventType != "" {
		tx = tx.Where("type = ?", eventType)
	}

	var events []database.TimelineEvent
	if err := tx.Order("timestamp ASC").Limit(limit).Find(&events).Error; err != nil {
		return nil, storageErr("get timeline range", err)
	}
	return &TimelineResult{Events: events, Stats: statsFor(events)}, nil
}

// statsFor computes the count breakdown over a returned event set
func statsFor(events []database.TimelineEvent) TimelineStats {
	stats := TimelineStats{Total: len(events), ByType: make(map[string]int)}
	for _, e := range events {
		stats.ByType[e.Type]++
	}
	return stats
}

// ExpandEvent attaches (or replaces) the full-detail payload of an event.
// The payload row and the event's full_data_key are written in one
// transaction so the two never diverge. Returns the refreshed event.
func (s *TimelineStore) ExpandEvent(id string, fullData map[string]interface{}) (*database.TimelineEvent, error) {
	event, err := s.GetEvent(id)
	if err != nil {
		return nil, err
	}

	key := fullDataKeyFor(event.Type, event.ID)
	if event.FullDataKey != nil && *event.FullDataKey != "" {
		key = *event.FullDataKey
	}

	data, err := database.EncodeDocument(fullData)
	if err != nil {
		return nil, NewValidationError("full data is not serializable: %v", err)
	}

	now := s.now().UnixMilli()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		detail := &database.FullDetail{
			Key:        key,
			Data:       data,
			CreatedAt:  now,
			AccessedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"data": data}),
		}).Create(detail).Error; err != nil {
			return err
		}
		return tx.Model(&database.TimelineEvent{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"full_data_key": key, "updated_at": now}).Error
	})
	if err != nil {
		return nil, storageErr("expand event", err)
	}

	return s.GetEvent(id)
}

// GetFullDetails retrieves a full-detail payload by key. Reading bumps the
// row's accessed_at as a documented side effect.
func (s *TimelineStore) GetFullDetails(key string) (*database.FullDetail, error) {
	var detail database.FullDetail
	err := s.db.First(&detail, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return nil, NewNotFoundError("full details", key)
	}
	if err != nil {
		return nil, storageErr("get full details", err)
	}

	now := s.now().UnixMilli()
	if err := s.db.Model(&detail).Update("accessed_at", now).Error; err != nil {
		return nil, storageErr("get full details", err)
	}
	detail.AccessedAt = now
	return &detail, nil
}

// GetEventWithFullDetails loads an event and attaches its full payload when
// one is referenced. A referenced but missing payload degrades to the bare
// event instead of failing the read.
func (s *TimelineStore) GetEventWithFullDetails(id string) (*EventWithDetails, error) {
	event, err := s.GetEvent(id)
	if err != nil {
		return nil, err
	}

	result := &EventWithDetails{TimelineEvent: *event}
	if event.FullDataKey == nil || *event.FullDataKey == "" {
		return result, nil
	}

	detail, err := s.GetFullDetails(*event.FullDataKey)
	if err != nil {
		if IsNotFound(err) {
			return result, nil
		}
		return nil, err
	}

	data, err := detail.DataMap()
	if err != nil {
		return nil, storageErr("decode full details", err)
	}
	result.FullData = data
	return result, nil
}

// UpdateEvent applies partial updates to an event. Updating the timestamp
// recomputes the stored date; an empty update returns the event unchanged.
func (s *TimelineStore) UpdateEvent(id string, in UpdateEventInput) (*database.TimelineEvent, error) {
	event, err := s.GetEvent(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Title != nil {
		updates["title"] = *in.Title
	}
	if in.Namespace != nil {
		updates["namespace"] = *in.Namespace
	}
	if in.Metadata != nil {
		metadata, err := database.EncodeDocument(in.Metadata)
		if err != nil {
			return nil, NewValidationError("metadata is not serializable: %v", err)
		}
		updates["metadata"] = metadata
	}
	if in.Timestamp != nil {
		ts, err := NormalizeTimestamp(in.Timestamp)
		if err != nil {
			return nil, err
		}
		updates["timestamp"] = ts
		updates["date"] = dateOf(ts)
	}

	if len(updates) == 0 {
		return event, nil
	}
	updates["updated_at"] = s.now().UnixMilli()

	if err := s.db.Model(&database.TimelineEvent{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, storageErr("update event", err)
	}
	return s.GetEvent(id)
}

// DeleteEvent removes an event and its full-detail payload (if any) in one
// transaction.
func (s *TimelineStore) DeleteEvent(id string) error {
	event, err := s.GetEvent(id)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if event.FullDataKey != nil && *event.FullDataKey != "" {
			if err := tx.Delete(&database.FullDetail{}, "key = ?", *event.FullDataKey).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&database.TimelineEvent{}, "id = ?", id).Error
	})
	return storageErr("delete event", err)
}

// GetTimelineSummary returns per-type counts for one calendar date without
// materializing events.
func (s *TimelineStore) GetTimelineSummary(date string) (*TimelineSummary, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	var rows []TypeCount
	err := s.db.Model(&database.TimelineEvent{}).
		Select("type, COUNT(*) AS count").
		Where("date = ?", date).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get timeline summary", err)
	}

	summary := &TimelineSummary{Date: date, ByType: make(map[string]int64)}
	for _, row := range rows {
		summary.ByType[row.Type] = row.Count
		summary.Total += row.Count
	}
	return summary, nil
}

// GetEventTypes returns the distinct event types with their total counts
func (s *TimelineStore) GetEventTypes() ([]TypeCount, error) {
	var rows []TypeCount
	err := s.db.Model(&database.TimelineEvent{}).
		Select("type, COUNT(*) AS count").
		Group("type").
		Order("count DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, storageErr("get event types", err)
	}
	return rows, nil
}
