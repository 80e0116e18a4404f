package gormstore

import (
	"context"

	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"gorm.io/gorm/clause"
)

// RecordEvent stores e once. Redelivered events with the same id are ignored, so the
// worker can ack after a crash-and-retry without duplicating rows.
func (s *Store) RecordEvent(ctx context.Context, e assessment.Event) error {
	data, err := encodeJSON(e.Data)
	if err != nil {
		return err
	}
	rec := EventRecord{
		ID:         e.ID,
		Type:       e.Type,
		SessionID:  e.SessionID,
		Data:       data,
		OccurredAt: e.At.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

// Events lists recorded events for a session, oldest first. An empty sessionID lists all.
func (s *Store) Events(ctx context.Context, sessionID string, limit int) ([]EventRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Order("occurred_at ASC").Order("id ASC").Limit(limit)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var out []EventRecord
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
