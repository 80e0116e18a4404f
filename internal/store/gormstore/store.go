package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/suPer8Hu/assessment-client/internal/assessment"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the mirror database. driver is "sqlite" or "mysql".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = gormsqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported mirror driver: %s", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("open %s mirror: %w", driver, err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&SessionRecord{}, &MessageRecord{}, &EventRecord{})
}

// Store mirrors sessions and messages into a relational database and keeps the event log.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveSession(ctx context.Context, sess assessment.Session) error {
	rec, err := toSessionRecord(sess)
	if err != nil {
		return err
	}
	rec.MirroredAt = s.now().UTC()
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// SaveMessages replaces the mirrored history of sessionID.
func (s *Store) SaveMessages(ctx context.Context, sessionID string, msgs []assessment.Message) error {
	recs, err := toMessageRecords(sessionID, msgs)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}
		return tx.Create(&recs).Error
	})
}

// AppendMessages adds msgs; messages already mirrored (same id) are left alone.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, msgs ...assessment.Message) error {
	recs, err := toMessageRecords(sessionID, msgs)
	if err != nil || len(recs) == 0 {
		return err
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&recs).Error
}

func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", sessionID).Delete(&MessageRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("session_id = ?", sessionID).Delete(&SessionRecord{}).Error
	})
}

// ListSessions returns mirrored sessions, most recently mirrored first.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]assessment.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	var recs []SessionRecord
	if err := s.db.WithContext(ctx).
		Order("mirrored_at DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]assessment.Session, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.toSession())
	}
	return out, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (*assessment.Session, error) {
	var rec SessionRecord
	if err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, assessment.ErrNotFound
		}
		return nil, err
	}
	sess := rec.toSession()
	return &sess, nil
}

// Messages returns the mirrored history in the order it was written.
func (s *Store) Messages(ctx context.Context, sessionID string) ([]assessment.Message, error) {
	var recs []MessageRecord
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]assessment.Message, 0, len(recs))
	for _, r := range recs {
		m := assessment.Message{
			ID:        r.MessageID,
			Role:      assessment.Role(r.Role),
			Content:   r.Content,
			Timestamp: r.Timestamp,
			Metadata:  map[string]any{},
		}
		decodeJSON(r.Metadata, &m.Metadata)
		out = append(out, m)
	}
	return out, nil
}

func toSessionRecord(s assessment.Session) (*SessionRecord, error) {
	seq, err := json.Marshal(s.ModuleSequence)
	if err != nil {
		return nil, err
	}
	st, err := json.Marshal(s.ModuleStatus)
	if err != nil {
		return nil, err
	}
	rec := &SessionRecord{
		SessionID:          s.ID,
		Title:              s.Title,
		Status:             string(s.Status),
		ProgressPercentage: s.ProgressPercentage,
		CurrentModule:      s.CurrentModule,
		NextModule:         s.NextModule,
		ModuleSequence:     string(seq),
		ModuleStatus:       string(st),
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
	if rec.ModuleTimeline, err = encodeJSON(s.ModuleTimeline); err != nil {
		return nil, err
	}
	if s.ProgressSnapshot != nil {
		if rec.Snapshot, err = encodeJSON(s.ProgressSnapshot); err != nil {
			return nil, err
		}
	}
	if rec.SymptomSummary, err = encodeJSON(s.SymptomSummary); err != nil {
		return nil, err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}

func (r SessionRecord) toSession() assessment.Session {
	s := assessment.Session{
		ID:                 r.SessionID,
		Title:              r.Title,
		Status:             assessment.Status(r.Status),
		ProgressPercentage: r.ProgressPercentage,
		CurrentModule:      r.CurrentModule,
		NextModule:         r.NextModule,
		ModuleSequence:     []string{},
		ModuleStatus:       []assessment.ModuleStatus{},
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	_ = json.Unmarshal([]byte(r.ModuleSequence), &s.ModuleSequence)
	_ = json.Unmarshal([]byte(r.ModuleStatus), &s.ModuleStatus)
	decodeJSON(r.ModuleTimeline, &s.ModuleTimeline)
	decodeJSON(r.SymptomSummary, &s.SymptomSummary)
	if r.Snapshot != nil {
		var snap assessment.ProgressSnapshot
		if err := json.Unmarshal([]byte(*r.Snapshot), &snap); err == nil {
			s.ProgressSnapshot = &snap
		}
	}
	return s
}

func toMessageRecords(sessionID string, msgs []assessment.Message) ([]MessageRecord, error) {
	recs := make([]MessageRecord, 0, len(msgs))
	for _, m := range msgs {
		var meta *string
		if len(m.Metadata) > 0 {
			var err error
			if meta, err = encodeJSON(m.Metadata); err != nil {
				return nil, err
			}
		}
		recs = append(recs, MessageRecord{
			SessionID: sessionID,
			MessageID: m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Timestamp: m.Timestamp,
			Metadata:  meta,
		})
	}
	return recs, nil
}

// encodeJSON returns nil for nil values so the column stays NULL.
func encodeJSON(v any) (*string, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	s := string(b)
	return &s, nil
}

func decodeJSON(s *string, dest any) {
	if s == nil || *s == "" {
		return
	}
	_ = json.Unmarshal([]byte(*s), dest)
}
