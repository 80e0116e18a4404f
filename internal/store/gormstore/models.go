package gormstore

import "time"

// SessionRecord is the mirrored copy of one assessment session. JSON columns hold the
// opaque parts (snapshot, module lists, symptom summary) as the backend shaped them.
type SessionRecord struct {
	SessionID          string    `gorm:"primaryKey;type:varchar(64)" json:"session_id"`
	Title              string    `gorm:"type:varchar(255);not null" json:"title"`
	Status             string    `gorm:"type:varchar(16);index;not null" json:"status"`
	ProgressPercentage float64   `gorm:"not null" json:"progress_percentage"`
	CurrentModule      *string   `gorm:"type:varchar(64)" json:"current_module"`
	NextModule         *string   `gorm:"type:varchar(64)" json:"next_module"`
	ModuleSequence     string    `gorm:"type:text" json:"-"`
	ModuleStatus       string    `gorm:"type:text" json:"-"`
	ModuleTimeline     *string   `gorm:"type:text" json:"-"`
	Snapshot           *string   `gorm:"type:text" json:"-"`
	SymptomSummary     *string   `gorm:"type:text" json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	MirroredAt         time.Time `gorm:"index" json:"mirrored_at"`
}

func (SessionRecord) TableName() string { return "assessment_sessions" }

type MessageRecord struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(64);not null;index:uniq_assessment_msg,unique,priority:1" json:"session_id"`
	MessageID string    `gorm:"type:varchar(64);not null;index:uniq_assessment_msg,unique,priority:2" json:"id"`
	Role      string    `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp string    `gorm:"type:varchar(64)" json:"timestamp"`
	Metadata  *string   `gorm:"type:text" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (MessageRecord) TableName() string { return "assessment_messages" }

// EventRecord is one lifecycle event as consumed by the worker.
type EventRecord struct {
	ID         string    `gorm:"primaryKey;size:26"` // ULID length
	Type       string    `gorm:"type:varchar(32);index;not null"`
	SessionID  string    `gorm:"type:varchar(64);index;not null"`
	Data       *string   `gorm:"type:text"`
	OccurredAt time.Time `gorm:"index"`
	CreatedAt  time.Time
}

func (EventRecord) TableName() string { return "assessment_events" }
