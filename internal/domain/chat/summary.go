package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionSummary is the append-only summary history. The newest row per
// session is also denormalized onto Session.Summary.
type SessionSummary struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Content   string         `gorm:"type:text;not null" json:"content"`
	Embedding datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"-"`

	MessageCountAtCreation int64 `gorm:"column:message_count_at_creation;not null" json:"message_count_at_creation"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (SessionSummary) TableName() string { return "session_summary" }
