package chat

import (
	"time"

	"github.com/google/uuid"
)

// Session tracks one conversation plus the two processing watermarks.
// MessageCount and the watermarks are message indices: a watermark of N means
// the first N messages have been consumed by that pipeline.
type Session struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID string    `gorm:"type:text;not null;index" json:"user_id"`

	Title string `gorm:"type:text;not null;default:''" json:"title"`

	MessageCount           int64 `gorm:"not null;default:0" json:"message_count"`
	LastMemoryProcessedAt  int64 `gorm:"column:last_memory_processed_at;not null;default:0" json:"last_memory_processed_at"`
	LastSummaryGeneratedAt int64 `gorm:"column:last_summary_generated_at;not null;default:0" json:"last_summary_generated_at"`

	// Current rolling summary, denormalized from the latest session_summary row.
	Summary *string `gorm:"type:text" json:"summary,omitempty"`

	CreatedAt    time.Time `gorm:"not null;default:now();index" json:"created_at"`
	LastActivity time.Time `gorm:"column:last_activity;not null;default:now();index" json:"last_activity"`
}

func (Session) TableName() string { return "session" }
