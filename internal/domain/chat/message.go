package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is one turn in a session. Seq is 1-based and dense per session;
// it doubles as the unit the watermarks are measured in.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_message_session_seq" json:"session_id"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_message_session_seq" json:"seq"`

	Role    string `gorm:"type:text;not null" json:"role"`
	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (Message) TableName() string { return "message" }
