package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StatusActive   = "active"
	StatusOutdated = "outdated"

	TypeFact       = "fact"
	TypePreference = "preference"
	TypeEvent      = "event"
)

// Attributes is the closed attribute record carried by every memory.
type Attributes struct {
	Type   string `gorm:"column:mem_type;type:text;not null;default:'fact'" json:"type"`
	Status string `gorm:"column:status;type:text;not null;default:'active';index" json:"status"`
}

// Memory is one durable user fact. Postgres rows are the source of truth;
// the ANN index mirrors (id, embedding, {user_id, status}). Outdated rows are
// frozen tombstones and never surface in retrieval.
type Memory struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"type:text;not null;index" json:"user_id"`

	Content   string         `gorm:"type:text;not null" json:"content"`
	Embedding datatypes.JSON `gorm:"type:jsonb;not null;default:'[]'" json:"-"`

	Attributes Attributes `gorm:"embedded" json:"memory_attributes"`

	// Free-form attributes beyond the closed record.
	Extra datatypes.JSON `gorm:"type:jsonb;not null;default:'{}'" json:"extra,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now();index" json:"updated_at"`
}

func (Memory) TableName() string { return "memory" }
