package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, session *types.Session) error
	Get(dbc dbctx.Context, sessionID uuid.UUID) (*types.Session, error)
	ListByUser(dbc dbctx.Context, userID string) ([]*types.Session, error)
	UpdateTitle(dbc dbctx.Context, sessionID uuid.UUID, title string) (bool, error)
	Delete(dbc dbctx.Context, sessionID uuid.UUID) (bool, error)

	AppendMessage(dbc dbctx.Context, sessionID uuid.UUID, role, content string, at time.Time) (*types.Message, error)
	Messages(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Message, error)
	MessagesBetween(dbc dbctx.Context, sessionID uuid.UUID, fromSeq, toSeq int64) ([]*types.Message, error)
	RecentMessages(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.Message, error)

	AdvanceMemoryWatermark(dbc dbctx.Context, sessionID uuid.UUID, target int64) (bool, error)
	AdvanceSummaryWatermark(dbc dbctx.Context, sessionID uuid.UUID, target int64, content string, embedding datatypes.JSON) (bool, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

func (r *sessionRepo) Create(dbc dbctx.Context, session *types.Session) error {
	if session == nil {
		return nil
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.handle(dbc).Create(session).Error
}

func (r *sessionRepo) Get(dbc dbctx.Context, sessionID uuid.UUID) (*types.Session, error) {
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var session types.Session
	err := r.handle(dbc).
		Where("id = ?", sessionID).
		Limit(1).
		Find(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == uuid.Nil {
		return nil, nil
	}
	return &session, nil
}

func (r *sessionRepo) ListByUser(dbc dbctx.Context, userID string) ([]*types.Session, error) {
	var out []*types.Session
	if userID == "" {
		return out, nil
	}
	err := r.handle(dbc).
		Where("user_id = ?", userID).
		Order("last_activity DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) UpdateTitle(dbc dbctx.Context, sessionID uuid.UUID, title string) (bool, error) {
	if sessionID == uuid.Nil {
		return false, nil
	}
	res := r.handle(dbc).
		Model(&types.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"title":         title,
			"last_activity": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *sessionRepo) Delete(dbc dbctx.Context, sessionID uuid.UUID) (bool, error) {
	if sessionID == uuid.Nil {
		return false, nil
	}
	res := r.handle(dbc).
		Where("id = ?", sessionID).
		Delete(&types.Session{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AppendMessage assigns the next dense sequence number under a row lock so
// concurrent turns on one session cannot collide or leave gaps.
func (r *sessionRepo) AppendMessage(dbc dbctx.Context, sessionID uuid.UUID, role, content string, at time.Time) (*types.Message, error) {
	if sessionID == uuid.Nil {
		return nil, gorm.ErrRecordNotFound
	}
	if at.IsZero() {
		at = time.Now()
	}
	var msg *types.Message
	err := r.handle(dbc).Transaction(func(txx *gorm.DB) error {
		var session types.Session
		qErr := txx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", sessionID).
			First(&session).Error
		if qErr != nil {
			return qErr
		}

		seq := session.MessageCount + 1
		m := &types.Message{
			ID:        uuid.New(),
			SessionID: sessionID,
			Seq:       seq,
			Role:      role,
			Content:   content,
			CreatedAt: at,
		}
		if cErr := txx.Create(m).Error; cErr != nil {
			return cErr
		}

		uErr := txx.Model(&types.Session{}).
			Where("id = ?", sessionID).
			Updates(map[string]interface{}{
				"message_count": seq,
				"last_activity": at,
			}).Error
		if uErr != nil {
			return uErr
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *sessionRepo) Messages(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Message, error) {
	var out []*types.Message
	if sessionID == uuid.Nil {
		return out, nil
	}
	err := r.handle(dbc).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MessagesBetween returns messages with fromSeq < seq <= toSeq in order.
func (r *sessionRepo) MessagesBetween(dbc dbctx.Context, sessionID uuid.UUID, fromSeq, toSeq int64) ([]*types.Message, error) {
	var out []*types.Message
	if sessionID == uuid.Nil || toSeq <= fromSeq {
		return out, nil
	}
	err := r.handle(dbc).
		Where("session_id = ? AND seq > ? AND seq <= ?", sessionID, fromSeq, toSeq).
		Order("seq ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) RecentMessages(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.Message, error) {
	var out []*types.Message
	if sessionID == uuid.Nil || limit <= 0 {
		return out, nil
	}
	err := r.handle(dbc).
		Where("session_id = ?", sessionID).
		Order("seq DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	// Flip back to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// AdvanceMemoryWatermark moves the extraction watermark forward. The guard
// keeps it monotonic: duplicate job deliveries and out-of-order completions
// are no-ops.
func (r *sessionRepo) AdvanceMemoryWatermark(dbc dbctx.Context, sessionID uuid.UUID, target int64) (bool, error) {
	if sessionID == uuid.Nil || target <= 0 {
		return false, nil
	}
	res := r.handle(dbc).
		Model(&types.Session{}).
		Where("id = ? AND last_memory_processed_at < ?", sessionID, target).
		Update("last_memory_processed_at", target)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// AdvanceSummaryWatermark stores the new summary and moves the summary
// watermark in one transaction, appending a session_summary history row only
// when the monotonic guard passed.
func (r *sessionRepo) AdvanceSummaryWatermark(dbc dbctx.Context, sessionID uuid.UUID, target int64, content string, embedding datatypes.JSON) (bool, error) {
	if sessionID == uuid.Nil || target <= 0 {
		return false, nil
	}
	advanced := false
	err := r.handle(dbc).Transaction(func(txx *gorm.DB) error {
		res := txx.Model(&types.Session{}).
			Where("id = ? AND last_summary_generated_at < ?", sessionID, target).
			Updates(map[string]interface{}{
				"summary":                   content,
				"last_summary_generated_at": target,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		row := &types.SessionSummary{
			ID:                     uuid.New(),
			SessionID:              sessionID,
			Content:                content,
			Embedding:              embedding,
			MessageCountAtCreation: target,
			CreatedAt:              time.Now(),
		}
		if cErr := txx.Create(row).Error; cErr != nil {
			return cErr
		}
		advanced = true
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return advanced, nil
}
