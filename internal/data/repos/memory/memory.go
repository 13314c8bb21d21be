package memory

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recall-backend/internal/data/repos"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

type MemoryRepo interface {
	Insert(dbc dbctx.Context, mem *types.Memory) error
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Memory, error)
	GetByIDs(dbc dbctx.Context, userID string, ids []uuid.UUID) ([]*types.Memory, error)
	ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.Memory, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	DeleteAllByUser(dbc dbctx.Context, userID string) ([]uuid.UUID, error)
}

type memoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
	return &memoryRepo{
		db:  db,
		log: baseLog.With("repo", "MemoryRepo"),
	}
}

func (r *memoryRepo) handle(dbc dbctx.Context) *gorm.DB {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx)
}

// Insert fails with repos.ErrConflict when the id already exists; the write
// path relies on this to stay idempotent under job redelivery.
func (r *memoryRepo) Insert(dbc dbctx.Context, mem *types.Memory) error {
	if mem == nil {
		return nil
	}
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if err := r.handle(dbc).Create(mem).Error; err != nil {
		if repos.IsUniqueViolation(err) {
			return repos.ErrConflict
		}
		return err
	}
	return nil
}

func (r *memoryRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.Memory, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var mem types.Memory
	err := r.handle(dbc).
		Where("id = ?", id).
		Limit(1).
		Find(&mem).Error
	if err != nil {
		return nil, err
	}
	if mem.ID == uuid.Nil {
		return nil, nil
	}
	return &mem, nil
}

func (r *memoryRepo) GetByIDs(dbc dbctx.Context, userID string, ids []uuid.UUID) ([]*types.Memory, error) {
	var out []*types.Memory
	if len(ids) == 0 {
		return out, nil
	}
	q := r.handle(dbc).Where("id IN ?", ids)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memoryRepo) ListByUser(dbc dbctx.Context, userID string, limit int) ([]*types.Memory, error) {
	var out []*types.Memory
	if userID == "" {
		return out, nil
	}
	q := r.handle(dbc).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields patches the named columns and bumps updated_at. Missing rows
// surface as repos.ErrNotFound.
func (r *memoryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return repos.ErrNotFound
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := r.handle(dbc).
		Model(&types.Memory{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repos.ErrNotFound
	}
	return nil
}

func (r *memoryRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := r.handle(dbc).
		Where("id = ?", id).
		Delete(&types.Memory{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteAllByUser removes every row for the user and returns the deleted ids
// so the caller can clear the ANN index too.
func (r *memoryRepo) DeleteAllByUser(dbc dbctx.Context, userID string) ([]uuid.UUID, error) {
	if userID == "" {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.handle(dbc).Transaction(func(txx *gorm.DB) error {
		if err := txx.Model(&types.Memory{}).
			Where("user_id = ?", userID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return txx.Where("user_id = ?", userID).Delete(&types.Memory{}).Error
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
