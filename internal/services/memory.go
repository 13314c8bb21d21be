package services

import (
	"fmt"
	"net/http"

	"gorm.io/gorm"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/apierr"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// MemoryService is the user-facing surface over stored memories.
type MemoryService interface {
	List(dbc dbctx.Context, userID string, limit int) ([]*types.Memory, error)
	DeleteAll(dbc dbctx.Context, userID string) (int, error)
}

type memoryService struct {
	db    *gorm.DB
	log   *logger.Logger
	store *memory.Store
}

func NewMemoryService(db *gorm.DB, baseLog *logger.Logger, store *memory.Store) MemoryService {
	return &memoryService{
		db:    db,
		log:   baseLog.With("service", "MemoryService"),
		store: store,
	}
}

func (s *memoryService) List(dbc dbctx.Context, userID string, limit int) ([]*types.Memory, error) {
	if userID == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
	}
	return s.store.List(dbc, userID, limit)
}

func (s *memoryService) DeleteAll(dbc dbctx.Context, userID string) (int, error) {
	if userID == "" {
		return 0, apierr.New(http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
	}
	n, err := s.store.DeleteAll(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("delete memories: %w", err)
	}
	s.log.Info("Memories purged", "user_id", userID, "count", n)
	return n, nil
}
