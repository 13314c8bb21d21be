package services

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/apierr"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

const titleMaxRunes = 50

// ErrSessionNotFound covers both a missing session and a session owned by
// someone else; the two cases are indistinguishable to callers.
func errSessionNotFound() error {
	return apierr.New(http.StatusNotFound, "session_not_found", fmt.Errorf("session not found"))
}

type SessionService interface {
	Create(dbc dbctx.Context, userID string) (*types.Session, error)
	GetOwned(dbc dbctx.Context, userID string, sessionID uuid.UUID) (*types.Session, error)
	GetWithMessages(dbc dbctx.Context, userID string, sessionID uuid.UUID) (*types.Session, []*types.Message, error)
	List(dbc dbctx.Context, userID string) ([]*types.Session, error)
	Rename(dbc dbctx.Context, userID string, sessionID uuid.UUID, title string) (*types.Session, error)
	Delete(dbc dbctx.Context, userID string, sessionID uuid.UUID) error
}

type sessionService struct {
	db       *gorm.DB
	log      *logger.Logger
	sessions chatrepo.SessionRepo
}

func NewSessionService(db *gorm.DB, baseLog *logger.Logger, sessions chatrepo.SessionRepo) SessionService {
	return &sessionService{
		db:       db,
		log:      baseLog.With("service", "SessionService"),
		sessions: sessions,
	}
}

// DefaultTitle is the placeholder title until the first user message names
// the session.
func DefaultTitle(at time.Time) string {
	return "Session " + at.Format("Jan 2, 2006")
}

// TitleFromMessage derives a session title from the first user message.
func TitleFromMessage(content string) string {
	content = strings.Join(strings.Fields(content), " ")
	if content == "" {
		return ""
	}
	if utf8.RuneCountInString(content) <= titleMaxRunes {
		return content
	}
	runes := []rune(content)
	return string(runes[:titleMaxRunes]) + "…"
}

func (s *sessionService) Create(dbc dbctx.Context, userID string) (*types.Session, error) {
	if userID == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
	}
	now := time.Now()
	session := &types.Session{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        DefaultTitle(now),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := s.sessions.Create(dbc, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// GetOwned loads the session and enforces ownership.
func (s *sessionService) GetOwned(dbc dbctx.Context, userID string, sessionID uuid.UUID) (*types.Session, error) {
	session, err := s.sessions.Get(dbc, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil || session.UserID != userID {
		return nil, errSessionNotFound()
	}
	return session, nil
}

func (s *sessionService) GetWithMessages(dbc dbctx.Context, userID string, sessionID uuid.UUID) (*types.Session, []*types.Message, error) {
	session, err := s.GetOwned(dbc, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	messages, err := s.sessions.Messages(dbc, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load messages: %w", err)
	}
	return session, messages, nil
}

func (s *sessionService) List(dbc dbctx.Context, userID string) ([]*types.Session, error) {
	if userID == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
	}
	return s.sessions.ListByUser(dbc, userID)
}

func (s *sessionService) Rename(dbc dbctx.Context, userID string, sessionID uuid.UUID, title string) (*types.Session, error) {
	session, err := s.GetOwned(dbc, userID, sessionID)
	if err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_title", fmt.Errorf("title required"))
	}
	ok, err := s.sessions.UpdateTitle(dbc, sessionID, title)
	if err != nil {
		return nil, fmt.Errorf("rename session: %w", err)
	}
	if !ok {
		return nil, errSessionNotFound()
	}
	session.Title = title
	return session, nil
}

func (s *sessionService) Delete(dbc dbctx.Context, userID string, sessionID uuid.UUID) error {
	if _, err := s.GetOwned(dbc, userID, sessionID); err != nil {
		return err
	}
	ok, err := s.sessions.Delete(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !ok {
		return errSessionNotFound()
	}
	return nil
}
