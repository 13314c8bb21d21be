package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/apierr"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/platform/openai"
)

// ChatRequest is one user turn. A nil SessionID starts a new session.
type ChatRequest struct {
	UserID    string
	SessionID *uuid.UUID
	Message   string
}

// ChatResult carries everything a response surface needs, for both the
// batch and streaming paths.
type ChatResult struct {
	Session        *types.Session
	SessionCreated bool
	UserMessage    *types.Message
	Assistant      *types.Message
	MemoriesUsed   []*types.Memory
}

// ChatService runs the RAG turn: retrieve memories, assemble context,
// generate, persist both messages, then let the lifecycle coordinator decide
// on background work.
type ChatService interface {
	Chat(dbc dbctx.Context, req ChatRequest) (*ChatResult, error)
	// ChatStream invokes onSession once the session is resolved (before any
	// content) and onDelta for each generated text fragment. When
	// generation dies mid-stream the partial assistant text is still
	// persisted and returned alongside the error.
	ChatStream(dbc dbctx.Context, req ChatRequest, onSession func(session *types.Session, created bool), onDelta func(delta string)) (*ChatResult, error)
}

type chatService struct {
	db        *gorm.DB
	log       *logger.Logger
	sessions  chatrepo.SessionRepo
	sessionSv SessionService
	retriever *memory.Retriever
	ai        openai.Client
	lifecycle *Lifecycle

	historyLimit int
}

func NewChatService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions chatrepo.SessionRepo,
	sessionSv SessionService,
	retriever *memory.Retriever,
	ai openai.Client,
	lifecycle *Lifecycle,
	historyLimit int,
) ChatService {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &chatService{
		db:           db,
		log:          baseLog.With("service", "ChatService"),
		sessions:     sessions,
		sessionSv:    sessionSv,
		retriever:    retriever,
		ai:           ai,
		lifecycle:    lifecycle,
		historyLimit: historyLimit,
	}
}

type preparedTurn struct {
	session        *types.Session
	sessionCreated bool
	message        string
	memories       []*types.Memory
	system         string
}

// prepare resolves the session and assembles the generation context. Nothing
// is persisted yet; both turns land together in finish, so a failed
// generation leaves the transcript untouched and the in-flight message never
// appears inside its own context window. Retrieval happens once; the same
// memories feed the prompt and the response metadata.
func (s *chatService) prepare(dbc dbctx.Context, req ChatRequest) (*preparedTurn, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_message", fmt.Errorf("message required"))
	}
	if req.UserID == "" {
		return nil, apierr.New(http.StatusBadRequest, "missing_user_id", fmt.Errorf("user_id required"))
	}

	var session *types.Session
	created := false
	if req.SessionID == nil || *req.SessionID == uuid.Nil {
		now := time.Now()
		title := TitleFromMessage(message)
		if title == "" {
			title = DefaultTitle(now)
		}
		session = &types.Session{
			ID:           uuid.New(),
			UserID:       req.UserID,
			Title:        title,
			CreatedAt:    now,
			LastActivity: now,
		}
		if err := s.sessions.Create(dbc, session); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
		created = true
	} else {
		var err error
		session, err = s.sessionSv.GetOwned(dbc, req.UserID, *req.SessionID)
		if err != nil {
			return nil, err
		}
	}

	memories, err := s.retriever.RetrieveMemories(dbc, req.UserID, message, 0)
	if err != nil {
		// Retrieval is an enrichment; a degraded turn beats a failed one.
		s.log.Warn("Memory retrieval failed; answering without memories", "session_id", session.ID, "error", err)
		memories = nil
	}

	history, err := s.sessions.RecentMessages(dbc, session.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	summary := ""
	if session.Summary != nil {
		summary = *session.Summary
	}

	return &preparedTurn{
		session:        session,
		sessionCreated: created,
		message:        message,
		memories:       memories,
		system:         buildSystemContext(memories, summary, history),
	}, nil
}

// buildSystemContext lays the retrieved memories, the rolling summary and
// the recent history into the system prompt. Sections are always present so
// the model sees a stable frame even when they are empty.
func buildSystemContext(memories []*types.Memory, summary string, history []*types.Message) string {
	var b strings.Builder
	b.WriteString(memory.ChatSystemPrompt)

	b.WriteString("\nMEMORIES: ")
	if len(memories) > 0 {
		lines := make([]string, 0, len(memories))
		for _, m := range memories {
			lines = append(lines, "- "+m.Content)
		}
		b.WriteString("\n" + strings.Join(lines, "\n"))
	}

	b.WriteString("\nSUMMARY: ")
	b.WriteString(summary)

	b.WriteString("\nSESSION CONTEXT: ")
	if len(history) > 0 {
		turns := make([]memory.Turn, 0, len(history))
		for _, m := range history {
			turns = append(turns, memory.Turn{Role: m.Role, Content: m.Content})
		}
		if raw, err := json.Marshal(turns); err == nil {
			b.WriteString(string(raw))
		}
	}
	return b.String()
}

// finish persists both turns and hands them to the lifecycle coordinator.
// Coordinator errors are logged, never surfaced; the user already has their
// answer.
func (s *chatService) finish(dbc dbctx.Context, prep *preparedTurn, assistantText string) (*ChatResult, error) {
	userMsg, err := s.sessions.AppendMessage(dbc, prep.session.ID, types.RoleUser, prep.message, time.Now())
	if err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	assistant, err := s.sessions.AppendMessage(dbc, prep.session.ID, types.RoleAssistant, assistantText, time.Now())
	if err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}

	if s.lifecycle != nil {
		if res, lErr := s.lifecycle.OnTurn(dbc, prep.session.UserID, prep.session.ID); lErr != nil {
			s.log.Warn("Turn lifecycle failed", "session_id", prep.session.ID, "error", lErr)
		} else {
			s.log.Debug("Turn lifecycle evaluated",
				"session_id", prep.session.ID,
				"memory", string(res.Memory),
				"summary", string(res.Summary),
			)
		}
	}

	return &ChatResult{
		Session:        prep.session,
		SessionCreated: prep.sessionCreated,
		UserMessage:    userMsg,
		Assistant:      assistant,
		MemoriesUsed:   prep.memories,
	}, nil
}

func (s *chatService) Chat(dbc dbctx.Context, req ChatRequest) (*ChatResult, error) {
	prep, err := s.prepare(dbc, req)
	if err != nil {
		return nil, err
	}
	text, err := s.ai.GenerateText(dbc.Ctx, prep.system, req.Message)
	if err != nil {
		return nil, apierr.New(http.StatusBadGateway, "generation_failed", err)
	}
	return s.finish(dbc, prep, text)
}

func (s *chatService) ChatStream(dbc dbctx.Context, req ChatRequest, onSession func(session *types.Session, created bool), onDelta func(delta string)) (*ChatResult, error) {
	prep, err := s.prepare(dbc, req)
	if err != nil {
		return nil, err
	}
	if onSession != nil {
		onSession(prep.session, prep.sessionCreated)
	}
	text, streamErr := s.ai.StreamText(dbc.Ctx, prep.system, req.Message, onDelta)
	if streamErr != nil && strings.TrimSpace(text) == "" {
		return nil, apierr.New(http.StatusBadGateway, "generation_failed", streamErr)
	}

	// Keep whatever was generated before the stream died so the session
	// transcript matches what the client saw.
	result, err := s.finish(dbctx.Context{Ctx: withoutCancel(dbc.Ctx), Tx: dbc.Tx}, prep, text)
	if err != nil {
		return nil, err
	}
	if streamErr != nil {
		return result, apierr.New(http.StatusBadGateway, "generation_interrupted", streamErr)
	}
	return result, nil
}

// withoutCancel detaches the persistence of a partial turn from the client
// connection that just went away.
func withoutCancel(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
