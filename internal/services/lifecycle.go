package services

import (
	"fmt"

	"github.com/google/uuid"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// Outcome describes what the coordinator decided for one concern after a
// turn.
type Outcome string

const (
	// OutcomeNoWork means the unprocessed window is empty.
	OutcomeNoWork Outcome = "no_work"
	// OutcomeNotReady means the window exists but has not crossed its
	// trigger yet.
	OutcomeNotReady Outcome = "not_ready"
	// OutcomeNoChange means the topic gate held the window back.
	OutcomeNoChange Outcome = "no_change"
	// OutcomeDispatched means a job was enqueued.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomePending means an equivalent job is already queued or running.
	OutcomePending Outcome = "pending"
)

// TurnResult reports both dispatch decisions for one completed turn.
type TurnResult struct {
	Memory  Outcome
	Summary Outcome
}

// Lifecycle decides, after every completed turn, whether to dispatch the
// extraction or summarization jobs. It reads the watermarks but never
// advances them; that is strictly worker territory.
type Lifecycle struct {
	log              *logger.Logger
	sessions         chatrepo.SessionRepo
	jobs             JobService
	topics           *memory.TopicDetector
	summaryThreshold int64
}

func NewLifecycle(baseLog *logger.Logger, sessions chatrepo.SessionRepo, jobs JobService, topics *memory.TopicDetector, summaryThreshold int64) *Lifecycle {
	if summaryThreshold <= 0 {
		summaryThreshold = 10
	}
	return &Lifecycle{
		log:              baseLog.With("service", "Lifecycle"),
		sessions:         sessions,
		jobs:             jobs,
		topics:           topics,
		summaryThreshold: summaryThreshold,
	}
}

// OnTurn runs after the assistant message has been persisted. Dispatch
// failures degrade to a skipped turn; the next turn re-evaluates the same
// window, so nothing is lost.
func (l *Lifecycle) OnTurn(dbc dbctx.Context, userID string, sessionID uuid.UUID) (TurnResult, error) {
	res := TurnResult{Memory: OutcomeNoWork, Summary: OutcomeNoWork}

	session, err := l.sessions.Get(dbc, sessionID)
	if err != nil {
		return res, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return res, nil
	}

	res.Memory = l.evalMemory(dbc, userID, session.ID, session.LastMemoryProcessedAt, session.MessageCount)

	// Summarization rides the same trigger: it is only considered once the
	// topic gate has opened for this window.
	if res.Memory == OutcomeDispatched || res.Memory == OutcomePending {
		res.Summary = l.evalSummary(dbc, userID, session.ID, session.LastSummaryGeneratedAt, session.MessageCount)
	} else {
		res.Summary = OutcomeNotReady
	}
	return res, nil
}

func (l *Lifecycle) evalMemory(dbc dbctx.Context, userID string, sessionID uuid.UUID, fromSeq, toSeq int64) Outcome {
	if toSeq <= fromSeq {
		return OutcomeNoWork
	}
	rows, err := l.sessions.MessagesBetween(dbc, sessionID, fromSeq, toSeq)
	if err != nil {
		l.log.Warn("Window load failed; skipping extraction this turn", "session_id", sessionID, "error", err)
		return OutcomeNotReady
	}
	window := make([]memory.Turn, 0, len(rows))
	for _, m := range rows {
		window = append(window, memory.Turn{Role: m.Role, Content: m.Content})
	}
	if len(window) < 2 {
		return OutcomeNotReady
	}
	if !l.topics.Changed(dbc.Ctx, window) {
		return OutcomeNoChange
	}

	_, created, err := l.jobs.EnqueueForSessionIfNeeded(dbc, userID, sessionID, "memory_extract", map[string]any{
		"target_watermark": toSeq,
	})
	if err != nil {
		l.log.Warn("Extraction dispatch failed", "session_id", sessionID, "error", err)
		return OutcomeNotReady
	}
	if !created {
		return OutcomePending
	}
	return OutcomeDispatched
}

func (l *Lifecycle) evalSummary(dbc dbctx.Context, userID string, sessionID uuid.UUID, fromSeq, toSeq int64) Outcome {
	if toSeq <= fromSeq {
		return OutcomeNoWork
	}
	if toSeq-fromSeq < l.summaryThreshold {
		return OutcomeNotReady
	}

	_, created, err := l.jobs.EnqueueForSessionIfNeeded(dbc, userID, sessionID, "session_summarize", map[string]any{
		"target_watermark": toSeq,
	})
	if err != nil {
		l.log.Warn("Summarize dispatch failed", "session_id", sessionID, "error", err)
		return OutcomeNotReady
	}
	if !created {
		return OutcomePending
	}
	return OutcomeDispatched
}
