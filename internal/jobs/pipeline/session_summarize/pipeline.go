package session_summarize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrt "github.com/yungbote/recall-backend/internal/jobs/runtime"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/vector"
)

// Run folds the unsummarized window into the session summary. The watermark
// CAS makes redelivery harmless: a second run either sees an empty window or
// loses the CAS and walks away.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	sessionID, ok := jc.PayloadUUID("session_id")
	if !ok || sessionID == uuid.Nil {
		return fmt.Errorf("missing session_id")
	}
	dbc := dbctx.Context{Ctx: jc.Ctx}

	session, err := p.sessions.Get(dbc, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		jc.Succeed(map[string]any{"session_id": sessionID.String(), "skipped": "session gone"})
		return nil
	}

	fromSeq := session.LastSummaryGeneratedAt
	toSeq := session.MessageCount
	if target, ok := jc.PayloadInt64("target_watermark"); ok && target < toSeq {
		toSeq = target
	}
	if toSeq <= fromSeq {
		jc.Succeed(map[string]any{"session_id": sessionID.String(), "summarized": 0})
		return nil
	}

	// The summary folds in the most recent slice of the transcript rather
	// than the full unsummarized span; the previous summary already covers
	// everything older.
	rows, err := p.sessions.RecentMessages(dbc, sessionID, p.messageLimit)
	if err != nil {
		return fmt.Errorf("load window: %w", err)
	}
	window := make([]memory.Turn, 0, len(rows))
	for _, m := range rows {
		window = append(window, memory.Turn{Role: m.Role, Content: m.Content})
	}

	existing := ""
	if session.Summary != nil {
		existing = *session.Summary
	}
	summary, err := p.summarizer.Summarize(jc.Ctx, existing, window)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	if strings.TrimSpace(summary) == "" {
		jc.Succeed(map[string]any{"session_id": sessionID.String(), "summarized": 0})
		return nil
	}

	embeddings, err := p.embedder.Embed(jc.Ctx, []string{summary})
	if err != nil {
		return fmt.Errorf("embed summary: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("embed summary: empty result")
	}
	embJSON, err := json.Marshal(embeddings[0])
	if err != nil {
		return fmt.Errorf("encode embedding: %w", err)
	}

	advanced, err := p.sessions.AdvanceSummaryWatermark(dbc, sessionID, toSeq, summary, datatypes.JSON(embJSON))
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	if advanced && p.index != nil {
		if err := p.index.Upsert(jc.Ctx, SummariesNamespace, []vector.Vector{{
			ID:     sessionID.String(),
			Values: embeddings[0],
			Metadata: map[string]any{
				"user_id":    session.UserID,
				"session_id": sessionID.String(),
			},
		}}); err != nil {
			// Postgres already holds the summary; the vector mirror can
			// catch up on the next summarize pass.
			p.log.Warn("Summary vector upsert failed", "session_id", sessionID, "error", err)
		}
	}

	jc.Succeed(map[string]any{
		"session_id": sessionID.String(),
		"summarized": toSeq - fromSeq,
		"to_seq":     toSeq,
		"advanced":   advanced,
	})
	return nil
}
