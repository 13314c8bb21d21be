package memory_extract

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/recall-backend/internal/jobs/runtime"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
)

// Run processes the unprocessed window for the session named in the payload.
// The watermark only advances after the consolidation plan is fully applied,
// so a crash anywhere before that leaves the window eligible for redelivery.
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
		// Session deleted after dispatch; nothing left to process.
		jc.Succeed(map[string]any{"session_id": sessionID.String(), "skipped": "session gone"})
		return nil
	}

	fromSeq := session.LastMemoryProcessedAt
	toSeq := session.MessageCount
	// The dispatcher captured the watermark it decided on; do not outrun it,
	// the messages past it belong to a later evaluation.
	if target, ok := jc.PayloadInt64("target_watermark"); ok && target < toSeq {
		toSeq = target
	}
	if toSeq <= fromSeq {
		jc.Succeed(map[string]any{"session_id": sessionID.String(), "processed": 0})
		return nil
	}

	rows, err := p.sessions.MessagesBetween(dbc, sessionID, fromSeq, toSeq)
	if err != nil {
		return fmt.Errorf("load window: %w", err)
	}
	window := make([]memory.Turn, 0, len(rows))
	for _, m := range rows {
		window = append(window, memory.Turn{Role: m.Role, Content: m.Content})
	}

	candidates, err := p.extractor.Extract(jc.Ctx, window)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}

	written := 0
	if len(candidates) > 0 {
		existing, knownIDs, err := p.similarExisting(dbc, session.UserID, candidates)
		if err != nil {
			return fmt.Errorf("load existing: %w", err)
		}
		plan, err := p.consolidator.Plan(jc.Ctx, session.UserID, existing, candidates)
		if err != nil {
			return fmt.Errorf("consolidate: %w", err)
		}
		if err := p.store.Apply(dbc, session.UserID, plan, knownIDs); err != nil {
			return fmt.Errorf("apply plan: %w", err)
		}
		written = len(plan)
	}

	advanced, err := p.sessions.AdvanceMemoryWatermark(dbc, sessionID, toSeq)
	if err != nil {
		return fmt.Errorf("advance watermark: %w", err)
	}
	if !advanced {
		p.log.Debug("Memory watermark already past target", "session_id", sessionID, "target", toSeq)
	}

	if p.kgraph != nil {
		p.kgraph.SaveChatHistory(jc.Ctx, session.UserID, sessionID.String(), window)
	}

	jc.Succeed(map[string]any{
		"session_id": sessionID.String(),
		"processed":  toSeq - fromSeq,
		"written":    written,
		"to_seq":     toSeq,
	})
	return nil
}

// similarExisting gathers the stored memories most similar to each candidate
// so the consolidator sees everything it might need to supersede. The id set
// of what was actually fetched tells the store which plan entries are
// updates rather than inserts.
func (p *Pipeline) similarExisting(dbc dbctx.Context, userID string, candidates []memory.Record) ([]memory.Record, map[string]bool, error) {
	seen := map[string]bool{}
	var existing []memory.Record
	for _, cand := range candidates {
		// k = 0 defers to the retriever's configured search limit.
		results, err := p.retriever.Retrieve(dbc, userID, cand.Content, 0)
		if err != nil {
			return nil, nil, err
		}
		for _, res := range results {
			id := res.Memory.ID.String()
			if seen[id] {
				continue
			}
			seen[id] = true
			existing = append(existing, memory.RecordFromMemory(res.Memory))
		}
	}
	return existing, seen, nil
}
