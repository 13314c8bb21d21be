package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// Consolidator reconciles freshly extracted candidates against the user's
// existing memories and emits the write plan: inserts, updates and
// tombstones.
type Consolidator struct {
	llm LLM
	log *logger.Logger
}

func NewConsolidator(llm LLM, baseLog *logger.Logger) *Consolidator {
	return &Consolidator{
		llm: llm,
		log: baseLog.With("service", "MemoryConsolidator"),
	}
}

var consolidationSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"memories": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":      map[string]any{"type": "string"},
					"user_id": map[string]any{"type": "string"},
					"content": map[string]any{"type": "string"},
					"memory_attributes": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type":   map[string]any{"type": "string"},
							"status": map[string]any{"type": "string", "enum": []string{types.MemoryStatusActive, types.MemoryStatusOutdated}},
						},
						"required":             []string{"type", "status"},
						"additionalProperties": false,
					},
				},
				"required":             []string{"id", "user_id", "content", "memory_attributes"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"memories"},
	"additionalProperties": false,
}

// Plan produces the consolidation plan. Candidates must already carry fresh
// ids and active status. With no existing memories the candidates pass
// through unchanged and the model is not consulted.
func (c *Consolidator) Plan(ctx context.Context, userID string, existing []Record, candidates []Record) ([]Record, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	for i := range candidates {
		if strings.TrimSpace(candidates[i].ID) == "" {
			candidates[i].ID = uuid.NewString()
		}
		if candidates[i].Attributes.Status == "" {
			candidates[i].Attributes.Status = types.MemoryStatusActive
		}
		candidates[i].UserID = userID
	}
	if len(existing) == 0 {
		return candidates, nil
	}

	user := fmt.Sprintf("Existing memories: %s\nNew memories: %s",
		marshalRecords(existing), marshalRecords(candidates))

	obj, err := c.llm.GenerateJSON(ctx, consolidationPrompt, user, "memory_consolidation", consolidationSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Memories []Record `json:"memories"`
	}
	if dErr := decodeInto(obj, &parsed); dErr != nil {
		c.log.Warn("Consolidation output malformed; treating as no-op", "error", dErr)
		return nil, nil
	}

	out := make([]Record, 0, len(parsed.Memories))
	for _, m := range parsed.Memories {
		if strings.TrimSpace(m.ID) == "" || strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Attributes.Status != types.MemoryStatusOutdated {
			m.Attributes.Status = types.MemoryStatusActive
		}
		if strings.TrimSpace(m.Attributes.Type) == "" {
			m.Attributes.Type = types.MemoryTypeFact
		}
		m.UserID = userID
		out = append(out, m)
	}
	return out, nil
}
