package memory

import (
	"context"
	"strings"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// Extractor pulls durable user facts out of a conversation window.
type Extractor struct {
	llm LLM
	log *logger.Logger
}

func NewExtractor(llm LLM, baseLog *logger.Logger) *Extractor {
	return &Extractor{
		llm: llm,
		log: baseLog.With("service", "MemoryExtractor"),
	}
}

var extractionSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"memories": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]any{"type": "string"},
					"memory_attributes": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"type": map[string]any{"type": "string"},
						},
						"required":             []string{"type"},
						"additionalProperties": false,
					},
				},
				"required":             []string{"content", "memory_attributes"},
				"additionalProperties": false,
			},
		},
	},
	"required":             []string{"memories"},
	"additionalProperties": false,
}

// Extract returns candidate memories from the window. System turns are
// dropped before prompting; small talk yields an empty result. A window with
// no user or assistant turns never reaches the model.
func (e *Extractor) Extract(ctx context.Context, window []Turn) ([]Record, error) {
	filtered := make([]Turn, 0, len(window))
	for _, t := range window {
		if t.Role == types.RoleSystem {
			continue
		}
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	obj, err := e.llm.GenerateJSON(ctx, factExtractionPrompt, marshalTurns(filtered), "memory_extraction", extractionSchema)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Memories []Record `json:"memories"`
	}
	if dErr := decodeInto(obj, &parsed); dErr != nil {
		// Malformed model output is not retryable; treat as an empty
		// extraction rather than failing the job.
		e.log.Warn("Extraction output malformed; treating as empty", "error", dErr)
		return nil, nil
	}

	out := make([]Record, 0, len(parsed.Memories))
	for _, m := range parsed.Memories {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if strings.TrimSpace(m.Attributes.Type) == "" {
			m.Attributes.Type = types.MemoryTypeFact
		}
		m.Content = content
		m.Attributes.Status = types.MemoryStatusActive
		out = append(out, m)
	}
	return out, nil
}
