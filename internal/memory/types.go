package memory

import (
	"context"
	"encoding/json"

	types "github.com/yungbote/recall-backend/internal/domain"
)

// LLM is the generation surface the pipeline needs from the model client.
type LLM interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// Turn is one conversation message as the prompts see it.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Record is the prompt-facing memory shape shared by extraction output and
// consolidation input/output.
type Record struct {
	ID         string           `json:"id,omitempty"`
	UserID     string           `json:"user_id,omitempty"`
	Content    string           `json:"content"`
	Attributes RecordAttributes `json:"memory_attributes"`
}

type RecordAttributes struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
}

// RecordFromMemory projects a stored row into the prompt shape.
func RecordFromMemory(m *types.Memory) Record {
	if m == nil {
		return Record{}
	}
	return Record{
		ID:      m.ID.String(),
		UserID:  m.UserID,
		Content: m.Content,
		Attributes: RecordAttributes{
			Type:   m.Attributes.Type,
			Status: m.Attributes.Status,
		},
	}
}

func marshalTurns(window []Turn) string {
	b, err := json.Marshal(window)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func marshalRecords(records []Record) string {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeInto round-trips a structured-output map into a typed value.
func decodeInto(obj map[string]any, out any) error {
	b, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
