package memory

import (
	"context"

	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// TopicDetector gates memory extraction: extraction is only worth running
// when the conversation has moved to a different domain.
type TopicDetector struct {
	llm LLM
	log *logger.Logger
}

func NewTopicDetector(llm LLM, baseLog *logger.Logger) *TopicDetector {
	return &TopicDetector{
		llm: llm,
		log: baseLog.With("service", "TopicDetector"),
	}
}

var topicChangeSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"topic_changed": map[string]any{"type": "boolean"},
	},
	"required":             []string{"topic_changed"},
	"additionalProperties": false,
}

// Changed reports whether the window crosses a topic boundary. The gate
// fails closed: fewer than two messages or any model failure means false.
func (d *TopicDetector) Changed(ctx context.Context, window []Turn) bool {
	if len(window) < 2 {
		return false
	}
	obj, err := d.llm.GenerateJSON(ctx, topicChangePrompt, marshalTurns(window), "topic_change_detection", topicChangeSchema)
	if err != nil {
		d.log.Warn("Topic detection failed; assuming no change", "error", err)
		return false
	}
	var parsed struct {
		TopicChanged bool `json:"topic_changed"`
	}
	if dErr := decodeInto(obj, &parsed); dErr != nil {
		d.log.Warn("Topic detection output malformed; assuming no change", "error", dErr)
		return false
	}
	return parsed.TopicChanged
}
