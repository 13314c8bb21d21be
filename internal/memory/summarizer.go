package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// Summarizer rolls the session history into a compact running summary.
type Summarizer struct {
	llm LLM
	log *logger.Logger
}

func NewSummarizer(llm LLM, baseLog *logger.Logger) *Summarizer {
	return &Summarizer{
		llm: llm,
		log: baseLog.With("service", "Summarizer"),
	}
}

// Summarize folds the window into existingSummary. The result replaces the
// previous summary wholesale.
func (s *Summarizer) Summarize(ctx context.Context, existingSummary string, window []Turn) (string, error) {
	if len(window) == 0 && strings.TrimSpace(existingSummary) == "" {
		return "", nil
	}

	var user strings.Builder
	if strings.TrimSpace(existingSummary) != "" {
		fmt.Fprintf(&user, "Existing summary:\n%s\n\n", strings.TrimSpace(existingSummary))
	}
	fmt.Fprintf(&user, "New conversation content:\n%s", marshalTurns(window))

	out, err := s.llm.GenerateText(ctx, conversationSummaryPrompt, user.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
