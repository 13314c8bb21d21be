package session_summarize

import (
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/vector"
)

const JobType = "session_summarize"

// SummariesNamespace is the ANN namespace holding session summary vectors.
const SummariesNamespace = "session_summaries"

// Pipeline rolls new messages into the session summary and advances the
// summary watermark.
type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	sessions     chatrepo.SessionRepo
	summarizer   *memory.Summarizer
	embedder     memory.Embedder
	index        vector.Index
	messageLimit int
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions chatrepo.SessionRepo,
	summarizer *memory.Summarizer,
	embedder memory.Embedder,
	index vector.Index,
	messageLimit int,
) *Pipeline {
	if messageLimit <= 0 {
		messageLimit = 20
	}
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", JobType),
		sessions:     sessions,
		summarizer:   summarizer,
		embedder:     embedder,
		index:        index,
		messageLimit: messageLimit,
	}
}

func (p *Pipeline) Type() string { return JobType }
