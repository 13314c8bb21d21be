package memory_extract

import (
	"gorm.io/gorm"

	chatrepo "github.com/yungbote/recall-backend/internal/data/repos/chat"
	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/services"
)

const JobType = "memory_extract"

// Pipeline runs fact extraction and consolidation for one session window,
// then advances the session's memory watermark.
type Pipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	sessions     chatrepo.SessionRepo
	extractor    *memory.Extractor
	consolidator *memory.Consolidator
	store        *memory.Store
	retriever    *memory.Retriever
	kgraph       services.KGraphClient
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	sessions chatrepo.SessionRepo,
	extractor *memory.Extractor,
	consolidator *memory.Consolidator,
	store *memory.Store,
	retriever *memory.Retriever,
	kgraph services.KGraphClient,
) *Pipeline {
	return &Pipeline{
		db:           db,
		log:          baseLog.With("job", JobType),
		sessions:     sessions,
		extractor:    extractor,
		consolidator: consolidator,
		store:        store,
		retriever:    retriever,
		kgraph:       kgraph,
	}
}

func (p *Pipeline) Type() string { return JobType }
