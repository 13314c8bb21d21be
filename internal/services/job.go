package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	jobsrepo "github.com/yungbote/recall-backend/internal/data/repos/jobs"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/ctxutil"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/realtime"
)

// JobService enqueues job_run rows and nudges idle workers. Delivery is
// at-least-once: the row is the queue, the wake bus is only a latency
// optimization.
type JobService interface {
	Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error)
	EnqueueForSessionIfNeeded(dbc dbctx.Context, ownerUserID string, sessionID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, bool, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo jobsrepo.JobRunRepo
	bus  realtime.WakeBus
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo jobsrepo.JobRunRepo, bus realtime.WakeBus) JobService {
	return &jobService{
		db:   db,
		log:  baseLog.With("service", "JobService"),
		repo: repo,
		bus:  bus,
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, ownerUserID string, jobType string, entityType string, entityID *uuid.UUID, payload map[string]any) (*types.JobRun, error) {
	if ownerUserID == "" {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if jobType == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if td := ctxutil.GetTraceData(dbc.Ctx); td != nil {
		if td.TraceID != "" {
			if _, ok := payload["trace_id"]; !ok {
				payload["trace_id"] = td.TraceID
			}
		}
		if td.RequestID != "" {
			if _, ok := payload["request_id"]; !ok {
				payload["request_id"] = td.RequestID
			}
		}
	}

	b, _ := json.Marshal(payload)
	now := time.Now()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      types.JobStatusQueued,
		Payload:     datatypes.JSON(b),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.repo.Create(dbc, []*types.JobRun{job})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	job = created[0]

	if s.bus != nil {
		if pErr := s.bus.Publish(dbc.Ctx, job.ID.String()); pErr != nil {
			s.log.Warn("Wake publish failed; workers will pick the job up on poll", "job_id", job.ID, "error", pErr)
		}
	}
	s.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	return job, nil
}

// EnqueueForSessionIfNeeded skips the enqueue when a queued or running job
// of the same type already targets the session. Returns created=false on
// skip.
func (s *jobService) EnqueueForSessionIfNeeded(dbc dbctx.Context, ownerUserID string, sessionID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, bool, error) {
	if sessionID == uuid.Nil {
		return nil, false, fmt.Errorf("missing session_id")
	}
	pending, err := s.repo.HasRunnableForEntity(dbc, ownerUserID, "session", sessionID, jobType)
	if err != nil {
		return nil, false, err
	}
	if pending {
		return nil, false, nil
	}
	if payload == nil {
		payload = map[string]any{}
	}
	payload["session_id"] = sessionID.String()
	entityID := sessionID
	job, err := s.Enqueue(dbc, ownerUserID, jobType, "session", &entityID, payload)
	if err != nil {
		return nil, false, err
	}
	return job, true, nil
}
