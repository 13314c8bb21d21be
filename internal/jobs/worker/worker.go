package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	jobsrepo "github.com/yungbote/recall-backend/internal/data/repos/jobs"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/jobs/runtime"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/realtime"
)

const (
	// MaxAttempts is the delivery cap; the run that exhausts it goes to
	// the dead-letter status.
	MaxAttempts = 4
	// RetryDelay is the base backoff, doubled per prior attempt.
	RetryDelay = 60 * time.Second

	staleRunning      = 2 * time.Minute
	pollInterval      = 1 * time.Second
	heartbeatInterval = 30 * time.Second
)

// Worker claims runnable job_run rows and dispatches them to registered
// handlers. Claims use SKIP LOCKED, so any number of workers can share one
// queue. The wake bus shortens idle latency; polling alone is sufficient.
type Worker struct {
	db          *gorm.DB
	log         *logger.Logger
	repo        jobsrepo.JobRunRepo
	registry    *runtime.Registry
	bus         realtime.WakeBus
	concurrency int
	wake        chan struct{}
}

func New(db *gorm.DB, baseLog *logger.Logger, repo jobsrepo.JobRunRepo, registry *runtime.Registry, bus realtime.WakeBus, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Worker{
		db:          db,
		log:         baseLog.With("component", "JobWorker"),
		repo:        repo,
		registry:    registry,
		bus:         bus,
		concurrency: concurrency,
		wake:        make(chan struct{}, 1),
	}
}

// Run blocks until ctx is canceled, then waits for in-flight jobs to finish.
func (w *Worker) Run(ctx context.Context) error {
	if w.bus != nil {
		if err := w.bus.StartListener(ctx, func(string) { w.nudge() }); err != nil {
			w.log.Warn("Wake listener unavailable; falling back to polling only", "error", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			w.claimLoop(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) nudge() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) claimLoop(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.wake:
		}

		for {
			if ctx.Err() != nil {
				return
			}
			job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, MaxAttempts, RetryDelay, staleRunning)
			if err != nil {
				w.log.Warn("ClaimNextRunnable failed", "error", err)
				break
			}
			if job == nil {
				break
			}
			w.execute(ctx, job)
		}
	}
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo, MaxAttempts)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail(&missingHandlerError{JobType: job.JobType})
		return
	}

	hbCtx, stopHB := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbCtx.Done():
				return
			case <-ticker.C:
				jc.Heartbeat()
			}
		}
	}()
	defer stopHB()

	w.log.Info("Job started", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)

	// A panicking handler must not take the claim loop down with it.
	err := func() (runErr error) {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		return h.Run(jc)
	}()

	if err != nil {
		w.log.Warn("Job failed", "job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts, "error", err)
		jc.Fail(err)
		return
	}
	w.log.Info("Job finished", "job_id", job.ID, "job_type", job.JobType)
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }
