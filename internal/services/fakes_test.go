package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/data/repos/testutil"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

func testLogger() *logger.Logger {
	log, _ := logger.New("test")
	return log
}

func testDBC() dbctx.Context {
	return testutil.DBC()
}

// fakeJobs records dispatches instead of touching a queue.
type fakeJobs struct {
	mu       sync.Mutex
	enqueued []string
	pending  map[string]bool
	err      error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{pending: map[string]bool{}}
}

func (f *fakeJobs) Enqueue(_ dbctx.Context, _ string, jobType string, _ string, _ *uuid.UUID, _ map[string]any) (*types.JobRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enqueued = append(f.enqueued, jobType)
	return &types.JobRun{ID: uuid.New(), JobType: jobType}, nil
}

func (f *fakeJobs) EnqueueForSessionIfNeeded(dbc dbctx.Context, ownerUserID string, sessionID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	f.mu.Lock()
	pending := f.pending[jobType]
	f.mu.Unlock()
	if pending {
		return nil, false, nil
	}
	job, err := f.Enqueue(dbc, ownerUserID, jobType, "session", &sessionID, payload)
	return job, err == nil, err
}

func (f *fakeJobs) count(jobType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.enqueued {
		if t == jobType {
			n++
		}
	}
	return n
}

// fakeAI satisfies openai.Client, memory.LLM and memory.Embedder.
type fakeAI struct {
	mu         sync.Mutex
	jsonOut    map[string]any
	jsonErr    error
	textOut    string
	textErr    error
	streamOut  []string
	streamErr  error
	lastSystem string
	lastUser   string
}

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}

func (f *fakeAI) GenerateJSON(_ context.Context, system, user, _ string, _ map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.lastSystem, f.lastUser = system, user
	f.mu.Unlock()
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonOut, nil
}

func (f *fakeAI) GenerateText(_ context.Context, system, user string) (string, error) {
	f.mu.Lock()
	f.lastSystem, f.lastUser = system, user
	f.mu.Unlock()
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textOut, nil
}

func (f *fakeAI) StreamText(_ context.Context, system, user string, onDelta func(string)) (string, error) {
	f.mu.Lock()
	f.lastSystem, f.lastUser = system, user
	f.mu.Unlock()
	full := ""
	for _, d := range f.streamOut {
		if onDelta != nil {
			onDelta(d)
		}
		full += d
	}
	return full, f.streamErr
}
