package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/data/repos"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/vector"
)

func testLogger() *logger.Logger {
	log, _ := logger.New("dev")
	return log
}

type fakeLLM struct {
	jsonOut  map[string]any
	jsonErr  error
	textOut  string
	textErr  error
	lastUser string
	calls    int
}

func (f *fakeLLM) GenerateJSON(_ context.Context, _ string, user string, _ string, _ map[string]any) (map[string]any, error) {
	f.calls++
	f.lastUser = user
	if f.jsonErr != nil {
		return nil, f.jsonErr
	}
	return f.jsonOut, nil
}

func (f *fakeLLM) GenerateText(_ context.Context, _ string, user string) (string, error) {
	f.calls++
	f.lastUser = user
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.textOut, nil
}

func jsonObj(s string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		panic(err)
	}
	return out
}

type fakeEmbedder struct {
	dim  int
	err  error
	seen [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	f.seen = append(f.seen, inputs)
	if f.err != nil {
		return nil, f.err
	}
	dim := f.dim
	if dim == 0 {
		dim = 4
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		vec := make([]float32, dim)
		vec[0] = float32(len(inputs[i]))
		out[i] = vec
	}
	return out, nil
}

// fakeRepo is an in-memory MemoryRepo for store tests.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Memory
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[uuid.UUID]*types.Memory{}}
}

func (r *fakeRepo) Insert(_ dbctx.Context, mem *types.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if _, ok := r.rows[mem.ID]; ok {
		return repos.ErrConflict
	}
	now := time.Now()
	mem.CreatedAt = now
	mem.UpdatedAt = now
	cp := *mem
	r.rows[mem.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(_ dbctx.Context, id uuid.UUID) (*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *fakeRepo) GetByIDs(_ dbctx.Context, userID string, ids []uuid.UUID) ([]*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Memory
	for _, id := range ids {
		row, ok := r.rows[id]
		if !ok {
			continue
		}
		if userID != "" && row.UserID != userID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) ListByUser(_ dbctx.Context, userID string, limit int) ([]*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Memory
	for _, row := range r.rows {
		if row.UserID != userID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return repos.ErrNotFound
	}
	if v, ok := updates["content"].(string); ok {
		row.Content = v
	}
	if v, ok := updates["mem_type"].(string); ok {
		row.Attributes.Type = v
	}
	if v, ok := updates["status"].(string); ok {
		row.Attributes.Status = v
	}
	row.UpdatedAt = time.Now()
	return nil
}

func (r *fakeRepo) Delete(_ dbctx.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *fakeRepo) DeleteAllByUser(_ dbctx.Context, userID string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, row := range r.rows {
		if row.UserID == userID {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(r.rows, id)
	}
	return ids, nil
}

var errIndexDown = errors.New("index unavailable")

// fakeIndex records writes and serves canned matches.
type fakeIndex struct {
	mu       sync.Mutex
	upserts  map[string]vector.Vector
	matches  []vector.Match
	queryErr error
	deleted  []string
	purged   []map[string]any
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{upserts: map[string]vector.Vector{}}
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, vectors []vector.Vector) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range vectors {
		f.upserts[v.ID] = v
	}
	return nil
}

func (f *fakeIndex) QueryMatches(_ context.Context, _ string, _ []float32, _ int, _ map[string]any) ([]vector.Match, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeIndex) DeleteIDs(_ context.Context, _ string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, ids...)
	return nil
}

func (f *fakeIndex) DeleteByFilter(_ context.Context, _ string, filter map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purged = append(f.purged, filter)
	return nil
}

func (f *fakeIndex) Ping(context.Context) error { return nil }

func testDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
