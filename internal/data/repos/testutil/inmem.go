// Package testutil provides in-memory repo implementations so service and
// pipeline tests run without Postgres. Behavior mirrors the SQL repos where
// tests depend on it: dense message sequencing, monotonic watermark guards,
// insert conflicts and terminal job status guards.
package testutil

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/recall-backend/internal/data/repos"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
)

// SessionRepo is an in-memory chat.SessionRepo.
type SessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*types.Session
	messages map[uuid.UUID][]*types.Message
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{
		sessions: map[uuid.UUID]*types.Session{},
		messages: map[uuid.UUID][]*types.Message{},
	}
}

func (r *SessionRepo) Create(_ dbctx.Context, session *types.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	cp := *session
	r.sessions[session.ID] = &cp
	return nil
}

func (r *SessionRepo) Get(_ dbctx.Context, sessionID uuid.UUID) (*types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *SessionRepo) ListByUser(_ dbctx.Context, userID string) ([]*types.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (r *SessionRepo) UpdateTitle(_ dbctx.Context, sessionID uuid.UUID, title string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	s.Title = title
	s.LastActivity = time.Now()
	return true, nil
}

func (r *SessionRepo) Delete(_ dbctx.Context, sessionID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(r.sessions, sessionID)
	delete(r.messages, sessionID)
	return true, nil
}

func (r *SessionRepo) AppendMessage(_ dbctx.Context, sessionID uuid.UUID, role, content string, at time.Time) (*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, errors.New("session not found")
	}
	s.MessageCount++
	s.LastActivity = at
	msg := &types.Message{
		ID:        uuid.New(),
		SessionID: sessionID,
		Seq:       s.MessageCount,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
	r.messages[sessionID] = append(r.messages[sessionID], msg)
	return msg, nil
}

func (r *SessionRepo) Messages(_ dbctx.Context, sessionID uuid.UUID) ([]*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*types.Message(nil), r.messages[sessionID]...), nil
}

func (r *SessionRepo) MessagesBetween(_ dbctx.Context, sessionID uuid.UUID, fromSeq, toSeq int64) ([]*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Message
	for _, m := range r.messages[sessionID] {
		if m.Seq > fromSeq && m.Seq <= toSeq {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *SessionRepo) RecentMessages(_ dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]*types.Message(nil), msgs...), nil
}

func (r *SessionRepo) AdvanceMemoryWatermark(_ dbctx.Context, sessionID uuid.UUID, target int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.LastMemoryProcessedAt >= target {
		return false, nil
	}
	s.LastMemoryProcessedAt = target
	return true, nil
}

func (r *SessionRepo) AdvanceSummaryWatermark(_ dbctx.Context, sessionID uuid.UUID, target int64, content string, _ datatypes.JSON) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok || s.LastSummaryGeneratedAt >= target {
		return false, nil
	}
	s.LastSummaryGeneratedAt = target
	s.Summary = &content
	return true, nil
}

// MemoryRepo is an in-memory memory.MemoryRepo.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.Memory
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: map[uuid.UUID]*types.Memory{}}
}

func (r *MemoryRepo) Insert(_ dbctx.Context, mem *types.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mem.ID == uuid.Nil {
		mem.ID = uuid.New()
	}
	if _, ok := r.rows[mem.ID]; ok {
		return repos.ErrConflict
	}
	cp := *mem
	r.rows[mem.ID] = &cp
	return nil
}

func (r *MemoryRepo) Get(_ dbctx.Context, id uuid.UUID) (*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepo) GetByIDs(_ dbctx.Context, userID string, ids []uuid.UUID) ([]*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Memory
	for _, id := range ids {
		if m, ok := r.rows[id]; ok && (userID == "" || m.UserID == userID) {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListByUser(_ dbctx.Context, userID string, limit int) ([]*types.Memory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Memory
	for _, m := range r.rows {
		if m.UserID == userID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.rows[id]
	if !ok {
		return repos.ErrNotFound
	}
	if v, ok := updates["content"].(string); ok {
		m.Content = v
	}
	if v, ok := updates["mem_type"].(string); ok {
		m.Attributes.Type = v
	}
	if v, ok := updates["status"].(string); ok {
		m.Attributes.Status = v
	}
	if v, ok := updates["embedding"].(datatypes.JSON); ok {
		m.Embedding = v
	}
	m.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepo) Delete(_ dbctx.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *MemoryRepo) DeleteAllByUser(_ dbctx.Context, userID string) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for id, m := range r.rows {
		if m.UserID == userID {
			ids = append(ids, id)
			delete(r.rows, id)
		}
	}
	return ids, nil
}

// JobRunRepo is an in-memory jobs.JobRunRepo. Claiming ignores retry backoff
// timing; a failed row below the attempt cap is immediately runnable so tests
// stay clock-free.
type JobRunRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.JobRun
}

func NewJobRunRepo() *JobRunRepo {
	return &JobRunRepo{rows: map[uuid.UUID]*types.JobRun{}}
}

// Seed registers an already-claimed job without going through Create.
func (r *JobRunRepo) Seed(job *types.JobRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[job.ID] = job
}

func (r *JobRunRepo) Create(_ dbctx.Context, jobs []*types.JobRun) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		if j.ID == uuid.Nil {
			j.ID = uuid.New()
		}
		r.rows[j.ID] = j
	}
	return jobs, nil
}

func (r *JobRunRepo) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.JobRun
	for _, id := range ids {
		if j, ok := r.rows[id]; ok {
			out = append(out, j)
		}
	}
	return out, nil
}

func (r *JobRunRepo) ClaimNextRunnable(_ dbctx.Context, maxAttempts int, _ time.Duration, _ time.Duration) (*types.JobRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var candidates []*types.JobRun
	for _, j := range r.rows {
		if j.Status == types.JobStatusQueued || (j.Status == types.JobStatusFailed && j.Attempts < maxAttempts) {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, k int) bool { return candidates[i].CreatedAt.Before(candidates[k].CreatedAt) })
	j := candidates[0]
	now := time.Now()
	j.Status = types.JobStatusRunning
	j.Attempts++
	j.LockedAt = &now
	j.HeartbeatAt = &now
	j.UpdatedAt = now
	return j, nil
}

func (r *JobRunRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.rows[id]; ok {
		applyJobUpdates(j, updates)
	}
	return nil
}

func (r *JobRunRepo) UpdateFieldsUnlessStatus(_ dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range disallowed {
		if j.Status == s {
			return false, nil
		}
	}
	applyJobUpdates(j, updates)
	return true, nil
}

func (r *JobRunRepo) Heartbeat(_ dbctx.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if j, ok := r.rows[id]; ok && j.Status == types.JobStatusRunning {
		now := time.Now()
		j.HeartbeatAt = &now
	}
	return nil
}

func (r *JobRunRepo) HasRunnableForEntity(_ dbctx.Context, ownerUserID string, entityType string, entityID uuid.UUID, jobType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.rows {
		if j.OwnerUserID != ownerUserID || j.EntityType != entityType || j.JobType != jobType {
			continue
		}
		if j.EntityID == nil || *j.EntityID != entityID {
			continue
		}
		if j.Status == types.JobStatusQueued || j.Status == types.JobStatusRunning {
			return true, nil
		}
	}
	return false, nil
}

func applyJobUpdates(j *types.JobRun, updates map[string]interface{}) {
	if v, ok := updates["status"].(string); ok {
		j.Status = v
	}
	if v, ok := updates["error"].(string); ok {
		j.Error = v
	}
	if v, ok := updates["result"].(datatypes.JSON); ok {
		j.Result = v
	}
	if lk, ok := updates["locked_at"]; ok {
		if lk == nil {
			j.LockedAt = nil
		} else if tv, ok := lk.(time.Time); ok {
			j.LockedAt = &tv
		}
	}
	if hb, ok := updates["heartbeat_at"]; ok {
		if tv, ok := hb.(time.Time); ok {
			j.HeartbeatAt = &tv
		}
	}
	if le, ok := updates["last_error_at"]; ok {
		if tv, ok := le.(time.Time); ok {
			j.LastErrorAt = &tv
		}
	}
	j.UpdatedAt = time.Now()
}
