package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/recall-backend/internal/data/repos"
	memoryrepo "github.com/yungbote/recall-backend/internal/data/repos/memory"
	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/vector"
)

// MemoriesNamespace is the ANN namespace holding user memory vectors.
const MemoriesNamespace = "memories"

// SearchResult is one retrieval hit. Distance is cosine distance, lower is
// closer.
type SearchResult struct {
	Memory   *types.Memory
	Distance float64
}

// Store owns the dual write: Postgres is the source of truth for memory
// rows, the ANN index mirrors their embeddings.
type Store struct {
	repo     memoryrepo.MemoryRepo
	index    vector.Index
	embedder Embedder
	log      *logger.Logger
}

func NewStore(repo memoryrepo.MemoryRepo, index vector.Index, embedder Embedder, baseLog *logger.Logger) *Store {
	return &Store{
		repo:     repo,
		index:    index,
		embedder: embedder,
		log:      baseLog.With("service", "MemoryStore"),
	}
}

func encodeEmbedding(values []float32) (datatypes.JSON, error) {
	b, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// Insert writes a new memory row and mirrors its vector. A duplicate id is
// retried as an update so redelivered jobs converge instead of failing.
func (s *Store) Insert(dbc dbctx.Context, rec Record, embedding []float32) (*types.Memory, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}
	emb, err := encodeEmbedding(embedding)
	if err != nil {
		return nil, fmt.Errorf("encode embedding: %w", err)
	}
	mem := &types.Memory{
		ID:        id,
		UserID:    rec.UserID,
		Content:   rec.Content,
		Embedding: emb,
		Attributes: types.MemoryAttributes{
			Type:   rec.Attributes.Type,
			Status: rec.Attributes.Status,
		},
	}
	if err := s.repo.Insert(dbc, mem); err != nil {
		if errors.Is(err, repos.ErrConflict) {
			return s.Update(dbc, rec, embedding)
		}
		return nil, err
	}
	if err := s.upsertVector(dbc.Ctx, mem, embedding); err != nil {
		return nil, err
	}
	return mem, nil
}

// Update patches content, attributes and embedding in place, preserving the
// row id. A missing row surfaces as repos.ErrNotFound.
func (s *Store) Update(dbc dbctx.Context, rec Record, embedding []float32) (*types.Memory, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("update memory: bad id %q: %w", rec.ID, err)
	}
	emb, encErr := encodeEmbedding(embedding)
	if encErr != nil {
		return nil, fmt.Errorf("encode embedding: %w", encErr)
	}
	updates := map[string]interface{}{
		"content":   rec.Content,
		"mem_type":  rec.Attributes.Type,
		"status":    rec.Attributes.Status,
		"embedding": emb,
	}
	if err := s.repo.UpdateFields(dbc, id, updates); err != nil {
		return nil, err
	}
	mem, err := s.repo.Get(dbc, id)
	if err != nil {
		return nil, err
	}
	if mem == nil {
		return nil, repos.ErrNotFound
	}
	if err := s.upsertVector(dbc.Ctx, mem, embedding); err != nil {
		return nil, err
	}
	return mem, nil
}

func (s *Store) upsertVector(ctx context.Context, mem *types.Memory, embedding []float32) error {
	return s.index.Upsert(ctx, MemoriesNamespace, []vector.Vector{{
		ID:     mem.ID.String(),
		Values: embedding,
		Metadata: map[string]any{
			"user_id":  mem.UserID,
			"mem_type": mem.Attributes.Type,
			"status":   mem.Attributes.Status,
		},
	}})
}

// Apply executes a consolidation plan. Every entry is written, tombstones
// included; outdated rows keep their embedding in the index so the status
// payload filter is what hides them from retrieval.
func (s *Store) Apply(dbc dbctx.Context, userID string, plan []Record, knownIDs map[string]bool) error {
	if len(plan) == 0 {
		return nil
	}
	texts := make([]string, len(plan))
	for i, rec := range plan {
		texts[i] = rec.Content
	}
	embeddings, err := s.embedder.Embed(dbc.Ctx, texts)
	if err != nil {
		return fmt.Errorf("embed plan: %w", err)
	}
	if len(embeddings) != len(plan) {
		return fmt.Errorf("embed plan: got %d embeddings for %d records", len(embeddings), len(plan))
	}
	for i, rec := range plan {
		rec.UserID = userID
		var wErr error
		switch {
		case rec.Attributes.Status == types.MemoryStatusOutdated:
			_, wErr = s.Update(dbc, rec, embeddings[i])
		case knownIDs[rec.ID]:
			_, wErr = s.Update(dbc, rec, embeddings[i])
		default:
			_, wErr = s.Insert(dbc, rec, embeddings[i])
		}
		if wErr != nil {
			// Tombstoning a row that was never persisted is a plan
			// artifact, not a failure.
			if errors.Is(wErr, repos.ErrNotFound) && rec.Attributes.Status == types.MemoryStatusOutdated {
				s.log.Warn("Skipping tombstone for unknown memory", "memory_id", rec.ID)
				continue
			}
			return fmt.Errorf("apply plan entry %s: %w", rec.ID, wErr)
		}
	}
	return nil
}

// Search runs ANN retrieval for the user and returns up to k active
// memories ordered by cosine distance ascending. Ties break on updated_at
// descending, then id ascending, so results are stable across runs.
func (s *Store) Search(dbc dbctx.Context, userID string, queryEmbedding []float32, k int) ([]SearchResult, error) {
	if k <= 0 || userID == "" {
		return nil, nil
	}
	// Over-fetch to survive tombstones and rows deleted since the last
	// index sync.
	matches, err := s.index.QueryMatches(dbc.Ctx, MemoriesNamespace, queryEmbedding, k*2, map[string]any{
		"user_id": userID,
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}

	distanceByID := make(map[uuid.UUID]float64, len(matches))
	ids := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		id, pErr := uuid.Parse(m.ID)
		if pErr != nil {
			continue
		}
		ids = append(ids, id)
		distanceByID[id] = 1 - m.Score
	}
	rows, err := s.repo.GetByIDs(dbc, userID, ids)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(rows))
	for _, row := range rows {
		if row.Attributes.Status != types.MemoryStatusActive {
			continue
		}
		results = append(results, SearchResult{
			Memory:   row,
			Distance: distanceByID[row.ID],
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		if !results[i].Memory.UpdatedAt.Equal(results[j].Memory.UpdatedAt) {
			return results[i].Memory.UpdatedAt.After(results[j].Memory.UpdatedAt)
		}
		return results[i].Memory.ID.String() < results[j].Memory.ID.String()
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// List returns the user's stored memories, newest first.
func (s *Store) List(dbc dbctx.Context, userID string, limit int) ([]*types.Memory, error) {
	return s.repo.ListByUser(dbc, userID, limit)
}

// DeleteAll purges the user's memories from both stores. Postgres is
// authoritative, so index cleanup failures are logged and swallowed; the
// payload filter keeps orphaned vectors from ever being served.
func (s *Store) DeleteAll(dbc dbctx.Context, userID string) (int, error) {
	ids, err := s.repo.DeleteAllByUser(dbc, userID)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if err := s.index.DeleteByFilter(dbc.Ctx, MemoriesNamespace, map[string]any{
		"user_id": userID,
	}); err != nil {
		s.log.Warn("Index purge failed after memory deletion", "user_id", userID, "error", err)
	}
	return len(ids), nil
}
