package memory

import (
	"fmt"
	"strings"

	types "github.com/yungbote/recall-backend/internal/domain"
	"github.com/yungbote/recall-backend/internal/platform/dbctx"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// Retriever embeds a query and searches the store.
type Retriever struct {
	store    *Store
	embedder Embedder
	defaultK int
	log      *logger.Logger
}

const maxSearchLimit = 50

func NewRetriever(store *Store, embedder Embedder, defaultK int, baseLog *logger.Logger) *Retriever {
	if defaultK <= 0 {
		defaultK = 10
	}
	if defaultK > maxSearchLimit {
		defaultK = maxSearchLimit
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		defaultK: defaultK,
		log:      baseLog.With("service", "MemoryRetriever"),
	}
}

// Retrieve returns the memories most relevant to the query. k <= 0 means
// the configured default; k above the cap is clamped.
func (r *Retriever) Retrieve(dbc dbctx.Context, userID string, query string, k int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" || userID == "" {
		return nil, nil
	}
	if k <= 0 {
		k = r.defaultK
	}
	if k > maxSearchLimit {
		k = maxSearchLimit
	}
	embeddings, err := r.embedder.Embed(dbc.Ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, nil
	}
	return r.store.Search(dbc, userID, embeddings[0], k)
}

// RetrieveMemories is Retrieve without the distances, for callers that only
// need the rows.
func (r *Retriever) RetrieveMemories(dbc dbctx.Context, userID string, query string, k int) ([]*types.Memory, error) {
	results, err := r.Retrieve(dbc, userID, query, k)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Memory, 0, len(results))
	for _, res := range results {
		out = append(out, res.Memory)
	}
	return out, nil
}
