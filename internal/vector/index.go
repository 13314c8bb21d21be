package vector

import "context"

// Vector is a point to be written into an ANN index. Metadata becomes the
// point payload and is filterable at query time.
type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// Match is a query hit. Score is similarity, higher is closer.
type Match struct {
	ID    string
	Score float64
}

// Index is the ANN index contract. Namespaces partition points within one
// collection; the engine uses one namespace for memories and one for
// session summaries.
type Index interface {
	Upsert(ctx context.Context, namespace string, vectors []Vector) error
	QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]Match, error)
	DeleteIDs(ctx context.Context, namespace string, ids []string) error
	DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error
	Ping(ctx context.Context) error
}
