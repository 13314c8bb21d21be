package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memEntry struct {
	values  []float32
	payload map[string]any
}

// MemIndex is an in-process Index with exact cosine scoring. It backs
// deployments without a Qdrant endpoint and keeps tests deterministic.
type MemIndex struct {
	mu   sync.RWMutex
	dim  int
	data map[string]map[string]memEntry
}

func NewMemIndex(dim int) *MemIndex {
	return &MemIndex{
		dim:  dim,
		data: map[string]map[string]memEntry{},
	}
}

func (m *MemIndex) Upsert(ctx context.Context, namespace string, vectors []Vector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.data[namespace]
	if ns == nil {
		ns = map[string]memEntry{}
		m.data[namespace] = ns
	}
	for _, v := range vectors {
		if v.ID == "" {
			return fmt.Errorf("vector id is required")
		}
		if len(v.Values) == 0 {
			return fmt.Errorf("vector %q has empty values", v.ID)
		}
		if m.dim > 0 && len(v.Values) != m.dim {
			return fmt.Errorf("vector %q dimension mismatch: expected=%d got=%d", v.ID, m.dim, len(v.Values))
		}
		vals := make([]float32, len(v.Values))
		copy(vals, v.Values)
		payload := make(map[string]any, len(v.Metadata))
		for k, val := range v.Metadata {
			payload[k] = val
		}
		ns[v.ID] = memEntry{values: vals, payload: payload}
	}
	return nil
}

func (m *MemIndex) QueryMatches(ctx context.Context, namespace string, q []float32, topK int, filter map[string]any) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(q) == 0 {
		return nil, fmt.Errorf("query vector required")
	}
	if m.dim > 0 && len(q) != m.dim {
		return nil, fmt.Errorf("query vector dimension mismatch: expected=%d got=%d", m.dim, len(q))
	}
	if topK <= 0 {
		topK = 10
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Match, 0, topK)
	for id, e := range m.data[namespace] {
		if !payloadMatches(e.payload, filter) {
			continue
		}
		out = append(out, Match{ID: id, Score: Cosine(q, e.values)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

func (m *MemIndex) DeleteIDs(ctx context.Context, namespace string, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.data[namespace]
	for _, id := range ids {
		delete(ns, id)
	}
	return nil
}

func (m *MemIndex) DeleteByFilter(ctx context.Context, namespace string, filter map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.data[namespace]
	for id, e := range ns {
		if payloadMatches(e.payload, filter) {
			delete(ns, id)
		}
	}
	return nil
}

func (m *MemIndex) Ping(ctx context.Context) error {
	return ctx.Err()
}

// payloadMatches applies the subset of filter syntax the engine uses:
// direct scalar equality plus {$eq, $ne, $in} operator maps.
func payloadMatches(payload map[string]any, filter map[string]any) bool {
	for key, want := range filter {
		got, ok := payload[key]
		switch typed := want.(type) {
		case map[string]any:
			for op, opVal := range typed {
				switch op {
				case "$eq":
					if !ok || fmt.Sprint(got) != fmt.Sprint(opVal) {
						return false
					}
				case "$ne":
					if ok && fmt.Sprint(got) == fmt.Sprint(opVal) {
						return false
					}
				case "$in":
					vals, _ := opVal.([]any)
					found := false
					for _, v := range vals {
						if ok && fmt.Sprint(got) == fmt.Sprint(v) {
							found = true
							break
						}
					}
					if !found {
						return false
					}
				default:
					return false
				}
			}
		default:
			if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
				return false
			}
		}
	}
	return true
}

// Cosine returns the cosine similarity of two vectors, 0 when either is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
