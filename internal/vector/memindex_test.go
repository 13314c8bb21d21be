package vector

import (
	"context"
	"math"
	"testing"
)

func seedIndex(t *testing.T) *MemIndex {
	t.Helper()
	m := NewMemIndex(3)
	err := m.Upsert(context.Background(), "memories", []Vector{
		{ID: "a", Values: []float32{1, 0, 0}, Metadata: map[string]any{"user_id": "u1", "mem_type": "fact"}},
		{ID: "b", Values: []float32{0, 1, 0}, Metadata: map[string]any{"user_id": "u1", "mem_type": "preference"}},
		{ID: "c", Values: []float32{1, 0, 0}, Metadata: map[string]any{"user_id": "u2", "mem_type": "fact"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	return m
}

func TestMemIndexQueryOrdersBySimilarity(t *testing.T) {
	m := seedIndex(t)

	matches, err := m.QueryMatches(context.Background(), "memories", []float32{1, 0.1, 0}, 10, nil)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("matches = %d, want 3", len(matches))
	}
	// a and c share a vector and tie; ties break on id ascending.
	if matches[0].ID != "a" || matches[1].ID != "c" || matches[2].ID != "b" {
		t.Fatalf("ordering = %v", []string{matches[0].ID, matches[1].ID, matches[2].ID})
	}
	if !(matches[0].Score > matches[2].Score) {
		t.Fatalf("scores not descending: %v", []float64{matches[0].Score, matches[2].Score})
	}
}

func TestMemIndexQueryHonorsTopK(t *testing.T) {
	m := seedIndex(t)
	matches, err := m.QueryMatches(context.Background(), "memories", []float32{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
}

func TestMemIndexFilterOperators(t *testing.T) {
	m := seedIndex(t)
	q := []float32{1, 1, 0}

	cases := []struct {
		name   string
		filter map[string]any
		want   []string
	}{
		{"scalar equality", map[string]any{"user_id": "u1"}, []string{"a", "b"}},
		{"eq", map[string]any{"mem_type": map[string]any{"$eq": "fact"}}, []string{"a", "c"}},
		{"ne", map[string]any{"mem_type": map[string]any{"$ne": "fact"}}, []string{"b"}},
		{"in", map[string]any{"mem_type": map[string]any{"$in": []any{"preference", "event"}}}, []string{"b"}},
		{"combined", map[string]any{"user_id": "u1", "mem_type": "fact"}, []string{"a"}},
		{"unknown operator matches nothing", map[string]any{"mem_type": map[string]any{"$gt": "a"}}, nil},
	}
	for _, tc := range cases {
		matches, err := m.QueryMatches(context.Background(), "memories", q, 10, tc.filter)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got := map[string]bool{}
		for _, match := range matches {
			got[match.ID] = true
		}
		if len(got) != len(tc.want) {
			t.Fatalf("%s: matches = %v, want %v", tc.name, matches, tc.want)
		}
		for _, id := range tc.want {
			if !got[id] {
				t.Fatalf("%s: missing %q in %v", tc.name, id, matches)
			}
		}
	}
}

func TestMemIndexNamespaceIsolation(t *testing.T) {
	m := seedIndex(t)
	if err := m.Upsert(context.Background(), "session_summaries", []Vector{
		{ID: "s1", Values: []float32{0, 0, 1}, Metadata: map[string]any{"user_id": "u1"}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := m.QueryMatches(context.Background(), "session_summaries", []float32{0, 0, 1}, 10, nil)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "s1" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestMemIndexDimensionMismatchRejected(t *testing.T) {
	m := NewMemIndex(3)
	err := m.Upsert(context.Background(), "memories", []Vector{
		{ID: "a", Values: []float32{1, 0}},
	})
	if err == nil {
		t.Fatalf("Upsert: expected dimension error")
	}
	if _, err := m.QueryMatches(context.Background(), "memories", []float32{1, 0}, 5, nil); err == nil {
		t.Fatalf("QueryMatches: expected dimension error")
	}
}

func TestMemIndexDeleteIDs(t *testing.T) {
	m := seedIndex(t)
	if err := m.DeleteIDs(context.Background(), "memories", []string{"a", "missing"}); err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}
	matches, _ := m.QueryMatches(context.Background(), "memories", []float32{1, 0, 0}, 10, nil)
	for _, match := range matches {
		if match.ID == "a" {
			t.Fatalf("deleted id still served")
		}
	}
}

func TestMemIndexDeleteByFilter(t *testing.T) {
	m := seedIndex(t)
	if err := m.DeleteByFilter(context.Background(), "memories", map[string]any{"user_id": "u1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}
	matches, _ := m.QueryMatches(context.Background(), "memories", []float32{1, 1, 0}, 10, nil)
	if len(matches) != 1 || matches[0].ID != "c" {
		t.Fatalf("matches = %+v", matches)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Fatalf("zero vector: got %v", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{1}); got != 0 {
		t.Fatalf("length mismatch: got %v", got)
	}
}
