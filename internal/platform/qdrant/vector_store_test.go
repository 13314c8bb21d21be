package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/vector"
)

func TestIndexUpsertRequestShape(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPut {
			t.Fatalf("method: want=%s got=%s", http.MethodPut, r.Method)
		}
		if r.URL.Path != "/collections/recall/points" {
			t.Fatalf("path: want=%q got=%q", "/collections/recall/points", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	meta := map[string]any{"user_id": "u1"}
	err := s.Upsert(context.Background(), "memories", []vector.Vector{
		{ID: "vec-1", Values: []float32{1, 2, 3}, Metadata: meta},
		{ID: "vec-2", Values: []float32{4, 5, 6}, Metadata: map[string]any{"user_id": "u2"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	pointsRaw, ok := captured["points"].([]any)
	if !ok {
		t.Fatalf("points type: got=%T", captured["points"])
	}
	if len(pointsRaw) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(pointsRaw))
	}

	first, ok := pointsRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("point[0] type: got=%T", pointsRaw[0])
	}
	if first["id"] != s.pointID("rc:memories", "vec-1") {
		t.Fatalf("point id mismatch: got=%v", first["id"])
	}
	payload, ok := first["payload"].(map[string]any)
	if !ok {
		t.Fatalf("payload type: got=%T", first["payload"])
	}
	if payload[payloadNamespaceKey] != "rc:memories" {
		t.Fatalf("payload namespace: want=%q got=%v", "rc:memories", payload[payloadNamespaceKey])
	}
	if payload[payloadVectorIDKey] != "vec-1" {
		t.Fatalf("payload vector id: want=%q got=%v", "vec-1", payload[payloadVectorIDKey])
	}

	if _, exists := meta[payloadNamespaceKey]; exists {
		t.Fatalf("input metadata mutated: namespace key should not exist")
	}
	if _, exists := meta[payloadVectorIDKey]; exists {
		t.Fatalf("input metadata mutated: vector id key should not exist")
	}
}

func TestIndexUpsertDimensionMismatch(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
		return nil, nil
	})

	err := s.Upsert(context.Background(), "memories", []vector.Vector{
		{ID: "vec-1", Values: []float32{1, 2}},
	})
	if err == nil {
		t.Fatalf("Upsert: expected error, got nil")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorValidation {
		t.Fatalf("error code: want=%q got=%q", OperationErrorValidation, opErr.Code)
	}
}

func TestIndexQueryMatchesFilterNamespaceAndOrdering(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/recall/points/search" {
			t.Fatalf("path: want=%q got=%q", "/collections/recall/points/search", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, []map[string]any{
			{
				"id":    "ignored-id-b",
				"score": 0.10,
				"payload": map[string]any{
					payloadVectorIDKey: "vec-b",
				},
			},
			{
				"id":    "ignored-id-a",
				"score": 0.90,
				"payload": map[string]any{
					payloadVectorIDKey: "vec-a",
				},
			},
		}), nil
	})

	matches, err := s.QueryMatches(context.Background(), "memories", []float32{1, 2, 3}, 2, map[string]any{
		"mem_type": map[string]any{
			"$in": []any{"fact", "preference"},
		},
	})
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches length: want=2 got=%d", len(matches))
	}
	if matches[0].ID != "vec-a" || matches[1].ID != "vec-b" {
		t.Fatalf("match ordering mismatch: got=%v", []string{matches[0].ID, matches[1].ID})
	}
	if !(matches[0].Score > matches[1].Score) {
		t.Fatalf("expected descending scores, got=%v", []float64{matches[0].Score, matches[1].Score})
	}

	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter type: got=%T", captured["filter"])
	}
	must, ok := filter["must"].([]any)
	if !ok {
		t.Fatalf("must type: got=%T", filter["must"])
	}
	nsCond := findConditionByKey(must, payloadNamespaceKey)
	if nsCond == nil {
		t.Fatalf("missing namespace condition in filter")
	}
	nsMatch, ok := nsCond["match"].(map[string]any)
	if !ok || nsMatch["value"] != "rc:memories" {
		t.Fatalf("namespace match: got=%v", nsCond["match"])
	}

	typeCond := findConditionByKey(must, "mem_type")
	if typeCond == nil {
		t.Fatalf("missing mem_type condition")
	}
	typeMatch, ok := typeCond["match"].(map[string]any)
	if !ok {
		t.Fatalf("mem_type match type: got=%T", typeCond["match"])
	}
	anyVals, ok := typeMatch["any"].([]any)
	if !ok {
		t.Fatalf("mem_type any type: got=%T", typeMatch["any"])
	}
	if len(anyVals) != 2 {
		t.Fatalf("mem_type any length: want=2 got=%d", len(anyVals))
	}
}

func TestIndexQueryMatchesResolvesIDsFromPayload(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		return okResponse(t, []map[string]any{
			{
				"id":    "point-uuid-1",
				"score": 0.80,
				"payload": map[string]any{
					payloadVectorIDKey: "vec-1",
				},
			},
			{
				// Missing payload id falls back to the raw point id.
				"id":      "point-uuid-2",
				"score":   0.60,
				"payload": map[string]any{},
			},
		}), nil
	})

	matches, err := s.QueryMatches(context.Background(), "memories", []float32{1, 2, 3}, 5, nil)
	if err != nil {
		t.Fatalf("QueryMatches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches length: want=2 got=%d", len(matches))
	}
	if matches[0].ID != "vec-1" {
		t.Fatalf("matches[0].ID: want=%q got=%q", "vec-1", matches[0].ID)
	}
	if matches[1].ID != "point-uuid-2" {
		t.Fatalf("matches[1].ID: want=%q got=%q", "point-uuid-2", matches[1].ID)
	}
}

func TestIndexDeleteIDsDedupesAndNamespacesPointIDs(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.Method != http.MethodPost {
			t.Fatalf("method: want=%s got=%s", http.MethodPost, r.Method)
		}
		if r.URL.Path != "/collections/recall/points/delete" {
			t.Fatalf("path: want=%q got=%q", "/collections/recall/points/delete", r.URL.Path)
		}
		if r.URL.RawQuery != "wait=true" {
			t.Fatalf("query: want=%q got=%q", "wait=true", r.URL.RawQuery)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	err := s.DeleteIDs(context.Background(), "memories", []string{"vec-1", "vec-1", " ", "vec-2"})
	if err != nil {
		t.Fatalf("DeleteIDs: %v", err)
	}

	points, ok := captured["points"].([]any)
	if !ok {
		t.Fatalf("points type: got=%T", captured["points"])
	}
	if len(points) != 2 {
		t.Fatalf("points length: want=2 got=%d", len(points))
	}

	got := map[string]struct{}{}
	for _, p := range points {
		id, ok := p.(string)
		if !ok {
			t.Fatalf("point id type: got=%T", p)
		}
		got[id] = struct{}{}
	}
	wantA := s.pointID("rc:memories", "vec-1")
	wantB := s.pointID("rc:memories", "vec-2")
	if _, ok := got[wantA]; !ok {
		t.Fatalf("missing point id: %s", wantA)
	}
	if _, ok := got[wantB]; !ok {
		t.Fatalf("missing point id: %s", wantB)
	}
}

func TestIndexDeleteByFilterScopesToNamespace(t *testing.T) {
	var captured map[string]any
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		if r.URL.Path != "/collections/recall/points/delete" {
			t.Fatalf("path: want=%q got=%q", "/collections/recall/points/delete", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		return okResponse(t, map[string]any{"status": "acknowledged"}), nil
	})

	if err := s.DeleteByFilter(context.Background(), "memories", map[string]any{"user_id": "u1"}); err != nil {
		t.Fatalf("DeleteByFilter: %v", err)
	}

	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("filter type: got=%T", captured["filter"])
	}
	must, ok := filter["must"].([]any)
	if !ok {
		t.Fatalf("must type: got=%T", filter["must"])
	}
	if findConditionByKey(must, payloadNamespaceKey) == nil {
		t.Fatalf("missing namespace condition in delete filter")
	}
	if findConditionByKey(must, "user_id") == nil {
		t.Fatalf("missing user_id condition in delete filter")
	}
}

func TestIndexQueryMatchesUnsupportedFilterError(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request to %s", r.URL.Path)
		return nil, nil
	})

	_, err := s.QueryMatches(context.Background(), "memories", []float32{1, 2, 3}, 3, map[string]any{
		"seq": map[string]any{
			"$gt": 1,
		},
	})
	if err == nil {
		t.Fatalf("QueryMatches: expected error, got nil")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("error code: want=%q got=%q", OperationErrorUnsupportedFilter, opErr.Code)
	}
}

func TestIndexHTTPErrorCarriesStatusAndBody(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusServiceUnavailable,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader(`{"status":{"error":"collection is locked"}}`)),
		}, nil
	})

	_, err := s.QueryMatches(context.Background(), "memories", []float32{1, 2, 3}, 3, nil)
	if err == nil {
		t.Fatalf("QueryMatches: expected error, got nil")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorQueryFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorQueryFailed, opErr.Code)
	}
	if opErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status: want=%d got=%d", http.StatusServiceUnavailable, opErr.StatusCode)
	}
}

func TestIndexEnvelopeStatusErrorSurfaces(t *testing.T) {
	s := newTestIndex(t, func(r *http.Request) (*http.Response, error) {
		payload := map[string]any{
			"result": nil,
			"status": map[string]any{"error": "wrong vector size"},
			"time":   0.001,
		}
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal response: %v", err)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     make(http.Header),
			Body:       io.NopCloser(bytes.NewReader(raw)),
		}, nil
	})

	_, err := s.QueryMatches(context.Background(), "memories", []float32{1, 2, 3}, 3, nil)
	if err == nil {
		t.Fatalf("QueryMatches: expected error, got nil")
	}
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorQueryFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorQueryFailed, opErr.Code)
	}
	if !strings.Contains(opErr.Message, "wrong vector size") {
		t.Fatalf("message missing qdrant error: %q", opErr.Message)
	}
}

func TestClassifyHTTPCallErrorTimeout(t *testing.T) {
	err := classifyHTTPCallError("query", "timeout", context.DeadlineExceeded)
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTimeout {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTimeout, opErr.Code)
	}
}

func TestClassifyHTTPCallErrorTransport(t *testing.T) {
	err := classifyHTTPCallError("query", "transport", fmt.Errorf("boom"))
	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorTransportFailed {
		t.Fatalf("error code: want=%q got=%q", OperationErrorTransportFailed, opErr.Code)
	}
}

func newTestIndex(t *testing.T, roundTrip func(*http.Request) (*http.Response, error)) *index {
	t.Helper()
	client := &http.Client{
		Transport: roundTripFunc(roundTrip),
	}
	return &index{
		log:      newTestLogger(t),
		cfg:      Config{Collection: "recall", VectorDim: 3},
		baseURL:  "http://qdrant.local",
		nsPrefix: "rc",
		http:     client,
	}
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() {
		log.Sync()
	})
	return log
}

func okResponse(t *testing.T, result any) *http.Response {
	t.Helper()
	payload := map[string]any{
		"result": result,
		"status": "ok",
		"time":   0.001,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(bytes.NewReader(raw)),
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
