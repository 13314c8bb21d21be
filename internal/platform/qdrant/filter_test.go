package qdrant

import (
	"errors"
	"testing"
)

func TestTranslateFilterMapSubset(t *testing.T) {
	filter := map[string]any{
		"user_id": "u1",
		"mem_type": map[string]any{
			"$in": []any{"fact", "preference"},
		},
	}

	got, err := translateFilterMap(filter)
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	if len(got.Must) != 2 {
		t.Fatalf("must length: want=2 got=%d", len(got.Must))
	}

	userCond := findConditionByKey(got.Must, "user_id")
	if userCond == nil {
		t.Fatalf("missing user_id condition")
	}
	userMatch, ok := userCond["match"].(map[string]any)
	if !ok || userMatch["value"] != "u1" {
		t.Fatalf("user_id match: got=%v", userCond["match"])
	}

	typeCond := findConditionByKey(got.Must, "mem_type")
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
	if len(anyVals) != 2 || anyVals[0] != "fact" || anyVals[1] != "preference" {
		t.Fatalf("mem_type any values: got=%v", anyVals)
	}
}

func TestTranslateFilterMapNegation(t *testing.T) {
	got, err := translateFilterMap(map[string]any{
		"status": map[string]any{
			"$ne": "outdated",
		},
	})
	if err != nil {
		t.Fatalf("translateFilterMap: %v", err)
	}
	if len(got.Must) != 0 {
		t.Fatalf("must length: want=0 got=%d", len(got.Must))
	}
	if len(got.MustNot) != 1 {
		t.Fatalf("must_not length: want=1 got=%d", len(got.MustNot))
	}
	cond := findConditionByKey(got.MustNot, "status")
	if cond == nil {
		t.Fatalf("missing status condition in must_not")
	}
	match, ok := cond["match"].(map[string]any)
	if !ok || match["value"] != "outdated" {
		t.Fatalf("status match: got=%v", cond["match"])
	}
}

func TestTranslateFilterMapEmptyInIsValidationError(t *testing.T) {
	_, err := translateFilterMap(map[string]any{
		"session_id": map[string]any{
			"$in": []any{},
		},
	})
	if err == nil {
		t.Fatalf("translateFilterMap: expected error, got nil")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorValidation {
		t.Fatalf("error code: want=%q got=%q", OperationErrorValidation, opErr.Code)
	}
}

func TestTranslateFilterMapUnsupportedOperator(t *testing.T) {
	_, err := translateFilterMap(map[string]any{
		"seq": map[string]any{
			"$gt": 2,
		},
	})
	if err == nil {
		t.Fatalf("translateFilterMap: expected error, got nil")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("error code: want=%q got=%q", OperationErrorUnsupportedFilter, opErr.Code)
	}
}

func TestTranslateFilterMapTopLevelOperatorRejected(t *testing.T) {
	_, err := translateFilterMap(map[string]any{
		"$or": []any{},
	})
	if err == nil {
		t.Fatalf("translateFilterMap: expected error, got nil")
	}

	var opErr *OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got=%T", err)
	}
	if opErr.Code != OperationErrorUnsupportedFilter {
		t.Fatalf("error code: want=%q got=%q", OperationErrorUnsupportedFilter, opErr.Code)
	}
}

func findConditionByKey(items []any, key string) map[string]any {
	for _, raw := range items {
		cond, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if condKey, _ := cond["key"].(string); condKey == key {
			return cond
		}
	}
	return nil
}
