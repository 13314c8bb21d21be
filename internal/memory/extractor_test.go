package memory

import (
	"context"
	"errors"
	"testing"

	types "github.com/yungbote/recall-backend/internal/domain"
)

func TestExtractorSkipsSystemTurns(t *testing.T) {
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":[]}`)}
	ex := NewExtractor(llm, testLogger())

	window := []Turn{
		{Role: types.RoleSystem, Content: "you are helpful"},
		{Role: types.RoleUser, Content: "I just moved to Denver"},
	}
	if _, err := ex.Extract(context.Background(), window); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one model call, got %d", llm.calls)
	}
	if want := `[{"role":"user","content":"I just moved to Denver"}]`; llm.lastUser != want {
		t.Fatalf("prompt window = %s, want %s", llm.lastUser, want)
	}
}

func TestExtractorEmptyWindowSkipsModel(t *testing.T) {
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":[]}`)}
	ex := NewExtractor(llm, testLogger())

	window := []Turn{
		{Role: types.RoleSystem, Content: "system only"},
		{Role: types.RoleUser, Content: "   "},
	}
	out, err := ex.Extract(context.Background(), window)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil candidates, got %v", out)
	}
	if llm.calls != 0 {
		t.Fatalf("model should not be called for an empty window")
	}
}

func TestExtractorNormalizesCandidates(t *testing.T) {
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":[
		{"content":"  Works at Acme  ","memory_attributes":{"type":"fact"}},
		{"content":"Prefers dark mode","memory_attributes":{"type":""}},
		{"content":"  ","memory_attributes":{"type":"fact"}}
	]}`)}
	ex := NewExtractor(llm, testLogger())

	out, err := ex.Extract(context.Background(), []Turn{{Role: types.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(out))
	}
	if out[0].Content != "Works at Acme" {
		t.Fatalf("content not trimmed: %q", out[0].Content)
	}
	if out[1].Attributes.Type != types.MemoryTypeFact {
		t.Fatalf("missing type should default to fact, got %q", out[1].Attributes.Type)
	}
	for _, rec := range out {
		if rec.Attributes.Status != types.MemoryStatusActive {
			t.Fatalf("candidate status = %q, want active", rec.Attributes.Status)
		}
	}
}

func TestExtractorMalformedOutputIsEmpty(t *testing.T) {
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":"nope"}`)}
	ex := NewExtractor(llm, testLogger())

	out, err := ex.Extract(context.Background(), []Turn{{Role: types.RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("malformed output should not error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no candidates, got %d", len(out))
	}
}

func TestExtractorPropagatesTransportError(t *testing.T) {
	sentinel := errors.New("upstream 503")
	llm := &fakeLLM{jsonErr: sentinel}
	ex := NewExtractor(llm, testLogger())

	if _, err := ex.Extract(context.Background(), []Turn{{Role: types.RoleUser, Content: "hi"}}); !errors.Is(err, sentinel) {
		t.Fatalf("expected transport error to propagate, got %v", err)
	}
}
