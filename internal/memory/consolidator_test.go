package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/recall-backend/internal/domain"
)

func TestConsolidatorPassThroughWithoutExisting(t *testing.T) {
	llm := &fakeLLM{}
	c := NewConsolidator(llm, testLogger())

	candidates := []Record{{Content: "Lives in Denver", Attributes: RecordAttributes{Type: types.MemoryTypeFact}}}
	plan, err := c.Plan(context.Background(), "user-1", nil, candidates)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("model should not run with no existing memories")
	}
	if len(plan) != 1 {
		t.Fatalf("expected pass-through plan of 1, got %d", len(plan))
	}
	if _, err := uuid.Parse(plan[0].ID); err != nil {
		t.Fatalf("candidate should get a fresh uuid, got %q", plan[0].ID)
	}
	if plan[0].UserID != "user-1" {
		t.Fatalf("plan entry user = %q", plan[0].UserID)
	}
	if plan[0].Attributes.Status != types.MemoryStatusActive {
		t.Fatalf("plan entry status = %q", plan[0].Attributes.Status)
	}
}

func TestConsolidatorPromptsWithBothSets(t *testing.T) {
	existingID := uuid.NewString()
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":[
		{"id":"` + existingID + `","user_id":"user-1","content":"Lives in Boulder","memory_attributes":{"type":"fact","status":"active"}}
	]}`)}
	c := NewConsolidator(llm, testLogger())

	existing := []Record{{ID: existingID, UserID: "user-1", Content: "Lives in Denver", Attributes: RecordAttributes{Type: types.MemoryTypeFact, Status: types.MemoryStatusActive}}}
	candidates := []Record{{Content: "Lives in Boulder", Attributes: RecordAttributes{Type: types.MemoryTypeFact}}}

	plan, err := c.Plan(context.Background(), "user-1", existing, candidates)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if !strings.Contains(llm.lastUser, "Existing memories:") || !strings.Contains(llm.lastUser, "New memories:") {
		t.Fatalf("prompt missing sections: %s", llm.lastUser)
	}
	if len(plan) != 1 || plan[0].ID != existingID {
		t.Fatalf("plan should keep the existing id, got %+v", plan)
	}
}

func TestConsolidatorDropsInvalidEntries(t *testing.T) {
	llm := &fakeLLM{jsonOut: jsonObj(`{"memories":[
		{"id":"","user_id":"user-1","content":"no id","memory_attributes":{"type":"fact","status":"active"}},
		{"id":"` + uuid.NewString() + `","user_id":"user-1","content":"","memory_attributes":{"type":"fact","status":"active"}},
		{"id":"` + uuid.NewString() + `","user_id":"other","content":"kept","memory_attributes":{"type":"","status":"weird"}}
	]}`)}
	c := NewConsolidator(llm, testLogger())

	existing := []Record{{ID: uuid.NewString(), Content: "x", Attributes: RecordAttributes{Type: types.MemoryTypeFact, Status: types.MemoryStatusActive}}}
	plan, err := c.Plan(context.Background(), "user-1", existing, []Record{{Content: "kept"}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(plan) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(plan))
	}
	got := plan[0]
	if got.UserID != "user-1" {
		t.Fatalf("user scope must be forced to the caller, got %q", got.UserID)
	}
	if got.Attributes.Status != types.MemoryStatusActive {
		t.Fatalf("unknown status must normalize to active, got %q", got.Attributes.Status)
	}
	if got.Attributes.Type != types.MemoryTypeFact {
		t.Fatalf("missing type must default to fact, got %q", got.Attributes.Type)
	}
}

func TestConsolidatorEmptyCandidatesIsNoop(t *testing.T) {
	llm := &fakeLLM{}
	c := NewConsolidator(llm, testLogger())
	plan, err := c.Plan(context.Background(), "user-1", []Record{{ID: uuid.NewString(), Content: "x"}}, nil)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan != nil || llm.calls != 0 {
		t.Fatalf("empty candidates should short-circuit")
	}
}
