package memory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/smallnest/memoria/log"
)

func newTestReconciler(llm *fakeLLM) *reconciler {
	return newReconciler(llm, "", &log.NoOpLogger{})
}

func TestReconciler_EmptyExistingSkipsLLM(t *testing.T) {
	llm := &fakeLLM{}
	r := newTestReconciler(llm)

	decisions, err := r.Reconcile(context.Background(), []string{"Name is Alice", "Lives in Oslo"}, nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if llm.callCount() != 0 {
		t.Errorf("Expected no LLM call for empty existing memory, got %d", llm.callCount())
	}
	if len(decisions) != 2 {
		t.Fatalf("Expected 2 decisions, got %d", len(decisions))
	}
	for _, d := range decisions {
		if d.Event != EventAdd {
			t.Errorf("Expected ADD, got %s", d.Event)
		}
	}
}

func TestReconciler_MapsTempIDs(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"memory": [
		{"id": "0", "text": "Lives in Berlin", "event": "UPDATE", "old_memory": "Lives in Paris"},
		{"id": "1", "text": "Likes tea", "event": "NONE"},
		{"id": "2", "text": "Allergic to nuts", "event": "ADD"}
	]}`}}
	r := newTestReconciler(llm)

	existing := []existingMemory{
		{ID: "uuid-paris", Text: "Lives in Paris"},
		{ID: "uuid-tea", Text: "Likes tea"},
	}

	decisions, err := r.Reconcile(context.Background(), []string{"Lives in Berlin", "Allergic to nuts"}, existing)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("Expected 2 decisions (NONE filtered), got %d", len(decisions))
	}
	if decisions[0].Event != EventUpdate || decisions[0].ID != "uuid-paris" {
		t.Errorf("Temp id not mapped to real memory id: %+v", decisions[0])
	}
	if decisions[0].OldMemory != "Lives in Paris" {
		t.Errorf("Expected old memory from the stored text, got %q", decisions[0].OldMemory)
	}
	if decisions[1].Event != EventAdd || decisions[1].Text != "Allergic to nuts" {
		t.Errorf("Unexpected ADD decision: %+v", decisions[1])
	}
}

func TestReconciler_DropsHallucinatedIDs(t *testing.T) {
	// Models sometimes invent ids despite the instructions; those decisions
	// must be dropped without blocking the rest of the batch.
	llm := &fakeLLM{responses: []string{`{"memory": [
		{"id": "42", "text": "whatever", "event": "UPDATE"},
		{"id": "not-a-number", "event": "DELETE"},
		{"id": "0", "event": "DELETE"},
		{"text": "Is a nurse", "event": "ADD"}
	]}`}}
	r := newTestReconciler(llm)

	existing := []existingMemory{{ID: "uuid-1", Text: "Works at a hospital"}}

	decisions, err := r.Reconcile(context.Background(), []string{"Is a nurse"}, existing)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(decisions) != 2 {
		t.Fatalf("Expected 2 surviving decisions, got %d: %+v", len(decisions), decisions)
	}
	if decisions[0].Event != EventDelete || decisions[0].ID != "uuid-1" {
		t.Errorf("Expected DELETE of uuid-1, got %+v", decisions[0])
	}
	if decisions[1].Event != EventAdd {
		t.Errorf("Expected ADD to survive, got %+v", decisions[1])
	}
}

func TestReconciler_DropsEmptyAndUnknown(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"memory": [
		{"text": "", "event": "ADD"},
		{"id": "0", "text": "", "event": "UPDATE"},
		{"id": "0", "text": "x", "event": "MERGE"}
	]}`}}
	r := newTestReconciler(llm)

	existing := []existingMemory{{ID: "uuid-1", Text: "a"}}
	decisions, err := r.Reconcile(context.Background(), []string{"fact"}, existing)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(decisions) != 0 {
		t.Errorf("Expected all decisions dropped, got %+v", decisions)
	}
}

func TestReconciler_UnparseableResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{"the memory looks fine to me"}}
	r := newTestReconciler(llm)

	existing := []existingMemory{{ID: "uuid-1", Text: "a"}}
	_, err := r.Reconcile(context.Background(), []string{"fact"}, existing)
	if err == nil {
		t.Fatal("Expected an error for unparseable response")
	}
	var recErr *ReconciliationError
	if !errors.As(err, &recErr) {
		t.Fatalf("Expected ReconciliationError, got %T", err)
	}
	if recErr.Raw == "" {
		t.Error("ReconciliationError should carry the raw response")
	}
}

func TestReconciler_FencedResponse(t *testing.T) {
	llm := &fakeLLM{responses: []string{
		"```json\n{\"memory\": [{\"id\": \"0\", \"text\": \"Lives in Berlin\", \"event\": \"UPDATE\"}]}\n```",
	}}
	r := newTestReconciler(llm)

	existing := []existingMemory{{ID: "uuid-paris", Text: "Lives in Paris"}}
	decisions, err := r.Reconcile(context.Background(), []string{"Lives in Berlin"}, existing)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ID != "uuid-paris" {
		t.Errorf("Unexpected decisions: %+v", decisions)
	}
}

func TestBuildUpdateMemoryMessages(t *testing.T) {
	existing := []existingMemory{
		{ID: "uuid-a", Text: "Lives in Paris"},
		{ID: "uuid-b", Text: "Likes tea"},
	}
	msgs, err := buildUpdateMemoryMessages(existing, []string{"Lives in Berlin"}, "")
	if err != nil {
		t.Fatalf("buildUpdateMemoryMessages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected system+user messages, got %d", len(msgs))
	}

	user := msgs[1].Content
	// Real ids stay out of the prompt; memories are enumerated 0..n-1.
	if strings.Contains(user, "uuid-a") || strings.Contains(user, "uuid-b") {
		t.Error("Real memory ids must not appear in the prompt")
	}
	if !strings.Contains(user, `"id":"0"`) || !strings.Contains(user, `"id":"1"`) {
		t.Errorf("Expected temporary integer ids in the prompt: %q", user)
	}
	if !strings.Contains(user, "Lives in Berlin") {
		t.Errorf("Facts missing from the prompt: %q", user)
	}
}
