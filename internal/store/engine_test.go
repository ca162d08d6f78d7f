package store

import (
	"math"
	"testing"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig(":memory:")
	e, err := NewSQLiteEngine(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestLearnTripleInitialLearning(t *testing.T) {
	e := newTestEngine(t)
	params := scheduler.DefaultParams()
	tp := timepoint.Round(1, 9)

	err := e.LearnTriple("Alice", "I", "support", "UBI", scheduler.Easy, 0.8, tp, params, nil)
	if err != nil {
		t.Fatalf("LearnTriple() error = %v", err)
	}

	node, err := e.GetNode("Alice", "I")
	if err != nil {
		t.Fatal(err)
	}
	if node == nil {
		t.Fatal("expected node \"I\" to exist")
	}
	if math.Abs(node.Stability-8.2956) > 1e-9 {
		t.Fatalf("Stability = %v, want 8.2956", node.Stability)
	}
	if node.Reps != 1 {
		t.Fatalf("Reps = %v, want 1", node.Reps)
	}

	ubi, err := e.GetNode("Alice", "UBI")
	if err != nil || ubi == nil {
		t.Fatalf("expected node UBI to exist, err=%v", err)
	}
}

func TestLearnTripleReinforcement(t *testing.T) {
	e := newTestEngine(t)
	params := scheduler.DefaultParams()

	if err := e.LearnTriple("Alice", "I", "support", "UBI", scheduler.Easy, 0.8, timepoint.Round(1, 9), params, nil); err != nil {
		t.Fatal(err)
	}
	before, _ := e.GetNode("Alice", "I")

	if err := e.LearnTriple("Alice", "I", "support", "UBI", scheduler.Good, 0, timepoint.Round(2, 9), params, nil); err != nil {
		t.Fatal(err)
	}
	after, _ := e.GetNode("Alice", "I")

	if after.Stability <= before.Stability {
		t.Fatalf("Stability did not increase: %v -> %v", before.Stability, after.Stability)
	}
	if after.Reps != 2 {
		t.Fatalf("Reps = %v, want 2", after.Reps)
	}
}

func TestAddEdgeClampsSentiment(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddEdge("Alice", "I", "support", "UBI", 5.0, timepoint.Round(1, 0)); err != nil {
		t.Fatal(err)
	}
	stance, err := e.GetAgentStance("Alice", "UBI", timepoint.Round(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(stance) != 1 {
		t.Fatalf("len(stance) = %v, want 1", len(stance))
	}
	if stance[0].Sentiment != 1.0 {
		t.Fatalf("Sentiment = %v, want clamped to 1.0", stance[0].Sentiment)
	}
}

func TestCrossOwnerIsolation(t *testing.T) {
	e := newTestEngine(t)
	params := scheduler.DefaultParams()
	if err := e.LearnTriple("A", "I", "likes", "X", scheduler.Good, 0, timepoint.Round(1, 0), params, nil); err != nil {
		t.Fatal(err)
	}

	stance, err := e.GetAgentStance("B", "X", timepoint.Round(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(stance) != 0 {
		t.Fatalf("expected no stance rows for B, got %v", stance)
	}

	node, err := e.GetNode("B", "X")
	if err != nil {
		t.Fatal(err)
	}
	if node != nil {
		t.Fatalf("expected node X absent for owner B, got %+v", node)
	}
}

func TestPartitionedRetrieval(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddEdge("Alice", "I", "support", "UBI", 0.8, timepoint.Round(1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := e.AddEdge("Alice", "Bob", "opposes", "UBI", -0.6, timepoint.Round(1, 0)); err != nil {
		t.Fatal(err)
	}

	stance, err := e.GetAgentStance("Alice", "UBI", timepoint.Round(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(stance) != 1 || stance[0].Source != "I" {
		t.Fatalf("stance = %+v, want one row from \"I\"", stance)
	}

	world, err := e.GetWorldKnowledge("Alice", "UBI", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(world) != 1 || world[0].Source != "Bob" {
		t.Fatalf("world = %+v, want one row from Bob", world)
	}
}

func TestPrivacyHandle(t *testing.T) {
	cfg := DefaultConfig(":memory:")
	cfg.StoreLogContent = false
	e, err := NewSQLiteEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()

	handle, err := e.Log("Alice", ActionAbsorb, "secret text", nil, timepoint.Round(1, 0), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(handle) != 36 {
		t.Fatalf("handle = %q, want a UUID string", handle)
	}

	recs, err := e.IterLog("Alice", nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ContentOrHandle != handle {
		t.Fatalf("log record content = %q, want handle %q", recs[0].ContentOrHandle, handle)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	params := scheduler.DefaultParams()
	if err := e.LearnTriple("Alice", "I", "support", "UBI", scheduler.Good, 0.5, timepoint.Round(1, 0), params, nil); err != nil {
		t.Fatal(err)
	}

	data, err := e.Export()
	if err != nil {
		t.Fatal(err)
	}

	e2 := newTestEngine(t)
	if err := e2.Import(data); err != nil {
		t.Fatal(err)
	}

	node, err := e2.GetNode("Alice", "I")
	if err != nil || node == nil {
		t.Fatalf("expected node after import, err=%v", err)
	}

	data2, err := e2.Export()
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 || len(data2) == 0 {
		t.Fatal("expected non-empty export documents")
	}
}

func TestValidationRejectsEmptyFields(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddEdge("", "I", "support", "UBI", 0, timepoint.Round(1, 0)); err == nil {
		t.Fatal("expected error for empty owner")
	}
	if err := e.AddEdge("Alice", "", "support", "UBI", 0, timepoint.Round(1, 0)); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestInvalidRoundRejected(t *testing.T) {
	e := newTestEngine(t)
	if err := e.AddEdge("Alice", "I", "support", "UBI", 0, timepoint.Round(0, 9)); err == nil {
		t.Fatal("expected error for day 0")
	}
}
