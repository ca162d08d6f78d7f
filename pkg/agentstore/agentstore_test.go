package agentstore

import (
	"context"
	"strings"
	"testing"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/internal/timepoint"
	"github.com/kittclouds/mnemokit/pkg/extraction"
)

func newTestEngine(t *testing.T) store.Storer {
	t.Helper()
	e, err := store.NewSQLiteEngine(store.DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("NewSQLiteEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func ptr(f float64) *float64 { return &f }

func TestCreateOrGetIsIdempotent(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	h1, err := s.CreateOrGet("Alice")
	if err != nil {
		t.Fatal(err)
	}
	h2, err := s.CreateOrGet("Alice")
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatal("CreateOrGet returned distinct handles for the same name")
	}
}

func TestOperationsOnUnknownAgentFail(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	if _, err := s.GetContext("Ghost", "UBI"); err == nil {
		t.Fatal("expected agent-not-found error")
	}
	if err := s.SetTime("Ghost", timepoint.Round(1, 0)); err == nil {
		t.Fatal("expected agent-not-found error")
	}
}

func TestAbsorbWithExplicitTriplesThenGetContext(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	if _, err := s.CreateOrGet("Alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTime("Alice", timepoint.Round(1, 9)); err != nil {
		t.Fatal(err)
	}

	triples := []Triple{{Subject: "I", Relation: "support", Target: "UBI", Sentiment: ptr(0.8)}}
	if err := s.Absorb(context.Background(), "Alice", "", "Alice", triples); err != nil {
		t.Fatal(err)
	}

	ctx, err := s.GetContext("Alice", "UBI")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx, "I support UBI") {
		t.Fatalf("context = %q, want stance phrase", ctx)
	}
}

func TestAbsorbWithoutTriplesAndNoExtractorFails(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	if _, err := s.CreateOrGet("Alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.Absorb(context.Background(), "Alice", "some text", "Alice", nil); err == nil {
		t.Fatal("expected no-extraction-capability error")
	}
}

func TestAbsorbWithExtractorStrategy(t *testing.T) {
	strategy := extraction.UserProvided{Result: extraction.Result{
		Mode: "user",
		PartnerStance: []extraction.PartnerStance{
			{Source: "Bob", Relation: "opposes", Target: "UBI", Sentiment: -0.5},
		},
	}}
	s := New(newTestEngine(t), scheduler.DefaultParams(), strategy, nil)
	if _, err := s.CreateOrGet("Alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTime("Alice", timepoint.Round(1, 0)); err != nil {
		t.Fatal(err)
	}
	if err := s.Absorb(context.Background(), "Alice", "Bob opposes UBI", "Bob", nil); err != nil {
		t.Fatal(err)
	}

	ctx, err := s.GetContext("Alice", "UBI")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx, "Bob opposes UBI") {
		t.Fatalf("context = %q, want world-knowledge phrase", ctx)
	}
}

func TestUpdateWithResponseRewritesSourceToSelf(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	if _, err := s.CreateOrGet("Alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTime("Alice", timepoint.Round(1, 0)); err != nil {
		t.Fatal(err)
	}

	triples := []Triple{{Subject: "Bob", Relation: "discusses", Target: "UBI"}}
	if err := s.UpdateWithResponse(context.Background(), "Alice", "I think UBI is worth discussing", triples); err != nil {
		t.Fatal(err)
	}

	ctx, err := s.GetContext("Alice", "UBI")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx, "I discusses UBI") {
		t.Fatalf("context = %q, want source rewritten to I", ctx)
	}
}

func TestProcessAndGetContextIsAtomicOnFailure(t *testing.T) {
	s := New(newTestEngine(t), scheduler.DefaultParams(), nil, nil)
	if _, err := s.CreateOrGet("Alice"); err != nil {
		t.Fatal(err)
	}
	_, err := s.ProcessAndGetContext(context.Background(), "Alice", "UBI", "text", "Bob", nil)
	if err == nil {
		t.Fatal("expected failure to propagate without returning a context")
	}
}
