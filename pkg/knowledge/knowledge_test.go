package knowledge

import (
	"strings"
	"testing"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

func newTestStorer(t *testing.T) store.Storer {
	t.Helper()
	e, err := store.NewSQLiteEngine(store.DefaultConfig(":memory:"))
	if err != nil {
		t.Fatalf("NewSQLiteEngine() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}

func TestContextScenarioS1(t *testing.T) {
	storer := newTestStorer(t)
	learner := NewLearner(storer, scheduler.DefaultParams(), nil)

	if err := learner.Learn("Alice", "I", "support", "UBI", scheduler.Easy, 0.8, timepoint.Round(1, 9)); err != nil {
		t.Fatal(err)
	}

	builder := NewContextBuilder(storer)
	ctx, err := builder.Build("Alice", "UBI", timepoint.Round(1, 9))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(ctx, "MY CURRENT STANCE: ") {
		t.Fatalf("context = %q, want MY CURRENT STANCE: prefix", ctx)
	}
	if !strings.Contains(ctx, "I support UBI (very positively)") {
		t.Fatalf("context = %q, want stance phrase", ctx)
	}
	if strings.Count(ctx, "KNOWN FACTS: ") != 1 {
		t.Fatalf("context = %q, want exactly one KNOWN FACTS section", ctx)
	}
}

func TestContextScenarioS4PartitionedRetrieval(t *testing.T) {
	storer := newTestStorer(t)
	learner := NewLearner(storer, scheduler.DefaultParams(), nil)
	tp := timepoint.Round(1, 9)

	sentiment := 0.8
	if err := learner.Learn("Alice", "I", "support", "UBI", scheduler.Easy, sentiment, tp); err != nil {
		t.Fatal(err)
	}
	oppose := -0.6
	if err := learner.Learn("Alice", "Bob", "opposes", "UBI", scheduler.Easy, oppose, tp); err != nil {
		t.Fatal(err)
	}

	builder := NewContextBuilder(storer)
	ctx, err := builder.Build("Alice", "UBI", tp)
	if err != nil {
		t.Fatal(err)
	}

	stanceIdx := strings.Index(ctx, "I support UBI (very positively)")
	worldIdx := strings.Index(ctx, "Bob opposes UBI")
	if stanceIdx == -1 {
		t.Fatalf("context missing stance phrase: %q", ctx)
	}
	if worldIdx == -1 {
		t.Fatalf("context missing world-knowledge phrase: %q", ctx)
	}
	if stanceIdx > worldIdx {
		t.Fatalf("expected stance section before world section, got %q", ctx)
	}
}

func TestContextEmptyTopicYieldsSentinels(t *testing.T) {
	storer := newTestStorer(t)
	builder := NewContextBuilder(storer)
	ctx, err := builder.Build("Alice", "", timepoint.Round(1, 9))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ctx, "KNOWN FACTS: (limited knowledge on this)") {
		t.Fatalf("context = %q, want empty-state sentinel", ctx)
	}
}

func TestQualifierThresholds(t *testing.T) {
	cases := []struct {
		sentiment float64
		want      string
	}{
		{0.9, " (very positively)"},
		{0.5, " (positively)"},
		{0.2, " (somewhat positively)"},
		{0.05, ""},
		{-0.05, ""},
		{-0.2, " (somewhat negatively)"},
		{-0.5, " (negatively)"},
		{-0.9, " (very negatively)"},
	}
	for _, c := range cases {
		if got := qualifier(c.sentiment); got != c.want {
			t.Errorf("qualifier(%v) = %q, want %q", c.sentiment, got, c.want)
		}
	}
}
