// Package knowledge implements the triplet learner and context
// builder that sit on top of a store.Storer: turning a single
// subject-relation-object observation into a scheduled write (C4),
// and blending an owner's stance and world-knowledge edges into the
// formatted string a downstream agent loop hands to an LLM (C5).
package knowledge

import (
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

// Triple is a caller-supplied observation: a subject-relation-object
// fact with an optional sentiment. A nil Sentiment means neutral
// (0.0), matching §4.8's "neutral sentiment or the optional fourth
// element if provided" contract.
type Triple struct {
	Subject   string
	Relation  string
	Target    string
	Sentiment *float64
}

func (t Triple) sentiment() float64 {
	if t.Sentiment == nil {
		return 0
	}
	return *t.Sentiment
}

// Learner runs the C4 triplet-learning transaction against a backing
// Storer, using a fixed scheduler configuration.
type Learner struct {
	Storer store.Storer
	Params scheduler.Params
	Log    *zap.Logger
}

// NewLearner constructs a Learner. A nil logger is replaced with a
// no-op logger so callers never need a nil check.
func NewLearner(storer store.Storer, params scheduler.Params, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Learner{Storer: storer, Params: params, Log: logger}
}

// Learn runs the full §4.4 transaction for one triple: score both
// endpoints, upsert them, upsert the edge, append a Write log row.
func (l *Learner) Learn(owner, source, relation, target string, rating scheduler.Rating, sentiment float64, tp timepoint.TimePoint) error {
	err := l.Storer.LearnTriple(owner, source, relation, target, rating, sentiment, tp, l.Params, nil)
	if err != nil {
		l.Log.Debug("learn failed", zap.String("owner", owner), zap.String("source", source), zap.String("target", target), zap.Error(err))
		return err
	}
	return nil
}

// LearnWithAnnotations is Learn plus extra log annotations merged
// into the write record (used by the compound ops to record author,
// action kind, etc. alongside rating/sentiment/reps).
func (l *Learner) LearnWithAnnotations(owner, source, relation, target string, rating scheduler.Rating, sentiment float64, tp timepoint.TimePoint, annotations map[string]interface{}) error {
	return l.Storer.LearnTriple(owner, source, relation, target, rating, sentiment, tp, l.Params, annotations)
}
