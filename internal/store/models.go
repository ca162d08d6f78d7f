// Package store provides backend-agnostic persistence for the
// temporally-decaying knowledge graph: scheduled nodes, sentiment-bearing
// edges, and an append-only interaction log, all partitioned by owner.
package store

import (
	"time"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

// Node is a scheduled entity owned by a single agent.
type Node struct {
	Owner      string
	ID         string
	Stability  float64
	Difficulty float64
	Reps       int
	State      scheduler.State
	LastReview timepoint.TimePoint
	CreatedAt  time.Time
}

// Card extracts the scheduler state embedded in a Node so callers can
// feed it straight back into scheduler.Review. A nil or zero-reps Node
// yields the New card scheduler.Review expects.
func (n *Node) Card() scheduler.Card {
	if n == nil {
		return scheduler.Card{}
	}
	return scheduler.Card{
		Stability:  n.Stability,
		Difficulty: n.Difficulty,
		LastReview: n.LastReview,
		Reps:       n.Reps,
		State:      n.State,
	}
}

// Edge is a subject-relation-object triple keyed by the composite
// (owner, source, target, relation). Weight is written but never read
// by the core; it is retained for a future caller to extend the
// learner signature with, per the open design question on tuneable
// edge weighting.
type Edge struct {
	Owner     string
	Source    string
	Relation  string
	Target    string
	Weight    float64
	Sentiment float64
	CreatedAt time.Time
	TimePoint timepoint.TimePoint
}

// StanceRow is one line of an agent-stance query result.
type StanceRow struct {
	Source    string
	Relation  string
	Target    string
	Sentiment float64
}

// FactRow is one line of a world-knowledge query result. Sentiment is
// carried along even though §4.2's core contract only names
// (source, relation, target): the "WHAT OTHERS THINK" context section
// formats these lines the same way as stance lines, which requires it.
type FactRow struct {
	Source    string
	Relation  string
	Target    string
	Sentiment float64
}

// LogRecord is an append-only interaction log entry. ContentOrHandle
// holds either the raw content or, in privacy mode, a UUID handle.
type LogRecord struct {
	ID              int64
	Owner           string
	ActionType      string
	ContentOrHandle string
	Annotations     map[string]interface{}
	Timestamp       time.Time
	TimePoint       timepoint.TimePoint
}

// Action type tags recorded on log rows.
const (
	ActionWrite  = "write"
	ActionAbsorb = "absorb"
)

// Storer is the persistence contract every backend engine implements.
// All operations are owner-partitioned: no call ever reads or writes a
// row belonging to a different owner.
type Storer interface {
	UpsertNode(owner, id string, card *scheduler.Card, tp timepoint.TimePoint) error
	GetNode(owner, id string) (*Node, error)

	AddEdge(owner, source, relation, target string, sentiment float64, tp timepoint.TimePoint) error

	Log(owner, actionType, content string, annotations map[string]interface{}, tp timepoint.TimePoint, providedHandle string) (string, error)
	IterLog(owner string, since *int64, limit int) ([]LogRecord, error)

	GetAgentStance(owner, topic string, now timepoint.TimePoint) ([]StanceRow, error)
	GetWorldKnowledge(owner, topic string, limit int) ([]FactRow, error)

	// LearnTriple runs the full C4 learn transaction: read-card, score,
	// upsert both endpoints, upsert the edge, append the log row, all in
	// one backend transaction.
	LearnTriple(owner, source, relation, target string, rating scheduler.Rating, sentiment float64, tp timepoint.TimePoint, params scheduler.Params, logAnnotations map[string]interface{}) error

	Export() ([]byte, error)
	Import(data []byte) error

	Close() error
}
