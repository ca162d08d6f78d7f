// Package extraction defines the pluggable strategy contract that turns
// free text into the triple groups the triplet learner consumes, plus
// two concrete strategies: a deterministic lexical "fast" strategy and
// a retrying LLM-backed strategy. Neither strategy is part of the
// decayed store itself — a caller that already has triples never needs
// this package at all.
package extraction

import (
	"context"

	"github.com/kittclouds/mnemokit/internal/scheduler"
)

// WorldFact is a bare (subject, relation, object) observation with no
// sentiment attached.
type WorldFact struct {
	Source   string
	Relation string
	Target   string
}

// PartnerStance is a sentiment-bearing triple describing what someone
// other than the agent believes.
type PartnerStance struct {
	Source    string
	Relation  string
	Target    string
	Sentiment float64
}

// SelfReaction is a rated, sentiment-bearing triple describing how the
// agent itself should update toward an entity.
type SelfReaction struct {
	Source    string
	Relation  string
	Target    string
	Rating    scheduler.Rating
	Sentiment float64
}

// Result is the unified output of a single extraction call.
type Result struct {
	WorldFacts       []WorldFact     `json:"world_facts"`
	PartnerStance    []PartnerStance `json:"partner_stance"`
	SelfReaction     []SelfReaction  `json:"self_reaction"`
	Mode             string          `json:"mode"`
	OverallSentiment float64         `json:"overall_sentiment"`
	Entities         []string        `json:"entities"`
}

// Strategy is the pluggable contract consumed by the absorb compound
// operation whenever a caller omits explicit triples. Implementations
// must be safe for concurrent use.
type Strategy interface {
	Extract(ctx context.Context, text, author, agentName string) (Result, error)
}
