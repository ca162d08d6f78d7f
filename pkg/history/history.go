// Package history builds the exported visualiser JSON document
// (§6 "Exported history JSON") from a store's raw Export() dump. It is
// strictly a read-side formatting layer on top of the core — the
// out-of-core `export` and `serve` CLI subcommands are its only callers.
package history

import (
	"encoding/json"
	"math"
	"time"

	"github.com/kittclouds/mnemokit/internal/scheduler"
)

// Metadata is the document header.
type Metadata struct {
	Topic      string `json:"topic"`
	Date       string `json:"date"`
	ExportedAt string `json:"exported_at"`
}

// NodeView is one rendered graph node.
type NodeView struct {
	ID             string  `json:"id"`
	Radius         float64 `json:"radius"`
	Retrievability float64 `json:"retrievability"`
	Stability      float64 `json:"stability"`
	Group          string  `json:"group"`
}

// LinkView is one rendered graph edge.
type LinkView struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label"`
}

// Graph is one agent's rendered node/link set at a step.
type Graph struct {
	Nodes []NodeView `json:"nodes"`
	Links []LinkView `json:"links"`
}

// Step is one point in the exported timeline.
type Step struct {
	Step   uint32           `json:"step"`
	Round  uint32           `json:"round"`
	Action string           `json:"action"`
	Graphs map[string]Graph `json:"graphs"`
}

// Document is the full exported history.
type Document struct {
	Metadata Metadata `json:"metadata"`
	Agents   []string `json:"agents"`
	Steps    []Step   `json:"steps"`
}

// wire mirrors the private shape internal/store.Export() serializes.
// Duplicated rather than imported: Export's JSON contract is the
// interface boundary, not the Go struct behind it.
type wireNode struct {
	Owner         string  `json:"owner"`
	ID            string  `json:"id"`
	Stability     float64 `json:"stability"`
	Difficulty    float64 `json:"difficulty"`
	Reps          int     `json:"reps"`
	State         int     `json:"state"`
	LastReviewAt  *int64  `json:"last_review_at,omitempty"`
	LastReviewDay *int64  `json:"last_review_day,omitempty"`
}

type wireEdge struct {
	Owner     string  `json:"owner"`
	Source    string  `json:"source"`
	Relation  string  `json:"relation"`
	Target    string  `json:"target"`
	Sentiment float64 `json:"sentiment"`
}

type wireLog struct {
	ID         int64  `json:"id"`
	Agent      string `json:"agent"`
	ActionType string `json:"action_type"`
	SimDay     *int64 `json:"sim_day,omitempty"`
	SimHour    *int64 `json:"sim_hour,omitempty"`
}

type wireDocument struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
	Logs  []wireLog  `json:"logs"`
}

// Build turns a raw Engine.Export() dump into the external history
// document. The underlying store keeps only current node/edge state
// (last-write-wins), not a per-write snapshot, so every step shares
// the same final graph; what varies across steps is the step index,
// round, and the action that produced the corresponding log record.
// A store that wants true per-step graph diffs would need to persist
// edge history separately — out of scope here.
func Build(exportJSON []byte, topic string, params scheduler.Params, now time.Time) (*Document, error) {
	var wire wireDocument
	if err := json.Unmarshal(exportJSON, &wire); err != nil {
		return nil, err
	}

	agentSet := make(map[string]bool)
	for _, n := range wire.Nodes {
		agentSet[n.Owner] = true
	}
	for _, l := range wire.Logs {
		agentSet[l.Agent] = true
	}
	agents := make([]string, 0, len(agentSet))
	for a := range agentSet {
		agents = append(agents, a)
	}

	graphs := buildGraphs(wire, params, now)

	doc := &Document{
		Metadata: Metadata{
			Topic:      topic,
			Date:       now.Format(time.RFC3339),
			ExportedAt: now.Format(time.RFC3339),
		},
		Agents: agents,
	}

	if len(wire.Logs) == 0 {
		doc.Steps = []Step{{Step: 0, Round: 0, Action: "snapshot", Graphs: graphs}}
		return doc, nil
	}

	for i, l := range wire.Logs {
		var round uint32
		if l.SimDay != nil {
			round = uint32(*l.SimDay)
		}
		doc.Steps = append(doc.Steps, Step{
			Step:   uint32(i),
			Round:  round,
			Action: l.ActionType,
			Graphs: graphs,
		})
	}
	return doc, nil
}

func buildGraphs(wire wireDocument, params scheduler.Params, now time.Time) map[string]Graph {
	nodesByOwner := make(map[string][]NodeView)
	for _, n := range wire.Nodes {
		card := scheduler.Card{
			Stability:  n.Stability,
			Difficulty: n.Difficulty,
			Reps:       n.Reps,
			State:      scheduler.State(n.State),
		}
		retrievability := currentRetrievability(params, card, n.LastReviewAt, now)
		nodesByOwner[n.Owner] = append(nodesByOwner[n.Owner], NodeView{
			ID:             n.ID,
			Radius:         5 + 10*retrievability,
			Retrievability: retrievability,
			Stability:      n.Stability,
			Group:          "entity",
		})
	}

	linksByOwner := make(map[string][]LinkView)
	for _, e := range wire.Edges {
		linksByOwner[e.Owner] = append(linksByOwner[e.Owner], LinkView{
			Source: e.Source,
			Target: e.Target,
			Label:  e.Relation,
		})
	}

	graphs := make(map[string]Graph)
	for owner, nodes := range nodesByOwner {
		graphs[owner] = Graph{Nodes: nodes, Links: linksByOwner[owner]}
	}
	for owner, links := range linksByOwner {
		if _, ok := graphs[owner]; !ok {
			graphs[owner] = Graph{Links: links}
		}
	}
	return graphs
}

// currentRetrievability computes R at export time using the elapsed
// days between the node's last review and now; a node with no review
// history yet is rendered fully retrievable.
func currentRetrievability(params scheduler.Params, card scheduler.Card, lastReviewAt *int64, now time.Time) float64 {
	if lastReviewAt == nil || card.Stability <= 0 {
		return 1
	}
	elapsed := now.Sub(time.Unix(*lastReviewAt, 0).UTC()).Hours() / 24
	if elapsed < 0 {
		elapsed = 0
	}
	r := scheduler.Retrievability(params, card, elapsed)
	return math.Round(r*10000) / 10000
}
