package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

// exportNode/exportEdge/exportLog are the wire shapes for Export/Import
// — JSON-friendly flattenings of Node/Edge/LogRecord that spell out
// both time representations instead of embedding TimePoint directly.
type exportNode struct {
	Owner          string  `json:"owner"`
	ID             string  `json:"id"`
	Stability      float64 `json:"stability"`
	Difficulty     float64 `json:"difficulty"`
	Reps           int     `json:"reps"`
	State          int     `json:"state"`
	LastReviewAt   *int64  `json:"last_review_at,omitempty"`
	LastReviewDay  *int64  `json:"last_review_day,omitempty"`
	LastReviewHour *int64  `json:"last_review_hour,omitempty"`
	CreatedAt      *int64  `json:"created_at,omitempty"`
}

type exportEdge struct {
	Owner     string  `json:"owner"`
	Source    string  `json:"source"`
	Relation  string  `json:"relation"`
	Target    string  `json:"target"`
	Weight    float64 `json:"weight"`
	Sentiment float64 `json:"sentiment"`
	CreatedAt *int64  `json:"created_at,omitempty"`
	SimDay    *int64  `json:"sim_day,omitempty"`
	SimHour   *int64  `json:"sim_hour,omitempty"`
}

type exportLog struct {
	ID          int64                  `json:"id"`
	Agent       string                 `json:"agent"`
	ActionType  string                 `json:"action_type"`
	Content     string                 `json:"content_or_handle"`
	Annotations map[string]interface{} `json:"annotations,omitempty"`
	Timestamp   *int64                 `json:"timestamp,omitempty"`
	SimDay      *int64                 `json:"sim_day,omitempty"`
	SimHour     *int64                 `json:"sim_hour,omitempty"`
}

type exportDocument struct {
	Nodes []exportNode `json:"nodes"`
	Edges []exportEdge `json:"edges"`
	Logs  []exportLog  `json:"logs"`
}

// Export dumps the full store contents (every owner) as JSON, for
// local backup/restore. Import reverses it.
func (e *Engine) Export() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var doc exportDocument

	nodeRows, err := e.db.Query(`SELECT owner, id, stability, difficulty, reps, state, last_review, created_at, sim_day, sim_hour FROM kg_nodes`)
	if err != nil {
		return nil, kgerrors.Storage("export_nodes", err)
	}
	for nodeRows.Next() {
		var n exportNode
		var lastReview, createdAt sql.NullTime
		var day, hour sql.NullInt64
		if err := nodeRows.Scan(&n.Owner, &n.ID, &n.Stability, &n.Difficulty, &n.Reps, &n.State, &lastReview, &createdAt, &day, &hour); err != nil {
			nodeRows.Close()
			return nil, kgerrors.Storage("export_nodes_scan", err)
		}
		if lastReview.Valid {
			u := lastReview.Time.Unix()
			n.LastReviewAt = &u
		}
		if createdAt.Valid {
			u := createdAt.Time.Unix()
			n.CreatedAt = &u
		}
		if day.Valid {
			d := day.Int64
			n.LastReviewDay = &d
		}
		if hour.Valid {
			h := hour.Int64
			n.LastReviewHour = &h
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	nodeRows.Close()
	if err := nodeRows.Err(); err != nil {
		return nil, kgerrors.Storage("export_nodes", err)
	}

	edgeRows, err := e.db.Query(`SELECT owner, source, relation, target, weight, sentiment, created_at, sim_day, sim_hour FROM kg_edges`)
	if err != nil {
		return nil, kgerrors.Storage("export_edges", err)
	}
	for edgeRows.Next() {
		var ed exportEdge
		var createdAt sql.NullTime
		var day, hour sql.NullInt64
		if err := edgeRows.Scan(&ed.Owner, &ed.Source, &ed.Relation, &ed.Target, &ed.Weight, &ed.Sentiment, &createdAt, &day, &hour); err != nil {
			edgeRows.Close()
			return nil, kgerrors.Storage("export_edges_scan", err)
		}
		if createdAt.Valid {
			u := createdAt.Time.Unix()
			ed.CreatedAt = &u
		}
		if day.Valid {
			d := day.Int64
			ed.SimDay = &d
		}
		if hour.Valid {
			h := hour.Int64
			ed.SimHour = &h
		}
		doc.Edges = append(doc.Edges, ed)
	}
	edgeRows.Close()
	if err := edgeRows.Err(); err != nil {
		return nil, kgerrors.Storage("export_edges", err)
	}

	logRows, err := e.db.Query(`SELECT id, agent, action_type, content_or_handle, annotations, ts, sim_day, sim_hour FROM kg_logs ORDER BY id ASC`)
	if err != nil {
		return nil, kgerrors.Storage("export_logs", err)
	}
	for logRows.Next() {
		var l exportLog
		var annot sql.NullString
		var ts sql.NullTime
		var day, hour sql.NullInt64
		if err := logRows.Scan(&l.ID, &l.Agent, &l.ActionType, &l.Content, &annot, &ts, &day, &hour); err != nil {
			logRows.Close()
			return nil, kgerrors.Storage("export_logs_scan", err)
		}
		if annot.Valid && annot.String != "" {
			_ = json.Unmarshal([]byte(annot.String), &l.Annotations)
		}
		if ts.Valid {
			u := ts.Time.Unix()
			l.Timestamp = &u
		}
		if day.Valid {
			d := day.Int64
			l.SimDay = &d
		}
		if hour.Valid {
			h := hour.Int64
			l.SimHour = &h
		}
		doc.Logs = append(doc.Logs, l)
	}
	logRows.Close()
	if err := logRows.Err(); err != nil {
		return nil, kgerrors.Storage("export_logs", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, kgerrors.Storage("export_marshal", err)
	}
	return out, nil
}

// Import replaces the store contents with the contents of a document
// previously produced by Export. Empty input is a no-op.
func (e *Engine) Import(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	var doc exportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return kgerrors.InvalidInput("data", "not a valid export document")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.db.Begin()
	if err != nil {
		return kgerrors.Storage("import_begin", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"kg_edges", "kg_nodes", "kg_logs"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return kgerrors.Storage("import_clear", err)
		}
	}

	for _, n := range doc.Nodes {
		q := fmt.Sprintf(`INSERT INTO kg_nodes (owner, id, stability, difficulty, reps, state, last_review, created_at, sim_day, sim_hour, seq)
			VALUES (%s)`, placeholders(e.dialect, 11))
		var lastReview, createdAt *time.Time
		if n.LastReviewAt != nil {
			t := time.Unix(*n.LastReviewAt, 0).UTC()
			lastReview = &t
		}
		if n.CreatedAt != nil {
			t := time.Unix(*n.CreatedAt, 0).UTC()
			createdAt = &t
		}
		if _, err := tx.Exec(q, n.Owner, n.ID, n.Stability, n.Difficulty, n.Reps, n.State,
			lastReview, createdAt, n.LastReviewDay, n.LastReviewHour, 0); err != nil {
			return kgerrors.Storage("import_node", err)
		}
	}

	for _, ed := range doc.Edges {
		q := fmt.Sprintf(`INSERT INTO kg_edges (owner, source, relation, target, weight, sentiment, created_at, sim_day, sim_hour, seq)
			VALUES (%s)`, placeholders(e.dialect, 10))
		var createdAt *time.Time
		if ed.CreatedAt != nil {
			t := time.Unix(*ed.CreatedAt, 0).UTC()
			createdAt = &t
		}
		if _, err := tx.Exec(q, ed.Owner, ed.Source, ed.Relation, ed.Target, ed.Weight, ed.Sentiment,
			createdAt, ed.SimDay, ed.SimHour, 0); err != nil {
			return kgerrors.Storage("import_edge", err)
		}
	}

	for _, l := range doc.Logs {
		var annotJSON []byte
		if l.Annotations != nil {
			annotJSON, _ = json.Marshal(l.Annotations)
		}
		var ts *time.Time
		if l.Timestamp != nil {
			t := time.Unix(*l.Timestamp, 0).UTC()
			ts = &t
		}
		q := fmt.Sprintf(`INSERT INTO kg_logs (agent, action_type, content_or_handle, annotations, ts, sim_day, sim_hour)
			VALUES (%s)`, placeholders(e.dialect, 7))
		if _, err := tx.Exec(q, l.Agent, l.ActionType, l.Content, nullableJSON(annotJSON), ts, l.SimDay, l.SimHour); err != nil {
			return kgerrors.Storage("import_log", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return kgerrors.Storage("import_commit", err)
	}
	return nil
}
