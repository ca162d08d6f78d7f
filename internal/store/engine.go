package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

// schemaTemplate is rendered once per dialect by substituting the two
// fragments that actually differ between backends: the autoincrement
// primary key for the log table, and the JSON column type for
// annotations. Everything else — table shape, indexes — is identical,
// which is the whole point of routing all three backends through one
// engine.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS kg_nodes (
	owner TEXT NOT NULL,
	id TEXT NOT NULL,
	stability REAL NOT NULL DEFAULT 0,
	difficulty REAL NOT NULL DEFAULT 0,
	reps INTEGER NOT NULL DEFAULT 0,
	state INTEGER NOT NULL DEFAULT 0,
	last_review TIMESTAMP,
	created_at TIMESTAMP,
	sim_day INTEGER,
	sim_hour INTEGER,
	seq INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (owner, id)
);
CREATE INDEX IF NOT EXISTS idx_kg_nodes_owner_last_review ON kg_nodes(owner, last_review DESC);

CREATE TABLE IF NOT EXISTS kg_edges (
	owner TEXT NOT NULL,
	source TEXT NOT NULL,
	relation TEXT NOT NULL,
	target TEXT NOT NULL,
	weight REAL NOT NULL DEFAULT 1.0,
	sentiment REAL NOT NULL DEFAULT 0,
	created_at TIMESTAMP,
	sim_day INTEGER,
	sim_hour INTEGER,
	seq INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (owner, source, target, relation)
);
CREATE INDEX IF NOT EXISTS idx_kg_edges_owner_source ON kg_edges(owner, source);
CREATE INDEX IF NOT EXISTS idx_kg_edges_owner_target ON kg_edges(owner, target);
CREATE INDEX IF NOT EXISTS idx_kg_edges_owner_created ON kg_edges(owner, created_at DESC);

CREATE TABLE IF NOT EXISTS kg_logs (
	id %s,
	agent TEXT NOT NULL,
	action_type TEXT NOT NULL,
	content_or_handle TEXT,
	annotations %s,
	ts TIMESTAMP,
	sim_day INTEGER,
	sim_hour INTEGER
);
CREATE INDEX IF NOT EXISTS idx_kg_logs_agent_ts ON kg_logs(agent, ts);
`

// candidateScanLimit bounds how many edge rows a stance/world-knowledge
// query pulls from the backend before topic/recency filtering happens
// in Go. Filtering in Go rather than pushing substring/recency logic
// into dialect-specific SQL keeps the three backends byte-identical in
// query shape; this limit keeps that scan bounded.
const candidateScanLimit = 500

// Config is the construction-time configuration for an Engine.
type Config struct {
	StoreURI           string
	StoreLogContent    bool
	PoolSize           uint32
	PoolOverflow       uint32
	PoolTimeoutSecs    uint32
	PoolRecycleSecs    uint32
	SchedulerParams    scheduler.Params
	StanceWindowMins   float64 // default 60
	StanceWindowDays   float64 // default 60.0/24.0, round-mode equivalent
	Logger             *zap.Logger
}

// DefaultConfig returns a Config with the defaults named in the
// configuration surface: no pooling beyond the networked-backend
// defaults, privacy mode on, and the standard scheduler weights.
func DefaultConfig(storeURI string) Config {
	return Config{
		StoreURI:         storeURI,
		StoreLogContent:  false,
		PoolSize:         5,
		PoolOverflow:     10,
		PoolTimeoutSecs:  30,
		PoolRecycleSecs:  3600,
		SchedulerParams:  scheduler.DefaultParams(),
		StanceWindowMins: 60,
		StanceWindowDays: 60.0 / 24.0,
		Logger:           zap.NewNop(),
	}
}

// Engine is the single database/sql-backed Storer implementation
// shared by every supported backend; only its Dialect differs.
type Engine struct {
	mu      sync.RWMutex
	db      *sql.DB
	dialect Dialect
	cfg     Config
	log     *zap.Logger
}

var _ Storer = (*Engine)(nil)

func open(dialect Dialect, cfg Config) (*Engine, error) {
	if cfg.StoreURI == "" {
		return nil, kgerrors.Configuration("store_uri", "must not be empty")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dsn := dialect.NormalizeDSN(cfg.StoreURI)
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, kgerrors.Storage("open", err)
	}
	applyPool(db, dialect, cfg)

	e := &Engine{db: db, dialect: dialect, cfg: cfg, log: logger}
	if err := e.ensureSchema(); err != nil {
		logger.Error("schema setup failed", zap.String("driver", dialect.DriverName()), zap.Error(err))
		db.Close()
		return nil, err
	}
	logger.Debug("store opened", zap.String("driver", dialect.DriverName()), zap.Bool("store_log_content", cfg.StoreLogContent))
	return e, nil
}

func (e *Engine) ensureSchema() error {
	stmt := fmt.Sprintf(schemaTemplate, e.dialect.AutoIncrementPK("id"), e.dialect.JSONType())
	if _, err := e.db.Exec(stmt); err != nil {
		return kgerrors.Storage("ensure_schema", err)
	}
	if err := ensureColumns(e.db, e.dialect); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying connection(s).
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	e.log.Debug("store closing")
	return e.db.Close()
}

// beginTx opens a transaction bounded by the configured pool
// acquisition timeout. A context deadline exceeded here is a pool
// exhaustion symptom on networked backends, not a storage fault, so it
// surfaces as ResourceUnavailable rather than StorageFailure.
func (e *Engine) beginTx() (*sql.Tx, error) {
	timeout := e.cfg.PoolTimeoutSecs
	if timeout == 0 {
		timeout = 30
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, kgerrors.ResourceUnavailable("pool acquisition timed out")
		}
		return nil, kgerrors.Storage("begin_tx", err)
	}
	return tx, nil
}

func clampSentiment(x float64) (float64, bool) {
	clamped := math.Max(-1, math.Min(1, x))
	return clamped, clamped != x
}

func validateOwnerID(owner, id, field string) error {
	if strings.TrimSpace(owner) == "" {
		return kgerrors.InvalidInput("owner", "must not be empty")
	}
	if strings.TrimSpace(id) == "" {
		return kgerrors.InvalidInput(field, "must not be empty")
	}
	return nil
}

func encodeTimePoint(tp timepoint.TimePoint) (*time.Time, *int64, *int64) {
	switch tp.Kind {
	case timepoint.KindAbsolute:
		t := tp.At
		return &t, nil, nil
	case timepoint.KindRound:
		d := int64(tp.Day)
		h := int64(tp.Hour)
		return nil, &d, &h
	default:
		return nil, nil, nil
	}
}

func decodeTimePoint(at sql.NullTime, day, hour sql.NullInt64) timepoint.TimePoint {
	if day.Valid {
		return timepoint.Round(uint32(day.Int64), uint32(hour.Int64))
	}
	if at.Valid {
		return timepoint.Absolute(at.Time)
	}
	return timepoint.TimePoint{}
}

// UpsertNode inserts a node if absent; if card is nil the row is left
// unchanged when already present (idempotent touch), and created with
// a fresh New-state row when absent so edge endpoint checks succeed.
func (e *Engine) UpsertNode(owner, id string, card *scheduler.Card, tp timepoint.TimePoint) error {
	if err := validateOwnerID(owner, id, "id"); err != nil {
		return err
	}
	if err := tp.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.upsertNodeLocked(e.db, owner, id, card, tp)
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func (e *Engine) upsertNodeLocked(ex execer, owner, id string, card *scheduler.Card, tp timepoint.TimePoint) error {
	var exists bool
	q := fmt.Sprintf("SELECT 1 FROM kg_nodes WHERE owner = %s AND id = %s", e.dialect.Placeholder(1), e.dialect.Placeholder(2))
	row := ex.QueryRow(q, owner, id)
	if err := row.Scan(new(int)); err == nil {
		exists = true
	} else if err != sql.ErrNoRows {
		return kgerrors.Storage("upsert_node_check", err)
	}

	if exists && card == nil {
		return nil
	}

	var stability, difficulty float64
	var reps int
	var state scheduler.State
	if card != nil {
		stability, difficulty, reps, state = card.Stability, card.Difficulty, card.Reps, card.State
	}

	lastReviewAt, lastReviewDay, lastReviewHour := (*time.Time)(nil), (*int64)(nil), (*int64)(nil)
	if card != nil {
		lastReviewAt, lastReviewDay, lastReviewHour = encodeTimePoint(tp)
	}

	if !exists {
		createdAt, createdDay, createdHour := encodeTimePoint(tp)
		seq, err := e.nextSeq(ex, "kg_nodes", owner)
		if err != nil {
			return err
		}
		q := fmt.Sprintf(`INSERT INTO kg_nodes (owner, id, stability, difficulty, reps, state, last_review, created_at, sim_day, sim_hour, seq)
			VALUES (%s)`, placeholders(e.dialect, 11))
		_, err = ex.Exec(q, owner, id, stability, difficulty, reps, int(state),
			lastReviewAt, createdAt, coalesceDay(lastReviewDay, createdDay), coalesceDay(lastReviewHour, createdHour), seq)
		if err != nil {
			return kgerrors.Storage("upsert_node_insert", err)
		}
		return nil
	}

	day, hour := lastReviewDay, lastReviewHour
	q = fmt.Sprintf(`UPDATE kg_nodes SET stability=%s, difficulty=%s, reps=%s, state=%s, last_review=%s, sim_day=%s, sim_hour=%s
		WHERE owner=%s AND id=%s`,
		e.dialect.Placeholder(1), e.dialect.Placeholder(2), e.dialect.Placeholder(3), e.dialect.Placeholder(4),
		e.dialect.Placeholder(5), e.dialect.Placeholder(6), e.dialect.Placeholder(7),
		e.dialect.Placeholder(8), e.dialect.Placeholder(9))
	_, err := ex.Exec(q, stability, difficulty, reps, int(state), lastReviewAt, day, hour, owner, id)
	if err != nil {
		return kgerrors.Storage("upsert_node_update", err)
	}
	return nil
}

func coalesceDay(a, b *int64) *int64 {
	if a != nil {
		return a
	}
	return b
}

func (e *Engine) nextSeq(ex execer, table, owner string) (int64, error) {
	q := fmt.Sprintf("SELECT COALESCE(MAX(seq), 0) + 1 FROM %s WHERE owner = %s", table, e.dialect.Placeholder(1))
	var seq int64
	if err := ex.QueryRow(q, owner).Scan(&seq); err != nil {
		return 0, kgerrors.Storage("next_seq", err)
	}
	return seq, nil
}

// GetNode fetches a node, returning (nil, nil) when absent.
func (e *Engine) GetNode(owner, id string) (*Node, error) {
	if err := validateOwnerID(owner, id, "id"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	q := fmt.Sprintf(`SELECT owner, id, stability, difficulty, reps, state, last_review, created_at, sim_day, sim_hour
		FROM kg_nodes WHERE owner=%s AND id=%s`, e.dialect.Placeholder(1), e.dialect.Placeholder(2))
	row := e.db.QueryRow(q, owner, id)

	var n Node
	var lastReviewAt, createdAt sql.NullTime
	var day, hour sql.NullInt64
	var state int
	err := row.Scan(&n.Owner, &n.ID, &n.Stability, &n.Difficulty, &n.Reps, &state, &lastReviewAt, &createdAt, &day, &hour)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, kgerrors.Storage("get_node", err)
	}
	n.State = scheduler.State(state)
	n.LastReview = decodeTimePoint(lastReviewAt, day, hour)
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time
	}
	return &n, nil
}

// AddEdge upserts the triple's edge, first ensuring both endpoints
// exist as nodes. Sentiment is clamped silently: no error is returned,
// and the clamp (if any) is logged at Warn level.
func (e *Engine) AddEdge(owner, source, relation, target string, sentiment float64, tp timepoint.TimePoint) error {
	_, err := e.addEdge(owner, source, relation, target, sentiment, tp)
	return err
}

func (e *Engine) addEdge(owner, source, relation, target string, sentiment float64, tp timepoint.TimePoint) (bool, error) {
	if strings.TrimSpace(owner) == "" {
		return false, kgerrors.InvalidInput("owner", "must not be empty")
	}
	if strings.TrimSpace(source) == "" {
		return false, kgerrors.InvalidInput("source", "must not be empty")
	}
	if strings.TrimSpace(target) == "" {
		return false, kgerrors.InvalidInput("target", "must not be empty")
	}
	if strings.TrimSpace(relation) == "" {
		return false, kgerrors.InvalidInput("relation", "must not be empty")
	}
	if math.IsNaN(sentiment) || math.IsInf(sentiment, 0) {
		return false, kgerrors.InvalidInput("sentiment", "must be finite")
	}
	if err := tp.Validate(); err != nil {
		return false, err
	}

	clamped, wasClamped := clampSentiment(sentiment)

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.beginTx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if err := e.upsertNodeLocked(tx, owner, source, nil, tp); err != nil {
		return false, err
	}
	if err := e.upsertNodeLocked(tx, owner, target, nil, tp); err != nil {
		return false, err
	}

	createdAt, day, hour := encodeTimePoint(tp)
	seq, err := e.nextSeq(tx, "kg_edges", owner)
	if err != nil {
		return false, err
	}

	del := fmt.Sprintf("DELETE FROM kg_edges WHERE owner=%s AND source=%s AND target=%s AND relation=%s",
		e.dialect.Placeholder(1), e.dialect.Placeholder(2), e.dialect.Placeholder(3), e.dialect.Placeholder(4))
	if _, err := tx.Exec(del, owner, source, target, relation); err != nil {
		return false, kgerrors.Storage("add_edge_delete", err)
	}

	ins := fmt.Sprintf(`INSERT INTO kg_edges (owner, source, relation, target, weight, sentiment, created_at, sim_day, sim_hour, seq)
		VALUES (%s)`, placeholders(e.dialect, 10))
	if _, err := tx.Exec(ins, owner, source, relation, target, 1.0, clamped, createdAt, day, hour, seq); err != nil {
		return false, kgerrors.Storage("add_edge_insert", err)
	}

	if err := tx.Commit(); err != nil {
		return false, kgerrors.Storage("add_edge_commit", err)
	}
	if wasClamped {
		e.log.Warn("sentiment clamped to [-1, 1]", zap.String("owner", owner), zap.String("source", source), zap.String("target", target), zap.Float64("requested", sentiment))
	}
	return wasClamped, nil
}

// Log appends an interaction-log row, honoring privacy mode, and
// returns the handle used (empty when the full content was stored).
func (e *Engine) Log(owner, actionType, content string, annotations map[string]interface{}, tp timepoint.TimePoint, providedHandle string) (string, error) {
	if strings.TrimSpace(owner) == "" {
		return "", kgerrors.InvalidInput("owner", "must not be empty")
	}
	if err := tp.Validate(); err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.logLocked(e.db, owner, actionType, content, annotations, tp, providedHandle)
}

func (e *Engine) logLocked(ex execer, owner, actionType, content string, annotations map[string]interface{}, tp timepoint.TimePoint, providedHandle string) (string, error) {
	contentOrHandle := content
	handle := ""
	if !e.cfg.StoreLogContent {
		handle = providedHandle
		if handle == "" {
			handle = uuid.NewString()
		}
		contentOrHandle = handle
		e.log.Debug("log content redacted behind handle", zap.String("owner", owner), zap.String("action_type", actionType), zap.String("handle", handle))
	}

	var annotJSON []byte
	var err error
	if annotations != nil {
		annotJSON, err = json.Marshal(annotations)
		if err != nil {
			return "", kgerrors.InvalidInput("annotations", "not JSON-serializable")
		}
	}

	ts, day, hour := encodeTimePoint(tp)
	q := fmt.Sprintf(`INSERT INTO kg_logs (agent, action_type, content_or_handle, annotations, ts, sim_day, sim_hour)
		VALUES (%s)`, placeholders(e.dialect, 7))
	_, err = ex.Exec(q, owner, actionType, contentOrHandle, nullableJSON(annotJSON), ts, day, hour)
	if err != nil {
		return "", kgerrors.Storage("log_insert", err)
	}
	return handle, nil
}

func nullableJSON(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}

// IterLog returns log rows for owner in ascending id order (commit
// order), optionally starting after since and capped at limit.
func (e *Engine) IterLog(owner string, since *int64, limit int) ([]LogRecord, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, kgerrors.InvalidInput("owner", "must not be empty")
	}
	if limit <= 0 {
		limit = 100
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	args := []interface{}{owner}
	q := fmt.Sprintf(`SELECT id, agent, action_type, content_or_handle, annotations, ts, sim_day, sim_hour
		FROM kg_logs WHERE agent = %s`, e.dialect.Placeholder(1))
	if since != nil {
		q += fmt.Sprintf(" AND id > %s", e.dialect.Placeholder(2))
		args = append(args, *since)
	}
	q += fmt.Sprintf(" ORDER BY id ASC LIMIT %s", e.dialect.Placeholder(len(args)+1))
	args = append(args, limit)

	rows, err := e.db.Query(q, args...)
	if err != nil {
		return nil, kgerrors.Storage("iter_log", err)
	}
	defer rows.Close()

	var out []LogRecord
	for rows.Next() {
		var rec LogRecord
		var annot sql.NullString
		var ts sql.NullTime
		var day, hour sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.ActionType, &rec.ContentOrHandle, &annot, &ts, &day, &hour); err != nil {
			return nil, kgerrors.Storage("iter_log_scan", err)
		}
		if annot.Valid && annot.String != "" {
			_ = json.Unmarshal([]byte(annot.String), &rec.Annotations)
		}
		rec.TimePoint = decodeTimePoint(ts, day, hour)
		if ts.Valid {
			rec.Timestamp = ts.Time
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type candidateEdge struct {
	Edge
	seq int64
}

func (e *Engine) fetchCandidates(owner string, where string, args []interface{}) ([]candidateEdge, error) {
	q := fmt.Sprintf(`SELECT source, relation, target, sentiment, created_at, sim_day, sim_hour, seq
		FROM kg_edges WHERE owner = %s %s ORDER BY seq DESC LIMIT %s`,
		e.dialect.Placeholder(1), where, e.dialect.Placeholder(len(args)+2))
	fullArgs := append([]interface{}{owner}, args...)
	fullArgs = append(fullArgs, candidateScanLimit)

	rows, err := e.db.Query(q, fullArgs...)
	if err != nil {
		return nil, kgerrors.Storage("fetch_candidates", err)
	}
	defer rows.Close()

	var out []candidateEdge
	for rows.Next() {
		var c candidateEdge
		var createdAt sql.NullTime
		var day, hour sql.NullInt64
		if err := rows.Scan(&c.Source, &c.Relation, &c.Target, &c.Sentiment, &createdAt, &day, &hour, &c.seq); err != nil {
			return nil, kgerrors.Storage("fetch_candidates_scan", err)
		}
		c.Owner = owner
		c.TimePoint = decodeTimePoint(createdAt, day, hour)
		if createdAt.Valid {
			c.CreatedAt = createdAt.Time
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// GetAgentStance implements the §4.5 agent-stance query: rows whose
// source is "I" or the owner name, filtered by topic-contains OR
// recency, newest first, capped at 8.
func (e *Engine) GetAgentStance(owner, topic string, now timepoint.TimePoint) ([]StanceRow, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, kgerrors.InvalidInput("owner", "must not be empty")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	ph2, ph3 := e.dialect.Placeholder(2), e.dialect.Placeholder(3)
	where := fmt.Sprintf("AND (source = %s OR source = %s)", ph2, ph3)
	candidates, err := e.fetchCandidates(owner, where, []interface{}{"I", owner})
	if err != nil {
		return nil, err
	}

	var out []StanceRow
	for _, c := range candidates {
		recent := e.withinRecency(now, c.TimePoint)
		matches := recent
		if topic != "" {
			matches = containsFold(c.Target, topic) || recent
		}
		if !matches {
			continue
		}
		out = append(out, StanceRow{Source: c.Source, Relation: c.Relation, Target: c.Target, Sentiment: c.Sentiment})
		if len(out) == 8 {
			break
		}
	}
	return out, nil
}

func (e *Engine) withinRecency(now, then timepoint.TimePoint) bool {
	if then.IsZero() {
		return false
	}
	if now.Kind == timepoint.KindRound || then.Kind == timepoint.KindRound {
		elapsed := timepoint.ElapsedDays(now, then)
		return elapsed <= e.cfg.StanceWindowDays
	}
	elapsed := now.At.Sub(then.At)
	return elapsed >= 0 && elapsed.Minutes() <= e.cfg.StanceWindowMins
}

// GetWorldKnowledge implements the §4.5 world-knowledge query: rows
// whose source is neither "I" nor the owner, filtered by topic
// substring match, newest first, capped at limit.
func (e *Engine) GetWorldKnowledge(owner, topic string, limit int) ([]FactRow, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, kgerrors.InvalidInput("owner", "must not be empty")
	}
	if topic == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	e.mu.RLock()
	defer e.mu.RUnlock()

	ph2, ph3 := e.dialect.Placeholder(2), e.dialect.Placeholder(3)
	where := fmt.Sprintf("AND source <> %s AND source <> %s", ph2, ph3)
	candidates, err := e.fetchCandidates(owner, where, []interface{}{"I", owner})
	if err != nil {
		return nil, err
	}

	var out []FactRow
	for _, c := range candidates {
		if !containsFold(c.Source, topic) && !containsFold(c.Target, topic) {
			continue
		}
		out = append(out, FactRow{Source: c.Source, Relation: c.Relation, Target: c.Target, Sentiment: c.Sentiment})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// LearnTriple runs the full C4 learn transaction in one backend
// transaction: read both endpoint cards, score them, upsert both
// nodes, upsert the edge, append the log row, commit.
func (e *Engine) LearnTriple(owner, source, relation, target string, rating scheduler.Rating, sentiment float64, tp timepoint.TimePoint, params scheduler.Params, logAnnotations map[string]interface{}) error {
	if strings.TrimSpace(owner) == "" {
		return kgerrors.InvalidInput("owner", "must not be empty")
	}
	if strings.TrimSpace(source) == "" {
		return kgerrors.InvalidInput("source", "must not be empty")
	}
	if strings.TrimSpace(target) == "" {
		return kgerrors.InvalidInput("target", "must not be empty")
	}
	if strings.TrimSpace(relation) == "" {
		return kgerrors.InvalidInput("relation", "must not be empty")
	}
	if math.IsNaN(sentiment) || math.IsInf(sentiment, 0) {
		return kgerrors.InvalidInput("sentiment", "must be finite")
	}
	if err := tp.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tx, err := e.beginTx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	sourceNode, err := e.getNodeLocked(tx, owner, source)
	if err != nil {
		return err
	}
	targetNode, err := e.getNodeLocked(tx, owner, target)
	if err != nil {
		return err
	}

	sourceCard, err := scheduler.Review(params, sourceNode.Card(), rating, tp)
	if err != nil {
		return err
	}
	targetCard, err := scheduler.Review(params, targetNode.Card(), rating, tp)
	if err != nil {
		return err
	}

	if err := e.upsertNodeLocked(tx, owner, source, &sourceCard, tp); err != nil {
		return err
	}
	if err := e.upsertNodeLocked(tx, owner, target, &targetCard, tp); err != nil {
		return err
	}

	clamped, wasClamped := clampSentiment(sentiment)
	if err := e.addEdgeLocked(tx, owner, source, relation, target, clamped, tp); err != nil {
		return err
	}

	annotations := map[string]interface{}{
		"rating":       int(rating),
		"sentiment":    clamped,
		"source_reps":  sourceCard.Reps,
		"target_reps":  targetCard.Reps,
	}
	if wasClamped {
		annotations["sentiment_clamped"] = true
	}
	for k, v := range logAnnotations {
		annotations[k] = v
	}
	if _, err := e.logLocked(tx, owner, ActionWrite, "", annotations, tp, ""); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return kgerrors.Storage("learn_commit", err)
	}
	e.log.Debug("triple learned",
		zap.String("owner", owner), zap.String("source", source), zap.String("relation", relation), zap.String("target", target),
		zap.Int("rating", int(rating)), zap.Float64("sentiment", clamped))
	return nil
}

func (e *Engine) getNodeLocked(ex execer, owner, id string) (*Node, error) {
	q := fmt.Sprintf(`SELECT owner, id, stability, difficulty, reps, state, last_review, created_at, sim_day, sim_hour
		FROM kg_nodes WHERE owner=%s AND id=%s`, e.dialect.Placeholder(1), e.dialect.Placeholder(2))
	row := ex.QueryRow(q, owner, id)

	var n Node
	var lastReviewAt, createdAt sql.NullTime
	var day, hour sql.NullInt64
	var state int
	err := row.Scan(&n.Owner, &n.ID, &n.Stability, &n.Difficulty, &n.Reps, &state, &lastReviewAt, &createdAt, &day, &hour)
	if err == sql.ErrNoRows {
		return &Node{Owner: owner, ID: id}, nil
	}
	if err != nil {
		return nil, kgerrors.Storage("get_node", err)
	}
	n.State = scheduler.State(state)
	n.LastReview = decodeTimePoint(lastReviewAt, day, hour)
	if createdAt.Valid {
		n.CreatedAt = createdAt.Time
	}
	return &n, nil
}

func (e *Engine) addEdgeLocked(ex execer, owner, source, relation, target string, sentiment float64, tp timepoint.TimePoint) error {
	createdAt, day, hour := encodeTimePoint(tp)
	seq, err := e.nextSeq(ex, "kg_edges", owner)
	if err != nil {
		return err
	}
	del := fmt.Sprintf("DELETE FROM kg_edges WHERE owner=%s AND source=%s AND target=%s AND relation=%s",
		e.dialect.Placeholder(1), e.dialect.Placeholder(2), e.dialect.Placeholder(3), e.dialect.Placeholder(4))
	if _, err := ex.Exec(del, owner, source, target, relation); err != nil {
		return kgerrors.Storage("add_edge_delete", err)
	}
	ins := fmt.Sprintf(`INSERT INTO kg_edges (owner, source, relation, target, weight, sentiment, created_at, sim_day, sim_hour, seq)
		VALUES (%s)`, placeholders(e.dialect, 10))
	if _, err := ex.Exec(ins, owner, source, relation, target, 1.0, sentiment, createdAt, day, hour, seq); err != nil {
		return kgerrors.Storage("add_edge_insert", err)
	}
	return nil
}
