// Package agentstore holds the in-memory registry of agent handles
// (C6) and the three atomic compound operations a turn-based agent
// loop drives through it (C8): absorb, get_context, and
// process_and_get_context/update_with_response on top of them.
package agentstore

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/kgerrors"
	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/internal/timepoint"
	"github.com/kittclouds/mnemokit/pkg/extraction"
	"github.com/kittclouds/mnemokit/pkg/knowledge"
)

const selfSource = "I"

// Handle is a lightweight per-agent cursor: a name plus the current
// time point the caller has advanced it to. It carries no storage
// state of its own — all durable state lives in the shared engine.
type Handle struct {
	Name string

	mu  sync.Mutex
	now timepoint.TimePoint
}

func (h *Handle) setTime(tp timepoint.TimePoint) error {
	if err := tp.Validate(); err != nil {
		return err
	}
	h.mu.Lock()
	h.now = tp
	h.mu.Unlock()
	return nil
}

func (h *Handle) getTime() timepoint.TimePoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// Store is the C6 agent registry: a mutex-guarded map from agent name
// to Handle, sitting on top of a shared Storer and an optional
// extraction Strategy.
type Store struct {
	mu     sync.RWMutex
	agents map[string]*Handle

	engine    store.Storer
	learner   *knowledge.Learner
	builder   *knowledge.ContextBuilder
	extractor extraction.Strategy
	log       *zap.Logger
}

// New constructs an agent registry over engine. extractor may be nil:
// absorb then requires the caller to always supply triples explicitly.
func New(engine store.Storer, params scheduler.Params, extractor extraction.Strategy, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		agents:    make(map[string]*Handle),
		engine:    engine,
		learner:   knowledge.NewLearner(engine, params, logger),
		builder:   knowledge.NewContextBuilder(engine),
		extractor: extractor,
		log:       logger,
	}
}

// CreateOrGet is idempotent: repeated calls with the same name return
// the same Handle.
func (s *Store) CreateOrGet(name string) (*Handle, error) {
	if name == "" {
		return nil, kgerrors.InvalidInput("name", "must not be empty")
	}
	s.mu.RLock()
	h, ok := s.agents[name]
	s.mu.RUnlock()
	if ok {
		return h, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.agents[name]; ok {
		return h, nil
	}
	h = &Handle{Name: name}
	s.agents[name] = h
	return h, nil
}

func (s *Store) get(name string) (*Handle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.agents[name]
	if !ok {
		return nil, kgerrors.AgentNotFound(name)
	}
	return h, nil
}

// SetTime validates and stores a new current time point on an
// existing agent's handle.
func (s *Store) SetTime(name string, tp timepoint.TimePoint) error {
	h, err := s.get(name)
	if err != nil {
		return err
	}
	return h.setTime(tp)
}

// Triple is the (subject, relation, object[, sentiment]) shape
// absorb/update_with_response accept directly from a caller who
// already has triples and skips extraction entirely.
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

// Absorb runs the absorb compound operation (§4.8): if triples is
// non-nil it is used verbatim (even an empty, non-nil slice counts as
// "supplied" and absorbs nothing); if triples is nil the configured
// extraction Strategy is invoked, and if none is configured the
// operation fails rather than silently doing nothing.
func (s *Store) Absorb(ctx context.Context, name, content, author string, triples []Triple) error {
	h, err := s.get(name)
	if err != nil {
		return err
	}
	now := h.getTime()

	if triples != nil {
		return s.absorbTriples(name, author, triples, now, selfRewrite(false))
	}

	if s.extractor == nil {
		return kgerrors.ExtractionFailure("no extraction capability configured and no triples supplied", nil)
	}
	result, err := s.extractor.Extract(ctx, content, author, name)
	if err != nil {
		return err
	}
	return s.absorbExtracted(name, author, result, selfRewrite(false))
}

type selfRewrite bool

// absorbTriples learns each caller-supplied triple with the §4.4
// default rating (Good) and a neutral-unless-specified sentiment.
// When rewrite is true every subject is forced to "I" (used by
// update_with_response).
func (s *Store) absorbTriples(owner, author string, triples []Triple, now timepoint.TimePoint, rewrite selfRewrite) error {
	for _, t := range triples {
		subject := t.Subject
		if bool(rewrite) {
			subject = selfSource
		}
		annotations := map[string]interface{}{"author": author, "mode": "provided"}
		if err := s.learner.LearnWithAnnotations(owner, subject, t.Relation, t.Target, scheduler.Good, t.sentiment(), now, annotations); err != nil {
			return err
		}
	}
	return nil
}

// absorbExtracted learns every triple group an extraction.Result
// produced, tagging each write's log annotations with which group it
// came from.
func (s *Store) absorbExtracted(owner string, author string, result extraction.Result, rewrite selfRewrite) error {
	h, err := s.get(owner)
	if err != nil {
		return err
	}
	now := h.getTime()

	for _, f := range result.WorldFacts {
		subject := f.Source
		if bool(rewrite) {
			subject = selfSource
		}
		ann := map[string]interface{}{"author": author, "mode": result.Mode, "group": "world_fact"}
		if err := s.learner.LearnWithAnnotations(owner, subject, f.Relation, f.Target, scheduler.Good, 0, now, ann); err != nil {
			return err
		}
	}
	for _, p := range result.PartnerStance {
		subject := p.Source
		if bool(rewrite) {
			subject = selfSource
		}
		ann := map[string]interface{}{"author": author, "mode": result.Mode, "group": "partner_stance"}
		if err := s.learner.LearnWithAnnotations(owner, subject, p.Relation, p.Target, scheduler.Good, p.Sentiment, now, ann); err != nil {
			return err
		}
	}
	for _, r := range result.SelfReaction {
		subject := r.Source
		if bool(rewrite) {
			subject = selfSource
		}
		ann := map[string]interface{}{"author": author, "mode": result.Mode, "group": "self_reaction"}
		if err := s.learner.LearnWithAnnotations(owner, subject, r.Relation, r.Target, r.Rating, r.Sentiment, now, ann); err != nil {
			return err
		}
	}
	return nil
}

// GetContext runs the get_context compound operation (§4.8): a pure
// read of the §4.5 formatted string. It never advances scheduling
// state and never logs.
func (s *Store) GetContext(name, topic string) (string, error) {
	h, err := s.get(name)
	if err != nil {
		return "", err
	}
	return s.builder.Build(name, topic, h.getTime())
}

// ProcessAndGetContext is absorb followed by get_context, but the
// caller only ever observes either the post-absorb context or the
// absorb failure — never a context reflecting a partial absorb.
func (s *Store) ProcessAndGetContext(ctx context.Context, name, topic, text, author string, triples []Triple) (string, error) {
	if err := s.Absorb(ctx, name, text, author, triples); err != nil {
		return "", err
	}
	return s.GetContext(name, topic)
}

// UpdateWithResponse is absorb for the agent's own turn: every new
// triple is rewritten with source="I" regardless of what the caller
// specified, and is logged as a Write.
func (s *Store) UpdateWithResponse(ctx context.Context, name, response string, triples []Triple) error {
	h, err := s.get(name)
	if err != nil {
		return err
	}
	now := h.getTime()

	if triples != nil {
		return s.absorbTriples(name, selfSource, triples, now, selfRewrite(true))
	}
	if s.extractor == nil {
		return kgerrors.ExtractionFailure("no extraction capability configured and no triples supplied", nil)
	}
	result, err := s.extractor.Extract(ctx, response, selfSource, name)
	if err != nil {
		return err
	}
	return s.absorbExtracted(name, selfSource, result, selfRewrite(true))
}
