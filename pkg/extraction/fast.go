package extraction

import (
	"context"
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/matcher"
)

// positiveWords and negativeWords back the deterministic lexical
// sentiment score the Fast strategy uses in place of an LLM call.
var positiveWords = map[string]float64{
	"love": 0.9, "great": 0.7, "good": 0.5, "like": 0.4, "support": 0.6,
	"agree": 0.5, "excellent": 0.8, "happy": 0.6, "trust": 0.6, "helpful": 0.5,
	"wonderful": 0.8, "best": 0.7, "enjoy": 0.5, "appreciate": 0.6,
}

var negativeWords = map[string]float64{
	"hate": -0.9, "terrible": -0.8, "bad": -0.5, "dislike": -0.4, "oppose": -0.6,
	"disagree": -0.5, "awful": -0.8, "sad": -0.4, "distrust": -0.6, "annoying": -0.5,
	"worst": -0.8, "fear": -0.5, "angry": -0.6, "concerned": -0.3,
}

// Thresholds are the cut points the Fast strategy uses to turn a
// continuous sentiment score into one of five relation verbs, tunable
// the same way the scheduler's weights are.
type Thresholds struct {
	Support float64
	Oppose  float64
	Like    float64
	Dislike float64
}

// DefaultThresholds returns the same cut points as the configuration
// defaults: strongly-worded beyond ±0.6, mildly worded beyond ±0.15.
func DefaultThresholds() Thresholds {
	return Thresholds{Support: 0.6, Oppose: -0.6, Like: 0.15, Dislike: -0.15}
}

// relationForSentiment maps a sentiment score to the heuristic relation
// verb, with intensity variants at the extremes.
func relationForSentiment(sentiment float64, t Thresholds) string {
	switch {
	case sentiment > t.Support:
		return "strongly supports"
	case sentiment > t.Like:
		return "supports"
	case sentiment < t.Oppose:
		return "strongly opposes"
	case sentiment < t.Dislike:
		return "opposes"
	default:
		return "discusses"
	}
}

// FastStrategy extracts entity mentions with an Aho-Corasick dictionary
// and assigns a heuristic relation from lexical sentiment polarity,
// with no model call involved.
type FastStrategy struct {
	dictionary *matcher.Matcher
	stopwords  *stopwords.Stopwords
	thresholds Thresholds
	log        *zap.Logger
}

// NewFastStrategy compiles a scanner over the given known entity
// labels, using the default sentiment thresholds. An empty label set
// still works: the strategy falls back to capitalized-word heuristics
// for entity detection. A nil logger is replaced with a no-op one, the
// same convention every other constructed component follows.
func NewFastStrategy(knownEntities []string, logger *zap.Logger) (*FastStrategy, error) {
	return NewFastStrategyWithThresholds(knownEntities, DefaultThresholds(), logger)
}

// NewFastStrategyWithThresholds is NewFastStrategy with caller-supplied
// sentiment cut points (the configuration surface's
// sentiment_thresholds).
func NewFastStrategyWithThresholds(knownEntities []string, thresholds Thresholds, logger *zap.Logger) (*FastStrategy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dict, err := matcher.Build(knownEntities)
	if err != nil {
		return nil, err
	}
	return &FastStrategy{dictionary: dict, stopwords: stopwords.MustGet("en"), thresholds: thresholds, log: logger}, nil
}

// Extract implements Strategy. It never blocks on I/O, so the context
// is accepted for interface symmetry with the LLM strategy only.
func (f *FastStrategy) Extract(_ context.Context, text, author, agentName string) (Result, error) {
	sentiment := lexicalSentiment(text, f.stopwords)
	entities := f.detectEntities(text)
	relation := relationForSentiment(sentiment, f.thresholds)

	result := Result{
		Mode:             "fast",
		OverallSentiment: sentiment,
		Entities:         entities,
	}
	for _, entity := range entities {
		if strings.EqualFold(entity, author) || strings.EqualFold(entity, agentName) {
			continue
		}
		result.PartnerStance = append(result.PartnerStance, PartnerStance{
			Source:    author,
			Relation:  relation,
			Target:    entity,
			Sentiment: sentiment,
		})
	}
	return result, nil
}

func (f *FastStrategy) detectEntities(text string) []string {
	seen := make(map[string]bool)
	var out []string

	if f.dictionary != nil {
		for _, m := range f.dictionary.Scan(text) {
			key := strings.ToLower(m.Label)
			if !seen[key] {
				seen[key] = true
				out = append(out, m.Label)
			}
		}
	}
	if len(out) > 0 {
		return out
	}

	// Fallback when the dictionary is empty or found nothing: treat
	// runs of capitalized words as candidate proper-noun entities.
	f.log.Debug("no dictionary match, falling back to capitalized-word heuristic")
	for _, word := range capitalizedRuns(text) {
		key := strings.ToLower(word)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, word)
	}
	return out
}

func capitalizedRuns(text string) []string {
	var out []string
	var run []string
	flush := func() {
		if len(run) > 0 {
			out = append(out, strings.Join(run, " "))
			run = nil
		}
	}
	for _, field := range strings.Fields(text) {
		trimmed := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if trimmed == "" {
			flush()
			continue
		}
		r := []rune(trimmed)
		if unicode.IsUpper(r[0]) {
			run = append(run, trimmed)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// lexicalSentiment averages known-word polarity over the non-stopword
// tokens of text, returning 0 when no sentiment words are present.
func lexicalSentiment(text string, sw *stopwords.Stopwords) float64 {
	var total float64
	var count int
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		word := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r)
		})
		if word == "" {
			continue
		}
		if sw != nil && sw.Contains(word) {
			continue
		}
		if score, ok := positiveWords[word]; ok {
			total += score
			count++
			continue
		}
		if score, ok := negativeWords[word]; ok {
			total += score
			count++
		}
	}
	if count == 0 {
		return 0
	}
	avg := total / float64(count)
	if avg > 1 {
		avg = 1
	}
	if avg < -1 {
		avg = -1
	}
	return avg
}
