package knowledge

import (
	"strings"

	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/internal/timepoint"
)

const (
	noStanceSentinel = "(I have no strong opinion yet)"
	noFactsSentinel  = "(limited knowledge on this)"
	sectionSeparator = ". "
)

// qualifier returns the sentiment annotation §4.5 appends to a
// formatted triple phrase, or "" when sentiment falls in the neutral
// band.
func qualifier(sentiment float64) string {
	switch {
	case sentiment > 0.6:
		return " (very positively)"
	case sentiment > 0.3:
		return " (positively)"
	case sentiment > 0.1:
		return " (somewhat positively)"
	case sentiment < -0.6:
		return " (very negatively)"
	case sentiment < -0.3:
		return " (negatively)"
	case sentiment < -0.1:
		return " (somewhat negatively)"
	default:
		return ""
	}
}

func phrase(source, relation, target string, qualify bool, sentiment float64) string {
	p := source + " " + relation + " " + target
	if qualify {
		p += qualifier(sentiment)
	}
	return p
}

// ContextBuilder produces the formatted context string that blends
// the agent-stance and world-knowledge query partitions (§4.5).
type ContextBuilder struct {
	Storer           store.Storer
	WorldFactsLimit  int
}

// NewContextBuilder constructs a ContextBuilder with the default
// world-knowledge cap of 10 rows.
func NewContextBuilder(storer store.Storer) *ContextBuilder {
	return &ContextBuilder{Storer: storer, WorldFactsLimit: 10}
}

// Build returns the single formatted context string for owner/topic at
// the given current time point. It is a pure read: it never advances
// scheduling state and never logs.
func (c *ContextBuilder) Build(owner, topic string, now timepoint.TimePoint) (string, error) {
	stance, err := c.Storer.GetAgentStance(owner, topic, now)
	if err != nil {
		return "", err
	}
	limit := c.WorldFactsLimit
	if limit <= 0 {
		limit = 10
	}
	facts, err := c.Storer.GetWorldKnowledge(owner, topic, limit)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("MY CURRENT STANCE: ")
	if len(stance) == 0 {
		b.WriteString(noStanceSentinel)
	} else {
		phrases := make([]string, len(stance))
		for i, row := range stance {
			phrases[i] = phrase(row.Source, row.Relation, row.Target, true, row.Sentiment)
		}
		b.WriteString(strings.Join(phrases, "; "))
	}

	b.WriteString(sectionSeparator)
	b.WriteString("KNOWN FACTS: ")
	if len(facts) == 0 {
		b.WriteString(noFactsSentinel)
	} else {
		phrases := make([]string, len(facts))
		for i, row := range facts {
			phrases[i] = phrase(row.Source, row.Relation, row.Target, false, 0)
		}
		b.WriteString(strings.Join(phrases, "; "))
	}

	if len(facts) > 0 {
		others := make([]string, len(facts))
		for i, row := range facts {
			others[i] = phrase(row.Source, row.Relation, row.Target, true, row.Sentiment)
		}
		b.WriteString(sectionSeparator)
		b.WriteString("WHAT OTHERS THINK: ")
		b.WriteString(strings.Join(others, "; "))
	}

	return b.String(), nil
}
