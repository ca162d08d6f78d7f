package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/kittclouds/mnemokit/internal/scheduler"
)

// wireResult mirrors the JSON shape requested of the model: string
// ratings instead of the scheduler.Rating enum, since a model has no
// reason to know our integer encoding.
type wireResult struct {
	WorldFacts []struct {
		Source   string `json:"source"`
		Relation string `json:"relation"`
		Target   string `json:"target"`
	} `json:"world_facts"`
	PartnerStance []struct {
		Source    string  `json:"source"`
		Relation  string  `json:"relation"`
		Target    string  `json:"target"`
		Sentiment float64 `json:"sentiment"`
	} `json:"partner_stance"`
	SelfReaction []struct {
		Source    string  `json:"source"`
		Relation  string  `json:"relation"`
		Target    string  `json:"target"`
		Rating    string  `json:"rating"`
		Sentiment float64 `json:"sentiment"`
	} `json:"self_reaction"`
	OverallSentiment float64  `json:"overall_sentiment"`
	Entities         []string `json:"entities"`
}

var ratingNames = map[string]scheduler.Rating{
	"again": scheduler.Again,
	"hard":  scheduler.Hard,
	"good":  scheduler.Good,
	"easy":  scheduler.Easy,
}

// parseLLMResponse parses a raw model response into a Result. Markdown
// fences are stripped first; if the remaining text still isn't valid
// JSON, jsonrepair is given one attempt to recover a parseable object
// before giving up.
func parseLLMResponse(raw string) (Result, error) {
	cleaned := stripCodeFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return Result{}, fmt.Errorf("extraction: empty response body")
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(cleaned)
		if repairErr != nil {
			return Result{}, fmt.Errorf("extraction: parse failed: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &wire); err != nil {
			return Result{}, fmt.Errorf("extraction: parse failed after repair: %w", err)
		}
	}

	return toResult(wire), nil
}

func toResult(wire wireResult) Result {
	result := Result{
		OverallSentiment: wire.OverallSentiment,
		Entities:         wire.Entities,
	}
	for _, f := range wire.WorldFacts {
		if f.Source == "" || f.Relation == "" || f.Target == "" {
			continue
		}
		result.WorldFacts = append(result.WorldFacts, WorldFact(f))
	}
	for _, p := range wire.PartnerStance {
		if p.Source == "" || p.Relation == "" || p.Target == "" {
			continue
		}
		result.PartnerStance = append(result.PartnerStance, PartnerStance(p))
	}
	for _, s := range wire.SelfReaction {
		if s.Source == "" || s.Relation == "" || s.Target == "" {
			continue
		}
		rating, ok := ratingNames[strings.ToLower(s.Rating)]
		if !ok {
			rating = scheduler.Good
		}
		result.SelfReaction = append(result.SelfReaction, SelfReaction{
			Source: s.Source, Relation: s.Relation, Target: s.Target,
			Rating: rating, Sentiment: s.Sentiment,
		})
	}
	return result
}

// stripCodeFence removes a markdown code block wrapper (```json ... ```).
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
