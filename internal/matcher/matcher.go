// Package matcher scans free text for mentions of known entity labels
// using a single Aho-Corasick automaton, so the Fast extraction
// strategy can find "UBI", "Bob", etc. in a sentence in one pass
// instead of one substring search per candidate.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// isJoiner reports punctuation that commonly appears inside entity
// names ("O'Brien", "Jean-Luc", "AT&T") and so is preserved rather
// than treated as a token separator.
func isJoiner(r rune) bool {
	switch r {
	case '\'', '’', '‘', '-', '–', '—', '·', '.', '_', '/', '#', '&':
		return true
	default:
		return false
	}
}

// Canonicalize lowercases text, preserves letters/digits/joiners, and
// collapses every other run of characters to a single space. Both
// pattern compilation and text scanning go through this so "Jean–Luc"
// and "jean-luc" match the same automaton state.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))
	lastWasSpace := true

	for _, ch := range s {
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}
	result := out.String()
	return strings.TrimRight(result, " ")
}

// Mention is one detected occurrence of a known label in the original
// (non-canonicalized) text.
type Mention struct {
	Label string
	Start int
	End   int
	Text  string
}

// Matcher scans text for mentions of a fixed set of labels.
type Matcher struct {
	ac       *ahocorasick.Automaton
	patterns []string
	labels   [][]string
}

// Build compiles an automaton over the given labels. Labels sharing a
// canonical form (case/punctuation variants) are matched to the same
// automaton pattern and all reported together.
func Build(labels []string) (*Matcher, error) {
	m := &Matcher{}
	index := make(map[string]int)

	for _, label := range labels {
		key := Canonicalize(label)
		if key == "" {
			continue
		}
		if idx, ok := index[key]; ok {
			m.labels[idx] = appendUnique(m.labels[idx], label)
			continue
		}
		idx := len(m.patterns)
		index[key] = idx
		m.patterns = append(m.patterns, key)
		m.labels = append(m.labels, []string{label})
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(m.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	m.ac = automaton
	return m, nil
}

func appendUnique(slice []string, item string) []string {
	for _, s := range slice {
		if s == item {
			return slice
		}
	}
	return append(slice, item)
}

// Scan returns every mention of a known label in text, with offsets
// into the original (non-canonicalized) string.
func (m *Matcher) Scan(text string) []Mention {
	if m.ac == nil || len(m.patterns) == 0 {
		return nil
	}
	canon := Canonicalize(text)
	offsets := buildOffsetMap(text)

	matches := m.ac.FindAllOverlapping([]byte(canon))
	out := make([]Mention, 0, len(matches))
	for _, match := range matches {
		start := mapOffset(match.Start, offsets, len(text))
		end := mapOffset(match.End, offsets, len(text))
		if start >= end || end > len(text) {
			continue
		}
		for _, label := range m.labels[match.PatternID] {
			out = append(out, Mention{Label: label, Start: start, End: end, Text: text[start:end]})
		}
	}
	return out
}

// buildOffsetMap maps each byte position of the canonicalized form of
// original back to the corresponding byte position in original.
func buildOffsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)
	lastWasSpace := true
	pos := 0

	for _, ch := range original {
		runeLen := utf8.RuneLen(ch)
		c := unicode.ToLower(ch)
		if c == '’' || c == '‘' {
			c = '\''
		}
		if c == '–' || c == '—' {
			c = '-'
		}
		if unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c) {
			canonLen := utf8.RuneLen(c)
			for i := 0; i < canonLen; i++ {
				mapping = append(mapping, pos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, pos)
			lastWasSpace = true
		}
		pos += runeLen
	}
	mapping = append(mapping, pos)
	return mapping
}

func mapOffset(canonOffset int, mapping []int, originalLen int) int {
	if canonOffset >= len(mapping) {
		return originalLen
	}
	if canonOffset < 0 {
		return 0
	}
	return mapping[canonOffset]
}
