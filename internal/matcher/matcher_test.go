package matcher

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalizeNormalizesPunctuationAndCase(t *testing.T) {
	require.Equal(t, "jean-luc", Canonicalize("Jean–Luc"))
	require.Equal(t, "o'brien", Canonicalize("O’Brien"))
	require.Equal(t, "at&t", Canonicalize("AT&T"))
	require.Equal(t, "a b", Canonicalize("  a,, b!!  "))
}

func TestBuildDedupesSharedCanonicalForm(t *testing.T) {
	m, err := Build([]string{"Bob", "BOB", "bob"})
	require.NoError(t, err)
	require.Len(t, m.patterns, 1)
	require.ElementsMatch(t, []string{"Bob", "BOB", "bob"}, m.labels[0])
}

func TestBuildSkipsEmptyCanonicalForm(t *testing.T) {
	m, err := Build([]string{"!!!", "", "Bob"})
	require.NoError(t, err)
	require.Len(t, m.patterns, 1)
}

func TestScanFindsMentionsWithOriginalOffsets(t *testing.T) {
	m, err := Build([]string{"UBI", "Bob"})
	require.NoError(t, err)

	mentions := m.Scan("Bob asked whether UBI was still on the table.")
	require.Len(t, mentions, 2)

	require.Equal(t, "Bob", mentions[0].Label)
	require.Equal(t, "Bob", mentions[0].Text)
	require.Equal(t, 0, mentions[0].Start)
	require.Equal(t, 3, mentions[0].End)

	require.Equal(t, "UBI", mentions[1].Label)
	require.Equal(t, "UBI", mentions[1].Text)
}

func TestScanIsCaseAndPunctuationInsensitive(t *testing.T) {
	m, err := Build([]string{"Jean-Luc"})
	require.NoError(t, err)

	mentions := m.Scan("JEAN–LUC walked in.")
	require.Len(t, mentions, 1)
	require.Equal(t, "JEAN–LUC", mentions[0].Text)
}

func TestScanReturnsNilForEmptyMatcher(t *testing.T) {
	m, err := Build(nil)
	require.NoError(t, err)
	require.Nil(t, m.Scan("anything at all"))
}

func TestScanReturnsNoMentionsWhenAbsent(t *testing.T) {
	m, err := Build([]string{"Alice"})
	require.NoError(t, err)
	require.Empty(t, m.Scan("no one relevant shows up here"))
}
