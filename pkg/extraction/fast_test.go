package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastStrategyDetectsKnownEntityAndPolarity(t *testing.T) {
	strategy, err := NewFastStrategy([]string{"UBI"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(context.Background(), "I love UBI, it's a great idea.", "Alice", "Agent")
	require.NoError(t, err)

	require.Equal(t, "fast", result.Mode)
	require.Contains(t, result.Entities, "UBI")
	require.Greater(t, result.OverallSentiment, 0.0)
	require.Len(t, result.PartnerStance, 1)
	require.Equal(t, "Alice", result.PartnerStance[0].Source)
	require.Equal(t, "UBI", result.PartnerStance[0].Target)
	require.Contains(t, result.PartnerStance[0].Relation, "support")
}

func TestFastStrategyNegativeSentimentOpposes(t *testing.T) {
	strategy, err := NewFastStrategy([]string{"UBI"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(context.Background(), "I hate UBI, it's a terrible idea.", "Bob", "Agent")
	require.NoError(t, err)

	require.Less(t, result.OverallSentiment, 0.0)
	require.Len(t, result.PartnerStance, 1)
	require.Contains(t, result.PartnerStance[0].Relation, "oppose")
}

func TestFastStrategyFallsBackToCapitalizedWords(t *testing.T) {
	strategy, err := NewFastStrategy(nil, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(context.Background(), "Bob talked about New York today.", "Alice", "Agent")
	require.NoError(t, err)
	require.Contains(t, result.Entities, "Bob")
	require.Contains(t, result.Entities, "New York")
}

func TestFastStrategySkipsSelfAndAuthorAsTargets(t *testing.T) {
	strategy, err := NewFastStrategy([]string{"Alice"}, nil)
	require.NoError(t, err)

	result, err := strategy.Extract(context.Background(), "I love Alice.", "Alice", "Agent")
	require.NoError(t, err)
	require.Empty(t, result.PartnerStance)
}
