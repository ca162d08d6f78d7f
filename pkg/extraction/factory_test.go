package extraction

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kittclouds/mnemokit/internal/config"
	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

func TestNewFromConfigBuildsFastStrategy(t *testing.T) {
	strategy, err := NewFromConfig(config.ExtractionConfig{Strategy: "fast"}, []string{"UBI"}, nil)
	require.NoError(t, err)
	require.IsType(t, &FastStrategy{}, strategy)
}

func TestNewFromConfigBuildsLLMStrategy(t *testing.T) {
	strategy, err := NewFromConfig(config.ExtractionConfig{Strategy: "llm", LLMAPIKey: "test-key"}, nil, nil)
	require.NoError(t, err)
	require.IsType(t, &LLMStrategy{}, strategy)
}

func TestNewFromConfigNoneReturnsNilStrategy(t *testing.T) {
	strategy, err := NewFromConfig(config.ExtractionConfig{Strategy: "none"}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, strategy)
}

func TestNewFromConfigLLMWithoutKeyFailsFastWithDependencyMissing(t *testing.T) {
	strategy, err := NewFromConfig(config.ExtractionConfig{Strategy: "llm"}, nil, nil)
	require.Error(t, err)
	require.Nil(t, strategy)
	require.True(t, errors.Is(err, kgerrors.ErrDependencyMissing))
}

func TestNewFromConfigUnknownStrategyFailsWithDependencyMissing(t *testing.T) {
	_, err := NewFromConfig(config.ExtractionConfig{Strategy: "bogus"}, nil, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, kgerrors.ErrDependencyMissing))
}
