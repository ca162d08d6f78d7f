package extraction

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/config"
	"github.com/kittclouds/mnemokit/internal/kgerrors"
)

// NewFromConfig builds the Strategy named by cfg.Strategy ("fast",
// "llm", or "none"), failing immediately at construction time with
// kgerrors.DependencyMissing when the selected variant's backing
// credential isn't present, rather than deferring the failure to the
// first Extract call. "none" returns a nil Strategy and a nil error:
// callers (pkg/agentstore) already treat a nil extractor plus omitted
// triples as the "no extraction capability" case.
func NewFromConfig(cfg config.ExtractionConfig, knownEntities []string, logger *zap.Logger) (Strategy, error) {
	switch cfg.Strategy {
	case "", "none":
		return nil, nil

	case "fast":
		return NewFastStrategyWithThresholds(knownEntities, Thresholds{
			Support: cfg.SentimentSupport,
			Oppose:  cfg.SentimentOppose,
			Like:    cfg.SentimentLike,
			Dislike: cfg.SentimentDislike,
		}, logger)

	case "llm":
		if cfg.LLMAPIKey == "" {
			return nil, kgerrors.DependencyMissing("llm extraction strategy selected but extraction.llmapikey is not set")
		}
		return NewLLMStrategy(LLMConfig{
			Endpoint:   cfg.LLMBaseURL,
			APIKey:     cfg.LLMAPIKey,
			Model:      cfg.LLMModel,
			MaxRetries: cfg.MaxRetries,
			HTTPClient: &http.Client{Timeout: cfg.Timeout},
		}, logger)

	default:
		return nil, kgerrors.DependencyMissing("unknown extraction strategy " + cfg.Strategy)
	}
}
