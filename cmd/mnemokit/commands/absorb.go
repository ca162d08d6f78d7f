package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/mnemokit/internal/config"
	"github.com/kittclouds/mnemokit/internal/kgerrors"
	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/pkg/agentstore"
	"github.com/kittclouds/mnemokit/pkg/extraction"
)

var (
	absorbAgent  string
	absorbAuthor string
	absorbText   string
	absorbTopic  string
)

var absorbCmd = &cobra.Command{
	Use:   "absorb",
	Short: "Absorb one turn of text into an agent's memory and print the resulting context",
	RunE:  runAbsorb,
}

func init() {
	absorbCmd.Flags().StringVar(&absorbAgent, "agent", "", "agent name (required)")
	absorbCmd.Flags().StringVar(&absorbAuthor, "author", "user", "speaker attributed to the absorbed text")
	absorbCmd.Flags().StringVar(&absorbText, "text", "", "text to absorb (required)")
	absorbCmd.Flags().StringVar(&absorbTopic, "topic", "", "topic to build the returned context around")
}

func runAbsorb(cmd *cobra.Command, args []string) error {
	if absorbAgent == "" {
		return kgerrors.InvalidInput("agent", "must not be empty")
	}
	if absorbText == "" {
		return kgerrors.InvalidInput("text", "must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := loadLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	params := schedulerParams(cfg)

	engine, err := store.Open(store.Config{
		StoreURI:        cfg.Store.URI,
		StoreLogContent: cfg.Store.LogContent,
		SchedulerParams: params,
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer engine.Close()

	strategy, err := extraction.NewFromConfig(cfg.Extraction, nil, logger)
	if err != nil {
		return fmt.Errorf("build extraction strategy: %w", err)
	}

	agents := agentstore.New(engine, params, strategy, logger)
	if _, err := agents.CreateOrGet(absorbAgent); err != nil {
		return err
	}

	ctx := cmd.Context()
	out, err := agents.ProcessAndGetContext(ctx, absorbAgent, absorbTopic, absorbText, absorbAuthor, nil)
	if err != nil {
		return err
	}
	cmd.Println(out)
	return nil
}

// schedulerParams uses cfg.Scheduler.Weights when the caller overrode
// any of them, falling back to the library defaults when the zero
// value (all 21 weights at 0) means "not configured".
func schedulerParams(cfg *config.Config) scheduler.Params {
	for _, w := range cfg.Scheduler.Weights {
		if w != 0 {
			return scheduler.Params{P: cfg.Scheduler.Weights}
		}
	}
	return scheduler.DefaultParams()
}
