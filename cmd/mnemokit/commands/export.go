package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/pkg/history"
)

var (
	exportTopic  string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store's contents as the visualiser history JSON",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTopic, "topic", "", "topic label recorded in the document's metadata")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file, or - for stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := loadLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	engine, err := store.Open(store.Config{StoreURI: cfg.Store.URI, StoreLogContent: cfg.Store.LogContent, Logger: logger})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer engine.Close()

	raw, err := engine.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	doc, err := history.Build(raw, exportTopic, scheduler.DefaultParams(), time.Now())
	if err != nil {
		return fmt.Errorf("build history document: %w", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history document: %w", err)
	}

	if exportOutput == "-" {
		_, err = cmd.OutOrStdout().Write(append(out, '\n'))
		return err
	}
	return os.WriteFile(exportOutput, out, 0o644)
}
