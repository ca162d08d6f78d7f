package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kittclouds/mnemokit/internal/scheduler"
	"github.com/kittclouds/mnemokit/internal/store"
	"github.com/kittclouds/mnemokit/pkg/history"
)

var (
	serveAddr  string
	serveTopic string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the store's history document read-only over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8765", "address to listen on")
	serveCmd.Flags().StringVar(&serveTopic, "topic", "", "topic label recorded in the document's metadata")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := loadLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	mux := http.NewServeMux()
	mux.HandleFunc("/history", func(w http.ResponseWriter, r *http.Request) {
		engine, err := store.Open(store.Config{StoreURI: cfg.Store.URI, StoreLogContent: cfg.Store.LogContent, Logger: logger})
		if err != nil {
			logger.Error("open store failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer engine.Close()

		raw, err := engine.Export()
		if err != nil {
			logger.Error("export failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		doc, err := history.Build(raw, serveTopic, scheduler.DefaultParams(), time.Now())
		if err != nil {
			logger.Error("history build failed", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})

	cmd.Printf("serving read-only history at http://%s/history\n", serveAddr)
	server := &http.Server{Addr: serveAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return server.ListenAndServe()
}
