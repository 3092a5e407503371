package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/server"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server over the dataset.

The API provides endpoints for:
  - POST   /api/v1/invoices          - Ingest an NFe XML document
  - GET    /api/v1/invoices?q=       - List or search invoices
  - GET    /api/v1/invoices/:number  - One invoice with its items
  - DELETE /api/v1/invoices          - Clear the dataset
  - GET    /api/v1/items?invoice=    - Line items
  - GET    /api/v1/summary           - Running summary
  - GET    /api/v1/export.xlsx       - XLSX export (?upload=true to store it)
  - GET    /health, /metrics

Examples:
  nfe-analyzer serve
  nfe-analyzer serve --address :9090 --db nfe.db
  nfe-analyzer serve --debug`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from config)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "HTTP read timeout (default from config)")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 0, "HTTP write timeout (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	serverCfg := cfg.Server
	if serverAddr != "" {
		serverCfg.Address = serverAddr
	}
	if serverDebug {
		serverCfg.Debug = true
	}
	if readTimeout > 0 {
		serverCfg.ReadTimeout = readTimeout
	}
	if writeTimeout > 0 {
		serverCfg.WriteTimeout = writeTimeout
	}

	reg, m, err := openMetrics()
	if err != nil {
		return err
	}

	st, closeStore, err := openStore(ctx, store.WithObserver(m))
	if err != nil {
		return err
	}
	defer closeStore()

	opts := []server.Option{server.WithLogger(logger), server.WithRegistry(reg)}
	if cfg.Storage.Enabled() {
		objects, err := openStorage(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithStorage(objects, cfg.Storage.Prefix))
	}

	srv, err := server.NewServer(serverCfg, st, opts...)
	if err != nil {
		return err
	}

	logger.Info("starting server",
		"address", serverCfg.Address,
		"invoices", st.Len(),
		"persistent", cfg.Database.Enabled(),
		"storage", cfg.Storage.Enabled(),
	)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
