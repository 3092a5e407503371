package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/config"
	"github.com/rezonia/nfe-analyzer/internal/logging"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	configFile   string
	dbDSN        string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "nfe-analyzer",
	Short: "Extract and aggregate Brazilian NFe invoices",
	Long: `NFe Analyzer extracts invoice headers and line items from Brazilian
electronic invoice (NFe) XML documents and keeps running totals.

Examples:
  # Process a folder of NFe files and print the summary
  nfe-analyzer process notas/

  # Persist into SQLite and export a workbook
  nfe-analyzer process notas/*.xml --db nfe.db --export report.xlsx

  # Query the persisted dataset
  nfe-analyzer report --db nfe.db --search "Santos"

  # Serve the HTTP API
  nfe-analyzer serve --db nfe.db`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "Output format (json, csv, table)")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (env: NFE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbDSN, "db", "", "Database DSN; enables persistence (env: NFE_DB_DSN)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		configFile = os.Getenv("NFE_CONFIG")
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if dbDSN != "" {
		loaded.Database.DSN = dbDSN
	}
	if verbose {
		loaded.Log.Level = "debug"
	}

	switch outputFormat {
	case "json", "csv", "table":
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}

	cfg = loaded
	logger = logging.New(cfg.Log)
	return nil
}
