package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/processor"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [files...]",
	Short: "Check the running summary against its records",
	Long: `Recompute the summary from the stored invoices and line items and
compare it with the incrementally maintained one.

With file arguments the files are ingested first (into the database when
one is configured, otherwise into memory).

Examples:
  nfe-analyzer verify --db nfe.db
  nfe-analyzer verify notas/`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		if err := requireDatabase(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if len(args) > 0 {
		files, err := collectFiles(args)
		if err != nil {
			return err
		}
		pipeline := processor.NewPipeline(st,
			processor.WithConcurrency(cfg.Processing.MaxConcurrency),
			processor.WithLogger(logger),
		)
		results, err := pipeline.ProcessFiles(ctx, files)
		if err != nil {
			return err
		}
		ingested, rejected := processor.Counts(results)
		printVerbose("Ingested %d, rejected %d\n", ingested, rejected)
	}

	if err := st.Verify(); err != nil {
		return err
	}

	summary := st.Summary()
	fmt.Printf("Summary consistent: %d invoices, %d line items\n", summary.InvoiceCount, summary.ItemCount)
	return nil
}
