package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export [output.xlsx]",
	Short: "Export the persisted dataset to XLSX",
	Long: `Write the persisted dataset to a workbook with a "Line Items" sheet
and an "Invoices" sheet. Without an argument the file is written to
export.dir as nfe-report.xlsx.

Examples:
  nfe-analyzer export --db nfe.db report.xlsx
  nfe-analyzer export --db nfe.db --upload`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().BoolVar(&upload, "upload", false, "Upload the workbook to object storage")
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := requireDatabase(); err != nil {
		return err
	}

	st, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	if st.Len() == 0 {
		return report.ErrNoData
	}

	path := filepath.Join(cfg.Export.Dir, "nfe-report.xlsx")
	if len(args) == 1 {
		path = args[0]
	}
	if err := exportWorkbook(cmd.Context(), st.Snapshot(), path, upload || cfg.Export.Upload); err != nil {
		return err
	}
	fmt.Printf("Exported %d invoices to %s\n", st.Len(), path)
	return nil
}
