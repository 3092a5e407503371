package cmd

import (
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/model"
	"github.com/rezonia/nfe-analyzer/internal/report"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

var (
	searchText  string
	showItems   bool
	showDetails bool
	showSummary bool
	itemInvoice string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the persisted dataset",
	Long: `Print invoices, line items or the summary of a persisted dataset.

Examples:
  nfe-analyzer report --db nfe.db
  nfe-analyzer report --db nfe.db --search santos
  nfe-analyzer report --db nfe.db --details -f csv
  nfe-analyzer report --db nfe.db --items --invoice 1234
  nfe-analyzer report --db nfe.db --summary -f json`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&searchText, "search", "s", "", "Filter invoices by number, customer name or CNPJ")
	reportCmd.Flags().BoolVar(&showItems, "items", false, "Print line items instead of invoices")
	reportCmd.Flags().StringVar(&itemInvoice, "invoice", "", "With --items, only this invoice's items")
	reportCmd.Flags().BoolVar(&showDetails, "details", false, "Print the detailed line item view")
	reportCmd.Flags().BoolVar(&showSummary, "summary", false, "Print the summary")
}

// filtered is a report source limited to the invoices matching a search
type filtered struct {
	invoices []model.Invoice
	items    []model.LineItem
}

func (f filtered) Invoices() []model.Invoice { return f.invoices }
func (f filtered) Items() []model.LineItem   { return f.items }

func runReport(cmd *cobra.Command, args []string) error {
	if err := requireDatabase(); err != nil {
		return err
	}

	st, closeStore, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer closeStore()

	if showSummary {
		summary := st.Summary()
		return output(os.Stdout, newSummaryOutput(summary), report.Summary(summary))
	}

	src := selectSource(st)
	switch {
	case showDetails:
		return output(os.Stdout, src.items, report.Details(src))
	case showItems:
		return output(os.Stdout, src.items, report.LineItems(src))
	default:
		return output(os.Stdout, src.invoices, report.Invoices(src))
	}
}

func selectSource(st *store.Store) filtered {
	invoices := slices.Collect(st.Search(searchText))

	numbers := make(map[string]bool, len(invoices))
	for _, inv := range invoices {
		if itemInvoice == "" || inv.Number == itemInvoice {
			numbers[inv.Number] = true
		}
	}

	var items []model.LineItem
	for _, item := range st.Items() {
		if numbers[item.InvoiceNumber] {
			items = append(items, item)
		}
	}
	return filtered{invoices: invoices, items: items}
}
