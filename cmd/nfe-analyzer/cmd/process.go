package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/nfe-analyzer/internal/model"
	"github.com/rezonia/nfe-analyzer/internal/processor"
	"github.com/rezonia/nfe-analyzer/internal/report"
)

var (
	outputFile string
	exportFile string
	upload     bool
)

var processCmd = &cobra.Command{
	Use:   "process [files...]",
	Short: "Ingest NFe XML files",
	Long: `Ingest one or more NFe XML files and print per-file results and the
running summary.

Arguments may be files, directories (walked recursively for .xml files) or
glob patterns. A file that cannot be read, is not well-formed, lacks a
required node or repeats an invoice number is reported and skipped; the
rest of the batch continues.

Examples:
  nfe-analyzer process nota.xml
  nfe-analyzer process notas/ -f json -o results.json
  nfe-analyzer process notas/*.xml --db nfe.db --export report.xlsx --upload`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	processCmd.Flags().StringVar(&exportFile, "export", "", "Write an XLSX workbook of the dataset")
	processCmd.Flags().BoolVar(&upload, "upload", false, "Upload the exported workbook to object storage")
}

// processOutput is the JSON shape of a process run
type processOutput struct {
	Results []processor.Result `json:"results"`
	Summary summaryOutput      `json:"summary"`
}

type summaryOutput struct {
	model.Summary
	CustomerCount int `json:"customer_count"`
	ProductCount  int `json:"product_count"`
}

func newSummaryOutput(s model.Summary) summaryOutput {
	return summaryOutput{Summary: s, CustomerCount: s.CustomerCount(), ProductCount: s.ProductCount()}
}

func runProcess(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}
	printVerbose("Found %d files to process\n", len(files))

	ctx := cmd.Context()

	st, closeStore, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := processor.NewPipeline(st,
		processor.WithConcurrency(cfg.Processing.MaxConcurrency),
		processor.WithTimeout(cfg.Processing.Timeout),
		processor.WithLogger(logger),
	)

	results, err := pipeline.ProcessFiles(ctx, files)
	if err != nil {
		return err
	}

	ingested, rejected := processor.Counts(results)
	printVerbose("Ingested %d, rejected %d\n", ingested, rejected)

	w := os.Stdout
	if outputFile != "" {
		f, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	summary := st.Summary()
	if err := output(w, processOutput{Results: results, Summary: newSummaryOutput(summary)},
		resultsTable(results), report.Summary(summary)); err != nil {
		return err
	}

	if exportFile != "" {
		return exportWorkbook(ctx, st.Snapshot(), exportFile, upload || cfg.Export.Upload)
	}
	return nil
}

func resultsTable(results []processor.Result) report.Table {
	t := report.Table{
		Name:    "Results",
		Headers: []string{"File", "Status", "Invoice", "Items", "Error"},
	}
	for _, r := range results {
		items := ""
		if r.Status == processor.StatusIngested {
			items = strconv.Itoa(r.Items)
		}
		t.Rows = append(t.Rows, []report.Cell{
			{Text: r.File},
			{Text: string(r.Status)},
			{Text: r.InvoiceNumber},
			{Text: items},
			{Text: r.Error},
		})
	}
	return t
}

func collectFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		matches, err := filepath.Glob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", arg, err)
		}

		if len(matches) == 0 {
			info, err := os.Stat(arg)
			if err != nil {
				return nil, fmt.Errorf("file not found: %s", arg)
			}
			if !info.IsDir() {
				files = append(files, arg)
				continue
			}
			matches = []string{arg}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				continue
			}
			if !info.IsDir() {
				if isSupportedFile(match) {
					files = append(files, match)
				}
				continue
			}
			err = filepath.Walk(match, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && isSupportedFile(path) {
					files = append(files, path)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		}
	}

	return files, nil
}

func isSupportedFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xml")
}
