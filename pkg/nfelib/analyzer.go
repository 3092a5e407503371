package nfelib

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"time"

	"github.com/rezonia/nfe-analyzer/internal/logging"
	"github.com/rezonia/nfe-analyzer/internal/processor"
	"github.com/rezonia/nfe-analyzer/internal/report"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

// Options configures an Analyzer
type Options struct {
	// MaxConcurrency bounds parallel parsing in batches (default: 4)
	MaxConcurrency int
	// Timeout bounds the parse of one document in batches; 0 disables it
	Timeout time.Duration
	// Logger receives ingestion logs; nil discards them
	Logger *slog.Logger
}

// DefaultOptions returns default analyzer options
func DefaultOptions() Options {
	return Options{
		MaxConcurrency: 4,
		Timeout:        2 * time.Minute,
	}
}

// Analyzer is an in-memory NFe dataset
type Analyzer struct {
	store    *store.Store
	pipeline *processor.Pipeline
}

// New creates an empty analyzer
func New(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	st := store.New(store.WithLogger(logger))
	return &Analyzer{
		store: st,
		pipeline: processor.NewPipeline(st,
			processor.WithConcurrency(opts.MaxConcurrency),
			processor.WithTimeout(opts.Timeout),
			processor.WithLogger(logger),
		),
	}
}

// Ingest reads one document and adds it to the dataset
func (a *Analyzer) Ingest(ctx context.Context, source string, r io.Reader) (*Invoice, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return a.store.Ingest(ctx, source, data)
}

// IngestBatch adds documents concurrently, committing in input order.
// Per-document failures are reported in the results.
func (a *Analyzer) IngestBatch(ctx context.Context, docs []Document) ([]Result, error) {
	return a.pipeline.ProcessDocuments(ctx, docs)
}

// IngestFiles reads and adds files from disk
func (a *Analyzer) IngestFiles(ctx context.Context, paths []string) ([]Result, error) {
	return a.pipeline.ProcessFiles(ctx, paths)
}

// Summary returns a snapshot of the running statistics
func (a *Analyzer) Summary() Summary {
	return a.store.Summary()
}

// Invoices returns all invoices in ingestion order
func (a *Analyzer) Invoices() []Invoice {
	return a.store.Invoices()
}

// Invoice returns the invoice with the given number
func (a *Analyzer) Invoice(number string) (Invoice, bool) {
	return a.store.Invoice(number)
}

// Items returns all line items in ingestion order
func (a *Analyzer) Items() []LineItem {
	return a.store.Items()
}

// Search yields invoices whose number, customer name or CNPJ contains text
func (a *Analyzer) Search(text string) iter.Seq[Invoice] {
	return a.store.Search(text)
}

// Clear empties the dataset
func (a *Analyzer) Clear(ctx context.Context) error {
	return a.store.Clear(ctx)
}

// ExportXLSX writes the "Line Items" and "Invoices" sheets to w. It fails
// with an error on an empty dataset.
func (a *Analyzer) ExportXLSX(w io.Writer) error {
	ds := a.store.Snapshot()
	return report.WriteXLSX(w, report.LineItems(ds), report.Invoices(ds))
}
