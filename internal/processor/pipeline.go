// Package processor runs batch ingestion of NFe files into a store.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Ingester is the dataset the pipeline feeds. Extract must be safe for
// concurrent use; Commit is called from one goroutine in input order.
type Ingester interface {
	Extract(ctx context.Context, source string, content []byte) (*model.Invoice, []model.LineItem, error)
	Commit(ctx context.Context, source string, inv *model.Invoice, items []model.LineItem) error
}

// Status is the outcome of one file
type Status string

const (
	StatusIngested Status = "ingested"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// KindIO marks files that could not be read
const KindIO = "io"

// Result is the per-file outcome of a batch
type Result struct {
	File          string `json:"file"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	Items         int    `json:"items,omitempty"`
	Status        Status `json:"status"`
	Kind          string `json:"kind,omitempty"`
	Error         string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Document is an in-memory input
type Document struct {
	Name    string
	Content []byte
}

// Pipeline ingests batches of documents
type Pipeline struct {
	ingester    Ingester
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithConcurrency bounds the number of documents parsed at once
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// WithTimeout bounds the parse of a single document
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline feeding ingester
func NewPipeline(ingester Ingester, opts ...Option) *Pipeline {
	p := &Pipeline{
		ingester:    ingester,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type extraction struct {
	inv   *model.Invoice
	items []model.LineItem
	err   error
	kind  string
}

// ProcessFiles reads and ingests files. One Result is returned per path,
// in input order. Per-file errors are reported in the results; the error
// return is only set when ctx ends before the batch completes.
func (p *Pipeline) ProcessFiles(ctx context.Context, paths []string) ([]Result, error) {
	return p.run(ctx, len(paths), func(i int) string { return paths[i] },
		func(i int) ([]byte, error) {
			data, err := os.ReadFile(paths[i])
			if err != nil {
				return nil, fmt.Errorf("failed to read file: %w", err)
			}
			return data, nil
		})
}

// ProcessDocuments ingests in-memory documents
func (p *Pipeline) ProcessDocuments(ctx context.Context, docs []Document) ([]Result, error) {
	return p.run(ctx, len(docs), func(i int) string { return docs[i].Name },
		func(i int) ([]byte, error) { return docs[i].Content, nil })
}

func (p *Pipeline) run(ctx context.Context, n int, name func(int) string, load func(int) ([]byte, error)) ([]Result, error) {
	batchID := uuid.NewString()
	logger := p.logger.With("batch", batchID)
	logger.Debug("batch started", "documents", n, "concurrency", p.concurrency)
	start := time.Now()

	extracted := make([]extraction, n)

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			extracted[i] = p.extract(ctx, name(i), func() ([]byte, error) { return load(i) })
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, n)
	for i := range extracted {
		source := name(i)
		e := extracted[i]
		r := Result{File: source}

		if e.err == nil {
			e.err = p.ingester.Commit(ctx, source, e.inv, e.items)
			e.kind = model.ErrorKind(e.err)
		}

		switch {
		case e.err == nil:
			r.Status = StatusIngested
			r.InvoiceNumber = e.inv.Number
			r.Items = len(e.items)
		case e.kind == KindIO:
			r.Status = StatusFailed
		default:
			r.Status = StatusRejected
		}
		if e.err != nil {
			r.Kind = e.kind
			r.Err = e.err
			r.Error = e.err.Error()
		}
		results[i] = r
	}

	ingested, rejected := Counts(results)
	logger.Info("batch finished",
		"documents", n,
		"ingested", ingested,
		"rejected", rejected,
		"duration", time.Since(start),
	)
	return results, nil
}

func (p *Pipeline) extract(ctx context.Context, source string, load func() ([]byte, error)) extraction {
	data, err := load()
	if err != nil {
		return extraction{err: err, kind: KindIO}
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	inv, items, err := p.ingester.Extract(ctx, source, data)
	if err != nil {
		return extraction{err: err, kind: model.ErrorKind(err)}
	}
	return extraction{inv: inv, items: items}
}

// Counts returns the number of ingested results and of the rest
func Counts(results []Result) (ingested, rejected int) {
	for _, r := range results {
		if r.Status == StatusIngested {
			ingested++
		} else {
			rejected++
		}
	}
	return ingested, rejected
}
