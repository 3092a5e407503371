// Package store holds the ingested dataset: invoices keyed by number, line
// items in ingestion order and the running summary. Ingestion is
// serialized; readers get copies.
package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"

	"github.com/rezonia/nfe-analyzer/internal/model"
	xmlparser "github.com/rezonia/nfe-analyzer/internal/parser/xml"
)

// Repository is durable storage for the dataset records
type Repository interface {
	Save(ctx context.Context, inv *model.Invoice, items []model.LineItem) error
	Load(ctx context.Context) ([]model.Invoice, []model.LineItem, error)
	Clear(ctx context.Context) error
}

// Observer is notified of ingestion outcomes
type Observer interface {
	Ingested(inv *model.Invoice, items []model.LineItem, summary *model.Summary)
	Rejected(kind string)
	Cleared()
	Loaded(summary *model.Summary)
}

type noopObserver struct{}

func (noopObserver) Ingested(*model.Invoice, []model.LineItem, *model.Summary) {}
func (noopObserver) Rejected(string)                                           {}
func (noopObserver) Cleared()                                                  {}
func (noopObserver) Loaded(*model.Summary)                                     {}

// ErrNoRepository is returned by Load on a store without durable storage
var ErrNoRepository = errors.New("store has no repository")

// Store is the in-memory dataset
type Store struct {
	parser   *xmlparser.Parser
	repo     Repository
	observer Observer
	logger   *slog.Logger

	mu       sync.RWMutex
	invoices map[string]*model.Invoice
	order    []string
	items    []model.LineItem
	summary  model.Summary
}

// Option configures a Store
type Option func(*Store)

// WithRepository persists every committed invoice before it becomes visible
func WithRepository(repo Repository) Option {
	return func(s *Store) {
		s.repo = repo
	}
}

// WithObserver sets the ingestion observer
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		parser:   xmlparser.NewParser(),
		observer: noopObserver{},
		logger:   slog.Default(),
		invoices: make(map[string]*model.Invoice),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest parses one document and commits it. It returns the stored invoice.
func (s *Store) Ingest(ctx context.Context, source string, content []byte) (*model.Invoice, error) {
	inv, items, err := s.Extract(ctx, source, content)
	if err != nil {
		return nil, err
	}
	if err := s.Commit(ctx, source, inv, items); err != nil {
		return nil, err
	}
	return inv, nil
}

// Extract parses a document without touching the dataset. Safe for
// concurrent use.
func (s *Store) Extract(ctx context.Context, source string, content []byte) (*model.Invoice, []model.LineItem, error) {
	inv, items, err := s.parser.ParseBytes(ctx, content)
	if err != nil {
		return nil, nil, s.reject(source, err)
	}
	return inv, items, nil
}

// Commit adds an extracted invoice. A duplicate number or a repository
// failure leaves the dataset unchanged.
func (s *Store) Commit(ctx context.Context, source string, inv *model.Invoice, items []model.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.invoices[inv.Number]; exists {
		return s.reject(source, model.NewDuplicateInvoiceError(source, inv.Number))
	}

	if s.repo != nil {
		if err := s.repo.Save(ctx, inv, items); err != nil {
			return s.reject(source, fmt.Errorf("failed to persist invoice %s: %w", inv.Number, err))
		}
	}

	stored := *inv
	s.invoices[stored.Number] = &stored
	s.order = append(s.order, stored.Number)
	s.items = append(s.items, items...)
	s.summary.Add(&stored, items)

	s.logger.Debug("invoice ingested",
		"source", source,
		"number", stored.Number,
		"items", len(items),
	)
	s.observer.Ingested(&stored, items, &s.summary)
	return nil
}

func (s *Store) reject(source string, err error) error {
	err = model.WithSource(err, source)
	kind := model.ErrorKind(err)
	s.logger.Warn("document rejected", "source", source, "kind", kind, "error", err)
	s.observer.Rejected(kind)
	return err
}

// Clear empties the dataset and its repository
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear repository: %w", err)
		}
	}
	s.reset()
	s.logger.Debug("dataset cleared")
	s.observer.Cleared()
	return nil
}

func (s *Store) reset() {
	s.invoices = make(map[string]*model.Invoice)
	s.order = nil
	s.items = nil
	s.summary = model.Summary{}
}

// Load replaces the dataset with the repository contents. The summary is
// rebuilt from the records.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return ErrNoRepository
	}

	invoices, items, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.reset()
	for i := range invoices {
		inv := invoices[i]
		s.invoices[inv.Number] = &inv
		s.order = append(s.order, inv.Number)
	}
	s.items = items
	s.summary = model.Recompute(invoices, items)

	s.logger.Debug("dataset loaded", "invoices", len(invoices), "items", len(items))
	s.observer.Loaded(&s.summary)
	return nil
}

// Len returns the number of stored invoices
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Invoice returns the invoice with the given number
func (s *Store) Invoice(number string) (model.Invoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[number]
	if !ok {
		return model.Invoice{}, false
	}
	return *inv, true
}

// Invoices returns all invoices in ingestion order
func (s *Store) Invoices() []model.Invoice {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Invoice, 0, len(s.order))
	for _, number := range s.order {
		out = append(out, *s.invoices[number])
	}
	return out
}

// Query lazily yields the invoices matching pred, in ingestion order. The
// sequence iterates over copies of the dataset as it was when Query was
// called.
func (s *Store) Query(pred func(model.Invoice) bool) iter.Seq[model.Invoice] {
	snapshot := s.Invoices()

	return func(yield func(model.Invoice) bool) {
		for _, inv := range snapshot {
			if pred != nil && !pred(inv) {
				continue
			}
			if !yield(inv) {
				return
			}
		}
	}
}

// Search yields invoices whose number, customer name or CNPJ contains
// text, ignoring case. Empty text matches everything.
func (s *Store) Search(text string) iter.Seq[model.Invoice] {
	return s.Query(MatchText(text))
}

// MatchText builds the case-insensitive substring predicate used by Search
func MatchText(text string) func(model.Invoice) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	return func(inv model.Invoice) bool {
		if needle == "" {
			return true
		}
		for _, field := range []string{inv.Number, inv.Customer.Name, inv.Customer.CNPJ} {
			if strings.Contains(strings.ToLower(field), needle) {
				return true
			}
		}
		return false
	}
}

// Dataset is a consistent copy of the stored records
type Dataset struct {
	invoices []model.Invoice
	items    []model.LineItem
}

func (d Dataset) Invoices() []model.Invoice { return d.invoices }
func (d Dataset) Items() []model.LineItem   { return d.items }

// Snapshot copies invoices and items under a single read lock
func (s *Store) Snapshot() Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d := Dataset{
		invoices: make([]model.Invoice, 0, len(s.order)),
		items:    make([]model.LineItem, len(s.items)),
	}
	for _, number := range s.order {
		d.invoices = append(d.invoices, *s.invoices[number])
	}
	copy(d.items, s.items)
	return d
}

// Items returns every line item in ingestion order
func (s *Store) Items() []model.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// ItemsFor returns the line items of one invoice in document order
func (s *Store) ItemsFor(number string) []model.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LineItem
	for _, item := range s.items {
		if item.InvoiceNumber == number {
			out = append(out, item)
		}
	}
	return out
}

// Summary returns a snapshot of the running statistics
func (s *Store) Summary() model.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary.Clone()
}

// ErrSummaryMismatch reports a summary that no longer matches its records
var ErrSummaryMismatch = errors.New("summary does not match stored records")

// Verify recomputes the summary from the stored records and compares it
// with the running one.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]model.Invoice, 0, len(s.order))
	for _, number := range s.order {
		invoices = append(invoices, *s.invoices[number])
	}
	recomputed := model.Recompute(invoices, s.items)
	if !recomputed.Equal(&s.summary) {
		return ErrSummaryMismatch
	}
	return nil
}
