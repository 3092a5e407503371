package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rezonia/nfe-analyzer/internal/metrics"
	"github.com/rezonia/nfe-analyzer/internal/report"
	"github.com/rezonia/nfe-analyzer/internal/repository"
	"github.com/rezonia/nfe-analyzer/internal/storage"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

// openStore builds the dataset. With a configured database the store is
// backed by it and preloaded with its contents.
func openStore(ctx context.Context, opts ...store.Option) (*store.Store, func(), error) {
	opts = append([]store.Option{store.WithLogger(logger)}, opts...)

	if !cfg.Database.Enabled() {
		return store.New(opts...), func() {}, nil
	}

	repo, err := repository.Open(repository.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		return nil, nil, err
	}
	closeRepo := func() {
		if err := repo.Close(); err != nil {
			logger.Warn("failed to close database", "error", err)
		}
	}

	st := store.New(append(opts, store.WithRepository(repo))...)
	if err := st.Load(ctx); err != nil {
		closeRepo()
		return nil, nil, fmt.Errorf("failed to load dataset: %w", err)
	}
	logger.Debug("dataset loaded", "driver", cfg.Database.Driver, "invoices", st.Len())
	return st, closeRepo, nil
}

// requireDatabase fails commands that only make sense on a persisted dataset
func requireDatabase() error {
	if !cfg.Database.Enabled() {
		return fmt.Errorf("no database configured (use --db or NFE_DB_DSN)")
	}
	return nil
}

// openMetrics registers the dataset collectors on a fresh registry
func openMetrics() (*prometheus.Registry, *metrics.Metrics, error) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return nil, nil, err
	}
	return reg, m, nil
}

func openStorage(ctx context.Context) (storage.Storage, error) {
	if !cfg.Storage.Enabled() {
		return nil, fmt.Errorf("object storage is not configured (set NFE_MINIO_ENDPOINT)")
	}
	return storage.NewMinIO(ctx, cfg.Storage)
}

// exportWorkbook writes both sheets to path and, when upload is set,
// stores a copy in object storage.
func exportWorkbook(ctx context.Context, src report.Source, path string, upload bool) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := report.WriteXLSX(f, report.LineItems(src), report.Invoices(src)); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	printVerbose("Exported workbook to %s\n", path)

	if !upload {
		return nil
	}

	st, err := openStorage(ctx)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	info, err := storage.UploadWorkbook(ctx, st, cfg.Storage.Prefix, data, map[string]string{
		"invoices": fmt.Sprint(len(src.Invoices())),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Uploaded %s (%d bytes)\n", info.Key, info.Size)
	return nil
}

// output writes tables in the selected format. JSON output encodes v
// instead of the tables.
func output(w io.Writer, v any, tables ...report.Table) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case "csv":
		for _, t := range tables {
			if err := report.WriteCSV(w, t); err != nil {
				return err
			}
		}
		return nil
	default:
		for i, t := range tables {
			if i > 0 {
				fmt.Fprintln(w)
			}
			if err := report.WriteTable(w, t); err != nil {
				return err
			}
		}
		return nil
	}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
