package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-analyzer/internal/nfetest"
	"github.com/rezonia/nfe-analyzer/internal/processor"
	"github.com/rezonia/nfe-analyzer/internal/repository"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestCollectFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.xml"), []byte("<a/>"))
	writeFile(t, filepath.Join(dir, "nested", "B.XML"), []byte("<b/>"))
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("x"))

	files, err := collectFiles([]string{dir})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "a.xml"),
		filepath.Join(dir, "nested", "B.XML"),
	}, files)

	files, err = collectFiles([]string{filepath.Join(dir, "*.xml")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml")}, files)

	_, err = collectFiles([]string{filepath.Join(dir, "missing.xml")})
	assert.ErrorContains(t, err, "file not found")
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, isSupportedFile("nota.xml"))
	assert.True(t, isSupportedFile("NOTA.XML"))
	assert.False(t, isSupportedFile("nota.pdf"))
	assert.False(t, isSupportedFile("xml"))
}

func TestGetPreview(t *testing.T) {
	content := "<?xml version=\"1.0\"?>\n<NFe>\n\t<infNFe>   </infNFe>\n</NFe>"
	assert.Equal(t, "<NFe> <infNFe> </infNFe> </NFe>", getPreview(content, 200))
	assert.Equal(t, "<NFe>...", getPreview(content, 5))
}

func TestResultsTable(t *testing.T) {
	table := resultsTable([]processor.Result{
		{File: "a.xml", Status: processor.StatusIngested, InvoiceNumber: "1", Items: 2},
		{File: "b.xml", Status: processor.StatusRejected, Kind: "malformed", Error: "[b.xml] malformed document"},
	})

	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2", table.Rows[0][3].String())
	assert.Equal(t, "", table.Rows[1][3].String())
	assert.Equal(t, "[b.xml] malformed document", table.Rows[1][4].String())
}

func TestProcessReportClear(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "in", "1.xml"), nfetest.Sample("1").XML())
	writeFile(t, filepath.Join(dir, "in", "2.xml"), nfetest.Sample("2").XML())
	writeFile(t, filepath.Join(dir, "in", "dup.xml"), nfetest.Sample("1").XML())

	dsn := filepath.Join(dir, "nfe.db")
	results := filepath.Join(dir, "results.json")
	workbook := filepath.Join(dir, "report.xlsx")

	run := func(args ...string) error {
		rootCmd.SetArgs(args)
		return Execute(context.Background())
	}

	require.NoError(t, run("process", filepath.Join(dir, "in"), "--db", dsn, "-f", "json", "-o", results, "--export", workbook))

	data, err := os.ReadFile(results)
	require.NoError(t, err)
	var out processOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Results, 3)
	ingested, rejected := processor.Counts(out.Results)
	assert.Equal(t, 2, ingested)
	assert.Equal(t, 1, rejected)
	assert.Equal(t, 2, out.Summary.InvoiceCount)
	assert.FileExists(t, workbook)

	require.NoError(t, run("verify", "--db", dsn))

	require.NoError(t, run("clear", "--db", dsn))

	repo, err := repository.Open(repository.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer repo.Close()
	invoices, items, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, invoices)
	assert.Empty(t, items)
}

func TestReport_RequiresDatabase(t *testing.T) {
	t.Setenv("NFE_DB_DSN", "")
	dbDSN = ""
	rootCmd.SetArgs([]string{"report"})
	err := Execute(context.Background())
	assert.ErrorContains(t, err, "no database configured")
}
