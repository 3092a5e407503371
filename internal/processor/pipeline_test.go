package processor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-analyzer/internal/logging"
	"github.com/rezonia/nfe-analyzer/internal/model"
	"github.com/rezonia/nfe-analyzer/internal/nfetest"
	"github.com/rezonia/nfe-analyzer/internal/processor"
	"github.com/rezonia/nfe-analyzer/internal/store"
)

const missingDest = `<?xml version="1.0" encoding="UTF-8"?>
<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe><ide><nNF>77</nNF></ide></infNFe></NFe>`

func newPipeline(opts ...processor.Option) (*processor.Pipeline, *store.Store) {
	st := store.New(store.WithLogger(logging.Discard()))
	opts = append([]processor.Option{processor.WithLogger(logging.Discard())}, opts...)
	return processor.NewPipeline(st, opts...), st
}

func TestProcessDocuments_Mixed(t *testing.T) {
	p, st := newPipeline()

	docs := []processor.Document{
		{Name: "a.xml", Content: nfetest.Sample("1001").XML()},
		{Name: "broken.xml", Content: []byte("<nfeProc><NFe>")},
		{Name: "partial.xml", Content: []byte(missingDest)},
		{Name: "again.xml", Content: nfetest.Sample("1001").XML()},
		{Name: "b.xml", Content: nfetest.Sample("1002").XML()},
	}

	results, err := p.ProcessDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, results, len(docs))

	assert.Equal(t, processor.StatusIngested, results[0].Status)
	assert.Equal(t, "1001", results[0].InvoiceNumber)
	assert.Equal(t, 2, results[0].Items)

	assert.Equal(t, processor.StatusRejected, results[1].Status)
	assert.Equal(t, model.KindMalformed, results[1].Kind)
	assert.Contains(t, results[1].Error, "[broken.xml]")

	assert.Equal(t, model.KindStructural, results[2].Kind)
	assert.Contains(t, results[2].Error, "dest")

	assert.Equal(t, model.KindDuplicate, results[3].Kind)
	assert.Contains(t, results[3].Error, "[again.xml] invoice 1001 already exists")

	assert.Equal(t, processor.StatusIngested, results[4].Status)

	ingested, rejected := processor.Counts(results)
	assert.Equal(t, 2, ingested)
	assert.Equal(t, 3, rejected)
	assert.Equal(t, 2, st.Len())
}

func TestProcessDocuments_CommitsInInputOrder(t *testing.T) {
	p, st := newPipeline(processor.WithConcurrency(8))

	var docs []processor.Document
	var want []string
	for i := range 40 {
		number := fmt.Sprintf("%04d", 40-i)
		want = append(want, number)
		docs = append(docs, processor.Document{Name: number + ".xml", Content: nfetest.Sample(number).XML()})
	}

	_, err := p.ProcessDocuments(context.Background(), docs)
	require.NoError(t, err)

	var got []string
	for _, inv := range st.Invoices() {
		got = append(got, inv.Number)
	}
	assert.Equal(t, want, got)
	assert.NoError(t, st.Verify())
}

func TestProcessFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.xml")
	require.NoError(t, os.WriteFile(good, nfetest.Sample("5").XML(), 0o600))

	p, st := newPipeline()
	results, err := p.ProcessFiles(context.Background(), []string{good, filepath.Join(dir, "missing.xml")})
	require.NoError(t, err)

	assert.Equal(t, processor.StatusIngested, results[0].Status)
	assert.Equal(t, processor.StatusFailed, results[1].Status)
	assert.Equal(t, processor.KindIO, results[1].Kind)
	assert.Contains(t, results[1].Error, "failed to read file")
	assert.Equal(t, 1, st.Len())
}

func TestProcessDocuments_Canceled(t *testing.T) {
	p, st := newPipeline()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.ProcessDocuments(ctx, []processor.Document{{Name: "a.xml", Content: nfetest.Sample("1").XML()}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, st.Len())
}

func TestProcessDocuments_Empty(t *testing.T) {
	p, _ := newPipeline()
	results, err := p.ProcessDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected processor.Format
	}{
		{"declaration", []byte(`<?xml version="1.0"?><NFe/>`), processor.FormatXML},
		{"no declaration", []byte(`<NFe><infNFe/></NFe>`), processor.FormatXML},
		{"leading whitespace", []byte("\n  <nfeProc/>"), processor.FormatXML},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("<NFe/>")...), processor.FormatXML},
		{"pdf", []byte("%PDF-1.4\n"), processor.FormatUnknown},
		{"text", []byte("some random text"), processor.FormatUnknown},
		{"empty", []byte{}, processor.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, processor.DetectFormat(tt.data))
		})
	}
}

func TestFormatString(t *testing.T) {
	assert.Equal(t, "xml", processor.FormatXML.String())
	assert.Equal(t, "unknown", processor.FormatUnknown.String())
}

func TestIsNFe(t *testing.T) {
	assert.True(t, processor.IsNFe(nfetest.Sample("1").XML()))
	assert.False(t, processor.IsNFe([]byte(`<Invoice><InvoiceNo>1</InvoiceNo></Invoice>`)))
	assert.False(t, processor.IsNFe([]byte("http://www.portalfiscal.inf.br/nfe")))
}

func BenchmarkProcessDocuments(b *testing.B) {
	docs := make([]processor.Document, 16)
	for i := range docs {
		docs[i] = processor.Document{Name: fmt.Sprint(i), Content: nfetest.Sample(fmt.Sprint(i)).XML()}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p, _ := newPipeline()
		if _, err := p.ProcessDocuments(context.Background(), docs); err != nil {
			b.Fatal(err)
		}
	}
}
