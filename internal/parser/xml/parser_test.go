package xml_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/nfe-analyzer/internal/model"
	xmlparser "github.com/rezonia/nfe-analyzer/internal/parser/xml"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestExtract_NFeProc(t *testing.T) {
	inv, items, err := parseFile(t, "nfe_proc.xml")
	require.NoError(t, err)
	require.NotNil(t, inv)

	assert.Equal(t, "1234", inv.Number)
	assert.Equal(t, "1", inv.Series)
	assert.Equal(t, "2024-03-15", inv.IssueDate)
	assert.Equal(t, "Venda de mercadoria", inv.Operation)
	assert.Equal(t, "Normal print", inv.PrintType)
	assert.Equal(t, "Normal", inv.EmissionType)

	assert.Equal(t, "Comercial Santos ME", inv.Customer.Name)
	assert.Equal(t, "98765432000110", inv.Customer.CNPJ)
	assert.Equal(t, "Rua das Flores, 100, Centro, Santos, SP, 11010000", inv.Customer.Address)

	assert.True(t, inv.TotalAmount.Equal(d("1000.00")))
	assert.True(t, inv.Freight.Equal(d("25.00")))
	assert.True(t, inv.Discount.Equal(d("10.00")))
	assert.True(t, inv.ICMS.Amount.Equal(d("180.00")))
	assert.True(t, inv.PIS.Amount.Equal(d("16.50")))
	assert.True(t, inv.COFINS.Amount.Equal(d("76.00")))

	// header rates follow the last item
	assert.Equal(t, "0", inv.ICMS.Rate)
	assert.Equal(t, "0.65", inv.PIS.Rate)
	assert.Equal(t, "3.00", inv.COFINS.Rate)

	require.Len(t, items, 3)
	assert.Equal(t, 3, inv.ItemCount)

	first := items[0]
	assert.Equal(t, "1234", first.InvoiceNumber)
	assert.Equal(t, "P001", first.Code)
	assert.Equal(t, "Parafuso sextavado", first.Name)
	assert.Equal(t, "73181500", first.NCM)
	assert.True(t, first.Quantity.Equal(d("10")))
	assert.True(t, first.UnitPrice.Equal(d("25.50")))
	assert.True(t, first.Total.Equal(d("255.00")))
	assert.Equal(t, "18.00", first.ICMS.Rate)
	assert.True(t, first.ICMS.Amount.Equal(d("45.90")))
	assert.Equal(t, "1.65", first.PIS.Rate)
	assert.True(t, first.PIS.Amount.Equal(d("4.21")))
	assert.Equal(t, "7.60", first.COFINS.Rate)
	assert.True(t, first.COFINS.Amount.Equal(d("19.38")))

	second := items[1]
	assert.Equal(t, "12.00", second.ICMS.Rate)
	assert.Equal(t, "0", second.PIS.Rate, "PISNT carries no rate")
	assert.True(t, second.PIS.Amount.IsZero())

	third := items[2]
	assert.Equal(t, "0", third.ICMS.Rate, "ICMS40 carries no pICMS")
	assert.True(t, third.ICMS.Amount.IsZero())
	assert.Equal(t, []string{"P001", "P002", "P003"}, []string{first.Code, second.Code, third.Code})
}

func TestExtract_PrefixedNamespace(t *testing.T) {
	inv, items, err := parseFile(t, "nfe_prefixed.xml")
	require.NoError(t, err)

	// no ide: header fields fall back to defaults
	assert.Equal(t, "", inv.Number)
	assert.Equal(t, "", inv.IssueDate)
	assert.Equal(t, xmlparser.UnknownCode, inv.PrintType)
	assert.Equal(t, xmlparser.UnknownCode, inv.EmissionType)

	assert.Equal(t, "Cliente Sem Endereco", inv.Customer.Name)
	assert.Equal(t, "", inv.Customer.Address)
	assert.True(t, inv.TotalAmount.Equal(d("40")))
	assert.True(t, inv.Freight.IsZero())

	require.Len(t, items, 1)
	assert.True(t, items[0].Quantity.IsZero(), "unparseable quantity becomes zero")
	assert.True(t, items[0].Total.Equal(d("40")))
	assert.Equal(t, model.NoRate, items[0].ICMS.Rate)
	assert.Equal(t, model.NoRate, items[0].PIS.Rate)
	assert.Equal(t, model.NoRate, items[0].COFINS.Rate)
}

func TestExtract_StructuralErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		node    string
	}{
		{
			name:    "missing NFe",
			content: `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><protNFe/></nfeProc>`,
			node:    "NFe",
		},
		{
			name:    "wrong namespace",
			content: `<NFe xmlns="urn:other"><infNFe><dest/><total><ICMSTot/></total></infNFe></NFe>`,
			node:    "NFe",
		},
		{
			name:    "missing infNFe",
			content: `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe"><NFe/></nfeProc>`,
			node:    "infNFe",
		},
		{
			name:    "missing dest",
			content: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe><total><ICMSTot/></total></infNFe></NFe>`,
			node:    "dest",
		},
		{
			name:    "missing totals",
			content: `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe><dest/><total/></infNFe></NFe>`,
			node:    "total/ICMSTot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := xmlparser.NewParser().ParseBytes(context.Background(), []byte(tt.content))
			require.Error(t, err)

			var structural *model.StructuralError
			require.True(t, errors.As(err, &structural), "got %T: %v", err, err)
			assert.Equal(t, tt.node, structural.Node)
		})
	}
}

func TestExtract_NoItems(t *testing.T) {
	content := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
		<ide><nNF>77</nNF></ide><dest><CNPJ>1</CNPJ></dest>
		<total><ICMSTot><vNF>0</vNF></ICMSTot></total></infNFe></NFe>`

	inv, items, err := xmlparser.NewParser().ParseBytes(context.Background(), []byte(content))
	require.NoError(t, err)

	assert.Empty(t, items)
	assert.Equal(t, 0, inv.ItemCount)
	assert.Equal(t, model.NoRate, inv.ICMS.Rate)
}

func TestExtract_DetWithoutProd(t *testing.T) {
	content := `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>
		<ide><nNF>78</nNF></ide><dest/>
		<det nItem="1"><imposto/></det>
		<total><ICMSTot/></total></infNFe></NFe>`

	inv, items, err := xmlparser.NewParser().ParseBytes(context.Background(), []byte(content))
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, 1, inv.ItemCount)
	assert.Equal(t, "78", items[0].InvoiceNumber)
	assert.Equal(t, "", items[0].Code)
}

func TestParseDocument_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"plain text", "not xml"},
		{"empty", ""},
		{"unclosed", `<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe>`},
		{"mismatched", `<a><b></a></b>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := xmlparser.ParseDocument([]byte(tt.content))
			require.Error(t, err)

			var malformed *model.MalformedDocumentError
			assert.True(t, errors.As(err, &malformed), "got %T: %v", err, err)
		})
	}
}

func TestParser_Parse_Reader(t *testing.T) {
	content := readTestFile(t, "testdata/nfe_proc.xml")

	inv, items, err := xmlparser.NewParser().Parse(context.Background(), bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "1234", inv.Number)
	assert.Len(t, items, 3)
}

func TestParser_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := xmlparser.NewParser().ParseBytes(ctx, readTestFile(t, "testdata/nfe_proc.xml"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_CanParse(t *testing.T) {
	p := xmlparser.NewParser()
	assert.True(t, p.CanParse(readTestFile(t, "testdata/nfe_proc.xml")))
	assert.False(t, p.CanParse([]byte(`<Invoice><TaxID>1</TaxID></Invoice>`)))
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-15T10:30:00-03:00", "2024-03-15"},
		{"2024-03-15", "2024-03-15"},
		{"2024-3-5", "2024-03-05"},
		{"N/A", "N/A"},
		{"15/03/2024", "15/03/2024"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, xmlparser.NormalizeDate(tt.in))
		})
	}
}

func TestCodeTables(t *testing.T) {
	assert.Equal(t, "Simplified DANFE", xmlparser.PrintTypeDescription("2"))
	assert.Equal(t, "DANFE NFC-e (email)", xmlparser.PrintTypeDescription("5"))
	assert.Equal(t, xmlparser.UnknownCode, xmlparser.PrintTypeDescription("6"))
	assert.Equal(t, xmlparser.UnknownCode, xmlparser.PrintTypeDescription(""))

	assert.Equal(t, "Normal", xmlparser.EmissionTypeDescription("1"))
	assert.Equal(t, "Offline contingency", xmlparser.EmissionTypeDescription("9"))
	assert.Equal(t, xmlparser.UnknownCode, xmlparser.EmissionTypeDescription("0"))
}

func BenchmarkExtract(b *testing.B) {
	content, err := os.ReadFile(filepath.Join("testdata", "nfe_proc.xml"))
	if err != nil {
		b.Fatal(err)
	}
	p := xmlparser.NewParser()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := p.ParseBytes(ctx, content); err != nil {
			b.Fatal(err)
		}
	}
}

func parseFile(t *testing.T, name string) (*model.Invoice, []model.LineItem, error) {
	t.Helper()
	return xmlparser.NewParser().ParseBytes(context.Background(), readTestFile(t, filepath.Join("testdata", name)))
}

func readTestFile(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	return data
}
