// Package report projects the dataset into fixed-order tables and renders
// them as XLSX, CSV or aligned text.
package report

import (
	"strconv"

	"github.com/shopspring/decimal"

	dec "github.com/rezonia/nfe-analyzer/internal/decimal"
	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Cell is one table value. Numeric cells keep their decimal.
type Cell struct {
	Text    string
	Number  decimal.Decimal
	Numeric bool
}

func (c Cell) String() string {
	if c.Numeric {
		return c.Number.String()
	}
	return c.Text
}

func text(s string) Cell {
	return Cell{Text: s}
}

func number(d decimal.Decimal) Cell {
	return Cell{Number: d, Numeric: true}
}

// Column describes one projected column over rows of type T
type Column[T any] struct {
	Header string
	Value  func(T) Cell
}

// Table is a rendered projection
type Table struct {
	Name    string
	Headers []string
	Rows    [][]Cell
}

func project[T any](name string, columns []Column[T], rows []T) Table {
	t := Table{Name: name, Headers: make([]string, len(columns))}
	for i, c := range columns {
		t.Headers[i] = c.Header
	}
	for _, row := range rows {
		cells := make([]Cell, len(columns))
		for i, c := range columns {
			cells[i] = c.Value(row)
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

// Source is the read side of a dataset
type Source interface {
	Invoices() []model.Invoice
	Items() []model.LineItem
}

// ItemRow joins a line item with its invoice
type ItemRow struct {
	Invoice *model.Invoice
	Item    *model.LineItem
}

var invoiceHead = []Column[ItemRow]{
	{"Invoice Number", func(r ItemRow) Cell { return text(r.Invoice.Number) }},
	{"Issue Date", func(r ItemRow) Cell { return text(r.Invoice.IssueDate) }},
}

var detailHead = []Column[ItemRow]{
	{"Series", func(r ItemRow) Cell { return text(r.Invoice.Series) }},
	{"Operation", func(r ItemRow) Cell { return text(r.Invoice.Operation) }},
	{"Print Type", func(r ItemRow) Cell { return text(r.Invoice.PrintType) }},
	{"Emission Type", func(r ItemRow) Cell { return text(r.Invoice.EmissionType) }},
}

var itemBody = []Column[ItemRow]{
	{"Customer Name", func(r ItemRow) Cell { return text(r.Invoice.Customer.Name) }},
	{"Customer CNPJ", func(r ItemRow) Cell { return text(r.Invoice.Customer.CNPJ) }},
	{"Customer Address", func(r ItemRow) Cell { return text(r.Invoice.Customer.Address) }},
	{"Product Code", func(r ItemRow) Cell { return text(r.Item.Code) }},
	{"Product Name", func(r ItemRow) Cell { return text(r.Item.Name) }},
	{"NCM", func(r ItemRow) Cell { return text(r.Item.NCM) }},
	{"Quantity", func(r ItemRow) Cell { return number(r.Item.Quantity) }},
	{"Unit Price", func(r ItemRow) Cell { return number(r.Item.UnitPrice) }},
	{"Line Total", func(r ItemRow) Cell { return number(r.Item.Total) }},
	{"ICMS Rate", func(r ItemRow) Cell { return text(r.Item.ICMS.Rate) }},
	{"ICMS Amount", func(r ItemRow) Cell { return number(r.Item.ICMS.Amount) }},
	{"PIS Rate", func(r ItemRow) Cell { return text(r.Item.PIS.Rate) }},
	{"PIS Amount", func(r ItemRow) Cell { return number(r.Item.PIS.Amount) }},
	{"COFINS Rate", func(r ItemRow) Cell { return text(r.Item.COFINS.Rate) }},
	{"COFINS Amount", func(r ItemRow) Cell { return number(r.Item.COFINS.Amount) }},
}

// LineItemColumns is the 17-column line item export
var LineItemColumns = concat(invoiceHead, itemBody)

// DetailColumns is the 21-column line item view with the header codes
var DetailColumns = concat(invoiceHead, detailHead, itemBody)

// InvoiceColumns is the 14-column invoice export
var InvoiceColumns = []Column[*model.Invoice]{
	{"Invoice Number", func(i *model.Invoice) Cell { return text(i.Number) }},
	{"Issue Date", func(i *model.Invoice) Cell { return text(i.IssueDate) }},
	{"Customer Name", func(i *model.Invoice) Cell { return text(i.Customer.Name) }},
	{"Customer CNPJ", func(i *model.Invoice) Cell { return text(i.Customer.CNPJ) }},
	{"Customer Address", func(i *model.Invoice) Cell { return text(i.Customer.Address) }},
	{"Total Amount", func(i *model.Invoice) Cell { return number(i.TotalAmount) }},
	{"Freight", func(i *model.Invoice) Cell { return number(i.Freight) }},
	{"Discount", func(i *model.Invoice) Cell { return number(i.Discount) }},
	{"ICMS Rate", func(i *model.Invoice) Cell { return text(i.ICMS.Rate) }},
	{"ICMS Amount", func(i *model.Invoice) Cell { return number(i.ICMS.Amount) }},
	{"PIS Rate", func(i *model.Invoice) Cell { return text(i.PIS.Rate) }},
	{"PIS Amount", func(i *model.Invoice) Cell { return number(i.PIS.Amount) }},
	{"COFINS Rate", func(i *model.Invoice) Cell { return text(i.COFINS.Rate) }},
	{"COFINS Amount", func(i *model.Invoice) Cell { return number(i.COFINS.Amount) }},
}

func concat[T any](groups ...[]Column[T]) []Column[T] {
	var out []Column[T]
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func itemRows(src Source) []ItemRow {
	invoices := src.Invoices()
	byNumber := make(map[string]*model.Invoice, len(invoices))
	for i := range invoices {
		byNumber[invoices[i].Number] = &invoices[i]
	}

	items := src.Items()
	rows := make([]ItemRow, 0, len(items))
	for i := range items {
		inv, ok := byNumber[items[i].InvoiceNumber]
		if !ok {
			continue
		}
		rows = append(rows, ItemRow{Invoice: inv, Item: &items[i]})
	}
	return rows
}

// Sheet names used by the workbook export
const (
	LineItemSheet = "Line Items"
	InvoiceSheet  = "Invoices"
)

// LineItems projects every line item with its invoice header fields
func LineItems(src Source) Table {
	return project(LineItemSheet, LineItemColumns, itemRows(src))
}

// Details projects line items with series, operation and code descriptions
func Details(src Source) Table {
	return project("Details", DetailColumns, itemRows(src))
}

// Invoices projects one row per invoice
func Invoices(src Source) Table {
	invoices := src.Invoices()
	rows := make([]*model.Invoice, len(invoices))
	for i := range invoices {
		rows[i] = &invoices[i]
	}
	return project(InvoiceSheet, InvoiceColumns, rows)
}

// Summary renders the statistics as label/value pairs
func Summary(s model.Summary) Table {
	price := func(n decimal.NullDecimal) string {
		if !n.Valid {
			return "-"
		}
		return dec.FormatBRL(n.Decimal)
	}
	pairs := [][2]string{
		{"Invoices", strconv.Itoa(s.InvoiceCount)},
		{"Line items", strconv.Itoa(s.ItemCount)},
		{"Customers", strconv.Itoa(s.CustomerCount())},
		{"Products", strconv.Itoa(s.ProductCount())},
		{"Total amount", dec.FormatBRL(s.TotalAmount)},
		{"Total discount", dec.FormatBRL(s.TotalDiscount)},
		{"ICMS", dec.FormatBRL(s.TotalICMS)},
		{"PIS", dec.FormatBRL(s.TotalPIS)},
		{"COFINS", dec.FormatBRL(s.TotalCOFINS)},
		{"Total tax", dec.FormatBRL(s.TotalTax)},
		{"Tax percentage", s.TaxPercentage.StringFixed(2) + "%"},
		{"Average unit price", dec.FormatBRL(s.AverageUnitPrice)},
		{"Max unit price", price(s.MaxUnitPrice)},
		{"Min unit price", price(s.MinUnitPrice)},
	}

	t := Table{Name: "Summary", Headers: []string{"Metric", "Value"}}
	for _, p := range pairs {
		t.Rows = append(t.Rows, []Cell{text(p[0]), text(p[1])})
	}
	return t
}
