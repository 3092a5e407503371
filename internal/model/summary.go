package model

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	dec "github.com/rezonia/nfe-analyzer/internal/decimal"
)

// Summary holds running statistics over every stored invoice and line item.
// It is a cache: folding all stored records with Add must reproduce it.
type Summary struct {
	InvoiceCount int `json:"invoice_count"`
	ItemCount    int `json:"item_count"`

	TotalAmount   decimal.Decimal `json:"total_amount"`
	TotalICMS     decimal.Decimal `json:"total_icms"`
	TotalPIS      decimal.Decimal `json:"total_pis"`
	TotalCOFINS   decimal.Decimal `json:"total_cofins"`
	TotalTax      decimal.Decimal `json:"total_tax"`
	TotalDiscount decimal.Decimal `json:"total_discount"`

	AverageUnitPrice decimal.Decimal `json:"average_unit_price"`
	// Only strictly positive unit prices participate. Invalid until one is seen.
	MaxUnitPrice decimal.NullDecimal `json:"max_unit_price"`
	MinUnitPrice decimal.NullDecimal `json:"min_unit_price"`

	TaxPercentage decimal.Decimal `json:"tax_percentage"`

	customers map[string]struct{}
	products  map[string]struct{}
}

// Add folds one invoice and its line items into the summary. It cannot fail.
func (s *Summary) Add(inv *Invoice, items []LineItem) {
	if s.customers == nil {
		s.customers = make(map[string]struct{})
	}
	if s.products == nil {
		s.products = make(map[string]struct{})
	}

	s.InvoiceCount++
	s.ItemCount += len(items)

	s.TotalAmount = s.TotalAmount.Add(inv.TotalAmount)
	s.TotalICMS = s.TotalICMS.Add(inv.ICMS.Amount)
	s.TotalPIS = s.TotalPIS.Add(inv.PIS.Amount)
	s.TotalCOFINS = s.TotalCOFINS.Add(inv.COFINS.Amount)
	s.TotalDiscount = s.TotalDiscount.Add(inv.Discount)
	s.TotalTax = dec.Sum([]decimal.Decimal{s.TotalICMS, s.TotalPIS, s.TotalCOFINS})

	if inv.Customer.CNPJ != "" {
		s.customers[inv.Customer.CNPJ] = struct{}{}
	}

	for _, item := range items {
		if item.Code != "" {
			s.products[item.Code] = struct{}{}
		}

		price := item.UnitPrice
		if !dec.IsPositive(price) {
			continue
		}
		if !s.MaxUnitPrice.Valid || price.GreaterThan(s.MaxUnitPrice.Decimal) {
			s.MaxUnitPrice = decimal.NewNullDecimal(price)
		}
		if !s.MinUnitPrice.Valid || price.LessThan(s.MinUnitPrice.Decimal) {
			s.MinUnitPrice = decimal.NewNullDecimal(price)
		}
	}

	s.AverageUnitPrice = dec.Div(s.TotalAmount, dec.FromInt(int64(s.ItemCount)))
	s.TaxPercentage = dec.Percentage(s.TotalTax, s.TotalAmount)
}

// CustomerCount is the number of distinct customer CNPJs
func (s *Summary) CustomerCount() int {
	return len(s.customers)
}

// ProductCount is the number of distinct product codes
func (s *Summary) ProductCount() int {
	return len(s.products)
}

// Customers returns the distinct customer CNPJs, sorted
func (s *Summary) Customers() []string {
	return slices.Sorted(maps.Keys(s.customers))
}

// Products returns the distinct product codes, sorted
func (s *Summary) Products() []string {
	return slices.Sorted(maps.Keys(s.products))
}

// Clone returns a copy that shares no state with s
func (s *Summary) Clone() Summary {
	c := *s
	c.customers = maps.Clone(s.customers)
	c.products = maps.Clone(s.products)
	return c
}

// Equal compares two summaries numerically
func (s *Summary) Equal(o *Summary) bool {
	if s.InvoiceCount != o.InvoiceCount || s.ItemCount != o.ItemCount {
		return false
	}

	pairs := [][2]decimal.Decimal{
		{s.TotalAmount, o.TotalAmount},
		{s.TotalICMS, o.TotalICMS},
		{s.TotalPIS, o.TotalPIS},
		{s.TotalCOFINS, o.TotalCOFINS},
		{s.TotalTax, o.TotalTax},
		{s.TotalDiscount, o.TotalDiscount},
		{s.AverageUnitPrice, o.AverageUnitPrice},
		{s.TaxPercentage, o.TaxPercentage},
	}
	for _, p := range pairs {
		if !p[0].Equal(p[1]) {
			return false
		}
	}

	if !nullEqual(s.MaxUnitPrice, o.MaxUnitPrice) || !nullEqual(s.MinUnitPrice, o.MinUnitPrice) {
		return false
	}

	return setEqual(s.customers, o.customers) && setEqual(s.products, o.products)
}

// Recompute folds the given records from scratch. Items are matched to
// their invoice by number; items of unknown invoices are ignored.
func Recompute(invoices []Invoice, items []LineItem) Summary {
	byInvoice := make(map[string][]LineItem, len(invoices))
	for _, item := range items {
		byInvoice[item.InvoiceNumber] = append(byInvoice[item.InvoiceNumber], item)
	}

	var s Summary
	for i := range invoices {
		s.Add(&invoices[i], byInvoice[invoices[i].Number])
	}
	return s
}

func nullEqual(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func setEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
