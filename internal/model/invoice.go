package model

import "github.com/shopspring/decimal"

// Party is the customer (dest) of an invoice
type Party struct {
	Name    string `json:"name"`
	CNPJ    string `json:"cnpj"`
	Address string `json:"address"`
}

// TaxComponent pairs a rate, kept as the document's text, with an amount.
// Rate is "0" when the tax group is absent.
type TaxComponent struct {
	Rate   string          `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// Invoice is the header record of one NFe document. Immutable once stored.
type Invoice struct {
	Number       string `json:"number"`
	Series       string `json:"series"`
	IssueDate    string `json:"issue_date"`
	Operation    string `json:"operation"`
	PrintType    string `json:"print_type"`
	EmissionType string `json:"emission_type"`

	Customer Party `json:"customer"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	Freight     decimal.Decimal `json:"freight"`
	Discount    decimal.Decimal `json:"discount"`

	// Amounts come from the document totals, rates from the last line item.
	ICMS   TaxComponent `json:"icms"`
	PIS    TaxComponent `json:"pis"`
	COFINS TaxComponent `json:"cofins"`

	ItemCount int `json:"item_count"`
}

// LineItem is one det entry of an invoice, in document order
type LineItem struct {
	InvoiceNumber string `json:"invoice_number"`

	Code string `json:"code"`
	Name string `json:"name"`
	NCM  string `json:"ncm"`

	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`

	ICMS   TaxComponent `json:"icms"`
	PIS    TaxComponent `json:"pis"`
	COFINS TaxComponent `json:"cofins"`
}

// NoRate is the rate text used when a tax group is missing
const NoRate = "0"

// ApplyItemRates copies the rates of the last item onto the invoice header.
// Without items the header rates are NoRate.
func (inv *Invoice) ApplyItemRates(items []LineItem) {
	inv.ICMS.Rate, inv.PIS.Rate, inv.COFINS.Rate = NoRate, NoRate, NoRate
	if len(items) == 0 {
		return
	}
	last := items[len(items)-1]
	inv.ICMS.Rate = last.ICMS.Rate
	inv.PIS.Rate = last.PIS.Rate
	inv.COFINS.Rate = last.COFINS.Rate
}
