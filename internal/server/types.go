package server

import (
	"github.com/rezonia/nfe-analyzer/internal/model"
)

// IngestResponse is returned for an accepted document
type IngestResponse struct {
	Source  string         `json:"source"`
	Number  string         `json:"invoice_number"`
	Items   int            `json:"items"`
	Invoice *model.Invoice `json:"invoice"`
}

// InvoiceListResponse lists invoices in ingestion order
type InvoiceListResponse struct {
	Invoices []model.Invoice `json:"invoices"`
	Count    int             `json:"count"`
}

// InvoiceResponse is one invoice with its line items
type InvoiceResponse struct {
	Invoice model.Invoice    `json:"invoice"`
	Items   []model.LineItem `json:"items"`
}

// ItemListResponse lists line items
type ItemListResponse struct {
	Items []model.LineItem `json:"items"`
	Count int              `json:"count"`
}

// SummaryResponse is the running summary with the unique counts
type SummaryResponse struct {
	model.Summary
	CustomerCount int `json:"customer_count"`
	ProductCount  int `json:"product_count"`
}

// ExportResponse describes an uploaded workbook
type ExportResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
