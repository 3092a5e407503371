// Package nfelib provides a public API for extracting and aggregating
// Brazilian NFe invoices.
//
// Example usage:
//
//	a := nfelib.New(nfelib.DefaultOptions())
//	inv, err := a.Ingest(ctx, "nota.xml", f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(a.Summary().TotalAmount)
package nfelib

import (
	"github.com/rezonia/nfe-analyzer/internal/model"
	"github.com/rezonia/nfe-analyzer/internal/processor"
)

// Re-export core types for public API
type (
	Invoice      = model.Invoice
	LineItem     = model.LineItem
	Party        = model.Party
	TaxComponent = model.TaxComponent
	Summary      = model.Summary
)

// Re-export error types
type (
	MalformedDocumentError = model.MalformedDocumentError
	StructuralError        = model.StructuralError
	DuplicateInvoiceError  = model.DuplicateInvoiceError
)

// Re-export error kinds
const (
	KindMalformed  = model.KindMalformed
	KindStructural = model.KindStructural
	KindDuplicate  = model.KindDuplicate
)

// Batch types
type (
	Document = processor.Document
	Result   = processor.Result
	Status   = processor.Status
)

const (
	StatusIngested = processor.StatusIngested
	StatusRejected = processor.StatusRejected
	StatusFailed   = processor.StatusFailed
)

// ErrorKind classifies an error returned by Ingest
func ErrorKind(err error) string {
	return model.ErrorKind(err)
}
