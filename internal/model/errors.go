package model

import (
	"errors"
	"fmt"
)

// MalformedDocumentError reports input that is not well-formed XML
type MalformedDocumentError struct {
	Source string
	Cause  error
}

func (e *MalformedDocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] malformed document (%v)", sourceName(e.Source), e.Cause)
	}
	return fmt.Sprintf("[%s] malformed document", sourceName(e.Source))
}

func (e *MalformedDocumentError) Unwrap() error {
	return e.Cause
}

// NewMalformedDocumentError creates a new malformed document error
func NewMalformedDocumentError(source string, cause error) *MalformedDocumentError {
	return &MalformedDocumentError{
		Source: source,
		Cause:  cause,
	}
}

// StructuralError reports a well-formed document missing a required node
type StructuralError struct {
	Source string
	Node   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("[%s] %s: required node not found", sourceName(e.Source), e.Node)
}

// NewStructuralError creates a new structural error
func NewStructuralError(source, node string) *StructuralError {
	return &StructuralError{
		Source: source,
		Node:   node,
	}
}

// DuplicateInvoiceError reports an invoice number that is already stored
type DuplicateInvoiceError struct {
	Source string
	Number string
}

func (e *DuplicateInvoiceError) Error() string {
	return fmt.Sprintf("[%s] invoice %s already exists", sourceName(e.Source), e.Number)
}

// NewDuplicateInvoiceError creates a new duplicate invoice error
func NewDuplicateInvoiceError(source, number string) *DuplicateInvoiceError {
	return &DuplicateInvoiceError{
		Source: source,
		Number: number,
	}
}

// WithSource stamps the source identity onto ingestion errors that lack one
func WithSource(err error, source string) error {
	var malformed *MalformedDocumentError
	if errors.As(err, &malformed) && malformed.Source == "" {
		malformed.Source = source
	}
	var structural *StructuralError
	if errors.As(err, &structural) && structural.Source == "" {
		structural.Source = source
	}
	var dup *DuplicateInvoiceError
	if errors.As(err, &dup) && dup.Source == "" {
		dup.Source = source
	}
	return err
}

// Error kinds used in batch reports and metric labels
const (
	KindMalformed  = "malformed"
	KindStructural = "structural"
	KindDuplicate  = "duplicate"
	KindUnknown    = "unknown"
)

// ErrorKind classifies an ingestion error
func ErrorKind(err error) string {
	var malformed *MalformedDocumentError
	var structural *StructuralError
	var dup *DuplicateInvoiceError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &malformed):
		return KindMalformed
	case errors.As(err, &structural):
		return KindStructural
	case errors.As(err, &dup):
		return KindDuplicate
	default:
		return KindUnknown
	}
}

func sourceName(s string) string {
	if s == "" {
		return "input"
	}
	return s
}
