package xml

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/beevik/etree"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Parser turns raw NFe XML into invoice records
type Parser struct{}

// NewParser creates a new NFe parser
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads a whole document and extracts it
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.Invoice, []model.LineItem, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return p.ParseBytes(ctx, content)
}

// ParseBytes parses and extracts an in-memory document
func (p *Parser) ParseBytes(ctx context.Context, content []byte) (*model.Invoice, []model.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	doc, err := ParseDocument(content)
	if err != nil {
		return nil, nil, err
	}
	return Extract(doc)
}

// CanParse returns true if content looks like an NFe document
func (p *Parser) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte(NamespaceNFe))
}

var errNoRoot = errors.New("no root element")

// ParseDocument parses content into an XML tree. Input that is not
// well-formed, or has no root element, yields a MalformedDocumentError.
func ParseDocument(content []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, model.NewMalformedDocumentError("", err)
	}
	if doc.Root() == nil {
		return nil, model.NewMalformedDocumentError("", errNoRoot)
	}
	return doc, nil
}
