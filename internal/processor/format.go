package processor

import (
	"bytes"

	xmlparser "github.com/rezonia/nfe-analyzer/internal/parser/xml"
)

// Format represents a detected input format
type Format int

const (
	FormatUnknown Format = iota
	FormatXML
)

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	default:
		return "unknown"
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectFormat detects the content format from its leading bytes
func DetectFormat(data []byte) Format {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) > 0 && data[0] == '<' {
		return FormatXML
	}
	return FormatUnknown
}

// IsNFe reports whether content is XML in the NFe namespace
func IsNFe(data []byte) bool {
	return DetectFormat(data) == FormatXML && xmlparser.NewParser().CanParse(data)
}
