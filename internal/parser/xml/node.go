package xml

import (
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	dec "github.com/rezonia/nfe-analyzer/internal/decimal"
)

// NamespaceNFe is the namespace URI of NFe 4.0 documents
const NamespaceNFe = "http://www.portalfiscal.inf.br/nfe"

// Namespaces maps path prefixes to namespace URIs
type Namespaces map[string]string

// NFe resolves the nfe: prefix used by the lookups in this package
var NFe = Namespaces{"nfe": NamespaceNFe}

var pathCache sync.Map // resolved path string -> etree.Path

// resolve rewrites prefixed steps (nfe:det) into tag filters on the
// namespace URI, so matching does not depend on the prefix the document uses.
func (ns Namespaces) resolve(path string) string {
	steps := strings.Split(path, "/")
	for i, step := range steps {
		prefix, local, ok := strings.Cut(step, ":")
		if !ok {
			continue
		}
		uri, known := ns[prefix]
		if !known {
			continue
		}
		steps[i] = local + "[namespace-uri()='" + uri + "']"
	}
	return strings.Join(steps, "/")
}

func (ns Namespaces) compile(path string) (etree.Path, bool) {
	resolved := ns.resolve(path)
	if p, ok := pathCache.Load(resolved); ok {
		return p.(etree.Path), true
	}
	p, err := etree.CompilePath(resolved)
	if err != nil {
		return etree.Path{}, false
	}
	pathCache.Store(resolved, p)
	return p, true
}

// Find returns the first element matching path under root, or nil
func Find(root *etree.Element, path string, ns Namespaces) *etree.Element {
	if root == nil {
		return nil
	}
	p, ok := ns.compile(path)
	if !ok {
		return nil
	}
	return root.FindElementPath(p)
}

// FindAll returns every element matching path under root, in document order
func FindAll(root *etree.Element, path string, ns Namespaces) []*etree.Element {
	if root == nil {
		return nil
	}
	p, ok := ns.compile(path)
	if !ok {
		return nil
	}
	return root.FindElementsPath(p)
}

// Text returns the trimmed text of the node at path, or def when the root,
// the node or its text is absent.
func Text(root *etree.Element, path string, ns Namespaces, def string) string {
	el := Find(root, path, ns)
	if el == nil {
		return def
	}
	text := strings.TrimSpace(el.Text())
	if text == "" {
		return def
	}
	return text
}

// Decimal returns the node at path parsed as a decimal. Absence and parse
// failures both yield zero.
func Decimal(root *etree.Element, path string, ns Namespaces) decimal.Decimal {
	return dec.ParseOrZero(Text(root, path, ns, ""))
}
