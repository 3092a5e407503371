package xml

import (
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// Extract builds the invoice and its line items from a parsed NFe document.
// NFe, infNFe, dest and total/ICMSTot are required; any other missing node
// falls back to an empty or zero value.
func Extract(doc *etree.Document) (*model.Invoice, []model.LineItem, error) {
	nfe := Find(&doc.Element, ".//nfe:NFe", NFe)
	if nfe == nil {
		return nil, nil, model.NewStructuralError("", "NFe")
	}
	infNFe := Find(nfe, ".//nfe:infNFe", NFe)
	if infNFe == nil {
		return nil, nil, model.NewStructuralError("", "infNFe")
	}
	dest := Find(infNFe, "nfe:dest", NFe)
	if dest == nil {
		return nil, nil, model.NewStructuralError("", "dest")
	}
	totals := Find(infNFe, ".//nfe:total/nfe:ICMSTot", NFe)
	if totals == nil {
		return nil, nil, model.NewStructuralError("", "total/ICMSTot")
	}

	ide := Find(infNFe, "nfe:ide", NFe)
	inv := &model.Invoice{
		Number:       Text(ide, "nfe:nNF", NFe, ""),
		Series:       Text(ide, "nfe:serie", NFe, ""),
		IssueDate:    NormalizeDate(Text(ide, "nfe:dhEmi", NFe, "")),
		Operation:    Text(ide, "nfe:natOp", NFe, ""),
		PrintType:    PrintTypeDescription(Text(ide, "nfe:tpImp", NFe, "")),
		EmissionType: EmissionTypeDescription(Text(ide, "nfe:tpEmis", NFe, "")),
		Customer: model.Party{
			Name:    Text(dest, "nfe:xNome", NFe, ""),
			CNPJ:    Text(dest, "nfe:CNPJ", NFe, ""),
			Address: customerAddress(Find(dest, "nfe:enderDest", NFe)),
		},
		TotalAmount: Decimal(totals, "nfe:vNF", NFe),
		Freight:     Decimal(totals, "nfe:vFrete", NFe),
		Discount:    Decimal(totals, "nfe:vDesc", NFe),
		ICMS:        model.TaxComponent{Amount: Decimal(totals, "nfe:vICMS", NFe)},
		PIS:         model.TaxComponent{Amount: Decimal(totals, "nfe:vPIS", NFe)},
		COFINS:      model.TaxComponent{Amount: Decimal(totals, "nfe:vCOFINS", NFe)},
	}

	dets := FindAll(infNFe, ".//nfe:det", NFe)
	items := make([]model.LineItem, 0, len(dets))
	for _, det := range dets {
		items = append(items, convertItem(inv.Number, det))
	}

	inv.ItemCount = len(items)
	inv.ApplyItemRates(items)

	return inv, items, nil
}

func convertItem(number string, det *etree.Element) model.LineItem {
	prod := Find(det, "nfe:prod", NFe)
	return model.LineItem{
		InvoiceNumber: number,
		Code:          Text(prod, "nfe:cProd", NFe, ""),
		Name:          Text(prod, "nfe:xProd", NFe, ""),
		NCM:           Text(prod, "nfe:NCM", NFe, ""),
		Quantity:      Decimal(prod, "nfe:qCom", NFe),
		UnitPrice:     Decimal(prod, "nfe:vUnCom", NFe),
		Total:         Decimal(prod, "nfe:vProd", NFe),
		ICMS:          ResolveICMS(det).Component(),
		PIS:           ResolvePIS(det).Component(),
		COFINS:        ResolveCOFINS(det).Component(),
	}
}

var addressParts = []string{"nfe:xLgr", "nfe:nro", "nfe:xBairro", "nfe:xMun", "nfe:UF", "nfe:CEP"}

func customerAddress(ender *etree.Element) string {
	if ender == nil {
		return ""
	}
	parts := make([]string, 0, len(addressParts))
	for _, path := range addressParts {
		if v := Text(ender, path, NFe, ""); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
}

// NormalizeDate reduces an NFe timestamp to YYYY-MM-DD. Text that does not
// start with a calendar date is returned unchanged.
func NormalizeDate(s string) string {
	if s == "" {
		return ""
	}
	datePart, _, _ := strings.Cut(s, "T")
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, datePart); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
