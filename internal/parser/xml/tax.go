package xml

import (
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/rezonia/nfe-analyzer/internal/model"
)

// ICMSGroup is one of the ICMS situation groups an item may carry
type ICMSGroup int

const (
	ICMSNone ICMSGroup = iota
	ICMS00
	ICMS10
	ICMS20
	ICMS30
	ICMS40
	ICMS50
	ICMS60
	ICMS70
	ICMS90
)

// icmsPriority is the probe order; the first group present wins
var icmsPriority = []ICMSGroup{ICMS00, ICMS10, ICMS20, ICMS30, ICMS40, ICMS50, ICMS60, ICMS70, ICMS90}

var icmsTags = map[ICMSGroup]string{
	ICMS00: "ICMS00",
	ICMS10: "ICMS10",
	ICMS20: "ICMS20",
	ICMS30: "ICMS30",
	ICMS40: "ICMS40",
	ICMS50: "ICMS50",
	ICMS60: "ICMS60",
	ICMS70: "ICMS70",
	ICMS90: "ICMS90",
}

func (g ICMSGroup) String() string {
	if tag, ok := icmsTags[g]; ok {
		return tag
	}
	return "none"
}

// TaxResult is the resolved rate and amount of one tax on one item
type TaxResult struct {
	Group  string
	Found  bool
	Rate   string
	Amount decimal.Decimal
}

// Component converts the result into the stored representation
func (r TaxResult) Component() model.TaxComponent {
	return model.TaxComponent{Rate: r.Rate, Amount: r.Amount}
}

func notFound() TaxResult {
	return TaxResult{Rate: model.NoRate, Amount: decimal.Zero}
}

// ICMSGroupOf returns the winning ICMS group of an item and its element
func ICMSGroupOf(item *etree.Element) (ICMSGroup, *etree.Element) {
	icms := Find(item, ".//nfe:ICMS", NFe)
	if icms == nil {
		return ICMSNone, nil
	}
	for _, g := range icmsPriority {
		if el := Find(icms, "nfe:"+g.String(), NFe); el != nil {
			return g, el
		}
	}
	return ICMSNone, nil
}

// ResolveICMS reads pICMS/vICMS from the highest priority ICMS group
func ResolveICMS(item *etree.Element) TaxResult {
	g, el := ICMSGroupOf(item)
	if el == nil {
		return notFound()
	}
	return TaxResult{
		Group:  g.String(),
		Found:  true,
		Rate:   Text(el, "nfe:pICMS", NFe, model.NoRate),
		Amount: Decimal(el, "nfe:vICMS", NFe),
	}
}

// ResolvePIS reads pPIS/vPIS from the PISAliq group
func ResolvePIS(item *etree.Element) TaxResult {
	return resolveAliq(item, "PIS", "PISAliq", "pPIS", "vPIS")
}

// ResolveCOFINS reads pCOFINS/vCOFINS from the COFINSAliq group
func ResolveCOFINS(item *etree.Element) TaxResult {
	return resolveAliq(item, "COFINS", "COFINSAliq", "pCOFINS", "vCOFINS")
}

func resolveAliq(item *etree.Element, tax, group, rateTag, amountTag string) TaxResult {
	el := Find(Find(item, ".//nfe:"+tax, NFe), "nfe:"+group, NFe)
	if el == nil {
		return notFound()
	}
	return TaxResult{
		Group:  group,
		Found:  true,
		Rate:   Text(el, "nfe:"+rateTag, NFe, model.NoRate),
		Amount: Decimal(el, "nfe:"+amountTag, NFe),
	}
}
