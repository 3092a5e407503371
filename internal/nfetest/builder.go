// Package nfetest builds NFe documents for tests.
package nfetest

import (
	"fmt"
	"math/rand/v2"

	"github.com/beevik/etree"
)

const namespace = "http://www.portalfiscal.inf.br/nfe"

// Address is the enderDest block; a nil *Address omits it
type Address struct {
	Street, Number, District, City, State, ZIP string
}

// Item describes one det entry. Empty tax fields omit the group.
type Item struct {
	Code, Name, NCM            string
	Quantity, UnitPrice, Total string

	ICMSGroup                string // defaults to ICMS00 when a rate or amount is set
	ICMSRate, ICMSAmount     string
	PISRate, PISAmount       string
	COFINSRate, COFINSAmount string
}

// Invoice describes one NFe document
type Invoice struct {
	Number, Series, Date, Operation string
	PrintType, EmissionType         string

	CustomerName, CNPJ string
	Address            *Address

	Total, ICMS, PIS, COFINS, Discount, Freight string

	Items []Item
}

// XML renders the invoice wrapped in nfeProc
func (inv Invoice) XML() []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	proc := doc.CreateElement("nfeProc")
	proc.CreateAttr("xmlns", namespace)
	proc.CreateAttr("versao", "4.00")

	infNFe := proc.CreateElement("NFe").CreateElement("infNFe")
	infNFe.CreateAttr("versao", "4.00")

	ide := infNFe.CreateElement("ide")
	text(ide, "natOp", inv.Operation)
	text(ide, "serie", inv.Series)
	text(ide, "nNF", inv.Number)
	text(ide, "dhEmi", inv.Date)
	text(ide, "tpImp", inv.PrintType)
	text(ide, "tpEmis", inv.EmissionType)

	dest := infNFe.CreateElement("dest")
	text(dest, "CNPJ", inv.CNPJ)
	text(dest, "xNome", inv.CustomerName)
	if a := inv.Address; a != nil {
		ender := dest.CreateElement("enderDest")
		text(ender, "xLgr", a.Street)
		text(ender, "nro", a.Number)
		text(ender, "xBairro", a.District)
		text(ender, "xMun", a.City)
		text(ender, "UF", a.State)
		text(ender, "CEP", a.ZIP)
	}

	for i, item := range inv.Items {
		det := infNFe.CreateElement("det")
		det.CreateAttr("nItem", fmt.Sprint(i+1))
		writeItem(det, item)
	}

	tot := infNFe.CreateElement("total").CreateElement("ICMSTot")
	text(tot, "vICMS", inv.ICMS)
	text(tot, "vFrete", inv.Freight)
	text(tot, "vDesc", inv.Discount)
	text(tot, "vPIS", inv.PIS)
	text(tot, "vCOFINS", inv.COFINS)
	text(tot, "vNF", inv.Total)

	doc.Indent(2)
	b, err := doc.WriteToBytes()
	if err != nil {
		panic(err)
	}
	return b
}

func writeItem(det *etree.Element, item Item) {
	prod := det.CreateElement("prod")
	text(prod, "cProd", item.Code)
	text(prod, "xProd", item.Name)
	text(prod, "NCM", item.NCM)
	text(prod, "qCom", item.Quantity)
	text(prod, "vUnCom", item.UnitPrice)
	text(prod, "vProd", item.Total)

	imposto := det.CreateElement("imposto")
	if item.ICMSRate != "" || item.ICMSAmount != "" || item.ICMSGroup != "" {
		group := item.ICMSGroup
		if group == "" {
			group = "ICMS00"
		}
		g := imposto.CreateElement("ICMS").CreateElement(group)
		text(g, "pICMS", item.ICMSRate)
		text(g, "vICMS", item.ICMSAmount)
	}
	if item.PISRate != "" || item.PISAmount != "" {
		g := imposto.CreateElement("PIS").CreateElement("PISAliq")
		text(g, "pPIS", item.PISRate)
		text(g, "vPIS", item.PISAmount)
	}
	if item.COFINSRate != "" || item.COFINSAmount != "" {
		g := imposto.CreateElement("COFINS").CreateElement("COFINSAliq")
		text(g, "pCOFINS", item.COFINSRate)
		text(g, "vCOFINS", item.COFINSAmount)
	}
}

func text(parent *etree.Element, tag, value string) {
	if value == "" {
		return
	}
	parent.CreateElement(tag).SetText(value)
}

// Sample returns a small, fully populated invoice
func Sample(number string) Invoice {
	return Invoice{
		Number:       number,
		Series:       "1",
		Date:         "2024-03-15T10:30:00-03:00",
		Operation:    "Venda de mercadoria",
		PrintType:    "1",
		EmissionType: "1",
		CustomerName: "Comercial Santos ME",
		CNPJ:         "98765432000110",
		Address: &Address{
			Street: "Rua das Flores", Number: "100", District: "Centro",
			City: "Santos", State: "SP", ZIP: "11010000",
		},
		Total:  "1000.00",
		ICMS:   "180.00",
		PIS:    "16.50",
		COFINS: "76.00",
		Items: []Item{
			{Code: "P001", Name: "Parafuso", NCM: "73181500", Quantity: "10", UnitPrice: "25.50", Total: "255.00",
				ICMSRate: "18.00", ICMSAmount: "45.90", PISRate: "1.65", PISAmount: "4.21", COFINSRate: "7.60", COFINSAmount: "19.38"},
			{Code: "P002", Name: "Porca", NCM: "73181600", Quantity: "100", UnitPrice: "3.00", Total: "300.00",
				ICMSRate: "12.00", ICMSAmount: "36.00"},
		},
	}
}

var (
	customers = []string{"11111111000111", "22222222000122", "33333333000133", "44444444000144"}
	products  = []string{"A1", "B2", "C3", "D4", "E5", "F6"}
)

// Random generates an invoice with pseudo-random amounts from r
func Random(r *rand.Rand, number string) Invoice {
	money := func(limit int) string {
		cents := r.IntN(limit * 100)
		return fmt.Sprintf("%d.%02d", cents/100, cents%100)
	}

	inv := Invoice{
		Number:       number,
		Date:         fmt.Sprintf("2024-%02d-%02d", 1+r.IntN(12), 1+r.IntN(28)),
		PrintType:    fmt.Sprint(1 + r.IntN(6)),
		EmissionType: fmt.Sprint(1 + r.IntN(10)),
		CustomerName: "Cliente " + number,
		CNPJ:         customers[r.IntN(len(customers))],
		Total:        money(5000),
		ICMS:         money(500),
		PIS:          money(50),
		COFINS:       money(200),
		Discount:     money(20),
	}

	for range r.IntN(5) {
		item := Item{
			Code:      products[r.IntN(len(products))],
			Name:      "Produto",
			Quantity:  fmt.Sprint(1 + r.IntN(20)),
			UnitPrice: money(100),
			Total:     money(1000),
		}
		if r.IntN(2) == 0 {
			item.ICMSRate, item.ICMSAmount = "18.00", money(50)
		}
		if r.IntN(2) == 0 {
			item.PISRate, item.PISAmount = "1.65", money(5)
		}
		inv.Items = append(inv.Items, item)
	}
	return inv
}
