package xml

// UnknownCode describes any code outside the known tables
const UnknownCode = "unknown"

// tpImp: DANFE print format
var printTypes = map[string]string{
	"1": "Normal print",
	"2": "Simplified DANFE",
	"3": "DANFE NFC-e",
	"4": "DANFE NFC-e (mobile message)",
	"5": "DANFE NFC-e (email)",
}

// tpEmis: emission type
var emissionTypes = map[string]string{
	"1": "Normal",
	"2": "Contingency",
	"3": "SCAN contingency",
	"4": "DPEC contingency",
	"5": "FS-DA contingency",
	"6": "SVC-AN contingency",
	"7": "SVC-RS contingency",
	"8": "SVC-SP contingency",
	"9": "Offline contingency",
}

// PrintTypeDescription maps a tpImp code to its description
func PrintTypeDescription(code string) string {
	return describe(printTypes, code)
}

// EmissionTypeDescription maps a tpEmis code to its description
func EmissionTypeDescription(code string) string {
	return describe(emissionTypes, code)
}

func describe(table map[string]string, code string) string {
	if desc, ok := table[code]; ok {
		return desc
	}
	return UnknownCode
}
