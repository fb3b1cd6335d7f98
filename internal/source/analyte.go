package source

import (
	"strings"

	"github.com/rotisserie/eris"
)

// analyteCodes maps a run's analyte name to each provider's parameter code.
var analyteCodes = map[string]map[string]string{
	"TDS": {
		"BOR": "TDS",
		"WQP": "Total dissolved solids",
	},
	"Nitrate": {
		"BOR": "NO3",
		"WQP": "Nitrate",
	},
	"Arsenic": {
		"BOR": "As",
		"WQP": "Arsenic",
	},
	"Chloride": {
		"BOR": "Cl",
		"WQP": "Chloride",
	},
}

// AnalyteCode returns provider's code for analyte. Matching on the analyte
// name is case-insensitive.
func AnalyteCode(provider, analyte string) (string, error) {
	for name, codes := range analyteCodes {
		if !strings.EqualFold(name, strings.TrimSpace(analyte)) {
			continue
		}
		code, ok := codes[provider]
		if !ok {
			return "", eris.Errorf("source: %s has no code for analyte %q", provider, analyte)
		}
		return code, nil
	}
	return "", eris.Errorf("source: unknown analyte %q", analyte)
}

// Analytes lists the analyte names runs may select.
func Analytes() []string {
	return []string{"TDS", "Nitrate", "Arsenic", "Chloride"}
}
