package build

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

var suffixMap = map[string]string{
	"INC":  "Inc.",
	"CORP": "Corp.",
	"CO":   "Co.",
	"LLC":  "LLC",
	"LTD":  "Ltd.",
}

// PrettifyCompanyName converts an all-caps filer name such as
// "ADVANCE AUTO PARTS INC" into "Advance Auto Parts, Inc.". Names that
// are not fully uppercase pass through untouched.
func PrettifyCompanyName(name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return name
	}
	if strings.ToUpper(n) != n {
		return n
	}

	parts := strings.Fields(n)
	if len(parts) == 0 {
		return n
	}

	suffix := parts[len(parts)-1]
	if pretty, ok := suffixMap[suffix]; ok {
		base := titleCaser.String(strings.ToLower(strings.Join(parts[:len(parts)-1], " ")))
		if base == "" {
			return pretty
		}
		return base + ", " + pretty
	}

	return titleCaser.String(strings.ToLower(n))
}
