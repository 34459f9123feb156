package domain

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	kilogramsPerTon = 1000
	recordIDDigits  = 12
)

var thousand = decimal.NewFromInt(kilogramsPerTon)

// FormatWeight renders a weight given in kilograms. Values of a ton or more
// are shown in tons. At most three decimals are kept and the integer part is
// grouped in thousands, e.g. 1234567 -> "1,234.567 tons".
func FormatWeight(kg float64) string {
	if !finite(kg) {
		return strconv.FormatFloat(kg, 'f', -1, 64) + " kg"
	}
	d := decimal.NewFromFloat(kg)
	unit := "kg"
	if d.GreaterThanOrEqual(thousand) {
		d = d.Div(thousand)
		unit = "tons"
	}
	return groupThousands(d.RoundBank(3).String()) + " " + unit
}

// FormatRecordID shortens a record id for display: the last twelve
// characters, uppercased.
func FormatRecordID(recordID string) string {
	s := []rune(strings.ToUpper(recordID))
	if len(s) > recordIDDigits {
		s = s[len(s)-recordIDDigits:]
	}
	return string(s)
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte(',')
		b.WriteString(intPart[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}
