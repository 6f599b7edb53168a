package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeAmount parses a monetary cell that may use Turkish formatting
// (1.234,56), US formatting (1,234.56) or plain numbers, possibly wrapped in
// currency symbols or whitespace. Unparseable values come back as zero with
// ok=false so a single bad cell never aborts an import.
func NormalizeAmount(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, false
	case float64:
		return decimal.NewFromFloat(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case decimal.Decimal:
		return v, true
	case string:
		return normalizeAmountString(v)
	default:
		return decimal.Zero, false
	}
}

func normalizeAmountString(s string) (decimal.Decimal, bool) {
	cleaned := stripAmountNoise(s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}

	hasDot := strings.Contains(cleaned, ".")
	hasComma := strings.Contains(cleaned, ",")
	switch {
	case hasDot && hasComma:
		// Turkish grouping: 1.234,56 drops the dots and keeps the comma as
		// the decimal mark.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case hasComma:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// stripAmountNoise keeps digits, separators and a leading minus sign,
// dropping currency symbols, codes and spaces.
func stripAmountNoise(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
