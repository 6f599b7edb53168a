package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TahsilatRaporu/api/payments/normalizer"
	"TahsilatRaporu/internal/logger"
)

// BuildRecord assembles a canonical Payment from one source row. The column
// mapping comes from normalizer.MapHeaders. Bad cells degrade to defaults and
// are reported as issues; only an entirely empty row returns ok=false.
func BuildRecord(rowNum int, cells []interface{}, mapping map[int]string, now time.Time) (Payment, []RowIssue, bool) {
	fields := make(map[string]interface{}, len(mapping))
	empty := true
	for idx, field := range mapping {
		if idx >= len(cells) {
			continue
		}
		val := cells[idx]
		if s, isStr := val.(string); isStr {
			val = strings.TrimSpace(s)
		}
		if val != nil && val != "" {
			empty = false
		}
		fields[field] = val
	}
	if empty {
		return Payment{}, nil, false
	}

	// A sheet without any date column cannot produce valid records; every
	// data row is rejected with a reason rather than guessed at.
	if _, ok := fields["payment_date"]; !ok && !mappingHasField(mapping, "payment_date") {
		return Payment{}, []RowIssue{{
			Row:     rowNum,
			Field:   "payment_date",
			Message: "missing required date column",
		}}, false
	}

	var issues []RowIssue
	p := Payment{
		PaymentTime:   stringField(fields, "payment_time"),
		CustomerName:  stringField(fields, "customer_name"),
		ProjectName:   stringField(fields, "project_name"),
		AccountName:   stringField(fields, "account_name"),
		AgencyName:    stringField(fields, "agency_name"),
		PropertyName:  stringField(fields, "property_name"),
		Description:   stringField(fields, "description"),
		Status:        stringField(fields, "status"),
		InvoiceNumber: stringField(fields, "invoice_number"),
		PaymentMethod: normalizer.TranslatePaymentMethod(stringField(fields, "payment_method")),
		PaidCurrency:  normalizer.NormalizeCurrency(stringField(fields, "paid_currency")),
	}
	p.IsDeposit = strings.Contains(strings.ToLower(p.Description), "kapora") ||
		strings.Contains(strings.ToLower(p.Description), "deposit")

	if raw, ok := fields["payment_date"]; ok {
		date, err := normalizer.NormalizeDate(raw)
		switch err.(type) {
		case nil:
			p.PaymentDate = date.Format("2006-01-02")
			p.Year, p.Month = date.Year(), int(date.Month())
		case *normalizer.EmptyDateError:
			// Dateless rows keep a partition key from the import clock.
			p.Year, p.Month = now.Year(), int(now.Month())
		default:
			logger.DataQuality("row %d: %v", rowNum, err)
			issues = append(issues, RowIssue{Row: rowNum, Field: "payment_date", Message: err.Error()})
			p.Year, p.Month = now.Year(), int(now.Month())
		}
	} else {
		p.Year, p.Month = now.Year(), int(now.Month())
	}

	if raw, ok := fields["check_due_date"]; ok {
		if due, err := normalizer.NormalizeDate(raw); err == nil {
			p.CheckDueDate = due.Format("2006-01-02")
		}
	}

	if raw, ok := fields["paid_amount"]; ok {
		amount, parsed := NormalizeAmountField(raw)
		if !parsed && raw != nil && raw != "" {
			logger.DataQuality("row %d: unparseable amount %v, recorded as 0", rowNum, raw)
			issues = append(issues, RowIssue{Row: rowNum, Field: "paid_amount",
				Message: fmt.Sprintf("unparseable amount %v, recorded as 0", raw)})
		}
		p.PaidAmount = amount
	}
	if raw, ok := fields["amount_due"]; ok {
		p.AmountDue, _ = NormalizeAmountField(raw)
	}
	if raw, ok := fields["exchange_rate"]; ok {
		p.ExchangeRate, _ = NormalizeAmountField(raw)
	}

	return p, issues, true
}

// NormalizeAmountField is a thin alias kept so callers outside the package
// can reuse the locale-aware parsing.
func NormalizeAmountField(raw interface{}) (decimal.Decimal, bool) {
	return normalizer.NormalizeAmount(raw)
}

func mappingHasField(mapping map[int]string, field string) bool {
	for _, f := range mapping {
		if f == field {
			return true
		}
	}
	return false
}

func stringField(fields map[string]interface{}, key string) string {
	raw, ok := fields[key]
	if !ok || raw == nil {
		return ""
	}
	if s, isStr := raw.(string); isStr {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", raw))
}
