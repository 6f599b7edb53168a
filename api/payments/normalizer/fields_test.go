package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapHeadersTurkishColumns(t *testing.T) {
	headers := []string{
		"Tarih",
		"Müşteri Adı Soyadı",
		"Proje Adı",
		"Ödenen Tutar(Σ:12,767,688.23)",
		"Ödenen Döviz",
		"Ödeme Şekli",
		"Açıklama",
		"Bilinmeyen Kolon",
	}
	mapping := MapHeaders(headers)

	assert.Equal(t, "payment_date", mapping[0])
	assert.Equal(t, "customer_name", mapping[1])
	assert.Equal(t, "project_name", mapping[2])
	assert.Equal(t, "paid_amount", mapping[3])
	assert.Equal(t, "paid_currency", mapping[4])
	assert.Equal(t, "payment_method", mapping[5])
	assert.Equal(t, "description", mapping[6])
	_, mapped := mapping[7]
	assert.False(t, mapped)
}

func TestMapHeadersFirstColumnWins(t *testing.T) {
	mapping := MapHeaders([]string{"Tarih", "Date"})
	assert.Equal(t, "payment_date", mapping[0])
	_, mapped := mapping[1]
	assert.False(t, mapped)
}

func TestMapHeadersCanonicalFieldNames(t *testing.T) {
	// Pre-normalized input (JSON exports) names columns by the canonical
	// fields themselves.
	headers := []string{
		"payment_date", "customer_name", "paid_amount", "paid_currency",
		"payment_method", "exchange_rate", "invoice_number", "check_due_date",
	}
	mapping := MapHeaders(headers)
	for idx, field := range headers {
		assert.Equal(t, field, mapping[idx], "header %q", field)
	}
}

func TestMapHeadersEnglishColumns(t *testing.T) {
	mapping := MapHeaders([]string{"Date", "Customer Name", "Amount", "Currency"})
	assert.Equal(t, "payment_date", mapping[0])
	assert.Equal(t, "customer_name", mapping[1])
	assert.Equal(t, "paid_amount", mapping[2])
	assert.Equal(t, "paid_currency", mapping[3])
}

func TestTranslatePaymentMethod(t *testing.T) {
	cases := map[string]string{
		"Nakit":       "Cash",
		"HAVALE":      "Bank Transfer",
		"eft":         "Bank Transfer",
		"Çek":         "Check",
		"Kredi Kartı": "Credit Card",
		"Wire":        "Wire",
		"":            "",
	}
	for raw, want := range cases {
		assert.Equal(t, want, TranslatePaymentMethod(raw), "value %q", raw)
	}
}

func TestNormalizeCurrency(t *testing.T) {
	cases := map[string]string{
		"TL":  "TRY",
		"try": "TRY",
		"₺":   "TRY",
		"":    "TRY",
		"usd": "USD",
		"$":   "USD",
		"€":   "EUR",
		"GBP": "GBP",
	}
	for raw, want := range cases {
		assert.Equal(t, want, NormalizeCurrency(raw), "value %q", raw)
	}
}
