package normalizer

import "strings"

// headerAliases maps each canonical payment field to the column headings seen
// in the source sheets. Matching is case-insensitive and tolerates aggregate
// annotations appended by the export tool, e.g. "Ödenen Tutar(Σ:12,767,688.23)".
var headerAliases = map[string][]string{
	"payment_date":   {"tarih", "ödeme tarihi", "odeme tarihi", "date", "payment date"},
	"payment_time":   {"saat", "ödeme saati", "time"},
	"customer_name":  {"müşteri adı soyadı", "müşteri adı", "müşteri", "musteri adi soyadi", "musteri", "customer name", "customer"},
	"project_name":   {"proje adı", "proje", "project name", "project"},
	"account_name":   {"hesap adı", "hesap", "account name", "account"},
	"agency_name":    {"acenta adı", "acenta", "agency name", "agency"},
	"property_name":  {"mülk adı", "mulk adi", "daire", "unit", "property name", "property"},
	"paid_amount":    {"ödenen tutar", "odenen tutar", "tutar", "paid amount", "amount"},
	"paid_currency":  {"ödenen döviz", "odenen doviz", "döviz", "doviz", "para birimi", "currency", "paid currency"},
	"exchange_rate":  {"kur", "döviz kuru", "doviz kuru", "exchange rate", "rate"},
	"amount_due":     {"kalan tutar", "borç", "borc", "amount due", "balance"},
	"payment_method": {"ödeme şekli", "odeme sekli", "tahsilat şekli", "tahsilat sekli", "ödeme tipi", "payment method", "method"},
	"description":    {"açıklama", "aciklama", "description", "not"},
	"status":         {"durum", "status"},
	"invoice_number": {"fatura no", "fatura numarası", "invoice number", "invoice"},
	"check_due_date": {"çek vadesi", "cek vadesi", "vade", "check due date"},
}

// methodTranslations maps Turkish payment-channel labels onto the canonical
// English channel names used by reports.
var methodTranslations = map[string]string{
	"nakit":          "Cash",
	"havale":         "Bank Transfer",
	"eft":            "Bank Transfer",
	"havale/eft":     "Bank Transfer",
	"banka":          "Bank Transfer",
	"çek":            "Check",
	"cek":            "Check",
	"kredi kartı":    "Credit Card",
	"kredi karti":    "Credit Card",
	"kart":           "Credit Card",
	"senet":          "Promissory Note",
	"mahsuben":       "Offset",
	"virman":         "Transfer",
	"banka havalesi": "Bank Transfer",
}

// MapHeaders resolves each column heading to a canonical field name and
// returns column index -> field. Unrecognized headings are skipped; the first
// column claiming a field wins.
func MapHeaders(headers []string) map[int]string {
	claimed := make(map[string]bool, len(headerAliases))
	mapping := make(map[int]string, len(headers))
	for idx, header := range headers {
		field := resolveHeader(header)
		if field == "" || claimed[field] {
			continue
		}
		claimed[field] = true
		mapping[idx] = field
	}
	return mapping
}

func resolveHeader(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return ""
	}
	// Drop aggregate annotations like "(σ:12,767,688.23)".
	if i := strings.IndexAny(h, "(["); i > 0 {
		h = strings.TrimSpace(h[:i])
	}
	// Pre-normalized input names columns by the canonical fields directly.
	if _, ok := headerAliases[h]; ok {
		return h
	}
	for field, aliases := range headerAliases {
		for _, alias := range aliases {
			if h == alias {
				return field
			}
		}
	}
	// Prefix fallback for headings that carry trailing decorations without
	// brackets.
	for field, aliases := range headerAliases {
		for _, alias := range aliases {
			if len(alias) >= 4 && strings.HasPrefix(h, alias) {
				return field
			}
		}
	}
	return ""
}

// TranslatePaymentMethod maps a Turkish channel label to its canonical
// English name, passing through values it does not recognize.
func TranslatePaymentMethod(method string) string {
	m := strings.ToLower(strings.TrimSpace(method))
	if m == "" {
		return ""
	}
	if translated, ok := methodTranslations[m]; ok {
		return translated
	}
	return strings.TrimSpace(method)
}

// NormalizeCurrency canonicalizes currency labels to ISO codes. Empty values
// default to TRY since the sheets are Turkish collections; unknown codes pass
// through uppercased and are handled at conversion time.
func NormalizeCurrency(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	switch c {
	case "TL", "TRY", "₺", "TURK LIRASI", "TÜRK LIRASI":
		return "TRY"
	case "USD", "$", "DOLAR", "USD$":
		return "USD"
	case "EUR", "€", "EURO":
		return "EUR"
	case "":
		return "TRY"
	default:
		return c
	}
}
