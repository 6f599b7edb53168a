package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is the canonical collection record. PaymentDate is YYYY-MM-DD and
// empty when the source row had no usable date; Year and Month always carry a
// partition key so reports never lose rows.
type Payment struct {
	ID                   int64           `json:"id,omitempty"`
	PaymentDate          string          `json:"payment_date"`
	PaymentTime          string          `json:"payment_time,omitempty"`
	CustomerName         string          `json:"customer_name"`
	ProjectName          string          `json:"project_name,omitempty"`
	AccountName          string          `json:"account_name,omitempty"`
	AgencyName           string          `json:"agency_name,omitempty"`
	PropertyID           string          `json:"property_id,omitempty"`
	PropertyName         string          `json:"property_name,omitempty"`
	PropertyUnits        string          `json:"property_units,omitempty"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Description          string          `json:"description,omitempty"`
	Status               string          `json:"status,omitempty"`
	InvoiceNumber        string          `json:"invoice_number,omitempty"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	PaidCurrency         string          `json:"paid_currency"`
	AmountDue            decimal.Decimal `json:"amount_due"`
	CheckDueDate         string          `json:"check_due_date,omitempty"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	AmountUSD            decimal.Decimal `json:"amount_usd"`
	Year                 int             `json:"year"`
	Month                int             `json:"month"`
	IsDeposit            bool            `json:"is_deposit"`
	IsDuplicateConfirmed bool            `json:"is_duplicate_confirmed"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            time.Time       `json:"created_at,omitempty"`
	UpdatedAt            time.Time       `json:"updated_at,omitempty"`
}

// Date returns the payment date as a time.Time, or the zero value when the
// record has no date.
func (p *Payment) Date() (time.Time, bool) {
	if p.PaymentDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", p.PaymentDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// RowIssue records a data-quality problem on a single source row. The import
// keeps going; issues surface in the response for the operator.
type RowIssue struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// DuplicateMatch pairs an incoming record with an existing payment it
// resembles, with the reasons the detector flagged it.
type DuplicateMatch struct {
	Incoming Payment  `json:"incoming"`
	Existing Payment  `json:"existing"`
	Reasons  []string `json:"reasons"`
}

// ImportResult summarizes a committed import.
type ImportResult struct {
	Inserted int        `json:"inserted"`
	Skipped  int        `json:"skipped"`
	Failed   int        `json:"failed"`
	Issues   []RowIssue `json:"issues,omitempty"`
}

// ListFilter narrows payment queries. Zero values mean "no constraint";
// Channels filters on payment_method.
type ListFilter struct {
	StartDate    string
	EndDate      string
	CustomerName string
	ProjectName  string
	PropertyName string
	Channels     []string
	Currency     string
	Limit        int
	Offset       int
}
