package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"TahsilatRaporu/internal/config"
)

// NearMatchFinder returns stored payments that could collide with the
// incoming record: same customer and currency, payment date within the day
// window and amount within the tolerance band.
type NearMatchFinder interface {
	FindNearMatches(ctx context.Context, p Payment, windowDays int, tolerance float64) ([]Payment, error)
}

// Detector flags probable duplicates between incoming records and what the
// store already holds.
type Detector struct {
	finder    NearMatchFinder
	window    int
	tolerance float64
}

func NewDetector(finder NearMatchFinder, cfg config.DuplicatesConfig) *Detector {
	window := cfg.WindowDays
	if window <= 0 {
		window = config.DefaultDuplicateWindowDays
	}
	tolerance := cfg.AmountTolerance
	if tolerance <= 0 {
		tolerance = config.DefaultAmountTolerance
	}
	return &Detector{finder: finder, window: window, tolerance: tolerance}
}

// Check runs duplicate detection over a batch of incoming records. Records
// without a payment date, without a customer name or with a zero amount are
// never flagged: there is nothing reliable to match them on.
func (d *Detector) Check(ctx context.Context, records []Payment) ([]DuplicateMatch, error) {
	var matches []DuplicateMatch
	for _, record := range records {
		if record.PaymentDate == "" || strings.TrimSpace(record.CustomerName) == "" || record.PaidAmount.IsZero() {
			continue
		}
		candidates, err := d.finder.FindNearMatches(ctx, record, d.window, d.tolerance)
		if err != nil {
			return nil, fmt.Errorf("find near matches for %s: %w", record.CustomerName, err)
		}
		for _, existing := range candidates {
			reasons := d.matchReasons(record, existing)
			if reasons == nil {
				continue
			}
			matches = append(matches, DuplicateMatch{Incoming: record, Existing: existing, Reasons: reasons})
		}
	}
	return matches, nil
}

// matchReasons validates a candidate against the incoming record and labels
// why it matched. A nil result clears the candidate.
func (d *Detector) matchReasons(incoming, existing Payment) []string {
	if !strings.EqualFold(strings.TrimSpace(incoming.CustomerName), strings.TrimSpace(existing.CustomerName)) {
		return nil
	}
	if !strings.EqualFold(incoming.PaidCurrency, existing.PaidCurrency) {
		return nil
	}

	reasons := []string{"same customer"}

	inDate, inOK := incoming.Date()
	exDate, exOK := existing.Date()
	switch {
	case inOK && exOK:
		diff := inDate.Sub(exDate)
		if diff < 0 {
			diff = -diff
		}
		days := int(diff.Hours() / 24)
		if days > d.window {
			return nil
		}
		if days == 0 {
			reasons = append(reasons, "same date")
		} else {
			reasons = append(reasons, fmt.Sprintf("date within %d days", days))
		}
	case inOK != exOK:
		return nil
	}

	amountDiff := incoming.PaidAmount.Sub(existing.PaidAmount).Abs()
	band := incoming.PaidAmount.Abs().Mul(decimal.NewFromFloat(d.tolerance))
	switch {
	case amountDiff.LessThan(decimal.NewFromFloat(config.ExactAmountEpsilon)):
		reasons = append(reasons, "same amount")
	case amountDiff.LessThanOrEqual(band):
		reasons = append(reasons, fmt.Sprintf("amount within %.0f%% tolerance", d.tolerance*100))
	default:
		return nil
	}

	if incoming.ProjectName != "" && strings.EqualFold(incoming.ProjectName, existing.ProjectName) {
		reasons = append(reasons, "same project")
	}
	return reasons
}
