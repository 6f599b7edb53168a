package reports

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Bucket is one aggregated row: collections grouped by day, month, channel,
// project or currency. TotalTRY only sums rows actually paid in lira.
type Bucket struct {
	Key      string          `json:"key"`
	Count    int             `json:"count"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	TotalTRY decimal.Decimal `json:"total_try"`
}

// Summary describes the whole filtered set.
type Summary struct {
	Count    int             `json:"count"`
	TotalUSD decimal.Decimal `json:"total_usd"`
	TotalTRY decimal.Decimal `json:"total_try"`
}

// Filter bounds a report. Channels narrows on payment_method.
type Filter struct {
	StartDate string
	EndDate   string
	Channels  []string
}

// Service runs aggregate queries on the payments table.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// groupExprs whitelists the GROUP BY dimension per report type.
var groupExprs = map[string]string{
	"daily":    "COALESCE(payment_date::text, 'undated')",
	"monthly":  "year::text || '-' || lpad(month::text, 2, '0')",
	"yearly":   "year::text",
	"channel":  "COALESCE(NULLIF(payment_method, ''), 'Unknown')",
	"project":  "COALESCE(NULLIF(project_name, ''), 'Unknown')",
	"property": "COALESCE(NULLIF(property_name, ''), 'Unknown')",
	"customer": "customer_name",
	"currency": "paid_currency",
}

// Aggregate groups the filtered payments by the named dimension. "weekly" is
// a daily aggregate regrouped by ISO week in application code.
func (s *Service) Aggregate(ctx context.Context, reportType string, filter Filter) ([]Bucket, error) {
	if reportType == "weekly" {
		daily, err := s.Aggregate(ctx, "daily", filter)
		if err != nil {
			return nil, err
		}
		return RegroupWeekly(daily), nil
	}

	expr, ok := groupExprs[reportType]
	if !ok {
		return nil, fmt.Errorf("unknown report type %q", reportType)
	}

	query := `
		SELECT ` + expr + ` AS bucket,
			COUNT(*),
			COALESCE(SUM(amount_usd), 0),
			COALESCE(SUM(CASE WHEN paid_currency = 'TRY' THEN paid_amount ELSE 0 END), 0)
		FROM payments
		WHERE ($1 = '' OR payment_date >= $1::date)
		  AND ($2 = '' OR payment_date <= $2::date)
		  AND (cardinality($3::text[]) = 0 OR payment_method = ANY($3))
		GROUP BY bucket
		ORDER BY bucket`

	channels := filter.Channels
	if channels == nil {
		channels = []string{}
	}
	rows, err := s.db.QueryContext(ctx, query, filter.StartDate, filter.EndDate, pq.Array(channels))
	if err != nil {
		return nil, fmt.Errorf("%s report query: %w", reportType, err)
	}
	defer rows.Close()

	var out []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Key, &b.Count, &b.TotalUSD, &b.TotalTRY); err != nil {
			return nil, fmt.Errorf("scan %s bucket: %w", reportType, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Summarize totals the filtered payments.
func (s *Service) Summarize(ctx context.Context, filter Filter) (Summary, error) {
	query := `
		SELECT COUNT(*),
			COALESCE(SUM(amount_usd), 0),
			COALESCE(SUM(CASE WHEN paid_currency = 'TRY' THEN paid_amount ELSE 0 END), 0)
		FROM payments
		WHERE ($1 = '' OR payment_date >= $1::date)
		  AND ($2 = '' OR payment_date <= $2::date)
		  AND (cardinality($3::text[]) = 0 OR payment_method = ANY($3))`

	channels := filter.Channels
	if channels == nil {
		channels = []string{}
	}
	var sum Summary
	err := s.db.QueryRowContext(ctx, query, filter.StartDate, filter.EndDate, pq.Array(channels)).
		Scan(&sum.Count, &sum.TotalUSD, &sum.TotalTRY)
	if err != nil {
		return Summary{}, fmt.Errorf("summary query: %w", err)
	}
	return sum, nil
}

// RegroupWeekly folds daily buckets into ISO weeks keyed like "2024-W03".
// Undated buckets pass through under their own key.
func RegroupWeekly(daily []Bucket) []Bucket {
	weeks := map[string]*Bucket{}
	for _, day := range daily {
		key := day.Key
		if t, err := time.Parse("2006-01-02", day.Key); err == nil {
			year, week := t.ISOWeek()
			key = fmt.Sprintf("%d-W%02d", year, week)
		}
		b, ok := weeks[key]
		if !ok {
			b = &Bucket{Key: key}
			weeks[key] = b
		}
		b.Count += day.Count
		b.TotalUSD = b.TotalUSD.Add(day.TotalUSD)
		b.TotalTRY = b.TotalTRY.Add(day.TotalTRY)
	}

	out := make([]Bucket, 0, len(weeks))
	for _, b := range weeks {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
