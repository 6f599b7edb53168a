package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"TahsilatRaporu/internal/config"
)

// ErrRateNotFound means no stored rate covered the requested date or any of
// the fallback business days before it.
var ErrRateNotFound = errors.New("exchange rate not found")

// PgRateStore persists daily USD/TRY rates.
type PgRateStore struct {
	pool *pgxpool.Pool
}

func NewPgRateStore(pool *pgxpool.Pool) *PgRateStore {
	return &PgRateStore{pool: pool}
}

// USDTRYRate returns the rate for date, walking back over weekends and
// holidays to the most recent stored business day. The walk is capped so a
// sparse table cannot send queries arbitrarily far into the past.
func (s *PgRateStore) USDTRYRate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	day := date
	for attempt := 0; attempt < config.RateFallbackMaxAttempts; attempt++ {
		var rate decimal.Decimal
		err := s.pool.QueryRow(ctx,
			"SELECT rate FROM exchange_rates WHERE currency_pair = 'USD/TRY' AND rate_date = $1",
			day.Format("2006-01-02")).Scan(&rate)
		if err == nil {
			return rate, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("query rate for %s: %w", day.Format("2006-01-02"), err)
		}
		day = previousBusinessDay(day)
	}
	return decimal.Zero, ErrRateNotFound
}

// SaveRate upserts a daily rate.
func (s *PgRateStore) SaveRate(ctx context.Context, date time.Time, rate decimal.Decimal) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO exchange_rates (rate_date, currency_pair, rate)
		VALUES ($1, 'USD/TRY', $2)
		ON CONFLICT (rate_date, currency_pair) DO UPDATE SET rate = EXCLUDED.rate, fetched_at = now()`,
		date.Format("2006-01-02"), rate)
	if err != nil {
		return fmt.Errorf("save rate for %s: %w", date.Format("2006-01-02"), err)
	}
	return nil
}

// LatestRate returns the newest stored rate and its date.
func (s *PgRateStore) LatestRate(ctx context.Context) (decimal.Decimal, time.Time, error) {
	var (
		rate decimal.Decimal
		day  time.Time
	)
	err := s.pool.QueryRow(ctx,
		"SELECT rate, rate_date FROM exchange_rates WHERE currency_pair = 'USD/TRY' ORDER BY rate_date DESC LIMIT 1").
		Scan(&rate, &day)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, time.Time{}, ErrRateNotFound
		}
		return decimal.Zero, time.Time{}, fmt.Errorf("query latest rate: %w", err)
	}
	return rate, day, nil
}

func previousBusinessDay(day time.Time) time.Time {
	day = day.AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return day
}
