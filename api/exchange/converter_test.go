package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"TahsilatRaporu/internal/config"
)

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f *fakeRates) USDTRYRate(ctx context.Context, date time.Time) (decimal.Decimal, error) {
	return f.rate, f.err
}

func testRatesConfig() config.RatesConfig {
	return config.RatesConfig{EURToUSD: 1.10, DefaultUSDTRY: 30.0}
}

func TestToUSDPassesThroughDollars(t *testing.T) {
	c := NewConverter(&fakeRates{}, testRatesConfig())
	usd, rate := c.ToUSD(context.Background(), decimal.NewFromInt(100), "USD", time.Now())
	assert.True(t, usd.Equal(decimal.NewFromInt(100)))
	assert.True(t, rate.IsZero())
}

func TestToUSDConvertsLira(t *testing.T) {
	c := NewConverter(&fakeRates{rate: decimal.NewFromFloat(32.5)}, testRatesConfig())
	usd, rate := c.ToUSD(context.Background(), decimal.NewFromInt(3250), "TRY", time.Now())
	assert.True(t, usd.Equal(decimal.NewFromInt(100)), "got %s", usd)
	assert.True(t, rate.Equal(decimal.NewFromFloat(32.5)))
}

func TestToUSDConvertsEuro(t *testing.T) {
	c := NewConverter(&fakeRates{}, testRatesConfig())
	usd, rate := c.ToUSD(context.Background(), decimal.NewFromInt(200), "EUR", time.Now())
	assert.True(t, usd.Equal(decimal.NewFromInt(220)), "got %s", usd)
	assert.True(t, rate.IsZero())
}

func TestToUSDFallsBackToDefaultRate(t *testing.T) {
	c := NewConverter(&fakeRates{err: errors.New("no bulletin")}, testRatesConfig())
	usd, rate := c.ToUSD(context.Background(), decimal.NewFromInt(300), "TRY", time.Now())
	assert.True(t, usd.Equal(decimal.NewFromInt(10)), "got %s", usd)
	assert.True(t, rate.Equal(decimal.NewFromFloat(30.0)))
}

func TestToUSDUnknownCurrencyConvertsAsLira(t *testing.T) {
	c := NewConverter(&fakeRates{rate: decimal.NewFromFloat(25.0)}, testRatesConfig())
	usd, rate := c.ToUSD(context.Background(), decimal.NewFromInt(50), "GBP", time.Now())
	assert.True(t, usd.Equal(decimal.NewFromInt(2)), "got %s", usd)
	assert.True(t, rate.Equal(decimal.NewFromFloat(25.0)))
}

func TestPreviousBusinessDaySkipsWeekend(t *testing.T) {
	// 2024-01-15 is a Monday; the previous business day is Friday the 12th.
	monday := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 12, 0, 0, 0, 0, time.UTC), previousBusinessDay(monday))

	wednesday := time.Date(2024, time.January, 17, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC), previousBusinessDay(wednesday))
}
