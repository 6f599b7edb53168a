package exchange

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TahsilatRaporu/internal/config"
)

// RateSource resolves a USD/TRY rate for a given date.
type RateSource interface {
	USDTRYRate(ctx context.Context, date time.Time) (decimal.Decimal, error)
}

// Converter turns payment amounts into USD. TRY converts through the dated
// USD/TRY rate; EUR uses the configured EUR→USD rate; USD passes through.
type Converter struct {
	rates    RateSource
	eurToUSD decimal.Decimal
	fallback decimal.Decimal
}

func NewConverter(rates RateSource, cfg config.RatesConfig) *Converter {
	eur := decimal.NewFromFloat(cfg.EURToUSD)
	if eur.IsZero() {
		eur = decimal.NewFromFloat(1.08)
	}
	fallback := decimal.NewFromFloat(cfg.DefaultUSDTRY)
	if fallback.IsZero() {
		fallback = decimal.NewFromFloat(config.DefaultUSDTRYRate)
	}
	return &Converter{rates: rates, eurToUSD: eur, fallback: fallback}
}

// ToUSD converts amount in the given currency on the given date. The returned
// rate is the USD/TRY rate applied (zero for non-lira currencies). Codes the
// converter does not know are treated as lira, since the sheets are Turkish
// collections, and logged so the operator can clean the source.
func (c *Converter) ToUSD(ctx context.Context, amount decimal.Decimal, currency string, date time.Time) (decimal.Decimal, decimal.Decimal) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	switch code {
	case "USD":
		return amount, decimal.Zero
	case "EUR":
		return amount.Mul(c.eurToUSD).Round(2), decimal.Zero
	case "TRY", "TL", "":
	default:
		log.Printf("unknown currency %q, converting as TRY", currency)
	}
	rate := c.usdTRY(ctx, date)
	if rate.IsZero() {
		return decimal.Zero, decimal.Zero
	}
	return amount.DivRound(rate, 2), rate
}

func (c *Converter) usdTRY(ctx context.Context, date time.Time) decimal.Decimal {
	if c.rates == nil {
		return c.fallback
	}
	rate, err := c.rates.USDTRYRate(ctx, date)
	if err != nil || rate.IsZero() {
		return c.fallback
	}
	return rate
}
