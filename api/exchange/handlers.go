package exchange

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"TahsilatRaporu/internal/config"
)

// GetExchangeRate serves the USD/TRY rate for a date (default today) with
// business-day fallback, reporting the configured default when the table has
// no usable entry.
func GetExchangeRate(pool *pgxpool.Pool, cfg config.RatesConfig) http.HandlerFunc {
	store := NewPgRateStore(pool)
	return func(w http.ResponseWriter, r *http.Request) {
		day := time.Now()
		source := "stored"
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"success": false,
					"error":   "date must be YYYY-MM-DD",
				})
				return
			}
			day = parsed
		}

		rate, err := store.USDTRYRate(r.Context(), day)
		if err != nil {
			if !errors.Is(err, ErrRateNotFound) {
				log.Printf("[ERROR] exchange rate lookup: %v", err)
			}
			rate = decimal.NewFromFloat(cfg.DefaultUSDTRY)
			source = "default"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":       true,
			"currency_pair": "USD/TRY",
			"date":          day.Format("2006-01-02"),
			"rate":          rate,
			"source":        source,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
