package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		payment_date DATE,
		payment_time TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		project_name TEXT NOT NULL DEFAULT '',
		account_name TEXT NOT NULL DEFAULT '',
		agency_name TEXT NOT NULL DEFAULT '',
		property_id TEXT NOT NULL DEFAULT '',
		property_name TEXT NOT NULL DEFAULT '',
		property_units TEXT NOT NULL DEFAULT '',
		payment_method TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT '',
		invoice_number TEXT NOT NULL DEFAULT '',
		paid_amount NUMERIC(18,2) NOT NULL DEFAULT 0,
		paid_currency TEXT NOT NULL DEFAULT 'TRY',
		amount_due NUMERIC(18,2) NOT NULL DEFAULT 0,
		check_due_date DATE,
		exchange_rate NUMERIC(18,6) NOT NULL DEFAULT 0,
		amount_usd NUMERIC(18,2) NOT NULL DEFAULT 0,
		year INT NOT NULL,
		month INT NOT NULL,
		is_deposit BOOLEAN NOT NULL DEFAULT FALSE,
		is_duplicate_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_date ON payments (payment_date)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_customer ON payments (lower(customer_name))`,
	`CREATE INDEX IF NOT EXISTS idx_payments_year_month ON payments (year, month)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_method ON payments (payment_method)`,
	`CREATE TABLE IF NOT EXISTS exchange_rates (
		id BIGSERIAL PRIMARY KEY,
		rate_date DATE NOT NULL,
		currency_pair TEXT NOT NULL,
		rate NUMERIC(18,6) NOT NULL,
		fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (rate_date, currency_pair)
	)`,
}

// EnsureSchema creates the tables and indexes on startup. Statements are
// idempotent so restarts are safe.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Health reports process and database liveness.
func Health(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		httpStatus := http.StatusOK
		if err := pool.Ping(ctx); err != nil {
			log.Printf("[ERROR] health ping: %v", err)
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}
		writeJSON(w, httpStatus, map[string]interface{}{
			"status": status,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Info reports row counts and database size for the admin page.
func Info(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			paymentCount int64
			rateCount    int64
			dbSize       string
		)
		err := pool.QueryRow(r.Context(), "SELECT count(*) FROM payments").Scan(&paymentCount)
		if err == nil {
			err = pool.QueryRow(r.Context(), "SELECT count(*) FROM exchange_rates").Scan(&rateCount)
		}
		if err == nil {
			err = pool.QueryRow(r.Context(),
				"SELECT pg_size_pretty(pg_database_size(current_database()))").Scan(&dbSize)
		}
		if err != nil {
			log.Printf("[ERROR] database info: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "info query failed",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":        true,
			"payments":       paymentCount,
			"exchange_rates": rateCount,
			"size":           dbSize,
		})
	}
}

// Backup streams every payment row as a JSON download.
func Backup(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := pool.Query(r.Context(), `
			SELECT row_to_json(p) FROM (
				SELECT * FROM payments ORDER BY id
			) p`)
		if err != nil {
			log.Printf("[ERROR] backup query: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "backup failed",
			})
			return
		}
		defer rows.Close()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=tahsilat_backup_%s.json", time.Now().Format("20060102_150405")))

		w.Write([]byte("[\n"))
		first := true
		for rows.Next() {
			var doc json.RawMessage
			if err := rows.Scan(&doc); err != nil {
				log.Printf("[ERROR] backup scan: %v", err)
				break
			}
			if !first {
				w.Write([]byte(",\n"))
			}
			first = false
			w.Write(doc)
		}
		w.Write([]byte("\n]\n"))
	}
}

// Reset wipes the payment data. The caller must send {"confirm": "DELETE"}
// so a stray request cannot empty the database.
func Reset(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Confirm string `json:"confirm"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Confirm != "DELETE" {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"success": false,
				"error":   `reset requires {"confirm": "DELETE"}`,
			})
			return
		}
		if _, err := pool.Exec(r.Context(), "TRUNCATE payments RESTART IDENTITY"); err != nil {
			log.Printf("[ERROR] database reset: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "reset failed",
			})
			return
		}
		log.Println("payments table truncated by admin reset")
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}
