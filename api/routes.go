package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"TahsilatRaporu/api/database"
	"TahsilatRaporu/api/exchange"
	"TahsilatRaporu/api/payments"
	"TahsilatRaporu/api/reports"
	"TahsilatRaporu/internal/config"
	"TahsilatRaporu/internal/session"
)

// NewRouter wires every endpoint. The pgx pool carries the write path;
// reports run on the database/sql handle.
func NewRouter(pool *pgxpool.Pool, reportDB *sql.DB, cfg *config.AppConfig, sessions *session.Manager) http.Handler {
	store := payments.NewPgStore(pool)
	rateStore := exchange.NewPgRateStore(pool)
	converter := exchange.NewConverter(rateStore, cfg.Rates)
	detector := payments.NewDetector(store, cfg.Duplicates)
	importer := payments.NewImporter(store)

	r := mux.NewRouter()
	r.Use(CORSMiddleware)

	r.HandleFunc("/api/health", database.Health(pool)).Methods("GET")

	r.HandleFunc("/api/import", payments.ImportDirect(detector, converter, importer)).Methods("POST")
	r.HandleFunc("/api/import/check", payments.ImportCheck(detector, converter, sessions)).Methods("POST")
	r.HandleFunc("/api/import/confirm", payments.ImportConfirm(importer, sessions)).Methods("POST")

	r.HandleFunc("/api/payments", payments.ListPayments(store)).Methods("GET")
	r.HandleFunc("/api/payments", payments.CreatePayment(store, converter)).Methods("POST")
	r.HandleFunc("/api/payments/{id:[0-9]+}", payments.GetPayment(store)).Methods("GET")
	r.HandleFunc("/api/payments/{id:[0-9]+}", payments.UpdatePayment(store, converter)).Methods("PUT")
	r.HandleFunc("/api/payments/{id:[0-9]+}", payments.DeletePayment(store)).Methods("DELETE")

	r.HandleFunc("/api/exchange-rate", exchange.GetExchangeRate(pool, cfg.Rates)).Methods("GET")

	r.HandleFunc("/api/reports/summary", reports.GetSummary(reportDB)).Methods("GET")
	r.HandleFunc("/api/reports/{type}", reports.GetReport(reportDB)).Methods("GET")

	r.HandleFunc("/api/database/info", database.Info(pool)).Methods("GET")
	r.HandleFunc("/api/database/backup", database.Backup(pool)).Methods("POST")
	r.HandleFunc("/api/database/reset", database.Reset(pool)).Methods("POST")

	return r
}
