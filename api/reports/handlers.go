package reports

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	filter := Filter{
		StartDate: q.Get("start_date"),
		EndDate:   q.Get("end_date"),
	}
	if raw := q.Get("channels"); raw != "" {
		for _, ch := range strings.Split(raw, ",") {
			if ch = strings.TrimSpace(ch); ch != "" {
				filter.Channels = append(filter.Channels, ch)
			}
		}
	}
	return filter
}

// GetReport serves GET /api/reports/{type}. The response carries the bucket
// rows plus overall totals for the same filter.
func GetReport(db *sql.DB) http.HandlerFunc {
	svc := NewService(db)
	return func(w http.ResponseWriter, r *http.Request) {
		reportType := mux.Vars(r)["type"]
		filter := filterFromQuery(r)

		buckets, err := svc.Aggregate(r.Context(), reportType, filter)
		if err != nil {
			if strings.Contains(err.Error(), "unknown report type") {
				writeJSON(w, http.StatusBadRequest, map[string]interface{}{
					"success": false,
					"error":   err.Error(),
				})
				return
			}
			log.Printf("[ERROR] %s report: %v", reportType, err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "report query failed",
			})
			return
		}
		summary, err := svc.Summarize(r.Context(), filter)
		if err != nil {
			log.Printf("[ERROR] report summary: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "report query failed",
			})
			return
		}

		if buckets == nil {
			buckets = []Bucket{}
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"report_name": reportType,
			"date_range": map[string]string{
				"start": filter.StartDate,
				"end":   filter.EndDate,
			},
			"data":    buckets,
			"summary": summary,
		})
	}
}

// GetSummary serves GET /api/reports/summary.
func GetSummary(db *sql.DB) http.HandlerFunc {
	svc := NewService(db)
	return func(w http.ResponseWriter, r *http.Request) {
		filter := filterFromQuery(r)
		summary, err := svc.Summarize(r.Context(), filter)
		if err != nil {
			log.Printf("[ERROR] summary report: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success": false,
				"error":   "report query failed",
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"report_name": "summary",
			"date_range": map[string]string{
				"start": filter.StartDate,
				"end":   filter.EndDate,
			},
			"summary": summary,
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
