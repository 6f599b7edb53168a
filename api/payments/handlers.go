package payments

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"TahsilatRaporu/api/exchange"
	"TahsilatRaporu/internal/config"
	"TahsilatRaporu/internal/session"
)

// reviewPayload is what an import check parks in the session store until the
// operator confirms.
type reviewPayload struct {
	Records []Payment
	Matches []DuplicateMatch
	Issues  []RowIssue
}

func writeJSON(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[ERROR] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// parseUpload reads the multipart "file" part and builds canonical records
// with amounts already converted to USD.
func parseUpload(r *http.Request, conv *exchange.Converter) ([]Payment, []RowIssue, error) {
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		return nil, nil, errors.New("invalid multipart form")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, errors.New("missing file field")
	}
	defer file.Close()

	headers, rows, err := ParseFile(header.Filename, file)
	if err != nil {
		return nil, nil, err
	}
	records, issues, err := BuildRecords(headers, rows, time.Now())
	if err != nil {
		return nil, nil, err
	}
	convertToUSD(r, conv, records)
	return records, issues, nil
}

func convertToUSD(r *http.Request, conv *exchange.Converter, records []Payment) {
	for i := range records {
		rec := &records[i]
		if !rec.AmountUSD.IsZero() {
			continue
		}
		date, ok := rec.Date()
		if !ok {
			date = time.Now()
		}
		usd, rate := conv.ToUSD(r.Context(), rec.PaidAmount, rec.PaidCurrency, date)
		rec.AmountUSD = usd
		if rec.ExchangeRate.IsZero() && !rate.IsZero() {
			rec.ExchangeRate = rate
		}
	}
}

// ImportCheck parses an uploaded sheet, runs duplicate detection and parks
// the parsed records in a review session. Nothing is written yet.
func ImportCheck(det *Detector, conv *exchange.Converter, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, issues, err := parseUpload(r, conv)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		matches, err := det.Check(r.Context(), records)
		if err != nil {
			log.Printf("[ERROR] duplicate check: %v", err)
			writeError(w, http.StatusInternalServerError, "duplicate check failed")
			return
		}

		flagged := make(map[string]bool, len(matches))
		for _, m := range matches {
			flagged[m.Incoming.CustomerName+"|"+m.Incoming.PaymentDate+"|"+m.Incoming.PaidAmount.String()] = true
		}

		sess := sessions.Create(&reviewPayload{Records: records, Matches: matches, Issues: issues})
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":         true,
			"session_id":      sess.ID,
			"record_count":    len(records),
			"duplicate_count": len(flagged),
			"clean_count":     len(records) - len(flagged),
			"duplicates":      matches,
			"issues":          issues,
			"expires_at":      sess.ExpiresAt.Format(time.RFC3339),
		})
	}
}

type confirmRequest struct {
	SessionID string    `json:"session_id"`
	Records   []Payment `json:"records,omitempty"`
	SkipRows  []int     `json:"skip_rows,omitempty"`
}

// ImportConfirm commits a previously checked upload. The caller either sends
// the filtered record list back (with duplicates it chose to keep tagged
// is_duplicate_confirmed) or names skip_rows, zero-based indices into the
// checked records, and the rest import as parsed.
func ImportConfirm(importer *Importer, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		sess, ok := sessions.Get(req.SessionID)
		if !ok {
			writeError(w, http.StatusNotFound, "session not found or expired")
			return
		}
		payload, ok := sess.Data.(*reviewPayload)
		if !ok {
			writeError(w, http.StatusInternalServerError, "corrupt session payload")
			return
		}

		records := payload.Records
		skip := make(map[int]bool, len(req.SkipRows))
		if req.Records != nil {
			records = req.Records
		} else {
			for _, idx := range req.SkipRows {
				skip[idx] = true
			}
		}

		result, err := importer.Import(r.Context(), records, skip)
		if err != nil {
			log.Printf("[ERROR] import confirm %s: %v", req.SessionID, err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"success":  false,
				"error":    "import failed, nothing was written",
				"inserted": result.Inserted,
				"skipped":  result.Skipped,
				"failed":   result.Failed,
			})
			return
		}
		sessions.Delete(req.SessionID)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"total_rows": len(records),
			"inserted":   result.Inserted,
			"skipped":    result.Skipped,
			"failed":     result.Failed,
			"issues":     append(payload.Issues, result.Issues...),
		})
	}
}

// ImportDirect is the single-request import: parse, convert and commit in one
// go, reporting duplicate matches as warnings instead of blocking on them.
func ImportDirect(det *Detector, conv *exchange.Converter, importer *Importer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, issues, err := parseUpload(r, conv)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		matches, err := det.Check(r.Context(), records)
		if err != nil {
			log.Printf("[ERROR] duplicate check: %v", err)
			writeError(w, http.StatusInternalServerError, "duplicate check failed")
			return
		}

		result, err := importer.Import(r.Context(), records, nil)
		if err != nil {
			log.Printf("[ERROR] direct import: %v", err)
			writeError(w, http.StatusInternalServerError, "import failed, nothing was written")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"inserted":   result.Inserted,
			"failed":     result.Failed,
			"duplicates": matches,
			"issues":     append(issues, result.Issues...),
		})
	}
}

// ListPayments serves filtered payment queries.
func ListPayments(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ListFilter{
			StartDate:    q.Get("start_date"),
			EndDate:      q.Get("end_date"),
			CustomerName: q.Get("customer"),
			ProjectName:  q.Get("project"),
			PropertyName: q.Get("property"),
			Currency:     q.Get("currency"),
		}
		if raw := q.Get("channels"); raw != "" {
			for _, ch := range strings.Split(raw, ",") {
				if ch = strings.TrimSpace(ch); ch != "" {
					filter.Channels = append(filter.Channels, ch)
				}
			}
		}
		filter.Limit, _ = strconv.Atoi(q.Get("limit"))
		filter.Offset, _ = strconv.Atoi(q.Get("offset"))
		if filter.Limit <= 0 || filter.Limit > 1000 {
			filter.Limit = 200
		}

		rows, err := store.List(r.Context(), filter)
		if err != nil {
			log.Printf("[ERROR] list payments: %v", err)
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"count":    len(rows),
			"payments": rows,
		})
	}
}

func GetPayment(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment id")
			return
		}
		p, err := store.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusNotFound, "payment not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "payment": p})
	}
}

func CreatePayment(store Store, conv *exchange.Converter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment body")
			return
		}
		if strings.TrimSpace(p.CustomerName) == "" {
			writeError(w, http.StatusBadRequest, "customer_name is required")
			return
		}
		p.PaidCurrency = strings.ToUpper(strings.TrimSpace(p.PaidCurrency))
		if p.PaidCurrency == "" {
			p.PaidCurrency = "TRY"
		}
		if date, ok := p.Date(); ok {
			p.Year, p.Month = date.Year(), int(date.Month())
		} else if p.Year == 0 {
			now := time.Now()
			p.Year, p.Month = now.Year(), int(now.Month())
		}
		records := []Payment{p}
		convertToUSD(r, conv, records)

		id, err := store.Insert(r.Context(), records[0])
		if err != nil {
			log.Printf("[ERROR] create payment: %v", err)
			writeError(w, http.StatusInternalServerError, "insert failed")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "id": id})
	}
}

func UpdatePayment(store Store, conv *exchange.Converter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment id")
			return
		}
		var p Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment body")
			return
		}
		p.ID = id
		if date, ok := p.Date(); ok {
			p.Year, p.Month = date.Year(), int(date.Month())
		}
		// Changed amounts or dates come in without amount_usd; recompute it.
		records := []Payment{p}
		convertToUSD(r, conv, records)
		p = records[0]
		if err := store.Update(r.Context(), p); err != nil {
			log.Printf("[ERROR] update payment %d: %v", id, err)
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
	}
}

func DeletePayment(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid payment id")
			return
		}
		if err := store.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "id": id})
	}
}
