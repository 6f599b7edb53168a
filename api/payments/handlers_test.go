package payments

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TahsilatRaporu/api/exchange"
	"TahsilatRaporu/internal/config"
	"TahsilatRaporu/internal/session"
)

const sampleCSV = "Tarih;Müşteri Adı Soyadı;Ödenen Tutar;Ödenen Döviz;Ödeme Şekli\n" +
	"15/01/2024;Ahmet Yılmaz;5.000,00;TL;Nakit\n" +
	"16/01/2024;Fatma Kaya;2.500,00;USD;Havale\n"

func uploadRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func testConverter() *exchange.Converter {
	return exchange.NewConverter(nil, config.RatesConfig{EURToUSD: 1.10, DefaultUSDTRY: 30.0})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestImportCheckThenConfirm(t *testing.T) {
	existing := payment("Fatma Kaya", "2024-01-16", 2500)
	existing.PaidCurrency = "USD"
	store := newFakeStore(existing)
	sessions := session.NewManager(30 * time.Minute)
	det := defaultDetector(store)

	check := ImportCheck(det, testConverter(), sessions)
	rec := httptest.NewRecorder()
	check(rec, uploadRequest(t, "/api/import/check", "tahsilat.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["record_count"])
	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID)
	duplicates, _ := body["duplicates"].([]interface{})
	require.Len(t, duplicates, 1)

	// Nothing written before confirm.
	assert.Len(t, store.payments, 1)

	confirm := ImportConfirm(NewImporter(store), sessions)
	payload, _ := json.Marshal(map[string]interface{}{
		"session_id": sessionID,
		"skip_rows":  []int{1},
	})
	rec = httptest.NewRecorder()
	confirm(rec, httptest.NewRequest(http.MethodPost, "/api/import/confirm", bytes.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body = decodeBody(t, rec)
	assert.Equal(t, float64(1), body["inserted"])
	assert.Equal(t, float64(1), body["skipped"])
	assert.Len(t, store.payments, 2)

	// The session is single use.
	rec = httptest.NewRecorder()
	confirm(rec, httptest.NewRequest(http.MethodPost, "/api/import/confirm", bytes.NewReader(payload)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportCheckNormalizesRecords(t *testing.T) {
	store := newFakeStore()
	sessions := session.NewManager(30 * time.Minute)

	check := ImportCheck(defaultDetector(store), testConverter(), sessions)
	rec := httptest.NewRecorder()
	check(rec, uploadRequest(t, "/api/import/check", "tahsilat.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	sess, ok := sessions.Get(body["session_id"].(string))
	require.True(t, ok)
	records := sess.Data.(*reviewPayload).Records
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "2024-01-15", first.PaymentDate)
	assert.Equal(t, "Ahmet Yılmaz", first.CustomerName)
	assert.Equal(t, "TRY", first.PaidCurrency)
	assert.Equal(t, "Cash", first.PaymentMethod)
	assert.True(t, first.PaidAmount.Equal(decimal.NewFromInt(5000)))
	// 5000 TRY at the 30.0 fallback rate.
	assert.True(t, first.AmountUSD.Equal(decimal.RequireFromString("166.67")), "got %s", first.AmountUSD)
	assert.Equal(t, 2024, first.Year)
	assert.Equal(t, 1, first.Month)

	second := records[1]
	assert.Equal(t, "USD", second.PaidCurrency)
	assert.Equal(t, "Bank Transfer", second.PaymentMethod)
	assert.True(t, second.AmountUSD.Equal(decimal.NewFromInt(2500)))
}

func TestImportDirectCommitsInOneCall(t *testing.T) {
	store := newFakeStore()
	direct := ImportDirect(defaultDetector(store), testConverter(), NewImporter(store))

	rec := httptest.NewRecorder()
	direct(rec, uploadRequest(t, "/api/import", "tahsilat.csv", sampleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, float64(2), body["inserted"])
	assert.Len(t, store.payments, 2)
}

func TestImportCheckRejectsUnknownFormat(t *testing.T) {
	store := newFakeStore()
	sessions := session.NewManager(time.Minute)
	check := ImportCheck(defaultDetector(store), testConverter(), sessions)

	rec := httptest.NewRecorder()
	check(rec, uploadRequest(t, "/api/import/check", "tahsilat.txt", "whatever"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportJSONUpload(t *testing.T) {
	store := newFakeStore()
	direct := ImportDirect(defaultDetector(store), testConverter(), NewImporter(store))

	records := []map[string]interface{}{
		{"Tarih": "15/01/2024", "Müşteri": "Ali Demir", "Tutar": "1.000,00", "Döviz": "TL"},
	}
	raw, _ := json.Marshal(records)
	rec := httptest.NewRecorder()
	direct(rec, uploadRequest(t, "/api/import", "tahsilat.json", string(raw)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, store.payments, 1)
	assert.Equal(t, "Ali Demir", store.payments[0].CustomerName)
	assert.True(t, store.payments[0].PaidAmount.Equal(decimal.NewFromInt(1000)))
}

func TestCreatePaymentComputesDerivedFields(t *testing.T) {
	store := newFakeStore()
	create := CreatePayment(store, testConverter())

	raw, _ := json.Marshal(map[string]interface{}{
		"customer_name": "Ahmet Yılmaz",
		"payment_date":  "2024-05-10",
		"paid_amount":   "300",
		"paid_currency": "try",
	})
	rec := httptest.NewRecorder()
	create(rec, httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader(raw)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, store.payments, 1)
	p := store.payments[0]
	assert.Equal(t, 2024, p.Year)
	assert.Equal(t, 5, p.Month)
	assert.Equal(t, "TRY", p.PaidCurrency)
	assert.True(t, p.AmountUSD.Equal(decimal.NewFromInt(10)), "got %s", p.AmountUSD)
}

func TestCreatePaymentRequiresCustomer(t *testing.T) {
	store := newFakeStore()
	create := CreatePayment(store, testConverter())

	rec := httptest.NewRecorder()
	create(rec, httptest.NewRequest(http.MethodPost, "/api/payments", bytes.NewReader([]byte(`{"paid_amount":"5"}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPaymentsFiltersByCustomer(t *testing.T) {
	store := newFakeStore(
		payment("Ahmet Yılmaz", "2024-01-15", 5000),
		payment("Fatma Kaya", "2024-01-16", 2500),
	)
	list := ListPayments(store)

	rec := httptest.NewRecorder()
	list(rec, httptest.NewRequest(http.MethodGet, "/api/payments?customer=fatma", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["count"])
}
