package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/farmdiary/internal/domain/models"
	"github.com/mamadbah2/farmdiary/internal/server/views"
	"github.com/mamadbah2/farmdiary/internal/service/diary"
	"github.com/mamadbah2/farmdiary/internal/service/reporting"
)

type memoryStore struct {
	records   []models.Record
	appendErr error
	appends   int
}

func (m *memoryStore) Load(_ context.Context) (models.Table, error) {
	return models.Table{Columns: models.LanguageEnglish.Columns(), Records: append([]models.Record(nil), m.records...)}, nil
}

func (m *memoryStore) Append(_ context.Context, r models.Record) error {
	m.appends++
	if m.appendErr != nil {
		return m.appendErr
	}
	m.records = append(m.records, r)
	return nil
}

type fakeAI struct {
	got       []models.Record
	anomalies []models.Deviation
	calls     int
	err       error
}

func (f *fakeAI) AnalyzeRecords(_ context.Context, records []models.Record, anomalies []models.Deviation, _ models.Language) (string, error) {
	f.calls++
	f.got = records
	f.anomalies = anomalies
	if f.err != nil {
		return "", f.err
	}
	return "Production looks healthy.", nil
}

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	store  *memoryStore
	ai     *fakeAI
	engine *gin.Engine
}

func newFixture(t *testing.T, storeErr error) *fixture {
	t.Helper()

	store := &memoryStore{}
	ai := &fakeAI{}
	svc := diary.NewService(store, time.UTC, nil)
	reports := reporting.NewService(store, nil)

	pages := NewDiaryHandler(svc, reports, models.LanguageEnglish, storeErr, nil)
	api := NewAPIHandler(svc, reports, ai, models.LanguageEnglish, storeErr, nil)

	r := gin.New()
	r.SetHTMLTemplate(views.Templates())
	r.GET("/", pages.ShowForm)
	r.POST("/", pages.SubmitForm)
	r.GET("/records", pages.Records)
	r.GET("/records.csv", pages.ExportCSV)
	r.GET("/api/records", api.ListRecords)
	r.POST("/api/records", api.CreateRecord)
	r.GET("/api/summary", api.Summary)
	r.POST("/api/records/analysis", api.Analyze)

	return &fixture{store: store, ai: ai, engine: r}
}

func (f *fixture) do(method, target, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func postForm(f *fixture, values url.Values) *httptest.ResponseRecorder {
	return f.do(http.MethodPost, "/", "application/x-www-form-urlencoded", values.Encode())
}

func TestShowForm(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="date"`)
	assert.Contains(t, body, `value="`+time.Now().UTC().Format(models.DateLayout)+`"`)
	assert.Contains(t, body, "Egg Count")
	assert.NotContains(t, body, "Entry saved.")
}

func TestSubmitForm_SavedClearsForm(t *testing.T) {
	f := newFixture(t, nil)

	w := postForm(f, url.Values{
		"date":         {"2024-05-01"},
		"eggCount":     {"12"},
		"feedCost":     {"50.5"},
		"medicineNote": {"Vitamin B"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Entry saved.")
	assert.NotContains(t, w.Body.String(), "Vitamin B")
	require.Len(t, f.store.records, 1)
	assert.Equal(t, 12, f.store.records[0].EggCount)
	assert.Equal(t, "50.5", f.store.records[0].FeedCost.String())
}

func TestSubmitForm_FailureRetainsInput(t *testing.T) {
	f := newFixture(t, nil)
	f.store.appendErr = errors.New("quota exceeded")

	w := postForm(f, url.Values{
		"date":         {"2024-05-01"},
		"eggCount":     {"12"},
		"feedCost":     {"50.5"},
		"medicineNote": {"Vitamin B"},
	})

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Could not save the entry.")
	assert.Contains(t, body, "quota exceeded")
	assert.Contains(t, body, `value="2024-05-01"`)
	assert.Contains(t, body, `value="12"`)
	assert.Contains(t, body, "Vitamin B")
	assert.Empty(t, f.store.records)
}

func TestSubmitForm_InvalidNeverAppends(t *testing.T) {
	f := newFixture(t, nil)

	w := postForm(f, url.Values{
		"date":     {"2024-05-01"},
		"eggCount": {"-3"},
		"feedCost": {"abc"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Cannot be negative.")
	assert.Contains(t, body, "Must be a number.")
	assert.Equal(t, 0, f.store.appends)
}

func TestSubmitForm_MalformedBodyKeepsPostedValues(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/", "application/x-www-form-urlencoded",
		"date=2024-05-01&eggCount=12&feedCost=7.25&medicineNote=Vitamin+B&bad=%zz")

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Please correct the highlighted fields.")
	assert.Contains(t, body, `value="2024-05-01"`)
	assert.Contains(t, body, `value="12"`)
	assert.Contains(t, body, `value="7.25"`)
	assert.Contains(t, body, "Vitamin B")
	assert.Equal(t, 0, f.store.appends)
}

func TestPages_StoreUnavailable(t *testing.T) {
	f := newFixture(t, fmt.Errorf("%w: spreadsheet not found", diary.ErrStoreUnavailable))

	for _, target := range []string{"/", "/records"} {
		w := f.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
		assert.Contains(t, w.Body.String(), "spreadsheet not found", target)
		assert.NotContains(t, w.Body.String(), "<form", target)
	}

	w := postForm(f, url.Values{"date": {"2024-05-01"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 0, f.store.appends)

	w = f.do(http.MethodGet, "/api/records", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRecordsPage(t *testing.T) {
	f := newFixture(t, nil)
	today := time.Now().UTC()
	f.store.records = []models.Record{
		{Date: time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), EggCount: 12, FeedCost: decimal.RequireFromString("50.5"), MedicineNote: "<b>Vitamin</b> & water"},
	}

	w := f.do(http.MethodGet, "/records", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "<td>12</td>")
	assert.Contains(t, body, "&lt;b&gt;Vitamin&lt;/b&gt; &amp; water")
	assert.Contains(t, body, "Monthly summary")
	assert.Contains(t, body, "50.50")
}

func TestRecordsPage_Empty(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/records", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No records yet.")
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, nil)
	f.store.records = []models.Record{
		{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), EggCount: 12, FeedCost: decimal.RequireFromString("50.5"), MedicineNote: "Vitamin, B"},
	}

	w := f.do(http.MethodGet, "/records.csv", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")
	assert.Equal(t, "Date,Egg Count,Feed Cost,Medicine Note\n2024-05-01,12,50.5,\"Vitamin, B\"\n", w.Body.String())
}

func TestAPI_CreateAndList(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/records", "application/json",
		`{"date":"2024-05-01","eggCount":12,"feedCost":50.5,"medicineNote":"Vitamin B"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"date":"2024-05-01","eggCount":12,"feedCost":"50.5","medicineNote":"Vitamin B"}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/records", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"columns": ["Date","Egg Count","Feed Cost","Medicine Note"],
		"records": [{"date":"2024-05-01","eggCount":12,"feedCost":"50.5","medicineNote":"Vitamin B"}]
	}`, w.Body.String())
}

func TestAPI_CreateRecordErrors(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/records", "application/json", `{"date":"2024-05-01","eggCount":-1,"feedCost":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/api/records", "application/json", `{"date":"yesterday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.store.appendErr = errors.New("disk full")
	w = f.do(http.MethodPost, "/api/records", "application/json", `{"date":"2024-05-01","eggCount":1,"feedCost":1}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, f.store.records)
}

func TestAPI_Summary(t *testing.T) {
	f := newFixture(t, nil)
	f.store.records = []models.Record{
		{Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), EggCount: 12, FeedCost: decimal.RequireFromString("50.5"), MedicineNote: "Vitamin B"},
		{Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), EggCount: 8, FeedCost: decimal.RequireFromString("10")},
	}

	w := f.do(http.MethodGet, "/api/summary?month=2024-05", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"month":"2024-05"`)
	assert.Contains(t, w.Body.String(), `"totalEggs":20`)

	w = f.do(http.MethodGet, "/api/summary?month=May", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_Analyze(t *testing.T) {
	f := newFixture(t, nil)
	f.store.records = []models.Record{
		{Date: time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC), EggCount: 10, FeedCost: decimal.RequireFromString("5")},
		{Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), EggCount: 10, FeedCost: decimal.RequireFromString("5")},
	}

	w := f.do(http.MethodPost, "/api/records/analysis", "application/json", `{"date":"2024-05-10","eggCount":12,"feedCost":"5"}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analysis":"Production looks healthy."`)
	assert.Contains(t, w.Body.String(), `"message":"This entry differs from the last 7 days."`)
	assert.Contains(t, w.Body.String(), `"metric":"eggCount"`)
	require.Len(t, f.ai.got, 3)
	assert.Equal(t, 12, f.ai.got[2].EggCount)
	require.Len(t, f.ai.anomalies, 1)
	assert.Equal(t, "eggCount: 12.00 (avg 10.00, deviation 20.00%)", f.ai.anomalies[0].String())

	f.ai.err = errors.New("rate limited")
	w = f.do(http.MethodPost, "/api/records/analysis", "application/json", `{"date":"2024-05-10","eggCount":12,"feedCost":"5"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analysisError":"Failed to get anomaly analysis."`)
	assert.NotContains(t, w.Body.String(), `"analysis":`)
}

func TestAPI_AnalyzeSkipsAIWithoutAnomaly(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/api/records/analysis", "application/json", `{"date":"2024-05-10","eggCount":12,"feedCost":"5"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"No recent data for anomaly detection."`)

	f.store.records = []models.Record{
		{Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), EggCount: 10, FeedCost: decimal.RequireFromString("5")},
	}
	w = f.do(http.MethodPost, "/api/records/analysis", "application/json", `{"date":"2024-05-10","eggCount":11,"feedCost":"5.99"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"No significant anomaly detected."`)
	assert.Contains(t, w.Body.String(), `"anomalies":[]`)

	assert.Equal(t, 0, f.ai.calls)

	w = f.do(http.MethodPost, "/api/records/analysis", "application/json", `{"date":"2024-05-10","eggCount":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_AnalyzeWithoutAIClient(t *testing.T) {
	store := &memoryStore{records: []models.Record{
		{Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), EggCount: 10, FeedCost: decimal.RequireFromString("5")},
	}}
	svc := diary.NewService(store, time.UTC, nil)
	api := NewAPIHandler(svc, reporting.NewService(store, nil), nil, models.LanguageEnglish, nil, nil)

	r := gin.New()
	r.POST("/api/records/analysis", api.Analyze)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/records/analysis",
		strings.NewReader(`{"date":"2024-05-10","eggCount":20,"feedCost":"5"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"analysisError":"Anomaly analysis is not configured."`)
	assert.Contains(t, w.Body.String(), `"deviationPercent":"100"`)
}
