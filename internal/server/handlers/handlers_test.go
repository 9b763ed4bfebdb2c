package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/wellca/internal/chart"
	"github.com/mamadbah2/wellca/internal/dashboard"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/notify"
	"github.com/mamadbah2/wellca/internal/service/metrics"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

type fakeClient struct {
	mu        sync.Mutex
	submitted []models.DailyMetricRecord
	services  []models.DailyMetricRecord
	submitErr error

	dataset  []models.DailyMetricRecord
	fetchErr error

	updatedID      string
	updatedPayload string
	deletedID      string
	period         string
	rawResponse    json.RawMessage
}

func (f *fakeClient) Submit(_ context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.submitted = append(f.submitted, record)
	return &record, nil
}

func (f *fakeClient) FetchRange(_ context.Context, _, _ string) ([]models.DailyMetricRecord, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.dataset, nil
}

func (f *fakeClient) SubmitService(_ context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.services = append(f.services, record)
	id := int64(42)
	record.ID = &id
	return &record, nil
}

func (f *fakeClient) UpdateRecord(_ context.Context, id string, payload any) (json.RawMessage, error) {
	f.updatedID = id
	raw, _ := json.Marshal(payload)
	f.updatedPayload = string(raw)
	return f.rawResponse, nil
}

func (f *fakeClient) DeleteRecord(_ context.Context, id string) (json.RawMessage, error) {
	f.deletedID = id
	return f.rawResponse, nil
}

func (f *fakeClient) Validate(_ context.Context, _ any) (json.RawMessage, error) {
	return json.RawMessage(`{"valid":true}`), nil
}

func (f *fakeClient) Statistics(_ context.Context, period string) (json.RawMessage, error) {
	f.period = period
	return json.RawMessage(`{"entries":3}`), nil
}

func setupEngine(t *testing.T, client *fakeClient) (*gin.Engine, *dashboard.Controller) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	presenter := notify.NewPresenter(notify.Options{Display: time.Minute, Fade: time.Millisecond}, nil)
	controller := dashboard.NewController(client, metrics.NewService(time.UTC, nil), chart.NewRenderer(320, 200, nil), presenter, nil)
	t.Cleanup(controller.Dispose)

	reports := reporting.NewService(client, nil, nil, time.UTC, nil)
	dash := NewDashboardHandler(controller, reports, nil)
	records := NewRecordsHandler(client, nil)

	r := gin.New()
	r.POST("/api/forms/:category", dash.SubmitForm)
	r.POST("/api/calculations", dash.Calculate)
	r.GET("/api/reports", dash.Report)
	r.GET("/api/reports/current", dash.Current)
	r.GET("/api/reports/chart", dash.Chart)
	r.GET("/api/reports/chart.png", dash.ChartPNG)
	r.GET("/api/reports/export.xlsx", dash.Export)
	r.GET("/api/reports/history", dash.History)
	r.GET("/api/messages", dash.Messages)
	r.POST("/api/services", records.SubmitService)
	r.PUT("/api/records/:id", records.Update)
	r.DELETE("/api/records/:id", records.Delete)
	r.POST("/api/records/validate", records.Validate)
	r.GET("/api/statistics", records.Statistics)
	return r, controller
}

func postForm(r http.Handler, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleDataset() []models.DailyMetricRecord {
	return []models.DailyMetricRecord{
		{Date: "2024-01-15", Purolator: 2, Fedex: 2, NewRx: 6, Refill: 2},
		{Date: "2024-01-16", ServiceType: "FLU_SHOT", ServiceCost: decimal.RequireFromString("25")},
	}
}

func TestSubmitForm_Delivery(t *testing.T) {
	client := &fakeClient{}
	r, controller := setupEngine(t, client)

	w := postForm(r, "/api/forms/delivery", url.Values{
		"date":      {"2024-01-15"},
		"purolator": {"3"},
		"fedex":     {"abc"},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.MsgSubmissionSuccess, decodeBody(t, w)["message"])

	require.Len(t, client.submitted, 1)
	assert.Equal(t, "2024-01-15", client.submitted[0].Date)
	assert.Equal(t, 3, client.submitted[0].Purolator)
	assert.Equal(t, 0, client.submitted[0].Fedex)

	var texts []string
	for _, m := range controller.Presenter().Active() {
		texts = append(texts, m.Text)
	}
	assert.Contains(t, texts, models.MsgSubmissionSuccess)
}

func TestSubmitForm_UnknownCategory(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{})

	w := postForm(r, "/api/forms/payroll", url.Values{})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitForm_ServiceValidation(t *testing.T) {
	client := &fakeClient{}
	r, _ := setupEngine(t, client)

	w := postForm(r, "/api/forms/services", url.Values{
		"serviceType": {"FLU_SHOT"},
		"serviceCost": {"0"},
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, models.MsgRequiredFields, body["error"])
	assert.Contains(t, body["fields"], models.FieldServiceCost)
	assert.Empty(t, client.submitted)
}

func TestSubmitForm_BackendError(t *testing.T) {
	client := &fakeClient{submitErr: &models.SubmissionError{StatusCode: 500, Body: "boom"}}
	r, _ := setupEngine(t, client)

	w := postForm(r, "/api/forms/rx-sales", url.Values{"newRx": {"4"}})

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "API Error (500): boom", decodeBody(t, w)["error"])
}

func TestCalculate(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{})

	w := postForm(r, "/api/calculations", url.Values{
		"purolator":       {"2"},
		"goBolt":          {"5"},
		"profilesEntered": {"4"},
		"whoFilledRx":     {"1"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 7, body["totalDeliveries"])
	assert.Equal(t, "25.00", body["activePercentage"])
}

func TestReport(t *testing.T) {
	client := &fakeClient{dataset: sampleDataset()}
	r, _ := setupEngine(t, client)

	w := do(r, http.MethodGet, "/api/reports/current", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/reports?startDate=2024-01-01&endDate=2024-01-31&granularity=weekly", "")
	require.Equal(t, http.StatusOK, w.Code)

	var view dashboard.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, reporting.Weekly, view.Granularity)
	assert.Equal(t, 2, view.Report.Totals.Entries)
	assert.Equal(t, 4, view.Report.Totals.Deliveries)
	assert.Equal(t, 1, view.Report.Totals.Services)
	assert.Equal(t, 2, view.Report.Weekly.Entries)
	require.Len(t, view.Report.ServiceStats.Services, 1)
	assert.Equal(t, 1, view.Report.ServiceStats.Services[0].Count)
	require.Len(t, view.Series, 1)
	assert.Equal(t, "2024-01-21", view.Series[0].Date)

	w = do(r, http.MethodGet, "/api/reports/current", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *fakeClient
		query  string
		status int
	}{
		{name: "missing dates", client: &fakeClient{}, query: "startDate=2024-01-01", status: http.StatusBadRequest},
		{name: "inverted dates", client: &fakeClient{}, query: "startDate=2024-02-01&endDate=2024-01-01", status: http.StatusBadRequest},
		{name: "bad granularity", client: &fakeClient{}, query: "startDate=2024-01-01&endDate=2024-01-31&granularity=hourly", status: http.StatusBadRequest},
		{name: "backend failure", client: &fakeClient{fetchErr: &models.FetchError{StatusCode: 503, Body: "down"}}, query: "startDate=2024-01-01&endDate=2024-01-31", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupEngine(t, tt.client)
			w := do(r, http.MethodGet, "/api/reports?"+tt.query, "")
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestChart(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{dataset: sampleDataset()})

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/reports/chart", "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/reports/chart.png", "").Code)

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/reports?startDate=2024-01-01&endDate=2024-01-31", "").Code)

	w := do(r, http.MethodGet, "/api/reports/chart", "")
	require.Equal(t, http.StatusOK, w.Code)
	var instance chart.Instance
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instance))
	assert.Equal(t, 1, instance.Revision)
	assert.Equal(t, []string{"2024-01-15", "2024-01-16"}, instance.Config.Data.Labels)

	w = do(r, http.MethodGet, "/api/reports/chart.png", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestExport(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{dataset: sampleDataset()})

	w := do(r, http.MethodGet, "/api/reports/export.xlsx?startDate=2024-01-01&endDate=2024-01-31", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "wellca_report_2024-01-01_2024-01-31.xlsx")

	file, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer file.Close()
	assert.Len(t, file.GetSheetList(), 4)

	w = do(r, http.MethodGet, "/api/reports/export.xlsx?startDate=2024-01-01", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistory_Disabled(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{})

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/api/reports/history", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/reports/history?limit=-1", "").Code)
}

func TestMessages(t *testing.T) {
	r, _ := setupEngine(t, &fakeClient{})

	do(r, http.MethodGet, "/api/reports?startDate=2024-01-01", "")

	w := do(r, http.MethodGet, "/api/messages", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Messages []notify.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, models.MsgInvalidDateRange, body.Messages[0].Text)
	assert.Equal(t, notify.KindError, body.Messages[0].Kind)
}

func TestRecords_PassThrough(t *testing.T) {
	client := &fakeClient{rawResponse: json.RawMessage(`{"id":7}`)}
	r, _ := setupEngine(t, client)

	w := do(r, http.MethodPut, "/api/records/7", `{"date":"2024-01-15","fedex":4}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
	assert.Equal(t, "7", client.updatedID)
	assert.JSONEq(t, `{"date":"2024-01-15","fedex":4}`, client.updatedPayload)

	client.rawResponse = nil
	w = do(r, http.MethodDelete, "/api/records/9", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "9", client.deletedID)

	w = do(r, http.MethodPost, "/api/records/validate", `{"date":"2024-01-15"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = do(r, http.MethodGet, "/api/statistics?period=weekly", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "weekly", client.period)

	w = do(r, http.MethodPut, "/api/records/7", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitService(t *testing.T) {
	client := &fakeClient{}
	r, _ := setupEngine(t, client)

	w := do(r, http.MethodPost, "/api/services", `{"date":"2024-01-15","serviceType":"FLU_SHOT","serviceCost":25.5}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, client.services, 1)
	assert.True(t, decimal.RequireFromString("25.5").Equal(client.services[0].ServiceCost))

	w = do(r, http.MethodPost, "/api/services", `{"date":"2024-01-15","serviceType":null}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{err: &models.ValidationError{Message: "x"}, status: http.StatusBadRequest},
		{err: dashboard.ErrStaleReport, status: http.StatusConflict},
		{err: dashboard.ErrSubmitInProgress, status: http.StatusTooManyRequests},
		{err: &models.FetchError{StatusCode: 500}, status: http.StatusBadGateway},
		{err: &models.RenderError{Op: "draw"}, status: http.StatusInternalServerError},
		{err: reporting.ErrHistoryDisabled, status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}
