package wellca

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/wellca/internal/config"
	"github.com/mamadbah2/wellca/internal/domain/models"
)

const (
	submitPath     = "/submit"
	rangePath      = "/range"
	servicePath    = "/service"
	updatePath     = "/update/%s"
	deletePath     = "/delete/%s"
	validatePath   = "/validate"
	statisticsPath = "/statistics"

	defaultTimeout = 15 * time.Second
	defaultPeriod  = "daily"
)

// Client exposes the Wellca management REST operations used by the dashboard.
type Client interface {
	Submit(ctx context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error)
	FetchRange(ctx context.Context, startDate, endDate string) ([]models.DailyMetricRecord, error)
	SubmitService(ctx context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error)
	UpdateRecord(ctx context.Context, id string, payload any) (json.RawMessage, error)
	DeleteRecord(ctx context.Context, id string) (json.RawMessage, error)
	Validate(ctx context.Context, payload any) (json.RawMessage, error)
	Statistics(ctx context.Context, period string) (json.RawMessage, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient   *resty.Client
	dashboardURL string
	csrfHeader   string
	csrfToken    string
}

// NewClient builds a client for the management API. The anti-forgery header
// is attached to every request when a token is configured; otherwise it can
// be discovered once with DiscoverCSRF.
func NewClient(cfg config.BackendConfig) *APIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	host := strings.TrimSuffix(cfg.BaseURL, "/")

	restyClient := resty.New()
	restyClient.
		SetBaseURL(host+cfg.PathPrefix).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetTimeout(timeout)

	c := &APIClient{
		httpClient:   restyClient,
		dashboardURL: host + cfg.DashboardPath,
	}
	if cfg.CSRFToken != "" {
		c.setCSRF(cfg.CSRFHeader, cfg.CSRFToken)
	}
	return c
}

// CSRF returns the anti-forgery header name and token in use.
func (c *APIClient) CSRF() (header, token string) {
	return c.csrfHeader, c.csrfToken
}

func (c *APIClient) setCSRF(header, token string) {
	if header == "" || token == "" {
		return
	}
	c.csrfHeader = header
	c.csrfToken = token
	c.httpClient.SetHeader(header, token)
}

// Submit posts a full flat record and returns the server's echo.
func (c *APIClient) Submit(ctx context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error) {
	body, err := c.write(ctx, http.MethodPost, submitPath, record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// SubmitService posts a service record to the dedicated endpoint.
func (c *APIClient) SubmitService(ctx context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error) {
	body, err := c.write(ctx, http.MethodPost, servicePath, record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(body)
}

// FetchRange returns every record between the two ISO dates. Both dates are
// required; nothing is sent when either one is empty.
func (c *APIClient) FetchRange(ctx context.Context, startDate, endDate string) ([]models.DailyMetricRecord, error) {
	startDate = strings.TrimSpace(startDate)
	endDate = strings.TrimSpace(endDate)
	if startDate == "" || endDate == "" {
		return nil, &models.ValidationError{Message: models.MsgInvalidDateRange}
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			models.FieldStartDate: startDate,
			models.FieldEndDate:   endDate,
		}).
		Get(rangePath)
	if err != nil {
		return nil, fmt.Errorf("fetch range: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &models.FetchError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var records []models.DailyMetricRecord
	if len(bytes.TrimSpace(resp.Body())) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("decode range: %w", err)
	}
	return records, nil
}

// UpdateRecord replaces the record with the given id.
func (c *APIClient) UpdateRecord(ctx context.Context, id string, payload any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPut, fmt.Sprintf(updatePath, url.PathEscape(id)), payload)
}

// DeleteRecord removes the record with the given id.
func (c *APIClient) DeleteRecord(ctx context.Context, id string) (json.RawMessage, error) {
	return c.write(ctx, http.MethodDelete, fmt.Sprintf(deletePath, url.PathEscape(id)), nil)
}

// Validate asks the backend to validate a payload without storing it.
func (c *APIClient) Validate(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.write(ctx, http.MethodPost, validatePath, payload)
}

// Statistics returns the backend summary for a period ("daily" by default).
func (c *APIClient) Statistics(ctx context.Context, period string) (json.RawMessage, error) {
	if strings.TrimSpace(period) == "" {
		period = defaultPeriod
	}

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("period", period).
		Get(statisticsPath)
	if err != nil {
		return nil, fmt.Errorf("fetch statistics: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &models.FetchError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return rawBody(resp), nil
}

func (c *APIClient) write(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	req := c.httpClient.R().SetContext(ctx)
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), path, err)
	}
	if !resp.IsSuccess() {
		return nil, &models.SubmissionError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return rawBody(resp), nil
}

func rawBody(resp *resty.Response) json.RawMessage {
	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 {
		return nil
	}
	return json.RawMessage(body)
}

func decodeRecord(body json.RawMessage) (*models.DailyMetricRecord, error) {
	if len(body) == 0 {
		return nil, nil
	}
	record := new(models.DailyMetricRecord)
	if err := json.Unmarshal(body, record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return record, nil
}
