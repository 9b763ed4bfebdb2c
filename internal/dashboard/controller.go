package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/chart"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/notify"
	"github.com/mamadbah2/wellca/internal/service/metrics"
	"github.com/mamadbah2/wellca/internal/service/reporting"
	"github.com/mamadbah2/wellca/internal/telemetry"
)

var (
	// ErrStaleReport marks a refresh whose result was discarded because a
	// newer refresh started while it was in flight.
	ErrStaleReport = errors.New("report superseded by a newer request")
	// ErrSubmitInProgress is returned while the same form is already submitting.
	ErrSubmitInProgress = errors.New("submission already in progress")
	// ErrDisposed is returned once the controller was disposed.
	ErrDisposed = errors.New("dashboard disposed")
)

// Backend is the part of the management API the dashboard drives.
type Backend interface {
	Submit(ctx context.Context, record models.DailyMetricRecord) (*models.DailyMetricRecord, error)
	FetchRange(ctx context.Context, startDate, endDate string) ([]models.DailyMetricRecord, error)
}

// View is the last successfully rendered report.
type View struct {
	StartDate   string                `json:"startDate"`
	EndDate     string                `json:"endDate"`
	Granularity reporting.Granularity `json:"granularity"`
	Report      reporting.Report      `json:"report"`
	Series      []reporting.Point     `json:"series"`
	Chart       chart.Instance        `json:"chart"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// Controller holds the dashboard state: one chart, one message presenter
// and the report currently on display.
type Controller struct {
	backend    Backend
	aggregator *metrics.Service
	renderer   *chart.Renderer
	presenter  *notify.Presenter
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.Mutex
	inFlight map[models.Category]bool
	seq      uint64
	current  *View
	disposed bool
}

// NewController wires a dashboard controller.
func NewController(backend Backend, aggregator *metrics.Service, renderer *chart.Renderer, presenter *notify.Presenter, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		backend:    backend,
		aggregator: aggregator,
		renderer:   renderer,
		presenter:  presenter,
		logger:     logger,
		now:        time.Now,
		inFlight:   make(map[models.Category]bool),
	}
}

// Presenter exposes the message presenter for read-only consumers.
func (c *Controller) Presenter() *notify.Presenter {
	return c.presenter
}

// Renderer exposes the chart renderer for image output.
func (c *Controller) Renderer() *chart.Renderer {
	return c.renderer
}

// Calculate evaluates the live derived values of a form snapshot.
func (c *Controller) Calculate(form models.FormSnapshot) metrics.Calculations {
	return metrics.Derive(form)
}

// Submit builds the record of a form and sends it. A second submission of the
// same category is refused until the first one returns. After a services
// submission the report on display, if any, is refreshed.
func (c *Controller) Submit(ctx context.Context, category models.Category, form models.FormSnapshot) (*models.DailyMetricRecord, error) {
	if err := c.acquire(category); err != nil {
		telemetry.Submissions.WithLabelValues(string(category), telemetry.OutcomeBusy).Inc()
		return nil, err
	}
	defer c.release(category)

	record, err := c.aggregator.BuildRecord(category, form)
	if err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			telemetry.Submissions.WithLabelValues(string(category), telemetry.OutcomeValidation).Inc()
			c.show(verr.Message, notify.KindError)
		}
		return nil, err
	}

	echo, err := c.backend.Submit(ctx, record)
	if err != nil {
		telemetry.Submissions.WithLabelValues(string(category), telemetry.OutcomeError).Inc()
		c.logger.Error("submission failed", zap.String("category", string(category)), zap.Error(err))
		c.show(models.MsgSubmissionError+err.Error(), notify.KindError)
		return nil, err
	}

	telemetry.Submissions.WithLabelValues(string(category), telemetry.OutcomeSuccess).Inc()
	if category == models.CategoryServices {
		c.show(models.MsgServiceAdded, notify.KindSuccess)
		c.refreshCurrent(ctx)
	} else {
		c.show(models.MsgSubmissionSuccess, notify.KindSuccess)
	}

	if echo == nil {
		echo = &record
	}
	return echo, nil
}

// RefreshReport fetches a date range, aggregates it and redraws the chart.
// When a newer refresh starts before this one finishes, the result is
// dropped and ErrStaleReport returned.
func (c *Controller) RefreshReport(ctx context.Context, startDate, endDate string, granularity reporting.Granularity) (View, error) {
	if err := ValidateRange(startDate, endDate); err != nil {
		telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeValidation).Inc()
		c.show(err.Message, notify.KindError)
		return View{}, err
	}
	if granularity == "" {
		granularity = reporting.Daily
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return View{}, ErrDisposed
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	dataset, err := c.backend.FetchRange(ctx, startDate, endDate)
	if err != nil {
		if c.superseded(seq) {
			telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeStale).Inc()
			return View{}, ErrStaleReport
		}
		telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeError).Inc()
		c.logger.Error("report fetch failed", zap.Error(err))
		c.show(models.MsgReportError+err.Error(), notify.KindError)
		return View{}, err
	}

	report := reporting.Aggregate(dataset)
	series := reporting.Bucket(report.TimeSeries, granularity)

	c.mu.Lock()
	if seq != c.seq || c.disposed {
		c.mu.Unlock()
		telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeStale).Inc()
		c.logger.Debug("stale report discarded", zap.Uint64("seq", seq))
		return View{}, ErrStaleReport
	}

	instance, err := c.renderer.Render(series)
	if err != nil {
		c.mu.Unlock()
		telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeError).Inc()
		c.logger.Error("chart render failed", zap.Error(err))
		c.show(models.MsgReportError+err.Error(), notify.KindError)
		return View{}, err
	}

	view := View{
		StartDate:   startDate,
		EndDate:     endDate,
		Granularity: granularity,
		Report:      report,
		Series:      series,
		Chart:       instance,
		GeneratedAt: c.now().UTC(),
	}
	c.current = &view
	c.mu.Unlock()

	telemetry.ReportRefreshes.WithLabelValues(telemetry.OutcomeSuccess).Inc()
	c.show(models.MsgReportReady, notify.KindSuccess)
	return view, nil
}

// Current returns the report on display.
func (c *Controller) Current() (View, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return View{}, false
	}
	return *c.current, true
}

// Dispose releases the chart and stops the presenter. In-flight refreshes
// finish as stale.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.current = nil
	c.mu.Unlock()

	c.renderer.Dispose()
	c.presenter.Close()
}

func (c *Controller) refreshCurrent(ctx context.Context) {
	view, ok := c.Current()
	if !ok {
		return
	}
	if _, err := c.RefreshReport(ctx, view.StartDate, view.EndDate, view.Granularity); err != nil && !errors.Is(err, ErrStaleReport) {
		c.logger.Warn("report refresh after submission failed", zap.Error(err))
	}
}

func (c *Controller) acquire(category models.Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if c.inFlight[category] {
		return fmt.Errorf("%w: %s", ErrSubmitInProgress, category)
	}
	c.inFlight[category] = true
	return nil
}

func (c *Controller) release(category models.Category) {
	c.mu.Lock()
	delete(c.inFlight, category)
	c.mu.Unlock()
}

func (c *Controller) superseded(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq != c.seq || c.disposed
}

func (c *Controller) show(text string, kind notify.Kind) {
	if _, err := c.presenter.Show(text, kind); err != nil {
		c.logger.Debug("message dropped", zap.String("text", text), zap.Error(err))
	}
}

// ValidateRange requires two readable dates with the end not before the start.
func ValidateRange(startDate, endDate string) *models.ValidationError {
	start, errStart := models.ParseDate(startDate)
	end, errEnd := models.ParseDate(endDate)
	if errStart != nil || errEnd != nil {
		return &models.ValidationError{Message: models.MsgInvalidDateRange}
	}
	if end.Before(start) {
		return &models.ValidationError{Message: models.MsgInvertedDateRange}
	}
	return nil
}
