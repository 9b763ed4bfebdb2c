package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/chart"
	"github.com/mamadbah2/wellca/internal/dashboard"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/export"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultHistoryLimit = 12
)

// ReportBuilder produces fresh reports for export and lists archived ones.
type ReportBuilder interface {
	Build(ctx context.Context, startDate, endDate string) (reporting.Report, []models.DailyMetricRecord, error)
	History(ctx context.Context, limit int64) ([]models.ReportSnapshot, error)
}

// DashboardHandler serves the dashboard forms, reports and chart.
type DashboardHandler struct {
	controller *dashboard.Controller
	reports    ReportBuilder
	logger     *zap.Logger
}

// NewDashboardHandler constructs the HTTP handler adapter.
func NewDashboardHandler(controller *dashboard.Controller, reports ReportBuilder, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{controller: controller, reports: reports, logger: logger}
}

// SubmitForm turns the posted fields of one form into a record and submits it.
func (h *DashboardHandler) SubmitForm(c *gin.Context) {
	category, ok := models.ParseCategory(c.Param("category"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown form " + c.Param("category")})
		return
	}

	form, err := readForm(c)
	if err != nil {
		h.logger.Warn("invalid form payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}

	record, err := h.controller.Submit(c.Request.Context(), category, form)
	if err != nil {
		h.logger.Warn("form submission failed", zap.String("category", string(category)), zap.Error(err))
		writeError(c, err)
		return
	}

	message := models.MsgSubmissionSuccess
	if category == models.CategoryServices {
		message = models.MsgServiceAdded
	}
	c.JSON(http.StatusCreated, gin.H{"message": message, "record": record})
}

// Calculate returns the live derived values of a form.
func (h *DashboardHandler) Calculate(c *gin.Context) {
	form, err := readForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form payload"})
		return
	}
	c.JSON(http.StatusOK, h.controller.Calculate(form))
}

// Report refreshes the report for a date range and returns the new view.
func (h *DashboardHandler) Report(c *gin.Context) {
	granularity, err := reporting.ParseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.controller.RefreshReport(c.Request.Context(), c.Query(models.FieldStartDate), c.Query(models.FieldEndDate), granularity)
	if err != nil {
		if !errors.Is(err, dashboard.ErrStaleReport) {
			h.logger.Warn("report refresh failed", zap.Error(err))
		}
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Current returns the report on display.
func (h *DashboardHandler) Current(c *gin.Context) {
	view, ok := h.controller.Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report generated yet"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// Chart returns the chart configuration of the live instance.
func (h *DashboardHandler) Chart(c *gin.Context) {
	instance, ok := h.controller.Renderer().Current()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no chart rendered yet"})
		return
	}
	c.JSON(http.StatusOK, instance)
}

// ChartPNG draws the live instance.
func (h *DashboardHandler) ChartPNG(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.controller.Renderer().WritePNG(&buf); err != nil {
		if errors.Is(err, chart.ErrNoInstance) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no chart rendered yet"})
			return
		}
		h.logger.Error("chart draw failed", zap.Error(err))
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// Export builds a workbook from a fresh fetch of the range.
func (h *DashboardHandler) Export(c *gin.Context) {
	startDate, endDate := c.Query(models.FieldStartDate), c.Query(models.FieldEndDate)
	if verr := dashboard.ValidateRange(startDate, endDate); verr != nil {
		writeError(c, verr)
		return
	}
	granularity, err := reporting.ParseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, dataset, err := h.reports.Build(c.Request.Context(), startDate, endDate)
	if err != nil {
		h.logger.Warn("export fetch failed", zap.Error(err))
		writeError(c, err)
		return
	}

	workbook, err := export.BuildWorkbook(report, reporting.Bucket(report.TimeSeries, granularity), dataset, startDate, endDate)
	if err != nil {
		h.logger.Error("workbook build failed", zap.Error(err))
		writeError(c, &models.RenderError{Op: "build workbook", Err: err})
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, workbook); err != nil {
		h.logger.Error("workbook write failed", zap.Error(err))
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(startDate, endDate)+`"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// History lists the archived weekly reports.
func (h *DashboardHandler) History(c *gin.Context) {
	limit := int64(defaultHistoryLimit)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive number"})
			return
		}
		limit = parsed
	}

	snapshots, err := h.reports.History(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []models.ReportSnapshot{}
	}
	c.JSON(http.StatusOK, gin.H{"reports": snapshots})
}

// Messages returns the visible notification bubbles.
func (h *DashboardHandler) Messages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"messages": h.controller.Presenter().Active()})
}

func readForm(c *gin.Context) (models.FormSnapshot, error) {
	if err := c.Request.ParseForm(); err != nil {
		return nil, err
	}
	return models.SnapshotFromValues(c.Request.PostForm), nil
}
