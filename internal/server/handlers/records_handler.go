package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/pkg/clients/wellca"
)

// RecordsHandler forwards record maintenance calls to the management API.
type RecordsHandler struct {
	client wellca.Client
	logger *zap.Logger
}

// NewRecordsHandler constructs the HTTP handler adapter.
func NewRecordsHandler(client wellca.Client, logger *zap.Logger) *RecordsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordsHandler{client: client, logger: logger}
}

// SubmitService posts a service record to the dedicated backend endpoint.
func (h *RecordsHandler) SubmitService(c *gin.Context) {
	var record models.DailyMetricRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid service payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !record.HasService() || record.Date == "" {
		writeError(c, &models.ValidationError{Message: models.MsgRequiredFields, Fields: []string{models.FieldDate, models.FieldServiceType}})
		return
	}

	echo, err := h.client.SubmitService(c.Request.Context(), record)
	if err != nil {
		h.logger.Error("failed submitting service", zap.Error(err))
		writeError(c, err)
		return
	}
	if echo == nil {
		echo = &record
	}
	c.JSON(http.StatusCreated, echo)
}

// Update replaces a record.
func (h *RecordsHandler) Update(c *gin.Context) {
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid update payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	body, err := h.client.UpdateRecord(c.Request.Context(), c.Param("id"), payload)
	if err != nil {
		h.logger.Error("failed updating record", zap.String("id", c.Param("id")), zap.Error(err))
		writeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, body)
}

// Delete removes a record.
func (h *RecordsHandler) Delete(c *gin.Context) {
	body, err := h.client.DeleteRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("failed deleting record", zap.String("id", c.Param("id")), zap.Error(err))
		writeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, body)
}

// Validate asks the backend to check a payload without storing it.
func (h *RecordsHandler) Validate(c *gin.Context) {
	var payload json.RawMessage
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	body, err := h.client.Validate(c.Request.Context(), payload)
	if err != nil {
		writeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, body)
}

// Statistics returns the backend summary for a period.
func (h *RecordsHandler) Statistics(c *gin.Context) {
	body, err := h.client.Statistics(c.Request.Context(), c.Query("period"))
	if err != nil {
		h.logger.Error("failed fetching statistics", zap.Error(err))
		writeError(c, err)
		return
	}
	writeRaw(c, http.StatusOK, body)
}

func writeRaw(c *gin.Context, status int, body json.RawMessage) {
	if len(body) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(status, "application/json", body)
}
