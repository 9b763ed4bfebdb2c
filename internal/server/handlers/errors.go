package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/wellca/internal/dashboard"
	"github.com/mamadbah2/wellca/internal/domain/models"
	"github.com/mamadbah2/wellca/internal/service/reporting"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	var (
		validationErr *models.ValidationError
		submissionErr *models.SubmissionError
		fetchErr      *models.FetchError
		renderErr     *models.RenderError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrStaleReport):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrSubmitInProgress):
		return http.StatusTooManyRequests
	case errors.Is(err, dashboard.ErrDisposed), errors.Is(err, reporting.ErrHistoryDisabled):
		return http.StatusServiceUnavailable
	case errors.As(err, &submissionErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		body := gin.H{"error": validationErr.Message}
		if len(validationErr.Fields) > 0 {
			body["fields"] = validationErr.Fields
		}
		c.JSON(http.StatusBadRequest, body)
		return
	}
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}
