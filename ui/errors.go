package ui

import (
	"errors"
	"log"
	"net/http"

	"painel/domain/core"
	apperrors "painel/internal/errors"

	"github.com/gin-gonic/gin"
)

// statusOf maps an error to the HTTP status shown to the dashboard.
func statusOf(err error) int {
	if core.IsNotFoundError(err) && !core.IsStructuralError(err) {
		return http.StatusNotFound
	}
	switch apperrors.GetCode(err) {
	case apperrors.CodeInputFormat, apperrors.CodeConfigInvalid, apperrors.CodeStructural, apperrors.CodeInvalidInput:
		return http.StatusBadRequest
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": err.Error()}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["code"] = appErr.Code
		if appErr.Stage != "" {
			body["stage"] = appErr.Stage
		}
		if appErr.Column != "" {
			body["column"] = appErr.Column
		}
	}
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": apperrors.CodeInvalidInput})
}
