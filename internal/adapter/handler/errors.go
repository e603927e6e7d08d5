package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rl1809/lost-found/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Timestamp        time.Time         `json:"timestamp"`
	Status           int               `json:"status"`
	Error            string            `json:"error"`
	Message          string            `json:"message"`
	Path             string            `json:"path"`
	ValidationErrors map[string]string `json:"validationErrors,omitempty"`
}

type errorMapping struct {
	target  error
	status  int
	label   string
	message string // replaces err.Error() when set
}

// Order matters: ErrFileTooLarge is also an ErrFileParsing.
var errorMappings = []errorMapping{
	{domain.ErrUserNotFound, http.StatusNotFound, "User Not Found", ""},
	{domain.ErrItemNotFound, http.StatusNotFound, "Item Not Found", ""},
	{domain.ErrClaimNotFound, http.StatusNotFound, "Claim Not Found", ""},
	{domain.ErrInsufficientQuantity, http.StatusBadRequest, "Insufficient Quantity", ""},
	{domain.ErrInvalidOperation, http.StatusBadRequest, "Invalid Operation", ""},
	{domain.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "File Too Large", ""},
	{domain.ErrFileParsing, http.StatusBadRequest, "File Parsing Error", ""},
	{domain.ErrUnsupportedFileType, http.StatusUnsupportedMediaType, "Unsupported File Type", ""},
	{domain.ErrConcurrentModification, http.StatusConflict, "Concurrent Modification",
		"The resource was modified by another user. Please refresh and try again."},
	{domain.ErrValidation, http.StatusBadRequest, "Validation Failed", "Invalid input data"},
}

// NewErrorHandler renders domain and echo errors as ErrorResponse. Anything
// unrecognized becomes a 500 without leaking details.
func NewErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := buildErrorResponse(err)
		resp.Path = c.Request().URL.Path

		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("path", resp.Path),
			zap.Int("status", resp.Status),
			zap.Error(err),
		}
		if resp.Status >= http.StatusInternalServerError {
			logger.Error("request failed", fields...)
		} else {
			logger.Warn("request rejected", fields...)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Status)
		} else {
			err = c.JSON(resp.Status, resp)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}

func buildErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{Timestamp: time.Now()}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		resp.Status = he.Code
		switch he.Code {
		case http.StatusUnauthorized:
			resp.Error = "Authentication Failed"
			resp.Message = "Invalid username or password"
		case http.StatusForbidden:
			resp.Error = "Access Denied"
			resp.Message = "You don't have permission to access this resource"
		default:
			resp.Error = http.StatusText(he.Code)
			resp.Message = http.StatusText(he.Code)
			if msg, ok := he.Message.(string); ok {
				resp.Message = msg
			}
		}
		return resp
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			resp.Status = m.status
			resp.Error = m.label
			resp.Message = err.Error()
			if m.message != "" {
				resp.Message = m.message
			}
			var verr *domain.ValidationError
			if errors.As(err, &verr) {
				resp.ValidationErrors = verr.Fields
			}
			return resp
		}
	}

	resp.Status = http.StatusInternalServerError
	resp.Error = "Internal Server Error"
	resp.Message = "An unexpected error occurred"
	return resp
}
