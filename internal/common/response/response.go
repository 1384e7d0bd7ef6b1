package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

// envelope is the standard success response shape.
type envelope struct {
	Data interface{} `json:"data"`
}

// errorBody is the standard error response shape.
type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// paginatedEnvelope is the standard paginated response shape.
type paginatedEnvelope struct {
	Data  interface{} `json:"data"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success writes a 200 response with the standard envelope.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{Data: data})
}

// Created writes a 201 response with the standard envelope.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, envelope{Data: data})
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, paginatedEnvelope{Data: items, Total: total, Page: page, Limit: limit})
}

// BadRequest writes a 400 response with a validation error body.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
		Code:    string(domain.CodeValidation),
		Message: message,
	}})
}

// Error maps an application error to the appropriate HTTP status and body.
// Unknown errors are masked as internal failures so collaborator details never
// leak to clients.
func Error(c *gin.Context, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": errorBody{
			Code:    string(domain.CodeInternal),
			Message: "internal server error",
		}})
		return
	}

	c.JSON(statusFor(appErr.Code), gin.H{"error": errorBody{
		Code:      string(appErr.Code),
		Message:   appErr.Message,
		Field:     appErr.Field,
		Retryable: appErr.Retryable,
	}})
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeConflict, domain.CodeInvalidState:
		return http.StatusConflict
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeUnauthorized:
		return http.StatusUnauthorized
	case domain.CodeDistanceService:
		return http.StatusBadGateway
	case domain.CodeSubmission:
		return http.StatusUnprocessableEntity
	case domain.CodeProtocol:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
