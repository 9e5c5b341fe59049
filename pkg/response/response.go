package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fundhub/backend/pkg/apperr"
)

// Body is the standard API response envelope.
type Body struct {
	Success bool           `json:"success"`
	Data    interface{}    `json:"data,omitempty"`
	Errors  []ErrorMessage `json:"errors,omitempty"`
}

// ErrorMessage is one failure of a call. Mutations emit exactly one.
type ErrorMessage struct {
	Message string `json:"message"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Success: false, Errors: []ErrorMessage{{Message: msg}}})
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	fail(c, http.StatusBadRequest, err)
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	fail(c, http.StatusUnauthorized, err)
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	fail(c, http.StatusForbidden, err)
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	fail(c, http.StatusNotFound, err)
}

// Conflict sends 409.
func Conflict(c *gin.Context, err string) {
	fail(c, http.StatusConflict, err)
}

// PaymentRequired sends 402.
func PaymentRequired(c *gin.Context, err string) {
	fail(c, http.StatusPaymentRequired, err)
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	fail(c, http.StatusInternalServerError, err)
}

// Error maps an apperr kind to its status and writes the single message.
func Error(c *gin.Context, err error) {
	msg := apperr.Message(err)
	switch apperr.KindOf(err) {
	case apperr.KindNotAuthenticated:
		Unauthorized(c, msg)
	case apperr.KindPermissionDenied:
		Forbidden(c, msg)
	case apperr.KindNotFound:
		NotFound(c, msg)
	case apperr.KindValidation:
		BadRequest(c, msg)
	case apperr.KindInsufficientInventory:
		Conflict(c, msg)
	case apperr.KindPaymentMethodRequired, apperr.KindPaymentExecutionFailed:
		PaymentRequired(c, msg)
	default:
		Internal(c, msg)
	}
}
