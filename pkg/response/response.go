package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the JSON shape every endpoint responds with. Status is
// always "success" or "error".
type Envelope[T any] struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    T           `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

// Success writes a success envelope with the given status code.
func Success[T any](c *gin.Context, status int, data T, message string) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, Envelope[T]{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// Error writes an error envelope with the given status code. Details is
// optional structured information (e.g. field validation messages); raw
// error objects are never echoed to clients.
func Error(c *gin.Context, status int, message string, details interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, Envelope[any]{
		Status:  StatusError,
		Message: message,
		Error:   details,
	})
}

// AbortError writes an error envelope and aborts the handler chain. Used
// by middleware.
func AbortError(c *gin.Context, status int, message string, details interface{}) {
	if status == 0 {
		status = http.StatusBadRequest
	}
	c.AbortWithStatusJSON(status, Envelope[any]{
		Status:  StatusError,
		Message: message,
		Error:   details,
	})
}
