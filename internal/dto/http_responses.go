package dto

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"eventide/internal/apperr"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."
)

type Response struct {
	Status   string   `json:"status"`
	Error    *Error   `json:"error,omitempty"`
	Data     any      `json:"data,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

// StatusFor maps an error kind onto its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDenied:
		return http.StatusForbidden
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindCapacityExceeded, apperr.KindAlreadyRegistered, apperr.KindInvalidTransition, apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindInvalidCode, apperr.KindInvalidForCheckIn:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindTransient:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ErrorResponse writes err in the envelope. Internal errors never leak
// their cause.
func ErrorResponse(c *ginext.Context, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if status == http.StatusInternalServerError {
		InternalServerError(c)
		return
	}
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: string(kind),
			Desc: apperr.ReasonOf(err),
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func FieldBadFormatError(c *ginext.Context, fieldName string) {
	BadResponseError(c, FieldBadFormat, "Field '"+fieldName+"' has bad format")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any, warnings ...string) {
	c.JSON(http.StatusCreated, Response{
		Status:   "ok",
		Data:     data,
		Warnings: warnings,
	})
}
