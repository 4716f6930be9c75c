package dto

import (
	"net/http"
	"testing"

	"eventide/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.KindNotFound, http.StatusNotFound},
		{apperr.KindDenied, http.StatusForbidden},
		{apperr.KindUnauthenticated, http.StatusUnauthorized},
		{apperr.KindCapacityExceeded, http.StatusConflict},
		{apperr.KindAlreadyRegistered, http.StatusConflict},
		{apperr.KindInvalidTransition, http.StatusConflict},
		{apperr.KindConflict, http.StatusConflict},
		{apperr.KindInvalidCode, http.StatusUnprocessableEntity},
		{apperr.KindInvalidForCheckIn, http.StatusUnprocessableEntity},
		{apperr.KindInvalid, http.StatusBadRequest},
		{apperr.KindTransient, http.StatusServiceUnavailable},
		{apperr.KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.kind); got != tt.want {
			t.Errorf("StatusFor(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}
