package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := New(ErrorTypeValidation, "path is required", http.StatusBadRequest)

		assert.Equal(t, "VALIDATION_ERROR: path is required", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("message with cause", func(t *testing.T) {
		cause := errors.New("dial tcp 10.0.0.9:80: connection refused")
		err := WrapBadGateway(cause, "Origin unreachable")

		assert.Equal(t, ErrorTypeBadGateway, err.Type)
		assert.Equal(t, http.StatusBadGateway, err.HTTPStatus)
		assert.Same(t, cause, err.Unwrap())
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("code and details chain", func(t *testing.T) {
		err := WrapUnprocessableSegment(errors.New("short"), "Segment truncated").
			WithCode(CodeTruncatedBox).
			WithDetails(map[string]interface{}{"offset": 24})

		assert.Equal(t, CodeTruncatedBox, err.Code)
		assert.Equal(t, 24, err.Details["offset"])
		assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad client"), ErrorTypeValidation, http.StatusBadRequest},
		{"not found", NewNotFoundError("segment"), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("oops"), ErrorTypeInternal, http.StatusInternalServerError},
		{"unprocessable", WrapUnprocessableSegment(errors.New("x"), "bad moof"), ErrorTypeUnprocessable, http.StatusUnprocessableEntity},
		{"bad gateway", WrapBadGateway(errors.New("x"), "origin down"), ErrorTypeBadGateway, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.err.Type)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestGetAppErrorWalksChain(t *testing.T) {
	appErr := NewNotFoundError("ad asset")
	wrapped := fmt.Errorf("fetch AD003/0-38304770.m4s: %w", appErr)

	assert.True(t, IsAppError(wrapped))
	got, ok := GetAppError(wrapped)
	assert.True(t, ok)
	assert.Same(t, appErr, got)

	got, ok = GetAppError(errors.New("plain"))
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.False(t, IsAppError(nil))
}

func TestWrapInternalError(t *testing.T) {
	cause := errors.New("allow-list snapshot missing")
	err := WrapInternalError(cause, "Decision failed")

	assert.Equal(t, ErrorTypeInternal, err.Type)
	assert.Equal(t, "Decision failed", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus)
	assert.ErrorIs(t, err, cause)
}
