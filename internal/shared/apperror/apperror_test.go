package apperror_test

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"testing"

	"go-hris-leave/internal/shared/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestToHTTP(t *testing.T) {
	t.Run("app error keeps its status and code", func(t *testing.T) {
		err := apperror.New(apperror.CodeLeaveOverlap, "overlap", http.StatusBadRequest)

		got := apperror.ToHTTP(err)

		assert.Equal(t, http.StatusBadRequest, got.Status)
		assert.Equal(t, apperror.CodeLeaveOverlap, got.Code)
		assert.Equal(t, "overlap", got.Message)
	})

	t.Run("wrapped app error is unwrapped", func(t *testing.T) {
		err := fmt.Errorf("approve: %w", apperror.ErrForbidden)

		got := apperror.ToHTTP(err)

		assert.Equal(t, http.StatusForbidden, got.Status)
		assert.Equal(t, apperror.CodeForbidden, got.Code)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		got := apperror.ToHTTP(errors.New("pq: connection reset"))

		assert.Equal(t, http.StatusInternalServerError, got.Status)
		assert.Equal(t, apperror.CodeInternalError, got.Code)
		assert.NotContains(t, got.Message, "pq")
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("boom")
	err := apperror.Wrap(cause, apperror.CodeInternalError, "failed", http.StatusInternalServerError)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed: boom", err.Error())
	assert.Nil(t, apperror.Wrap(nil, apperror.CodeInternalError, "failed", http.StatusInternalServerError))
}

func TestAppError_Copies(t *testing.T) {
	sentinel := apperror.New(apperror.CodeInsufficientBalance, "insufficient leave balance", http.StatusBadRequest)
	other := apperror.New(apperror.CodeInsufficientBalance, "something else", http.StatusBadRequest)

	detailed := sentinel.WithDetails(map[string]string{"remaining_days": "1.0"})
	assert.ErrorIs(t, detailed, sentinel)
	assert.NotErrorIs(t, detailed, other)
	assert.Nil(t, sentinel.Details)
	assert.Equal(t, map[string]string{"remaining_days": "1.0"}, apperror.ToHTTP(detailed).Details)

	cause := errors.New("lock timeout")
	caused := sentinel.WithCause(cause)
	assert.ErrorIs(t, caused, sentinel)
	assert.ErrorIs(t, caused, cause)
	assert.Equal(t, "insufficient leave balance", apperror.ToHTTP(caused).Message)
}

func TestMapValidationError(t *testing.T) {
	type payload struct {
		LeaveTypeID string `json:"leave_type_id" validate:"required"`
		StartDate   string `json:"start_date" validate:"required,len=10"`
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string { return fld.Tag.Get("json") })

	t.Run("required field", func(t *testing.T) {
		err := apperror.MapValidationError(v.Struct(payload{StartDate: "2026-01-05"}))

		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Leave Type Id is required", appErr.Message)
		assert.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)
	})

	t.Run("invalid field", func(t *testing.T) {
		err := apperror.MapValidationError(v.Struct(payload{LeaveTypeID: "x", StartDate: "2026"}))

		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, "Start Date is invalid", appErr.Message)
	})

	t.Run("non validator error", func(t *testing.T) {
		err := apperror.MapValidationError(errors.New("EOF"))

		var appErr *apperror.AppError
		assert.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperror.CodeValidation, appErr.Code)
	})
}
