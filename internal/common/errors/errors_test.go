package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	cases := map[ErrorCode]int{
		ErrCodeInvalidRequestedGroupNo: http.StatusBadRequest,
		ErrCodeSponsorChildLimit:       http.StatusConflict,
		ErrCodeUsernameTaken:           http.StatusConflict,
		ErrCodeReferrerNotFound:        http.StatusNotFound,
		ErrCodeUnauthorized:            http.StatusUnauthorized,
		ErrCodeOTPNotEnabled:           http.StatusForbidden,
		ErrCodeTimeout:                 http.StatusGatewayTimeout,
		ErrCodeUnknown:                 http.StatusInternalServerError,
		ErrorCode("SOMETHING_NEW"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, StatusOf(code), code)
	}
}

func TestWithStatus_DoesNotMutateSentinel(t *testing.T) {
	base := New(ErrCodeValidation, "raced")
	conflict := base.WithStatus(http.StatusConflict)

	assert.Equal(t, http.StatusBadRequest, base.HTTPStatus())
	assert.Equal(t, http.StatusConflict, conflict.HTTPStatus())
	assert.True(t, conflict.IsInternal() == false)
}

func TestAsAppError_ThroughWrapping(t *testing.T) {
	inner := New(ErrCodeSponsorChildLimit, "full")
	wrapped := fmt.Errorf("placement: %w", inner)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeSponsorChildLimit, appErr.Code)
	assert.True(t, Is(wrapped, ErrCodeSponsorChildLimit))
	assert.Equal(t, ErrCodeSponsorChildLimit, CodeOf(wrapped, ErrCodeUnknown))
	assert.Equal(t, ErrCodeUnknown, CodeOf(stderrors.New("boom"), ErrCodeUnknown))
}

func TestErrorsIs_MatchesByCode(t *testing.T) {
	sentinel := New(ErrCodeInsufficientBalance, "insufficient balance")
	other := New(ErrCodeInsufficientBalance, "different message")

	assert.True(t, stderrors.Is(fmt.Errorf("tx: %w", other), sentinel))
	assert.False(t, stderrors.Is(New(ErrCodeInvalidOTP, "x"), sentinel))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewInternalError("load wallet", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.IsInternal())
	assert.Contains(t, err.Error(), "INTERNAL_ERROR")
	assert.Equal(t, "load wallet", err.Details["operation"])
}
