package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"
)

// ErrorCode is the stable tag sent to clients in the "code" field.
type ErrorCode string

const (
	// Generic
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeUnknown      ErrorCode = "UNKNOWN"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTH"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMITED"
	ErrCodeTimeout      ErrorCode = "UPSTREAM_TIMEOUT"

	// Signup and auth
	ErrCodeUsernameTaken           ErrorCode = "USERNAME_TAKEN"
	ErrCodeEmailTaken              ErrorCode = "EMAIL_TAKEN"
	ErrCodeCountryCodeInvalid      ErrorCode = "COUNTRY_CODE_INVALID"
	ErrCodeCountryNotFound         ErrorCode = "COUNTRY_NOT_FOUND"
	ErrCodeReferrerRequired        ErrorCode = "REFERRER_REQUIRED"
	ErrCodeReferrerNotFound        ErrorCode = "REFERRER_NOT_FOUND"
	ErrCodeSponsorRequired         ErrorCode = "SPONSOR_REQUIRED"
	ErrCodeSponsorNotFound         ErrorCode = "SPONSOR_NOT_FOUND"
	ErrCodeSponsorChildLimit       ErrorCode = "SPONSOR_CHILD_LIMIT_REACHED"
	ErrCodeInvalidRequestedGroupNo ErrorCode = "INVALID_REQUESTED_GROUP_NO"
	ErrCodeInvalidCredentials      ErrorCode = "INVALID_CREDENTIALS"

	// Wallet and staking
	ErrCodeInvalidAmount       ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidToken        ErrorCode = "INVALID_TOKEN"
	ErrCodeWalletNotFound      ErrorCode = "USER_WALLET_NOT_FOUND"
	ErrCodeOTPNotEnabled       ErrorCode = "OTP_NOT_ENABLED"
	ErrCodeInvalidOTP          ErrorCode = "INVALID_OTP"
	ErrCodeNoWithdrawAddress   ErrorCode = "NO_WITHDRAW_ADDRESS"
	ErrCodeInvalidAddress      ErrorCode = "INVALID_ADDRESS"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeInsufficientFunds   ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodePackageNotFound     ErrorCode = "PACKAGE_NOT_FOUND"
)

var defaultStatus = map[ErrorCode]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodeUnknown:      http.StatusInternalServerError,
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeRateLimit:    http.StatusTooManyRequests,
	ErrCodeTimeout:      http.StatusGatewayTimeout,

	ErrCodeUsernameTaken:           http.StatusConflict,
	ErrCodeEmailTaken:              http.StatusConflict,
	ErrCodeCountryCodeInvalid:      http.StatusBadRequest,
	ErrCodeCountryNotFound:         http.StatusBadRequest,
	ErrCodeReferrerRequired:        http.StatusBadRequest,
	ErrCodeReferrerNotFound:        http.StatusNotFound,
	ErrCodeSponsorRequired:         http.StatusBadRequest,
	ErrCodeSponsorNotFound:         http.StatusNotFound,
	ErrCodeSponsorChildLimit:       http.StatusConflict,
	ErrCodeInvalidRequestedGroupNo: http.StatusBadRequest,
	ErrCodeInvalidCredentials:      http.StatusUnauthorized,

	ErrCodeInvalidAmount:       http.StatusBadRequest,
	ErrCodeInvalidToken:        http.StatusBadRequest,
	ErrCodeWalletNotFound:      http.StatusNotFound,
	ErrCodeOTPNotEnabled:       http.StatusForbidden,
	ErrCodeInvalidOTP:          http.StatusBadRequest,
	ErrCodeNoWithdrawAddress:   http.StatusBadRequest,
	ErrCodeInvalidAddress:      http.StatusBadRequest,
	ErrCodeInsufficientBalance: http.StatusBadRequest,
	ErrCodeInsufficientFunds:   http.StatusBadRequest,
	ErrCodePackageNotFound:     http.StatusNotFound,
}

// AppError is a typed application error carrying a client-facing code.
type AppError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Stack     []string               `json:"-"`
	Timestamp time.Time              `json:"-"`
	Status    int                    `json:"-"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another *AppError by code, so sentinel values work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// HTTPStatus returns the explicit status if set, otherwise the default for the code.
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return StatusOf(e.Code)
}

// IsInternal reports whether the error should be logged as a server fault.
func (e *AppError) IsInternal() bool {
	return e.HTTPStatus() >= http.StatusInternalServerError
}

// WithDetail adds a detail entry.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithStatus returns a copy of e that renders with the given HTTP status.
func (e *AppError) WithStatus(status int) *AppError {
	cp := *e
	cp.Status = status
	return &cp
}

// New creates an application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Stack:     getStackTrace(),
	}
}

// Wrap wraps err under code.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps err under code with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// StatusOf returns the default HTTP status for a code.
func StatusOf(code ErrorCode) int {
	if s, ok := defaultStatus[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// AsAppError finds the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of err, or fallback when err carries none.
func CodeOf(err error, fallback ErrorCode) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return fallback
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func getStackTrace() []string {
	var stack []string
	for i := 2; ; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		if strings.Contains(fn.Name(), "internal/common/errors") {
			continue
		}
		stack = append(stack, fmt.Sprintf("%s:%d %s", file, line, fn.Name()))
		if len(stack) >= 10 {
			break
		}
	}
	return stack
}

// NewValidationError reports an invalid field.
func NewValidationError(field, reason string) *AppError {
	return New(ErrCodeValidation, fmt.Sprintf("validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource)
}

// NewUnauthorizedError reports a missing or invalid identity.
func NewUnauthorizedError(reason string) *AppError {
	return New(ErrCodeUnauthorized, reason)
}

// NewForbiddenError reports an authenticated caller without access.
func NewForbiddenError(reason string) *AppError {
	return New(ErrCodeForbidden, reason)
}

// NewInternalError wraps an infrastructure failure.
func NewInternalError(operation string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, fmt.Sprintf("%s failed", operation)).
		WithDetail("operation", operation)
}
