package errors

import (
	"fmt"
	"os"
)

// Standard error codes
const (
	ErrInvalidRequest      = 400
	ErrUnauthorized        = 401
	ErrForbidden           = 403
	ErrNotFound            = 404
	ErrConflict            = 409
	ErrInternalServerError = 500
	ErrServiceUnavailable  = 503

	// Domain error codes (1000+)
	ErrBetTooSmall           = 1001
	ErrBetTooLarge           = 1002
	ErrCapacityExceeded      = 1003
	ErrInsufficientLiquidity = 1004
	ErrDustDeposit           = 1005
	ErrWithdrawClosed        = 1006
	ErrEpochClosed           = 1007
	ErrEpochNotFinalizable   = 1008
	ErrTransferFailed        = 1009
	ErrBetNotFound           = 1010
	ErrBetSettled            = 1011
	ErrRefundTooEarly        = 1012
	ErrNotOriginator         = 1013
	ErrEnginePaused          = 1014
	ErrReservationUnknown    = 1015
	ErrRedisError            = 1016
	ErrKafkaError            = 1017
	ErrConfigError           = 1018
)

// AppError represents a custom application error
type AppError struct {
	Code         int    `json:"code"`
	Message      string `json:"message"`
	DebugMessage string `json:"debug_message,omitempty"`
	Err          error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.DebugMessage != "" {
		return fmt.Sprintf("[%d] %s: %s", e.Code, e.Message, e.DebugMessage)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s [%v]", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// NewWithDebug creates a new AppError with a debug message
func NewWithDebug(code int, message string, debugMessage string) *AppError {
	return &AppError{
		Code:         code,
		Message:      message,
		DebugMessage: debugMessage,
	}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Response returns a map suitable for JSON response
func (e *AppError) Response() map[string]interface{} {
	response := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}

	// Include debug message in development environment
	env := os.Getenv("APP_ENV")
	if (env == "dev" || env == "development") && e.DebugMessage != "" {
		response["debug_message"] = e.DebugMessage
	}

	return response
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode extracts error code from an error
func GetCode(err error) int {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrInternalServerError
}

// Is reports whether err is an AppError carrying the given code
func Is(err error, code int) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

// HTTPStatusFromCode maps error codes to HTTP status codes
func HTTPStatusFromCode(code int) int {
	switch code {
	case ErrInvalidRequest, ErrBetTooSmall, ErrBetTooLarge, ErrDustDeposit,
		ErrRefundTooEarly:
		return 400
	case ErrUnauthorized:
		return 401
	case ErrForbidden, ErrNotOriginator:
		return 403
	case ErrNotFound, ErrBetNotFound, ErrReservationUnknown:
		return 404
	case ErrConflict, ErrBetSettled, ErrCapacityExceeded, ErrInsufficientLiquidity,
		ErrWithdrawClosed, ErrEpochClosed, ErrEpochNotFinalizable:
		return 409
	case ErrEnginePaused, ErrServiceUnavailable:
		return 503
	case ErrTransferFailed, ErrRedisError, ErrKafkaError:
		return 502
	default:
		return 500
	}
}
