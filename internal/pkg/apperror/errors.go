package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest   ErrorCode = "BAD_REQUEST"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeDatabase     ErrorCode = "DATABASE_ERROR"

	ErrCodeCapacity            ErrorCode = "CAPACITY_EXCEEDED"
	ErrCodeSubmissionRejected  ErrorCode = "SUBMISSION_REJECTED"
	ErrCodeSubmissionTransient ErrorCode = "SUBMISSION_TRANSIENT"
	ErrCodeSubmissionFatal     ErrorCode = "SUBMISSION_FATAL"
	ErrCodeSubmissionCancelled ErrorCode = "SUBMISSION_CANCELLED"
	ErrCodeUploadFailed        ErrorCode = "UPLOAD_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// Fields содержит ошибки по полям (имя поля -> сообщение), если они известны.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithFields возвращает копию ошибки с ошибками по полям.
func (e *AppError) WithFields(fields map[string]string) *AppError {
	cp := *e
	cp.Fields = make(map[string]string, len(fields))
	for k, v := range fields {
		cp.Fields[k] = v
	}
	return &cp
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest:
		return http.StatusBadRequest
	case ErrCodeValidation, ErrCodeSubmissionRejected:
		return http.StatusUnprocessableEntity
	case ErrCodeCapacity:
		return http.StatusRequestEntityTooLarge
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeSubmissionTransient:
		return http.StatusServiceUnavailable
	case ErrCodeSubmissionCancelled:
		return 499
	case ErrCodeUploadFailed, ErrCodeSubmissionFatal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf возвращает код ошибки или ErrCodeInternal для неизвестных ошибок.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

func IsNotFound(err error) bool {
	return Is(err, ErrCodeNotFound)
}

func IsForbidden(err error) bool {
	return Is(err, ErrCodeForbidden)
}

func IsValidation(err error) bool {
	return Is(err, ErrCodeValidation)
}

// IsRetryable сообщает, можно ли повторить ту же отправку без изменений.
func IsRetryable(err error) bool {
	return Is(err, ErrCodeSubmissionTransient)
}

var (
	ErrSessionNotFound = New(ErrCodeNotFound, "wizard session not found")
	ErrUnauthorized    = New(ErrCodeUnauthorized, "authorization required")
	ErrForbidden       = New(ErrCodeForbidden, "access denied")
)
