package intake

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

// FieldErrors - ошибки по полям черновика: ключ поля -> сообщение.
type FieldErrors map[string]string

func (f FieldErrors) clone() FieldErrors {
	out := make(FieldErrors, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Keys возвращает ключи в отсортированном порядке.
func (f FieldErrors) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidationError возвращается, когда шаг не прошёл проверку.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Keys(), ", ")
}

// CapacityError возвращается, когда вложения превышают лимит по числу или объёму.
type CapacityError struct {
	MaxFiles       int
	MaxBytes       int64
	AttemptedFiles int
	AttemptedBytes int64
}

func (e *CapacityError) Error() string {
	if e.AttemptedFiles > e.MaxFiles {
		return fmt.Sprintf("too many files: %d, limit is %d", e.AttemptedFiles, e.MaxFiles)
	}
	return fmt.Sprintf("attachments too large: %d bytes, limit is %d bytes", e.AttemptedBytes, e.MaxBytes)
}

var (
	ErrSubmissionInProgress = apperror.New(apperror.ErrCodeConflict, "submission is in progress")
	ErrAlreadySubmitted     = apperror.New(apperror.ErrCodeConflict, "order has already been submitted")
	ErrNotSubmitted         = apperror.New(apperror.ErrCodeConflict, "order has not been created yet")
	ErrFileNotFound         = apperror.New(apperror.ErrCodeNotFound, "attached file not found")
)

// ToAppError приводит ошибки мастера к apperror для транспортного слоя.
func ToAppError(err error) *apperror.AppError {
	if err == nil {
		return nil
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "please fix the highlighted fields").
			WithFields(validationErr.Fields)
	}
	var capacityErr *CapacityError
	if errors.As(err, &capacityErr) {
		return apperror.Wrap(err, apperror.ErrCodeCapacity, capacityErr.Error()).
			WithFields(map[string]string{entity.FieldAttachedFiles: capacityErr.Error()})
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.Wrap(err, apperror.ErrCodeInternal, "internal error")
}
