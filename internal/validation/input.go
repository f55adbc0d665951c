package validation

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ограничения на входные данные мастера. Обязательность полей проверяет
// валидатор шагов; здесь только защита от заведомо некорректного ввода.
const (
	MaxTitleLength        = 200
	MaxLabelLength        = 100
	MaxDescriptionLength  = 5000
	MaxInstructionsLength = 10000
	MaxPageCount          = 500
	MaxSourceCount        = 200
	MaxFileNameLength     = 255
)

// IsBlank сообщает, что строка пустая или состоит только из пробельных символов.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// ValidateLength проверяет длину строки в символах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateRange проверяет, что число лежит в [min, max].
func ValidateRange(fieldName string, value, min, max int) error {
	if value < min || value > max {
		return fmt.Errorf("%s must be between %d and %d", fieldName, min, max)
	}
	return nil
}

// SanitizeFileName оставляет только базовое имя файла без управляющих символов.
// Пустой результат означает, что имя непригодно.
func SanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '/' {
			return -1
		}
		return r
	}, base)
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > MaxFileNameLength {
		runes := []rune(cleaned)
		cleaned = string(runes[:MaxFileNameLength])
	}
	return cleaned
}
