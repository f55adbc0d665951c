package valueobject

import (
	"strings"

	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

type UrgencyTier string

const (
	UrgencyStandard   UrgencyTier = "standard"
	UrgencyUrgent     UrgencyTier = "urgent"
	UrgencyVeryUrgent UrgencyTier = "very_urgent"
)

func (u UrgencyTier) IsValid() bool {
	switch u {
	case UrgencyStandard, UrgencyUrgent, UrgencyVeryUrgent:
		return true
	}
	return false
}

func NewUrgencyTier(value string) (UrgencyTier, error) {
	u := UrgencyTier(strings.ToLower(strings.TrimSpace(value)))
	if !u.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "unknown urgency tier")
	}
	return u, nil
}
