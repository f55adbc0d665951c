package valueobject

import (
	"strings"

	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

// PaymentMethod - предпочитаемый способ оплаты. Само списание в этом сервисе не выполняется.
type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

func (p PaymentMethod) IsEmpty() bool { return p == "" }

// NewPaymentMethod разбирает способ оплаты; пустая строка сбрасывает выбор.
func NewPaymentMethod(value string) (PaymentMethod, error) {
	p := PaymentMethod(strings.ToLower(strings.TrimSpace(value)))
	if p == "" {
		return "", nil
	}
	if !p.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "unknown payment method")
	}
	return p, nil
}
