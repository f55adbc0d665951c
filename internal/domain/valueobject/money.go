package valueobject

import (
	"strings"

	"github.com/govalues/decimal"

	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
)

// BudgetCurrency - валюта бюджета и оценок.
const BudgetCurrency = "USD"

// NewBudgetAmount разбирает сумму бюджета. Ноль допустим при вводе,
// положительность проверяется на шаге оплаты.
func NewBudgetAmount(value string) (decimal.Decimal, error) {
	amount, err := decimal.Parse(strings.TrimSpace(value))
	if err != nil {
		return decimal.Decimal{}, apperror.Wrap(err, apperror.ErrCodeValidation, "budget must be a number")
	}
	if amount.Sign() < 0 {
		return decimal.Decimal{}, apperror.New(apperror.ErrCodeValidation, "budget cannot be negative")
	}
	return amount, nil
}
