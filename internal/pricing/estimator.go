// Package pricing считает предварительную оценку стоимости заказа.
// Все функции чистые и детерминированные.
package pricing

import (
	"fmt"

	"github.com/govalues/decimal"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

// BasePricePerPage - базовая цена страницы в целых единицах валюты.
const BasePricePerPage = 15

// Множители хранятся в сотых долях, чтобы расчёт шёл в целых числах без потерь.
const multiplierScale = 100

func urgencyMultiplier(u valueobject.UrgencyTier) int64 {
	switch u {
	case valueobject.UrgencyUrgent:
		return 150
	case valueobject.UrgencyVeryUrgent:
		return 200
	default:
		return 100
	}
}

func levelMultiplier(level valueobject.AcademicLevel) int64 {
	switch level.Code {
	case valueobject.AcademicLevelPhD:
		return 150
	case valueobject.AcademicLevelGraduate, valueobject.AcademicLevelMasters:
		return 130
	default:
		return 100
	}
}

// Estimate возвращает round(pages * 15 * urgency * level) с округлением половины вверх.
func Estimate(pages int, urgency valueobject.UrgencyTier, level valueobject.AcademicLevel) decimal.Decimal {
	if pages < 0 {
		pages = 0
	}
	const denom = multiplierScale * multiplierScale
	raw := int64(pages) * BasePricePerPage * urgencyMultiplier(urgency) * levelMultiplier(level)
	rounded := (raw + denom/2) / denom
	return decimal.MustNew(rounded, 0)
}

// ServiceFeeRate - доля сервисного сбора (5%).
var ServiceFeeRate = decimal.MustNew(5, 2)

// Fees - производные суммы для экрана оплаты и обзора. В черновик не сохраняются.
type Fees struct {
	Budget     decimal.Decimal `json:"budget"`
	ServiceFee decimal.Decimal `json:"service_fee"`
	Total      decimal.Decimal `json:"total"`
}

// CalculateFees считает serviceFee = round(budget * 0.05) и total = budget + serviceFee.
func CalculateFees(budget decimal.Decimal) (Fees, error) {
	raw, err := budget.Mul(ServiceFeeRate)
	if err != nil {
		return Fees{}, fmt.Errorf("pricing: не удалось посчитать сбор: %w", err)
	}
	fee, err := roundHalfUp(raw)
	if err != nil {
		return Fees{}, err
	}
	total, err := budget.Add(fee)
	if err != nil {
		return Fees{}, fmt.Errorf("pricing: не удалось посчитать итог: %w", err)
	}
	return Fees{Budget: budget, ServiceFee: fee, Total: total}, nil
}

// roundHalfUp округляет до целого, половину - от нуля.
func roundHalfUp(d decimal.Decimal) (decimal.Decimal, error) {
	half := decimal.MustNew(5, 1)
	if d.Sign() < 0 {
		half = half.Neg()
	}
	shifted, err := d.Add(half)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("pricing: ошибка округления: %w", err)
	}
	return shifted.Trunc(0), nil
}
