package intake

import (
	"time"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/validation"
)

const (
	MsgTitleRequired         = "Title is required"
	MsgSubjectRequired       = "Subject is required"
	MsgOrderTypeRequired     = "Order type is required"
	MsgAcademicLevelRequired = "Academic level is required"
	MsgPageCountMin          = "Page count must be at least 1"
	MsgDeadlineRequired      = "Deadline is required"
	MsgDeadlineInPast        = "Deadline must be in the future"
	MsgDescriptionRequired   = "Description is required"
	MsgInstructionsRequired  = "Instructions are required"
	MsgCitationRequired      = "Citation style is required"
	MsgSourceCountNegative   = "Number of sources cannot be negative"
	MsgBudgetPositive        = "Budget must be greater than 0"
	MsgPaymentRequired       = "Payment method is required"
)

// Validate проверяет черновик по правилам шага. Никогда не паникует;
// отсутствие ключа означает, что поле корректно. Шаг Review проверяет
// черновик целиком, независимо от того, какие шаги были пройдены.
func Validate(d entity.OrderDraft, step valueobject.Step, now time.Time) FieldErrors {
	errs := FieldErrors{}
	switch step {
	case valueobject.StepDetails:
		validateDetails(d, now, errs)
	case valueobject.StepRequirements:
		validateRequirements(d, errs)
	case valueobject.StepFiles:
	case valueobject.StepPayment:
		validatePayment(d, errs)
	case valueobject.StepReview:
		validateDetails(d, now, errs)
		validateRequirements(d, errs)
		validatePayment(d, errs)
	}
	return errs
}

func validateDetails(d entity.OrderDraft, now time.Time, errs FieldErrors) {
	if validation.IsBlank(d.Title) {
		errs[entity.FieldTitle] = MsgTitleRequired
	}
	if validation.IsBlank(d.Subject.Label()) {
		errs[entity.FieldSubject] = MsgSubjectRequired
	}
	if validation.IsBlank(d.OrderType.Label()) {
		errs[entity.FieldOrderType] = MsgOrderTypeRequired
	}
	if validation.IsBlank(d.AcademicLevel.Label()) {
		errs[entity.FieldAcademicLevel] = MsgAcademicLevelRequired
	}
	if d.PageCount < 1 {
		errs[entity.FieldPageCount] = MsgPageCountMin
	}
	switch {
	case d.Deadline == nil || d.Deadline.IsZero():
		errs[entity.FieldDeadline] = MsgDeadlineRequired
	case !d.Deadline.After(now):
		errs[entity.FieldDeadline] = MsgDeadlineInPast
	}
}

func validateRequirements(d entity.OrderDraft, errs FieldErrors) {
	if validation.IsBlank(d.Description) {
		errs[entity.FieldDescription] = MsgDescriptionRequired
	}
	if validation.IsBlank(d.Instructions) {
		errs[entity.FieldInstructions] = MsgInstructionsRequired
	}
	if validation.IsBlank(d.CitationStyle.Label()) {
		errs[entity.FieldCitationStyle] = MsgCitationRequired
	}
	if d.SourceCount < 0 {
		errs[entity.FieldSourceCount] = MsgSourceCountNegative
	}
}

func validatePayment(d entity.OrderDraft, errs FieldErrors) {
	if d.BudgetAmount.Sign() <= 0 {
		errs[entity.FieldBudgetAmount] = MsgBudgetPositive
	}
	if d.PaymentMethod.IsEmpty() {
		errs[entity.FieldPaymentMethod] = MsgPaymentRequired
	}
}
