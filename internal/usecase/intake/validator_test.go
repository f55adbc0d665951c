package intake

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

func completeDraft() entity.OrderDraft {
	d := completePatch().ApplyTo(entity.NewOrderDraft())
	d.BudgetAmount = dec(75)
	return d
}

func TestValidate_CompleteDraftPassesEveryStep(t *testing.T) {
	d := completeDraft()
	for step := valueobject.FirstStep; step <= valueobject.LastStep; step++ {
		assert.Empty(t, Validate(d, step, testNow), step.String())
	}
}

func TestValidate_WhitespaceCountsAsEmpty(t *testing.T) {
	d := completeDraft()
	d.Title = "   \t"
	d.Description = "\n"

	assert.Equal(t, FieldErrors{entity.FieldTitle: MsgTitleRequired}, Validate(d, valueobject.StepDetails, testNow))
	assert.Equal(t, FieldErrors{entity.FieldDescription: MsgDescriptionRequired}, Validate(d, valueobject.StepRequirements, testNow))
}

func TestValidate_PageCount(t *testing.T) {
	for _, pages := range []int{0, -3} {
		d := completeDraft()
		d.PageCount = pages
		assert.Equal(t, MsgPageCountMin, Validate(d, valueobject.StepDetails, testNow)[entity.FieldPageCount])
	}
}

func TestValidate_Deadline(t *testing.T) {
	d := completeDraft()
	d.Deadline = nil
	assert.Equal(t, MsgDeadlineRequired, Validate(d, valueobject.StepDetails, testNow)[entity.FieldDeadline])

	past := testNow.Add(-time.Minute)
	d.Deadline = &past
	assert.Equal(t, MsgDeadlineInPast, Validate(d, valueobject.StepDetails, testNow)[entity.FieldDeadline])
	assert.Equal(t, MsgDeadlineInPast, Validate(d, valueobject.StepReview, testNow)[entity.FieldDeadline])

	exact := testNow
	d.Deadline = &exact
	assert.Equal(t, MsgDeadlineInPast, Validate(d, valueobject.StepDetails, testNow)[entity.FieldDeadline])
}

func TestValidate_FilesStepHasNoRules(t *testing.T) {
	assert.Empty(t, Validate(entity.OrderDraft{}, valueobject.StepFiles, testNow))
}

func TestValidate_Payment(t *testing.T) {
	d := completeDraft()
	d.BudgetAmount = dec(0)
	d.PaymentMethod = ""

	assert.Equal(t, FieldErrors{
		entity.FieldBudgetAmount:  MsgBudgetPositive,
		entity.FieldPaymentMethod: MsgPaymentRequired,
	}, Validate(d, valueobject.StepPayment, testNow))
}

func TestValidate_NegativeSources(t *testing.T) {
	d := completeDraft()
	d.SourceCount = -1
	assert.Equal(t, FieldErrors{entity.FieldSourceCount: MsgSourceCountNegative}, Validate(d, valueobject.StepRequirements, testNow))
}

func TestValidate_ReviewIsUnionOfAllSteps(t *testing.T) {
	errs := Validate(entity.OrderDraft{}, valueobject.StepReview, testNow)

	assert.Equal(t, []string{
		entity.FieldAcademicLevel,
		entity.FieldBudgetAmount,
		entity.FieldCitationStyle,
		entity.FieldDeadline,
		entity.FieldDescription,
		entity.FieldInstructions,
		entity.FieldOrderType,
		entity.FieldPageCount,
		entity.FieldPaymentMethod,
		entity.FieldSubject,
		entity.FieldTitle,
	}, errs.Keys())
}

func TestValidate_UnknownStep(t *testing.T) {
	assert.Empty(t, Validate(entity.OrderDraft{}, valueobject.Step(42), testNow))
}
