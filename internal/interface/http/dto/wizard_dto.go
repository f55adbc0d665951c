package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
	"github.com/ignatzorin/order-intake/internal/pkg/apperror"
	"github.com/ignatzorin/order-intake/internal/pricing"
	"github.com/ignatzorin/order-intake/internal/usecase/intake"
	"github.com/ignatzorin/order-intake/internal/validation"
)

// PatchWizardRequest - частичное обновление черновика. Отсутствующее поле не меняется.
type PatchWizardRequest struct {
	Title          *string `json:"title"`
	Subject        *string `json:"subject"`
	OrderType      *string `json:"order_type"`
	AcademicLevel  *string `json:"academic_level"`
	PageCount      *int    `json:"page_count"`
	Deadline       *string `json:"deadline"`
	Urgency        *string `json:"urgency"`
	Description    *string `json:"description"`
	Instructions   *string `json:"instructions"`
	CitationStyle  *string `json:"citation_style"`
	SourceCount    *int    `json:"source_count"`
	BudgetAmount   *string `json:"budget_amount"`
	BudgetIsManual *bool   `json:"budget_is_manual"`
	PaymentMethod  *string `json:"payment_method"`
}

// ToPatch разбирает запрос в патч. Ошибки формата возвращаются по полям.
func (r PatchWizardRequest) ToPatch() (entity.DraftPatch, intake.FieldErrors) {
	var p entity.DraftPatch
	errs := intake.FieldErrors{}

	text := func(key string, v *string, max int) *string {
		if v == nil {
			return nil
		}
		if err := validation.ValidateLength(fieldLabel(key), *v, 0, max); err != nil {
			errs[key] = err.Error()
			return nil
		}
		return v
	}
	label := func(key string, v *string) *string {
		return text(key, v, validation.MaxLabelLength)
	}

	p.Title = text(entity.FieldTitle, r.Title, validation.MaxTitleLength)
	p.Description = text(entity.FieldDescription, r.Description, validation.MaxDescriptionLength)
	p.Instructions = text(entity.FieldInstructions, r.Instructions, validation.MaxInstructionsLength)

	if v := label(entity.FieldSubject, r.Subject); v != nil {
		s := valueobject.ParseSubject(*v)
		p.Subject = &s
	}
	if v := label(entity.FieldOrderType, r.OrderType); v != nil {
		t := valueobject.ParseOrderType(*v)
		p.OrderType = &t
	}
	if v := label(entity.FieldAcademicLevel, r.AcademicLevel); v != nil {
		l := valueobject.ParseAcademicLevel(*v)
		p.AcademicLevel = &l
	}
	if v := label(entity.FieldCitationStyle, r.CitationStyle); v != nil {
		c := valueobject.ParseCitationStyle(*v)
		p.CitationStyle = &c
	}

	if r.PageCount != nil {
		if err := validation.ValidateRange("Page count", *r.PageCount, 0, validation.MaxPageCount); err != nil {
			errs[entity.FieldPageCount] = err.Error()
		} else {
			p.PageCount = r.PageCount
		}
	}
	if r.SourceCount != nil {
		if err := validation.ValidateRange("Number of sources", *r.SourceCount, 0, validation.MaxSourceCount); err != nil {
			errs[entity.FieldSourceCount] = err.Error()
		} else {
			p.SourceCount = r.SourceCount
		}
	}

	if r.Deadline != nil {
		deadline, err := ParseDeadline(*r.Deadline)
		if err != nil {
			errs[entity.FieldDeadline] = "Deadline must be an RFC 3339 timestamp"
		} else {
			p.Deadline = &deadline
		}
	}
	if r.Urgency != nil {
		u, err := valueobject.NewUrgencyTier(*r.Urgency)
		if err != nil {
			errs[entity.FieldUrgency] = message(err)
		} else {
			p.Urgency = &u
		}
	}
	if r.BudgetAmount != nil {
		amount, err := valueobject.NewBudgetAmount(*r.BudgetAmount)
		if err != nil {
			errs[entity.FieldBudgetAmount] = message(err)
		} else {
			p.BudgetAmount = &amount
		}
	}
	p.BudgetIsManual = r.BudgetIsManual
	if r.PaymentMethod != nil {
		m, err := valueobject.NewPaymentMethod(*r.PaymentMethod)
		if err != nil {
			errs[entity.FieldPaymentMethod] = message(err)
		} else {
			p.PaymentMethod = &m
		}
	}

	if len(errs) == 0 {
		return p, nil
	}
	return p, errs
}

// ParseDeadline принимает RFC 3339; время без зоны считается UTC.
func ParseDeadline(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, time.UTC)
}

func fieldLabel(key string) string {
	switch key {
	case entity.FieldTitle:
		return "Title"
	case entity.FieldDescription:
		return "Description"
	case entity.FieldInstructions:
		return "Instructions"
	case entity.FieldCitationStyle:
		return "Citation style"
	case entity.FieldOrderType:
		return "Order type"
	case entity.FieldAcademicLevel:
		return "Academic level"
	case entity.FieldSubject:
		return "Subject"
	}
	return key
}

func message(err error) string {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// RetryUploadsRequest - повтор загрузки. Пустой список означает все незагруженные файлы.
type RetryUploadsRequest struct {
	Names []string `json:"names"`
}

type LimitsResponse struct {
	MaxFiles int   `json:"max_files"`
	MaxBytes int64 `json:"max_bytes"`
}

// WizardResponse - снимок мастера для клиента.
type WizardResponse struct {
	ID              uuid.UUID           `json:"id"`
	Step            string              `json:"step"`
	StepIndex       int                 `json:"step_index"`
	Draft           entity.OrderDraft   `json:"draft"`
	FieldErrors     map[string]string   `json:"field_errors"`
	Submission      string              `json:"submission"`
	FailureReason   string              `json:"failure_reason,omitempty"`
	FailureMessage  string              `json:"failure_message,omitempty"`
	Retryable       bool                `json:"retryable"`
	OrderID         string              `json:"order_id,omitempty"`
	Uploads         []intake.FileResult `json:"uploads,omitempty"`
	Uploading       bool                `json:"uploading"`
	SuggestedBudget decimal.Decimal     `json:"suggested_budget"`
	Fees            pricing.Fees        `json:"fees"`
	Currency        string              `json:"currency"`
	Limits          LimitsResponse      `json:"limits"`
	Revision        uint64              `json:"revision"`
}

func WizardFromState(s intake.State) WizardResponse {
	fieldErrors := map[string]string(s.FieldErrors)
	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}
	return WizardResponse{
		ID:              s.ID,
		Step:            s.Step.String(),
		StepIndex:       int(s.Step),
		Draft:           s.Draft,
		FieldErrors:     fieldErrors,
		Submission:      string(s.Submission),
		FailureReason:   string(s.FailureReason),
		FailureMessage:  s.FailureMessage,
		Retryable:       s.FailureReason.Retryable(),
		OrderID:         s.OrderID,
		Uploads:         s.Uploads,
		Uploading:       s.Uploading,
		SuggestedBudget: s.SuggestedBudget,
		Fees:            s.Fees,
		Currency:        valueobject.BudgetCurrency,
		Limits:          LimitsResponse{MaxFiles: s.Limits.MaxFiles, MaxBytes: s.Limits.MaxBytes},
		Revision:        s.Revision,
	}
}

// SubmitResponse - итог отправки вместе с актуальным снимком.
type SubmitResponse struct {
	Outcome *intake.Outcome `json:"outcome"`
	Wizard  WizardResponse  `json:"wizard"`
}

// AttemptResponse - запись журнала отправок.
type AttemptResponse struct {
	Status    string    `json:"status"`
	OrderID   string    `json:"order_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func AttemptsFrom(attempts []intake.SubmissionAttempt) []AttemptResponse {
	out := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, AttemptResponse{
			Status:    string(a.Status),
			OrderID:   a.OrderID,
			Reason:    string(a.Reason),
			Message:   a.Message,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}
