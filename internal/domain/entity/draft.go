package entity

import (
	"time"

	"github.com/govalues/decimal"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

// Ключи полей черновика. Используются в ошибках валидации и в patch-запросах.
const (
	FieldTitle          = "title"
	FieldSubject        = "subject"
	FieldOrderType      = "order_type"
	FieldAcademicLevel  = "academic_level"
	FieldPageCount      = "page_count"
	FieldDeadline       = "deadline"
	FieldUrgency        = "urgency"
	FieldDescription    = "description"
	FieldInstructions   = "instructions"
	FieldCitationStyle  = "citation_style"
	FieldSourceCount    = "source_count"
	FieldAttachedFiles  = "attached_files"
	FieldBudgetAmount   = "budget_amount"
	FieldBudgetIsManual = "budget_is_manual"
	FieldPaymentMethod  = "payment_method"
)

// AttachedFile описывает файл, подготовленный к загрузке после создания заказа.
type AttachedFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	MediaType   string `json:"media_type"`
	StoragePath string `json:"-"`
}

// OrderDraft - черновик заказа, который собирает мастер.
type OrderDraft struct {
	Title          string                    `json:"title"`
	Subject        valueobject.Subject       `json:"subject"`
	OrderType      valueobject.OrderType     `json:"order_type"`
	AcademicLevel  valueobject.AcademicLevel `json:"academic_level"`
	PageCount      int                       `json:"page_count"`
	Deadline       *time.Time                `json:"deadline,omitempty"`
	Urgency        valueobject.UrgencyTier   `json:"urgency"`
	Description    string                    `json:"description"`
	Instructions   string                    `json:"instructions"`
	CitationStyle  valueobject.CitationStyle `json:"citation_style"`
	SourceCount    int                       `json:"source_count"`
	AttachedFiles  []AttachedFile            `json:"attached_files"`
	BudgetAmount   decimal.Decimal           `json:"budget_amount"`
	BudgetIsManual bool                      `json:"budget_is_manual"`
	PaymentMethod  valueobject.PaymentMethod `json:"payment_method"`
}

// NewOrderDraft создаёт пустой черновик: одна страница, стандартная срочность.
// Бюджет заполняет владелец черновика по текущей оценке.
func NewOrderDraft() OrderDraft {
	return OrderDraft{
		PageCount:     1,
		Urgency:       valueobject.UrgencyStandard,
		AttachedFiles: []AttachedFile{},
	}
}

// Clone возвращает копию без общих ссылок.
func (d OrderDraft) Clone() OrderDraft {
	cp := d
	if d.Deadline != nil {
		dl := *d.Deadline
		cp.Deadline = &dl
	}
	cp.AttachedFiles = make([]AttachedFile, len(d.AttachedFiles))
	copy(cp.AttachedFiles, d.AttachedFiles)
	return cp
}

// TotalAttachmentBytes возвращает суммарный размер вложений.
func (d OrderDraft) TotalAttachmentBytes() int64 {
	return TotalBytes(d.AttachedFiles)
}

// FindFile ищет вложение по имени.
func (d OrderDraft) FindFile(name string) (AttachedFile, bool) {
	for _, f := range d.AttachedFiles {
		if f.Name == name {
			return f, true
		}
	}
	return AttachedFile{}, false
}

// HasDuplicateNames сообщает, повторяется ли имя файла в списке.
func HasDuplicateNames(files []AttachedFile) bool {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if _, dup := seen[f.Name]; dup {
			return true
		}
		seen[f.Name] = struct{}{}
	}
	return false
}

func TotalBytes(files []AttachedFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

// DraftPatch - частичное обновление черновика. nil означает «поле не меняется».
type DraftPatch struct {
	Title          *string
	Subject        *valueobject.Subject
	OrderType      *valueobject.OrderType
	AcademicLevel  *valueobject.AcademicLevel
	PageCount      *int
	Deadline       *time.Time
	Urgency        *valueobject.UrgencyTier
	Description    *string
	Instructions   *string
	CitationStyle  *valueobject.CitationStyle
	SourceCount    *int
	AttachedFiles  *[]AttachedFile
	BudgetAmount   *decimal.Decimal
	BudgetIsManual *bool
	PaymentMethod  *valueobject.PaymentMethod
}

// Keys возвращает ключи полей, присутствующих в патче.
func (p DraftPatch) Keys() []string {
	var keys []string
	add := func(present bool, key string) {
		if present {
			keys = append(keys, key)
		}
	}
	add(p.Title != nil, FieldTitle)
	add(p.Subject != nil, FieldSubject)
	add(p.OrderType != nil, FieldOrderType)
	add(p.AcademicLevel != nil, FieldAcademicLevel)
	add(p.PageCount != nil, FieldPageCount)
	add(p.Deadline != nil, FieldDeadline)
	add(p.Urgency != nil, FieldUrgency)
	add(p.Description != nil, FieldDescription)
	add(p.Instructions != nil, FieldInstructions)
	add(p.CitationStyle != nil, FieldCitationStyle)
	add(p.SourceCount != nil, FieldSourceCount)
	add(p.AttachedFiles != nil, FieldAttachedFiles)
	add(p.BudgetAmount != nil, FieldBudgetAmount)
	add(p.BudgetIsManual != nil, FieldBudgetIsManual)
	add(p.PaymentMethod != nil, FieldPaymentMethod)
	return keys
}

// TouchesPricing сообщает, меняет ли патч входы оценки стоимости.
func (p DraftPatch) TouchesPricing() bool {
	return p.PageCount != nil || p.Urgency != nil || p.AcademicLevel != nil
}

// ApplyTo сливает патч в черновик и возвращает результат.
func (p DraftPatch) ApplyTo(d OrderDraft) OrderDraft {
	out := d.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Subject != nil {
		out.Subject = *p.Subject
	}
	if p.OrderType != nil {
		out.OrderType = *p.OrderType
	}
	if p.AcademicLevel != nil {
		out.AcademicLevel = *p.AcademicLevel
	}
	if p.PageCount != nil {
		out.PageCount = *p.PageCount
	}
	if p.Deadline != nil {
		dl := *p.Deadline
		out.Deadline = &dl
	}
	if p.Urgency != nil {
		out.Urgency = *p.Urgency
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	if p.Instructions != nil {
		out.Instructions = *p.Instructions
	}
	if p.CitationStyle != nil {
		out.CitationStyle = *p.CitationStyle
	}
	if p.SourceCount != nil {
		out.SourceCount = *p.SourceCount
	}
	if p.AttachedFiles != nil {
		out.AttachedFiles = make([]AttachedFile, len(*p.AttachedFiles))
		copy(out.AttachedFiles, *p.AttachedFiles)
	}
	if p.BudgetAmount != nil {
		out.BudgetAmount = *p.BudgetAmount
		out.BudgetIsManual = true
	}
	if p.BudgetIsManual != nil {
		out.BudgetIsManual = *p.BudgetIsManual
	}
	if p.PaymentMethod != nil {
		out.PaymentMethod = *p.PaymentMethod
	}
	return out
}
