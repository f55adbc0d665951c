package vocabulary

import (
	"strings"
	"time"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
)

// InstructionsSeparator разделяет описание и инструкции в исходящем поле instructions.
const InstructionsSeparator = "\n\n"

// OrderRequest - исходящее представление заказа для сервиса создания заказов.
type OrderRequest struct {
	Title        string `json:"title"`
	Subject      string `json:"subject"`
	Type         string `json:"type"`
	Level        string `json:"level"`
	MinPages     int    `json:"min_pages"`
	MaxPages     int    `json:"max_pages"`
	Deadline     string `json:"deadline"`
	Instructions string `json:"instructions"`
	Style        string `json:"style"`
	Sources      int    `json:"sources"`
	Urgency      string `json:"urgency"`
	Language     string `json:"language"`
}

// Map переводит черновик в канонический словарь. Никогда не завершается ошибкой:
// неизвестные метки получают fallback-токены.
func Map(d entity.OrderDraft, t *Table) OrderRequest {
	if t == nil {
		t = Builtin()
	}
	var deadline string
	if d.Deadline != nil {
		deadline = d.Deadline.UTC().Format(time.RFC3339)
	}
	return OrderRequest{
		Title:        d.Title,
		Subject:      t.Subject(d.Subject),
		Type:         t.OrderType(d.OrderType),
		Level:        t.AcademicLevel(d.AcademicLevel),
		MinPages:     d.PageCount,
		MaxPages:     d.PageCount,
		Deadline:     deadline,
		Instructions: MergeInstructions(d.Description, d.Instructions),
		Style:        t.CitationStyle(d.CitationStyle),
		Sources:      d.SourceCount,
		Urgency:      t.Urgency(d.Urgency),
		Language:     Language,
	}
}

// MergeInstructions склеивает описание и инструкции без изменений текста.
func MergeInstructions(description, instructions string) string {
	return description + InstructionsSeparator + instructions
}

// SplitInstructions разбирает склеенное поле по первому разделителю.
func SplitInstructions(merged string) (description, instructions string) {
	description, instructions, _ = strings.Cut(merged, InstructionsSeparator)
	return description, instructions
}

// WireFieldToDraftField переводит имя поля из ответа сервиса заказов в ключ черновика.
func WireFieldToDraftField(wire string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(wire)) {
	case "title":
		return entity.FieldTitle, true
	case "subject":
		return entity.FieldSubject, true
	case "type":
		return entity.FieldOrderType, true
	case "level":
		return entity.FieldAcademicLevel, true
	case "min_pages", "max_pages", "pages":
		return entity.FieldPageCount, true
	case "deadline":
		return entity.FieldDeadline, true
	case "instructions":
		return entity.FieldInstructions, true
	case "style":
		return entity.FieldCitationStyle, true
	case "sources":
		return entity.FieldSourceCount, true
	case "urgency":
		return entity.FieldUrgency, true
	}
	return "", false
}
