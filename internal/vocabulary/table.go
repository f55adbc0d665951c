package vocabulary

import (
	"strings"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

// Entry - запись словаря из внешнего источника: метка интерфейса и канонический токен.
type Entry struct {
	Kind  Kind   `db:"kind" yaml:"kind" json:"kind"`
	Label string `db:"label" yaml:"label" json:"label"`
	Token string `db:"token" yaml:"token" json:"token"`
}

// Table - неизменяемая таблица соответствий. Встроенные значения дополняются
// переопределениями по метке. Все методы тотальные.
type Table struct {
	overrides map[Kind]map[string]string
	extra     map[Kind][]string
}

// NewTable строит таблицу из встроенных значений и записей источника.
// Записи с неизвестным видом или пустым токеном пропускаются.
func NewTable(entries []Entry) *Table {
	t := &Table{
		overrides: make(map[Kind]map[string]string),
		extra:     make(map[Kind][]string),
	}
	for _, e := range entries {
		token := strings.TrimSpace(e.Token)
		key := valueobject.NormalizeLabel(e.Label)
		if !e.Kind.IsValid() || token == "" || key == "" {
			continue
		}
		if t.overrides[e.Kind] == nil {
			t.overrides[e.Kind] = make(map[string]string)
		}
		if _, seen := t.overrides[e.Kind][key]; !seen && key != "other" && !isBuiltinLabel(e.Kind, e.Label) {
			t.extra[e.Kind] = append(t.extra[e.Kind], strings.TrimSpace(e.Label))
		}
		t.overrides[e.Kind][key] = token
	}
	return t
}

// Builtin возвращает таблицу без переопределений.
func Builtin() *Table {
	return NewTable(nil)
}

func (t *Table) override(kind Kind, label string) (string, bool) {
	if t == nil {
		return "", false
	}
	token, ok := t.overrides[kind][valueobject.NormalizeLabel(label)]
	return token, ok
}

func (t *Table) OrderType(v valueobject.OrderType) string {
	if token, ok := t.override(KindOrderType, v.Label()); ok {
		return token
	}
	if token, ok := builtinOrderTypes[v.Code]; ok {
		return token
	}
	return FallbackOrderType
}

func (t *Table) AcademicLevel(v valueobject.AcademicLevel) string {
	if token, ok := t.override(KindAcademicLevel, v.Label()); ok {
		return token
	}
	if token, ok := builtinAcademicLevels[v.Code]; ok {
		return token
	}
	return FallbackAcademicLevel
}

func (t *Table) CitationStyle(v valueobject.CitationStyle) string {
	if token, ok := t.override(KindCitationStyle, v.Label()); ok {
		return token
	}
	if token, ok := builtinCitationStyles[v.Code]; ok {
		return token
	}
	return FallbackCitationStyle
}

// Subject - простое приведение метки к нижнему регистру, без таблицы.
func (t *Table) Subject(v valueobject.Subject) string {
	label := strings.ToLower(strings.TrimSpace(v.Label()))
	if label == "" {
		return FallbackSubject
	}
	return label
}

func (t *Table) Urgency(u valueobject.UrgencyTier) string {
	if token, ok := urgencyTokens[u]; ok {
		return token
	}
	return urgencyTokens[valueobject.UrgencyStandard]
}

// Options - списки меток для выпадающих списков интерфейса.
type Options struct {
	Subjects       []string `json:"subjects"`
	OrderTypes     []string `json:"order_types"`
	AcademicLevels []string `json:"academic_levels"`
	CitationStyles []string `json:"citation_styles"`
	Urgencies      []string `json:"urgencies"`
	PaymentMethods []string `json:"payment_methods"`
}

// Options возвращает встроенные метки и добавленные источником, перед вариантом Other.
func (t *Table) Options() Options {
	return Options{
		Subjects:       valueobject.SubjectLabels(),
		OrderTypes:     t.withExtra(KindOrderType, valueobject.OrderTypeLabels()),
		AcademicLevels: t.withExtra(KindAcademicLevel, valueobject.AcademicLevelLabels()),
		CitationStyles: t.withExtra(KindCitationStyle, valueobject.CitationStyleLabels()),
		Urgencies: []string{
			string(valueobject.UrgencyStandard),
			string(valueobject.UrgencyUrgent),
			string(valueobject.UrgencyVeryUrgent),
		},
		PaymentMethods: []string{
			string(valueobject.PaymentMethodCard),
			string(valueobject.PaymentMethodPayPal),
			string(valueobject.PaymentMethodBankTransfer),
		},
	}
}

func (t *Table) withExtra(kind Kind, labels []string) []string {
	if t == nil || len(t.extra[kind]) == 0 {
		return labels
	}
	out := make([]string, 0, len(labels)+len(t.extra[kind]))
	out = append(out, labels[:len(labels)-1]...)
	out = append(out, t.extra[kind]...)
	return append(out, labels[len(labels)-1])
}

func isBuiltinLabel(kind Kind, label string) bool {
	switch kind {
	case KindOrderType:
		return !valueobject.ParseOrderType(label).IsOther()
	case KindAcademicLevel:
		return !valueobject.ParseAcademicLevel(label).IsOther()
	case KindCitationStyle:
		return !valueobject.ParseCitationStyle(label).IsOther()
	}
	return false
}
