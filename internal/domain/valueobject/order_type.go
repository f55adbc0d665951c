package valueobject

// OrderTypeCode - код варианта из закрытого набора типов работ.
type OrderTypeCode string

const (
	OrderTypeEssay                 OrderTypeCode = "essay"
	OrderTypeResearchPaper         OrderTypeCode = "research_paper"
	OrderTypeTermPaper             OrderTypeCode = "term_paper"
	OrderTypeDissertation          OrderTypeCode = "dissertation"
	OrderTypeThesis                OrderTypeCode = "thesis"
	OrderTypeCaseStudy             OrderTypeCode = "case_study"
	OrderTypeBookReview            OrderTypeCode = "book_review"
	OrderTypeCoursework            OrderTypeCode = "coursework"
	OrderTypeLabReport             OrderTypeCode = "lab_report"
	OrderTypePresentation          OrderTypeCode = "presentation"
	OrderTypeAdmissionEssay        OrderTypeCode = "admission_essay"
	OrderTypeAnnotatedBibliography OrderTypeCode = "annotated_bibliography"
	OrderTypeOther                 OrderTypeCode = "other"
)

var orderTypeCatalog = newCatalog(
	[2]string{string(OrderTypeEssay), "Essay"},
	[2]string{string(OrderTypeResearchPaper), "Research Paper"},
	[2]string{string(OrderTypeTermPaper), "Term Paper"},
	[2]string{string(OrderTypeDissertation), "Dissertation"},
	[2]string{string(OrderTypeThesis), "Thesis"},
	[2]string{string(OrderTypeCaseStudy), "Case Study"},
	[2]string{string(OrderTypeBookReview), "Book Review"},
	[2]string{string(OrderTypeCoursework), "Coursework"},
	[2]string{string(OrderTypeLabReport), "Lab Report"},
	[2]string{string(OrderTypePresentation), "Presentation"},
	[2]string{string(OrderTypeAdmissionEssay), "Admission Essay"},
	[2]string{string(OrderTypeAnnotatedBibliography), "Annotated Bibliography"},
	[2]string{string(OrderTypeOther), "Other"},
)

// OrderType - значение из набора типов работ; для OrderTypeOther в Custom хранится свободный текст.
type OrderType struct {
	Code   OrderTypeCode
	Custom string
}

// ParseOrderType разбирает метку из интерфейса. Неизвестная метка становится вариантом Other.
func ParseOrderType(label string) OrderType {
	code, custom := parseChoice(orderTypeCatalog, string(OrderTypeOther), label)
	return OrderType{Code: OrderTypeCode(code), Custom: custom}
}

// OtherOrderType создаёт вариант Other со свободным текстом.
func OtherOrderType(text string) OrderType {
	return OrderType{Code: OrderTypeOther, Custom: text}
}

// Label возвращает отображаемую метку.
func (v OrderType) Label() string {
	if v.Code == "" {
		return ""
	}
	return choiceLabel(orderTypeCatalog, string(OrderTypeOther), string(v.Code), v.Custom)
}

func (v OrderType) IsEmpty() bool { return v.Code == "" }

func (v OrderType) IsOther() bool { return v.Code == OrderTypeOther }

func (v OrderType) MarshalText() ([]byte, error) { return []byte(v.Label()), nil }

func (v *OrderType) UnmarshalText(b []byte) error {
	*v = ParseOrderType(string(b))
	return nil
}

// OrderTypeLabels возвращает метки всех вариантов в порядке отображения.
func OrderTypeLabels() []string { return orderTypeCatalog.allLabels() }
