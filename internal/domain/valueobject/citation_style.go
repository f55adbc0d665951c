package valueobject

// CitationStyleCode - код варианта из закрытого набора стилей цитирования.
type CitationStyleCode string

const (
	CitationStyleAPA           CitationStyleCode = "apa"
	CitationStyleMLA           CitationStyleCode = "mla"
	CitationStyleChicago       CitationStyleCode = "chicago"
	CitationStyleHarvard       CitationStyleCode = "harvard"
	CitationStyleTurabian      CitationStyleCode = "turabian"
	CitationStyleIEEE          CitationStyleCode = "ieee"
	CitationStyleVancouver     CitationStyleCode = "vancouver"
	CitationStyleOxford        CitationStyleCode = "oxford"
	CitationStyleNotApplicable CitationStyleCode = "not_applicable"
	CitationStyleOther         CitationStyleCode = "other"
)

var citationStyleCatalog = newCatalog(
	[2]string{string(CitationStyleAPA), "APA"},
	[2]string{string(CitationStyleMLA), "MLA"},
	[2]string{string(CitationStyleChicago), "Chicago"},
	[2]string{string(CitationStyleHarvard), "Harvard"},
	[2]string{string(CitationStyleTurabian), "Turabian"},
	[2]string{string(CitationStyleIEEE), "IEEE"},
	[2]string{string(CitationStyleVancouver), "Vancouver"},
	[2]string{string(CitationStyleOxford), "Oxford"},
	[2]string{string(CitationStyleNotApplicable), "Not Applicable"},
	[2]string{string(CitationStyleOther), "Other"},
)

// CitationStyle - значение из набора стилей цитирования; для CitationStyleOther в Custom хранится свободный текст.
type CitationStyle struct {
	Code   CitationStyleCode
	Custom string
}

// ParseCitationStyle разбирает метку из интерфейса. Неизвестная метка становится вариантом Other.
func ParseCitationStyle(label string) CitationStyle {
	code, custom := parseChoice(citationStyleCatalog, string(CitationStyleOther), label)
	return CitationStyle{Code: CitationStyleCode(code), Custom: custom}
}

// OtherCitationStyle создаёт вариант Other со свободным текстом.
func OtherCitationStyle(text string) CitationStyle {
	return CitationStyle{Code: CitationStyleOther, Custom: text}
}

// Label возвращает отображаемую метку.
func (v CitationStyle) Label() string {
	if v.Code == "" {
		return ""
	}
	return choiceLabel(citationStyleCatalog, string(CitationStyleOther), string(v.Code), v.Custom)
}

func (v CitationStyle) IsEmpty() bool { return v.Code == "" }

func (v CitationStyle) IsOther() bool { return v.Code == CitationStyleOther }

func (v CitationStyle) MarshalText() ([]byte, error) { return []byte(v.Label()), nil }

func (v *CitationStyle) UnmarshalText(b []byte) error {
	*v = ParseCitationStyle(string(b))
	return nil
}

// CitationStyleLabels возвращает метки всех вариантов в порядке отображения.
func CitationStyleLabels() []string { return citationStyleCatalog.allLabels() }
