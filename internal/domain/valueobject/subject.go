package valueobject

// SubjectCode - код варианта из закрытого набора предметов.
type SubjectCode string

const (
	SubjectEnglish         SubjectCode = "english"
	SubjectLiterature      SubjectCode = "literature"
	SubjectHistory         SubjectCode = "history"
	SubjectBusiness        SubjectCode = "business"
	SubjectEconomics       SubjectCode = "economics"
	SubjectMarketing       SubjectCode = "marketing"
	SubjectPsychology      SubjectCode = "psychology"
	SubjectSociology       SubjectCode = "sociology"
	SubjectNursing         SubjectCode = "nursing"
	SubjectComputerScience SubjectCode = "computer_science"
	SubjectMathematics     SubjectCode = "mathematics"
	SubjectBiology         SubjectCode = "biology"
	SubjectChemistry       SubjectCode = "chemistry"
	SubjectLaw             SubjectCode = "law"
	SubjectPhilosophy      SubjectCode = "philosophy"
	SubjectOther           SubjectCode = "other"
)

var subjectCatalog = newCatalog(
	[2]string{string(SubjectEnglish), "English"},
	[2]string{string(SubjectLiterature), "Literature"},
	[2]string{string(SubjectHistory), "History"},
	[2]string{string(SubjectBusiness), "Business"},
	[2]string{string(SubjectEconomics), "Economics"},
	[2]string{string(SubjectMarketing), "Marketing"},
	[2]string{string(SubjectPsychology), "Psychology"},
	[2]string{string(SubjectSociology), "Sociology"},
	[2]string{string(SubjectNursing), "Nursing"},
	[2]string{string(SubjectComputerScience), "Computer Science"},
	[2]string{string(SubjectMathematics), "Mathematics"},
	[2]string{string(SubjectBiology), "Biology"},
	[2]string{string(SubjectChemistry), "Chemistry"},
	[2]string{string(SubjectLaw), "Law"},
	[2]string{string(SubjectPhilosophy), "Philosophy"},
	[2]string{string(SubjectOther), "Other"},
)

// Subject - значение из набора предметов; для SubjectOther в Custom хранится свободный текст.
type Subject struct {
	Code   SubjectCode
	Custom string
}

// ParseSubject разбирает метку из интерфейса. Неизвестная метка становится вариантом Other.
func ParseSubject(label string) Subject {
	code, custom := parseChoice(subjectCatalog, string(SubjectOther), label)
	return Subject{Code: SubjectCode(code), Custom: custom}
}

// OtherSubject создаёт вариант Other со свободным текстом.
func OtherSubject(text string) Subject {
	return Subject{Code: SubjectOther, Custom: text}
}

// Label возвращает отображаемую метку.
func (v Subject) Label() string {
	if v.Code == "" {
		return ""
	}
	return choiceLabel(subjectCatalog, string(SubjectOther), string(v.Code), v.Custom)
}

func (v Subject) IsEmpty() bool { return v.Code == "" }

func (v Subject) IsOther() bool { return v.Code == SubjectOther }

func (v Subject) MarshalText() ([]byte, error) { return []byte(v.Label()), nil }

func (v *Subject) UnmarshalText(b []byte) error {
	*v = ParseSubject(string(b))
	return nil
}

// SubjectLabels возвращает метки всех вариантов в порядке отображения.
func SubjectLabels() []string { return subjectCatalog.allLabels() }
