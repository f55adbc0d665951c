package valueobject

// AcademicLevelCode - код варианта из закрытого набора академических уровней.
type AcademicLevelCode string

const (
	AcademicLevelHighSchool    AcademicLevelCode = "high_school"
	AcademicLevelUndergraduate AcademicLevelCode = "undergraduate"
	AcademicLevelGraduate      AcademicLevelCode = "graduate"
	AcademicLevelMasters       AcademicLevelCode = "masters"
	AcademicLevelPhD           AcademicLevelCode = "phd"
	AcademicLevelOther         AcademicLevelCode = "other"
)

var academicLevelCatalog = newCatalog(
	[2]string{string(AcademicLevelHighSchool), "High School"},
	[2]string{string(AcademicLevelUndergraduate), "Undergraduate"},
	[2]string{string(AcademicLevelGraduate), "Graduate"},
	[2]string{string(AcademicLevelMasters), "Masters"},
	[2]string{string(AcademicLevelPhD), "PhD"},
	[2]string{string(AcademicLevelOther), "Other"},
)

// AcademicLevel - значение из набора академических уровней; для AcademicLevelOther в Custom хранится свободный текст.
type AcademicLevel struct {
	Code   AcademicLevelCode
	Custom string
}

// ParseAcademicLevel разбирает метку из интерфейса. Неизвестная метка становится вариантом Other.
func ParseAcademicLevel(label string) AcademicLevel {
	code, custom := parseChoice(academicLevelCatalog, string(AcademicLevelOther), label)
	return AcademicLevel{Code: AcademicLevelCode(code), Custom: custom}
}

// OtherAcademicLevel создаёт вариант Other со свободным текстом.
func OtherAcademicLevel(text string) AcademicLevel {
	return AcademicLevel{Code: AcademicLevelOther, Custom: text}
}

// Label возвращает отображаемую метку.
func (v AcademicLevel) Label() string {
	if v.Code == "" {
		return ""
	}
	return choiceLabel(academicLevelCatalog, string(AcademicLevelOther), string(v.Code), v.Custom)
}

func (v AcademicLevel) IsEmpty() bool { return v.Code == "" }

func (v AcademicLevel) IsOther() bool { return v.Code == AcademicLevelOther }

func (v AcademicLevel) MarshalText() ([]byte, error) { return []byte(v.Label()), nil }

func (v *AcademicLevel) UnmarshalText(b []byte) error {
	*v = ParseAcademicLevel(string(b))
	return nil
}

// AcademicLevelLabels возвращает метки всех вариантов в порядке отображения.
func AcademicLevelLabels() []string { return academicLevelCatalog.allLabels() }
