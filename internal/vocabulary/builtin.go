package vocabulary

import "github.com/ignatzorin/order-intake/internal/domain/valueobject"

// Kind - словарь, к которому относится запись.
type Kind string

const (
	KindOrderType     Kind = "order_type"
	KindAcademicLevel Kind = "academic_level"
	KindCitationStyle Kind = "citation_style"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindOrderType, KindAcademicLevel, KindCitationStyle:
		return true
	}
	return false
}

// Fallback-токены для меток, которых нет в таблице.
const (
	FallbackOrderType     = "other"
	FallbackAcademicLevel = "bachelors"
	FallbackCitationStyle = "other"
	FallbackSubject       = "other"
)

// Language - фиксированный язык заказа на стороне приёма.
const Language = "english US"

var builtinOrderTypes = map[valueobject.OrderTypeCode]string{
	valueobject.OrderTypeEssay:                 "essay",
	valueobject.OrderTypeResearchPaper:         "research paper",
	valueobject.OrderTypeTermPaper:             "research paper",
	valueobject.OrderTypeDissertation:          "dissertation",
	valueobject.OrderTypeThesis:                "thesis",
	valueobject.OrderTypeCaseStudy:             "case study",
	valueobject.OrderTypeBookReview:            "book review",
	valueobject.OrderTypeCoursework:            "coursework",
	valueobject.OrderTypeLabReport:             "lab report",
	valueobject.OrderTypePresentation:          "presentation",
	valueobject.OrderTypeAdmissionEssay:        "essay",
	valueobject.OrderTypeAnnotatedBibliography: "other",
	valueobject.OrderTypeOther:                 FallbackOrderType,
}

var builtinAcademicLevels = map[valueobject.AcademicLevelCode]string{
	valueobject.AcademicLevelHighSchool:    "high school",
	valueobject.AcademicLevelUndergraduate: "bachelors",
	valueobject.AcademicLevelGraduate:      "masters",
	valueobject.AcademicLevelMasters:       "masters",
	valueobject.AcademicLevelPhD:           "doctorate",
	valueobject.AcademicLevelOther:         FallbackAcademicLevel,
}

var builtinCitationStyles = map[valueobject.CitationStyleCode]string{
	valueobject.CitationStyleAPA:           "apa7",
	valueobject.CitationStyleMLA:           "mla9",
	valueobject.CitationStyleChicago:       "chicago",
	valueobject.CitationStyleHarvard:       "harvard",
	valueobject.CitationStyleTurabian:      FallbackCitationStyle,
	valueobject.CitationStyleIEEE:          FallbackCitationStyle,
	valueobject.CitationStyleVancouver:     FallbackCitationStyle,
	valueobject.CitationStyleOxford:        FallbackCitationStyle,
	valueobject.CitationStyleNotApplicable: FallbackCitationStyle,
	valueobject.CitationStyleOther:         FallbackCitationStyle,
}

var urgencyTokens = map[valueobject.UrgencyTier]string{
	valueobject.UrgencyStandard:   "low",
	valueobject.UrgencyUrgent:     "medium",
	valueobject.UrgencyVeryUrgent: "high",
}
