package intake

import (
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/order-intake/internal/domain/entity"
	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

var testNow = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func testClock() time.Time { return testNow }

func ptr[T any](v T) *T { return &v }

// completePatch заполняет все обязательные поля корректными значениями.
func completePatch() entity.DraftPatch {
	return entity.DraftPatch{
		Title:         ptr("The impact of remote work"),
		Subject:       ptr(valueobject.ParseSubject("Business")),
		OrderType:     ptr(valueobject.ParseOrderType("Term Paper")),
		AcademicLevel: ptr(valueobject.ParseAcademicLevel("Undergraduate")),
		PageCount:     ptr(5),
		Deadline:      ptr(testNow.Add(72 * time.Hour)),
		Description:   ptr("Compare productivity studies"),
		Instructions:  ptr("Use peer-reviewed sources"),
		CitationStyle: ptr(valueobject.ParseCitationStyle("APA")),
		SourceCount:   ptr(4),
		PaymentMethod: ptr(valueobject.PaymentMethodCard),
	}
}

func newTestWizard(t *testing.T, opts ...WizardOption) *Wizard {
	t.Helper()
	return NewWizard(append([]WizardOption{WithClock(testClock)}, opts...)...)
}

func readyWizard(t *testing.T, opts ...WizardOption) *Wizard {
	t.Helper()
	w := newTestWizard(t, opts...)
	require.NoError(t, w.Patch(completePatch()))
	return w
}

func mb(n int64) int64 { return n << 20 }

func file(name string, size int64) entity.AttachedFile {
	return entity.AttachedFile{Name: name, Size: size, MediaType: "application/pdf"}
}

func dec(v int64) decimal.Decimal { return decimal.MustNew(v, 0) }
