package pricing

import (
	"testing"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/order-intake/internal/domain/valueobject"
)

func TestEstimate(t *testing.T) {
	cases := []struct {
		name    string
		pages   int
		urgency valueobject.UrgencyTier
		level   string
		want    int64
	}{
		{"standard undergraduate", 5, valueobject.UrgencyStandard, "Undergraduate", 75},
		{"standard undergraduate 10 pages", 10, valueobject.UrgencyStandard, "Undergraduate", 150},
		{"phd very urgent", 5, valueobject.UrgencyVeryUrgent, "PhD", 225},
		{"masters urgent", 3, valueobject.UrgencyUrgent, "Masters", 88},
		{"graduate standard", 1, valueobject.UrgencyStandard, "Graduate", 20},
		{"half rounds up", 2, valueobject.UrgencyUrgent, "Graduate", 59},
		{"unknown level", 4, valueobject.UrgencyStandard, "Postdoc", 60},
		{"empty urgency counts as standard", 2, "", "High School", 30},
		{"zero pages", 0, valueobject.UrgencyVeryUrgent, "PhD", 0},
		{"negative pages", -3, valueobject.UrgencyStandard, "PhD", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Estimate(tc.pages, tc.urgency, valueobject.ParseAcademicLevel(tc.level))
			assert.True(t, got.Equal(decimal.MustNew(tc.want, 0)), "got %s, want %d", got, tc.want)
		})
	}
}

func TestEstimate_Deterministic(t *testing.T) {
	urgencies := []valueobject.UrgencyTier{valueobject.UrgencyStandard, valueobject.UrgencyUrgent, valueobject.UrgencyVeryUrgent}
	levels := append(valueobject.AcademicLevelLabels(), "", "Custom level")

	for pages := 0; pages <= 40; pages++ {
		for _, u := range urgencies {
			for _, l := range levels {
				level := valueobject.ParseAcademicLevel(l)
				first := Estimate(pages, u, level)
				second := Estimate(pages, u, level)
				require.True(t, first.Equal(second), "pages=%d urgency=%s level=%q", pages, u, l)
			}
		}
	}
}

func TestCalculateFees(t *testing.T) {
	fees, err := CalculateFees(decimal.MustNew(225, 0))
	require.NoError(t, err)
	assert.Equal(t, "11", fees.ServiceFee.String())
	assert.Equal(t, "236", fees.Total.Trim(0).String())

	fees, err = CalculateFees(decimal.MustNew(150, 0))
	require.NoError(t, err)
	assert.Equal(t, "8", fees.ServiceFee.String())

	fees, err = CalculateFees(decimal.MustNew(10050, 2))
	require.NoError(t, err)
	assert.Equal(t, "5", fees.ServiceFee.String())
	assert.Equal(t, "105.50", fees.Total.String())
}
