package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderType_KnownLabelIgnoresCaseAndSpaces(t *testing.T) {
	v := ParseOrderType("  term   PAPER ")
	assert.Equal(t, OrderTypeTermPaper, v.Code)
	assert.Empty(t, v.Custom)
	assert.Equal(t, "Term Paper", v.Label())
}

func TestParseOrderType_UnknownLabelBecomesOther(t *testing.T) {
	v := ParseOrderType("Poster Design")
	assert.True(t, v.IsOther())
	assert.Equal(t, "Poster Design", v.Custom)
	assert.Equal(t, "Poster Design", v.Label())
}

func TestParseAcademicLevel_Blank(t *testing.T) {
	v := ParseAcademicLevel("   ")
	assert.True(t, v.IsEmpty())
	assert.Equal(t, "", v.Label())
}

func TestParseCitationStyle_OtherWithoutText(t *testing.T) {
	v := ParseCitationStyle("other")
	assert.True(t, v.IsOther())
	assert.Empty(t, v.Custom)
	assert.Equal(t, "Other", v.Label())
}

func TestParseSubject_AcceptsCode(t *testing.T) {
	v := ParseSubject("computer_science")
	assert.Equal(t, SubjectComputerScience, v.Code)
}

func TestLabelsJSONRoundTrip(t *testing.T) {
	type payload struct {
		Level AcademicLevel `json:"level"`
	}
	raw, err := json.Marshal(payload{Level: ParseAcademicLevel("phd")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"PhD"}`, string(raw))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"level":"Masters"}`), &decoded))
	assert.Equal(t, AcademicLevelMasters, decoded.Level.Code)
}

func TestOrderTypeLabels_ContainsOther(t *testing.T) {
	labels := OrderTypeLabels()
	assert.Contains(t, labels, "Research Paper")
	assert.Equal(t, "Other", labels[len(labels)-1])
}

func TestSubmissionState_Transitions(t *testing.T) {
	assert.True(t, SubmissionIdle.CanTransitionTo(SubmissionSubmitting))
	assert.True(t, SubmissionFailed.CanTransitionTo(SubmissionSubmitting))
	assert.False(t, SubmissionSubmitting.CanTransitionTo(SubmissionSubmitting))
	assert.False(t, SubmissionSucceeded.CanTransitionTo(SubmissionSubmitting))
}

func TestNewBudgetAmount(t *testing.T) {
	amount, err := NewBudgetAmount("120.50")
	require.NoError(t, err)
	assert.Equal(t, "120.50", amount.String())

	_, err = NewBudgetAmount("-1")
	assert.Error(t, err)

	_, err = NewBudgetAmount("abc")
	assert.Error(t, err)
}

func TestNewUrgencyTier(t *testing.T) {
	u, err := NewUrgencyTier("Very_Urgent")
	require.NoError(t, err)
	assert.Equal(t, UrgencyVeryUrgent, u)

	_, err = NewUrgencyTier("asap")
	assert.Error(t, err)
}
