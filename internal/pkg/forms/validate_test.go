package forms

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/fitcoach/app/models"
)

func str(s string) *string { return &s }

func validationTemplate() *models.FormTemplate {
	return &models.FormTemplate{
		ID:    1,
		Title: "Intake",
		Questions: []models.Question{
			{ID: 10, Title: "Full name", Type: models.QuestionTypeText, Required: true},
			{ID: 11, Title: "Weight", Type: models.QuestionTypeNumber, Required: true},
			{ID: 12, Title: "Start date", Type: models.QuestionTypeDate},
			{ID: 13, Title: "Progress photo", Type: models.QuestionTypeImage},
			{ID: 14, Title: "Main goal", Type: models.QuestionTypeSingleChoice, Required: true, Options: []models.QuestionOption{
				{ID: 100, Label: "Strength"}, {ID: 101, Label: "Fat loss"},
			}},
			{ID: 15, Title: "Training days", Type: models.QuestionTypeMultipleChoice, Required: true, Options: []models.QuestionOption{
				{ID: 200, Label: "Mon"}, {ID: 201, Label: "Wed"}, {ID: 202, Label: "Fri"},
			}},
		},
	}
}

func validAnswers() []Answer {
	return []Answer{
		{QuestionID: 10, Content: str("Jane Doe")},
		{QuestionID: 11, Content: str("72.5")},
		{QuestionID: 14, SelectedOptionIDs: []uint{101}},
		{QuestionID: 15, SelectedOptionIDs: []uint{200, 202}},
	}
}

func details(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %v", err)
	assert.ErrorIs(t, err, ErrValidationFailed)
	return verr.Details
}

func mentions(list []string, title string) bool {
	for _, d := range list {
		if strings.Contains(d, title) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsCompleteAnswers(t *testing.T) {
	assert.NoError(t, Validate(validationTemplate(), validAnswers()))
}

func TestValidateReportsEveryMissingRequiredQuestion(t *testing.T) {
	got := details(t, Validate(validationTemplate(), nil))

	require.Len(t, got, 4)
	for _, title := range []string{"Full name", "Weight", "Main goal", "Training days"} {
		assert.True(t, mentions(got, title), "details should mention %q: %v", title, got)
	}
	assert.False(t, mentions(got, "Start date"))
}

func TestValidateRejectsBlankText(t *testing.T) {
	answers := validAnswers()
	answers[0].Content = str("   ")
	answers[1].Content = nil

	got := details(t, Validate(validationTemplate(), answers))
	require.Len(t, got, 2)
	assert.True(t, mentions(got, "Full name"))
	assert.True(t, mentions(got, "Weight"))
}

func TestValidateRequiresOptionForChoice(t *testing.T) {
	answers := validAnswers()
	answers[2].SelectedOptionIDs = nil
	answers[3].SelectedOptionIDs = []uint{}
	answers[3].Content = str("Mondays")

	got := details(t, Validate(validationTemplate(), answers))
	require.Len(t, got, 2)
	assert.True(t, mentions(got, "Main goal"))
	assert.True(t, mentions(got, "Training days"))
}

func TestValidateSingleChoiceAllowsOneOption(t *testing.T) {
	answers := validAnswers()
	answers[2].SelectedOptionIDs = []uint{100, 101}

	got := details(t, Validate(validationTemplate(), answers))
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "Main goal")
	assert.Contains(t, got[0], "only one")
}

func TestValidateSingleChoiceLimitAppliesToOptionalQuestions(t *testing.T) {
	tpl := &models.FormTemplate{Questions: []models.Question{
		{ID: 1, Title: "Diet", Type: models.QuestionTypeSingleChoice, Options: []models.QuestionOption{{ID: 5}, {ID: 6}}},
	}}
	got := details(t, Validate(tpl, []Answer{{QuestionID: 1, SelectedOptionIDs: []uint{5, 6}}}))
	assert.True(t, mentions(got, "Diet"))
}

func TestValidateRejectsForeignOptions(t *testing.T) {
	answers := validAnswers()
	answers[2].SelectedOptionIDs = []uint{200}
	answers[3].SelectedOptionIDs = []uint{201, 999}
	answers = append(answers, Answer{QuestionID: 12, Content: str("2024-01-01"), SelectedOptionIDs: []uint{100}})

	got := details(t, Validate(validationTemplate(), answers))
	require.Len(t, got, 3)
	assert.True(t, mentions(got, "Main goal"))
	assert.True(t, mentions(got, "option 999"))
	assert.True(t, mentions(got, "Start date"))
}

func TestValidateRejectsUnknownAndDuplicateQuestions(t *testing.T) {
	answers := append(validAnswers(),
		Answer{QuestionID: 77, Content: str("?")},
		Answer{QuestionID: 10, Content: str("Again")},
	)

	got := details(t, Validate(validationTemplate(), answers))
	require.Len(t, got, 2)
	assert.True(t, mentions(got, "Question 77"))
	assert.True(t, mentions(got, "Question 10"))
}

func TestValidateRejectsUnsupportedType(t *testing.T) {
	tpl := &models.FormTemplate{Questions: []models.Question{{ID: 1, Title: "Mood", Type: "SLIDER"}}}
	got := details(t, Validate(tpl, nil))
	assert.True(t, mentions(got, "Mood"))
}

func TestToModelsCollapsesDuplicateOptions(t *testing.T) {
	rows := toModels([]Answer{{QuestionID: 15, SelectedOptionIDs: []uint{200, 200, 201}}, {QuestionID: 10, Content: str("x")}})
	require.Len(t, rows, 2)
	assert.Equal(t, []uint{200, 201}, rows[0].SelectedOptionIDs())
	assert.Nil(t, rows[0].Content)
	require.NotNil(t, rows[1].Content)
	assert.Equal(t, "x", *rows[1].Content)
}
