package forms

import (
	"fmt"
	"strings"

	"github.com/fitcoach/fitcoach/app/models"
)

// Answer is one submitted answer as it arrives from the client.
type Answer struct {
	QuestionID        uint    `json:"questionId"`
	Content           *string `json:"content"`
	SelectedOptionIDs []uint  `json:"selectedOptionIds"`
}

func (a Answer) hasContent() bool {
	return a.Content != nil && strings.TrimSpace(*a.Content) != ""
}

// Validate checks an answer set against a template and reports all problems
// at once. It returns nil or a *ValidationError.
func Validate(template *models.FormTemplate, answers []Answer) error {
	var details []string

	byQuestion := make(map[uint]Answer, len(answers))
	known := make(map[uint]struct{}, len(template.Questions))
	for _, q := range template.Questions {
		known[q.ID] = struct{}{}
	}
	for _, a := range answers {
		if _, ok := known[a.QuestionID]; !ok {
			details = append(details, fmt.Sprintf("Question %d is not part of this form", a.QuestionID))
			continue
		}
		if _, dup := byQuestion[a.QuestionID]; dup {
			details = append(details, fmt.Sprintf("Question %d was answered more than once", a.QuestionID))
			continue
		}
		byQuestion[a.QuestionID] = a
	}

	for i := range template.Questions {
		q := &template.Questions[i]
		a, answered := byQuestion[q.ID]

		switch {
		case !q.Type.IsValid():
			details = append(details, fmt.Sprintf("%q has unsupported type %s", q.Title, q.Type))
		case q.Type.IsChoice():
			if q.Required && len(a.SelectedOptionIDs) == 0 {
				details = append(details, fmt.Sprintf("%q requires at least one selected option", q.Title))
			}
			if q.Type == models.QuestionTypeSingleChoice && len(a.SelectedOptionIDs) > 1 {
				details = append(details, fmt.Sprintf("%q allows only one selected option", q.Title))
			}
		default:
			if q.Required && !a.hasContent() {
				details = append(details, fmt.Sprintf("%q requires an answer", q.Title))
			}
		}

		if !answered || len(a.SelectedOptionIDs) == 0 {
			continue
		}
		owned := q.OptionIDs()
		for _, id := range a.SelectedOptionIDs {
			if _, ok := owned[id]; !ok {
				details = append(details, fmt.Sprintf("%q: option %d does not belong to this question", q.Title, id))
			}
		}
	}

	if len(details) > 0 {
		return &ValidationError{Details: details}
	}
	return nil
}

// toModels converts validated answers into rows. Duplicate option ids collapse.
func toModels(answers []Answer) []models.QuestionAnswer {
	out := make([]models.QuestionAnswer, 0, len(answers))
	for _, a := range answers {
		row := models.QuestionAnswer{QuestionID: a.QuestionID}
		if a.Content != nil {
			content := *a.Content
			row.Content = &content
		}
		seen := make(map[uint]struct{}, len(a.SelectedOptionIDs))
		for _, id := range a.SelectedOptionIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			row.SelectedOptions = append(row.SelectedOptions, models.QuestionAnswerOption{QuestionOptionID: id})
		}
		out = append(out, row)
	}
	return out
}
