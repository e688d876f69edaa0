package models

import (
	"errors"
	"time"
)

// QuestionType is the closed set of supported question kinds.
type QuestionType string

const (
	QuestionTypeText           QuestionType = "TEXT"
	QuestionTypeNumber         QuestionType = "NUMBER"
	QuestionTypeDate           QuestionType = "DATE"
	QuestionTypeImage          QuestionType = "IMAGE"
	QuestionTypeSingleChoice   QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
)

// ErrUnsupportedQuestionType is returned when a template carries a question
// type outside the known set.
var ErrUnsupportedQuestionType = errors.New("unsupported question type")

// IsChoice reports whether answers select options instead of carrying content.
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

// IsValid reports whether t is one of the known question types.
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeNumber, QuestionTypeDate, QuestionTypeImage,
		QuestionTypeSingleChoice, QuestionTypeMultipleChoice:
		return true
	default:
		return false
	}
}

// FormTemplate is a questionnaire provisioned by the coaching team.
type FormTemplate struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"type:varchar(200);not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	IsActive    bool       `gorm:"default:true;index" json:"is_active"`
	Position    int        `gorm:"default:0" json:"position"`
	Questions   []Question `gorm:"foreignKey:FormTemplateID" json:"questions,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type Question struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	FormTemplateID uint             `gorm:"not null;index" json:"form_template_id"`
	Title          string           `gorm:"type:varchar(300);not null" json:"title"`
	Description    string           `gorm:"type:text" json:"description"`
	Type           QuestionType     `gorm:"type:varchar(32);not null" json:"type"`
	Required       bool             `gorm:"default:false" json:"required"`
	Position       int              `gorm:"default:0" json:"position"`
	Options        []QuestionOption `gorm:"foreignKey:QuestionID" json:"options"`
}

type QuestionOption struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	QuestionID uint   `gorm:"not null;index" json:"question_id"`
	Label      string `gorm:"type:varchar(300);not null" json:"label"`
	Value      string `gorm:"type:varchar(300);default:''" json:"value"`
	Position   int    `gorm:"default:0" json:"position"`
}

// OptionIDs returns the set of option ids belonging to the question.
func (q *Question) OptionIDs() map[uint]struct{} {
	ids := make(map[uint]struct{}, len(q.Options))
	for _, o := range q.Options {
		ids[o.ID] = struct{}{}
	}
	return ids
}
