package models

import "time"

// FormResponse is one user's submission for a template. At most one exists
// per (template, user); the forms service enforces it.
type FormResponse struct {
	ID             string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FormTemplateID uint             `gorm:"not null;index:idx_form_responses_template_user,priority:1" json:"form_template_id"`
	UserID         uint             `gorm:"not null;index:idx_form_responses_template_user,priority:2" json:"user_id"`
	CompletedAt    time.Time        `gorm:"not null;precision:6" json:"completed_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime:false;precision:6" json:"updated_at"`
	Answers        []QuestionAnswer `gorm:"foreignKey:FormResponseID" json:"answers,omitempty"`
}

type QuestionAnswer struct {
	ID              uint                   `gorm:"primaryKey" json:"id"`
	FormResponseID  string                 `gorm:"type:varchar(36);not null;index" json:"form_response_id"`
	QuestionID      uint                   `gorm:"not null;index" json:"question_id"`
	Content         *string                `gorm:"type:text" json:"content"`
	SelectedOptions []QuestionAnswerOption `gorm:"foreignKey:QuestionAnswerID" json:"selected_options,omitempty"`
}

type QuestionAnswerOption struct {
	ID               uint `gorm:"primaryKey" json:"id"`
	QuestionAnswerID uint `gorm:"not null;index" json:"question_answer_id"`
	QuestionOptionID uint `gorm:"not null;index" json:"question_option_id"`
}

// SelectedOptionIDs lists the option ids chosen in this answer.
func (a *QuestionAnswer) SelectedOptionIDs() []uint {
	ids := make([]uint, 0, len(a.SelectedOptions))
	for _, o := range a.SelectedOptions {
		ids = append(ids, o.QuestionOptionID)
	}
	return ids
}
