package repository

import (
	"fmt"
	"time"

	"github.com/fitcoach/fitcoach/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type formRepository struct {
	db *gorm.DB
}

// NewFormRepository creates a new form repository instance
func NewFormRepository(db *gorm.DB) FormRepository {
	return &formRepository{db: db}
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func byID(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// CreateTemplate stores a template together with its questions and options.
func (r *formRepository) CreateTemplate(template *models.FormTemplate) error {
	for _, q := range template.Questions {
		if !q.Type.IsValid() {
			return fmt.Errorf("%w: %q on question %q", models.ErrUnsupportedQuestionType, q.Type, q.Title)
		}
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(template).Error; err != nil {
			return err
		}
		for i := range template.Questions {
			q := &template.Questions[i]
			q.FormTemplateID = template.ID
			if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
				return err
			}
			for j := range q.Options {
				q.Options[j].QuestionID = q.ID
			}
			if len(q.Options) > 0 {
				if err := tx.Create(&q.Options).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GetTemplate loads a template with ordered questions and ordered options.
func (r *formRepository) GetTemplate(id uint) (*models.FormTemplate, error) {
	var template models.FormTemplate
	err := r.db.
		Preload("Questions", byPosition).
		Preload("Questions.Options", byPosition).
		First(&template, id).Error
	if err != nil {
		return nil, err
	}
	return &template, nil
}

func (r *formRepository) ListActiveTemplates() ([]models.FormTemplate, error) {
	var templates []models.FormTemplate
	err := r.db.Where("is_active = ?", true).Order("position ASC, id ASC").Find(&templates).Error
	return templates, err
}

func (r *formRepository) GetResponse(id string) (*models.FormResponse, error) {
	var response models.FormResponse
	err := r.db.
		Preload("Answers", byID).
		Preload("Answers.SelectedOptions", byID).
		Where("id = ?", id).
		First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// FindResponse returns the user's response to a template with its answers.
func (r *formRepository) FindResponse(userID, templateID uint) (*models.FormResponse, error) {
	var response models.FormResponse
	err := r.db.
		Preload("Answers", byID).
		Preload("Answers.SelectedOptions", byID).
		Where("user_id = ? AND form_template_id = ?", userID, templateID).
		First(&response).Error
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (r *formRepository) ListResponsesByUser(userID uint) ([]models.FormResponse, error) {
	var responses []models.FormResponse
	err := r.db.Where("user_id = ?", userID).Find(&responses).Error
	return responses, err
}

func (r *formRepository) CreateResponse(response *models.FormResponse) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(response).Error; err != nil {
			return err
		}
		return createAnswers(tx, response.ID, response.Answers)
	})
}

func (r *formRepository) ReplaceAnswers(responseID string, answers []models.QuestionAnswer, updatedAt time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&models.QuestionAnswer{}).Select("id").Where("form_response_id = ?", responseID)
		if err := tx.Where("question_answer_id IN (?)", stale).Delete(&models.QuestionAnswerOption{}).Error; err != nil {
			return err
		}
		if err := tx.Where("form_response_id = ?", responseID).Delete(&models.QuestionAnswer{}).Error; err != nil {
			return err
		}
		if err := createAnswers(tx, responseID, answers); err != nil {
			return err
		}
		res := tx.Model(&models.FormResponse{}).Where("id = ?", responseID).Update("updated_at", updatedAt)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func createAnswers(tx *gorm.DB, responseID string, answers []models.QuestionAnswer) error {
	for i := range answers {
		a := &answers[i]
		a.ID = 0
		a.FormResponseID = responseID
		if err := tx.Omit(clause.Associations).Create(a).Error; err != nil {
			return err
		}
		if len(a.SelectedOptions) == 0 {
			continue
		}
		for j := range a.SelectedOptions {
			a.SelectedOptions[j].ID = 0
			a.SelectedOptions[j].QuestionAnswerID = a.ID
		}
		if err := tx.Create(&a.SelectedOptions).Error; err != nil {
			return err
		}
	}
	return nil
}
