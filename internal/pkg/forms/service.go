// Package forms serves coaching questionnaires to subscribed users and
// stores their answers.
package forms

import (
	"errors"
	"fmt"
	"time"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/app/repository"
	"github.com/fitcoach/fitcoach/internal/pkg/entitlements"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
)

// FormView is a template with the user's existing response, if any.
type FormView struct {
	Template *models.FormTemplate `json:"template"`
	Response *models.FormResponse `json:"response"`
}

// TemplateStatus is one active template annotated for a user.
type TemplateStatus struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ResponseID  string     `json:"responseId,omitempty"`
}

type Service struct {
	users repository.UserRepository
	forms repository.FormRepository
	now   func() time.Time
}

func NewService(users repository.UserRepository, forms repository.FormRepository) *Service {
	return &Service{users: users, forms: forms, now: time.Now}
}

// NewServiceFromRepositories wires the service from the shared repository set.
func NewServiceFromRepositories(repos *repository.Repositories) *Service {
	return NewService(repos.User, repos.Form)
}

func (s *Service) entitledUser(userID uint) (*models.User, error) {
	user, err := s.users.GetByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	if !entitlements.Allowed(user, entitlements.FeatureForms) {
		return nil, ErrNotEntitled
	}
	return user, nil
}

func (s *Service) activeTemplate(templateID uint) (*models.FormTemplate, error) {
	template, err := s.forms.GetTemplate(templateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load form %d: %w", templateID, err)
	}
	if !template.IsActive {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

func (s *Service) findResponse(userID, templateID uint) (*models.FormResponse, error) {
	response, err := s.forms.FindResponse(userID, templateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}
	return response, nil
}

// GetForm returns a template for a user together with their earlier answers.
func (s *Service) GetForm(userID, templateID uint) (*FormView, error) {
	user, err := s.entitledUser(userID)
	if err != nil {
		return nil, err
	}
	template, err := s.activeTemplate(templateID)
	if err != nil {
		return nil, err
	}
	response, err := s.findResponse(user.ID, template.ID)
	if err != nil {
		return nil, err
	}
	return &FormView{Template: template, Response: response}, nil
}

// ListForUser returns every active template with the user's completion status.
func (s *Service) ListForUser(userID uint) ([]TemplateStatus, error) {
	user, err := s.entitledUser(userID)
	if err != nil {
		return nil, err
	}
	templates, err := s.forms.ListActiveTemplates()
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	responses, err := s.forms.ListResponsesByUser(user.ID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}

	done := make(map[uint]models.FormResponse, len(responses))
	for _, r := range responses {
		done[r.FormTemplateID] = r
	}

	out := make([]TemplateStatus, 0, len(templates))
	for _, t := range templates {
		status := TemplateStatus{ID: t.ID, Title: t.Title, Description: t.Description, Status: StatusPending}
		if r, ok := done[t.ID]; ok {
			completedAt := r.CompletedAt
			status.Status = StatusCompleted
			status.CompletedAt = &completedAt
			status.ResponseID = r.ID
		}
		out = append(out, status)
	}
	return out, nil
}

// Submit stores a user's first response to a template.
func (s *Service) Submit(userID, templateID uint, answers []Answer) (*models.FormResponse, error) {
	user, err := s.entitledUser(userID)
	if err != nil {
		return nil, err
	}
	template, err := s.activeTemplate(templateID)
	if err != nil {
		return nil, err
	}
	existing, err := s.findResponse(user.ID, template.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubmitted
	}
	if err := Validate(template, answers); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	response := &models.FormResponse{
		ID:             uuid.NewString(),
		FormTemplateID: template.ID,
		UserID:         user.ID,
		CompletedAt:    now,
		UpdatedAt:      now,
		Answers:        toModels(answers),
	}
	if err := s.forms.CreateResponse(response); err != nil {
		return nil, fmt.Errorf("save response: %w", err)
	}
	fiberlog.Infof("[Forms] user %d submitted form %d (%s)", user.ID, template.ID, response.ID)
	return response, nil
}

// Update replaces every answer of an existing response.
func (s *Service) Update(userID, templateID uint, responseID string, answers []Answer) (*models.FormResponse, error) {
	user, err := s.entitledUser(userID)
	if err != nil {
		return nil, err
	}
	template, err := s.activeTemplate(templateID)
	if err != nil {
		return nil, err
	}
	response, err := s.forms.GetResponse(responseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResponseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load response: %w", err)
	}
	if response.UserID != user.ID || response.FormTemplateID != template.ID {
		return nil, ErrResponseNotFound
	}
	if err := Validate(template, answers); err != nil {
		return nil, err
	}

	updatedAt := s.now().UTC()
	if err := s.forms.ReplaceAnswers(response.ID, toModels(answers), updatedAt); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResponseNotFound
		}
		return nil, fmt.Errorf("replace answers: %w", err)
	}
	fiberlog.Infof("[Forms] user %d updated response %s", user.ID, response.ID)

	updated, err := s.forms.GetResponse(response.ID)
	if err != nil {
		return nil, fmt.Errorf("reload response: %w", err)
	}
	return updated, nil
}
