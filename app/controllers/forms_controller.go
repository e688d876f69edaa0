package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach/fitcoach/internal/pkg/forms"
)

type FormsController struct {
	service *forms.Service
}

func NewFormsController(service *forms.Service) *FormsController {
	return &FormsController{service: service}
}

type submitFormRequest struct {
	UserID  uint           `json:"userId" validate:"required"`
	Answers []forms.Answer `json:"answers" validate:"dive"`
}

type updateFormRequest struct {
	UserID     uint           `json:"userId" validate:"required"`
	ResponseID string         `json:"responseId" validate:"required"`
	Answers    []forms.Answer `json:"answers" validate:"dive"`
}

func formID(c *fiber.Ctx) (uint, error) {
	id, ok := uintParam(c.Params("formId"))
	if !ok {
		return 0, &inputError{code: "invalid_form_id", message: "Form id must be a positive integer"}
	}
	return id, nil
}

// HandleGetForm returns the template with ordered questions and any existing answers.
func (fc *FormsController) HandleGetForm(c *fiber.Ctx) error {
	templateID, err := formID(c)
	if err != nil {
		return respondError(c, err)
	}
	userID, ok := uintParam(c.Query("userId"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_user_id", "userId query parameter is required")
	}

	view, err := fc.service.GetForm(userID, templateID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(view)
}

func (fc *FormsController) HandleListUserForms(c *fiber.Ctx) error {
	userID, ok := uintParam(c.Params("userId"))
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid_user_id", "User id must be a positive integer")
	}

	list, err := fc.service.ListForUser(userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"userId": userID,
		"forms":  list,
	})
}

func (fc *FormsController) HandleSubmitForm(c *fiber.Ctx) error {
	templateID, err := formID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req submitFormRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	response, err := fc.service.Submit(req.UserID, templateID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"formResponseId": response.ID,
		"completedAt":    response.CompletedAt.UTC().Format(time.RFC3339Nano),
	})
}

func (fc *FormsController) HandleUpdateForm(c *fiber.Ctx) error {
	templateID, err := formID(c)
	if err != nil {
		return respondError(c, err)
	}
	var req updateFormRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	response, err := fc.service.Update(req.UserID, templateID, req.ResponseID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":        true,
		"formResponseId": response.ID,
		"updatedAt":      response.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}
