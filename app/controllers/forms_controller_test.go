package controllers

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitcoach/fitcoach/app/models"
	"github.com/fitcoach/fitcoach/app/repository"
	"github.com/fitcoach/fitcoach/internal/pkg/database/databasetest"
	"github.com/fitcoach/fitcoach/internal/pkg/forms"
)

type formsHarness struct {
	app      *fiber.App
	member   *models.User
	lapsed   *models.User
	template *models.FormTemplate
}

func newFormsHarness(t *testing.T) *formsHarness {
	t.Helper()
	db := databasetest.Open(t)
	repos := repository.NewRepositories(db)

	member, err := models.NewCustomer("member@example.com", "Member")
	require.NoError(t, err)
	require.NoError(t, member.ApplyInvoicePaid(models.SubscriptionSnapshot{SubscriptionID: "sub_1"}))
	require.NoError(t, repos.User.Create(member))

	lapsed, err := models.NewCustomer("lapsed@example.com", "")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(lapsed))

	tpl := &models.FormTemplate{
		Title:    "Intake",
		IsActive: true,
		Questions: []models.Question{
			{Title: "Full name", Type: models.QuestionTypeText, Required: true, Position: 1},
			{Title: "Main goal", Type: models.QuestionTypeSingleChoice, Required: true, Position: 2, Options: []models.QuestionOption{
				{Label: "Strength", Position: 1},
				{Label: "Fat loss", Position: 2},
			}},
		},
	}
	require.NoError(t, repos.Form.CreateTemplate(tpl))

	fc := NewFormsController(forms.NewServiceFromRepositories(repos))
	app := fiber.New()
	app.Get("/api/forms/user/:userId", fc.HandleListUserForms)
	app.Get("/api/forms/:formId", fc.HandleGetForm)
	app.Post("/api/forms/:formId/submit", fc.HandleSubmitForm)
	app.Post("/api/forms/:formId/update", fc.HandleUpdateForm)

	return &formsHarness{app: app, member: member, lapsed: lapsed, template: tpl}
}

func (h *formsHarness) answers(name string, options ...uint) []map[string]interface{} {
	return []map[string]interface{}{
		{"questionId": h.template.Questions[0].ID, "content": name},
		{"questionId": h.template.Questions[1].ID, "selectedOptionIds": options},
	}
}

func (h *formsHarness) path(suffix string) string {
	return fmt.Sprintf("/api/forms/%d%s", h.template.ID, suffix)
}

func TestFormsGateStatuses(t *testing.T) {
	h := newFormsHarness(t)

	status, body := doJSON(t, h.app, "GET", h.path("?userId=9999"), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "user_not_found", body["error"])

	status, body = doJSON(t, h.app, "GET", h.path(fmt.Sprintf("?userId=%d", h.lapsed.ID)), nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "subscription_required", body["error"])

	status, _ = doJSON(t, h.app, "GET", fmt.Sprintf("/api/forms/user/%d", h.lapsed.ID), nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = doJSON(t, h.app, "GET", h.path(""), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = doJSON(t, h.app, "GET", fmt.Sprintf("/api/forms/abc?userId=%d", h.member.ID), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = doJSON(t, h.app, "GET", fmt.Sprintf("/api/forms/9999?userId=%d", h.member.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "form_not_found", body["error"])
}

func TestFormsSubmitFlow(t *testing.T) {
	h := newFormsHarness(t)
	goal := h.template.Questions[1].Options[0].ID

	status, body := doJSON(t, h.app, "POST", h.path("/submit"), map[string]interface{}{
		"userId":  h.member.ID,
		"answers": h.answers("Jane", goal),
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, true, body["success"])
	responseID, _ := body["formResponseId"].(string)
	assert.Len(t, responseID, 36)
	assert.NotEmpty(t, body["completedAt"])

	status, body = doJSON(t, h.app, "POST", h.path("/submit"), map[string]interface{}{
		"userId":  h.member.ID,
		"answers": h.answers("Jane again", goal),
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "already_submitted", body["error"])

	status, body = doJSON(t, h.app, "GET", h.path(fmt.Sprintf("?userId=%d", h.member.ID)), nil)
	require.Equal(t, fiber.StatusOK, status)
	response, ok := body["response"].(map[string]interface{})
	require.True(t, ok, "response missing: %v", body)
	assert.Equal(t, responseID, response["id"])

	status, body = doJSON(t, h.app, "GET", fmt.Sprintf("/api/forms/user/%d", h.member.ID), nil)
	require.Equal(t, fiber.StatusOK, status)
	list, ok := body["forms"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, forms.StatusCompleted, list[0].(map[string]interface{})["status"])
}

func TestFormsSubmitReportsAllValidationErrors(t *testing.T) {
	h := newFormsHarness(t)
	options := h.template.Questions[1].Options

	status, body := doJSON(t, h.app, "POST", h.path("/submit"), map[string]interface{}{
		"userId":  h.member.ID,
		"answers": h.answers("", options[0].ID, options[1].ID),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", body["error"])

	details, ok := body["details"].([]interface{})
	require.True(t, ok)
	require.Len(t, details, 2)
	assert.Contains(t, details[0], "Full name")
	assert.Contains(t, details[1], "Main goal")
}

func TestFormsSubmitRequiresUserID(t *testing.T) {
	h := newFormsHarness(t)

	status, body := doJSON(t, h.app, "POST", h.path("/submit"), map[string]interface{}{
		"answers": h.answers("Jane", h.template.Questions[1].Options[0].ID),
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid_request", body["error"])
}

func TestFormsUpdateFlow(t *testing.T) {
	h := newFormsHarness(t)
	options := h.template.Questions[1].Options

	_, body := doJSON(t, h.app, "POST", h.path("/submit"), map[string]interface{}{
		"userId":  h.member.ID,
		"answers": h.answers("Jane", options[0].ID),
	})
	responseID := body["formResponseId"]

	status, body := doJSON(t, h.app, "POST", h.path("/update"), map[string]interface{}{
		"userId":     h.member.ID,
		"responseId": responseID,
		"answers":    h.answers("Jane D.", options[1].ID),
	})
	require.Equal(t, fiber.StatusOK, status, body)
	assert.Equal(t, responseID, body["formResponseId"])
	assert.NotEmpty(t, body["updatedAt"])

	status, body = doJSON(t, h.app, "POST", h.path("/update"), map[string]interface{}{
		"userId":     h.member.ID,
		"responseId": "00000000-0000-0000-0000-000000000000",
		"answers":    h.answers("Jane D.", options[1].ID),
	})
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "response_not_found", body["error"])
}
