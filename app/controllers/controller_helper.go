package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/fitcoach/fitcoach/internal/pkg/billing"
	"github.com/fitcoach/fitcoach/internal/pkg/forms"
)

var validate = validator.New()

// jsonError writes the common error body. Details are omitted when empty.
func jsonError(c *fiber.Ctx, status int, code, message string, details ...string) error {
	body := fiber.Map{"error": code, "message": message}
	if len(details) > 0 {
		body["details"] = details
	}
	return c.Status(status).JSON(body)
}

// inputError is a client input failure caught before any service call.
type inputError struct {
	code    string
	message string
	details []string
}

func (e *inputError) Error() string {
	return e.message
}

// parseBody decodes and validates a JSON request body.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return &inputError{code: "invalid_body", message: "Request body must be valid JSON"}
	}
	if err := validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &inputError{code: "invalid_request", message: err.Error()}
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fe.Field()+" failed "+fe.Tag())
		}
		return &inputError{code: "invalid_request", message: "Missing or invalid fields", details: details}
	}
	return nil
}

// uintParam reads a positive integer from a route param or query value.
func uintParam(raw string) (uint, bool) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}

// respondError maps service errors onto the HTTP error taxonomy.
func respondError(c *fiber.Ctx, err error) error {
	var inErr *inputError
	if errors.As(err, &inErr) {
		return jsonError(c, fiber.StatusBadRequest, inErr.code, inErr.message, inErr.details...)
	}

	var reqErr *billing.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Status >= fiber.StatusInternalServerError {
			fiberlog.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
		}
		return jsonError(c, reqErr.Status, reqErr.Code, reqErr.Message)
	}

	var verr *forms.ValidationError
	if errors.As(err, &verr) {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "Some answers are missing or invalid", verr.Details...)
	}

	switch {
	case errors.Is(err, forms.ErrUserNotFound):
		return jsonError(c, fiber.StatusNotFound, "user_not_found", "User not found")
	case errors.Is(err, forms.ErrTemplateNotFound):
		return jsonError(c, fiber.StatusNotFound, "form_not_found", "Form not found")
	case errors.Is(err, forms.ErrResponseNotFound):
		return jsonError(c, fiber.StatusNotFound, "response_not_found", "Form response not found")
	case errors.Is(err, forms.ErrNotEntitled):
		return jsonError(c, fiber.StatusForbidden, "subscription_required", "An active subscription is required")
	case errors.Is(err, forms.ErrAlreadySubmitted):
		return jsonError(c, fiber.StatusConflict, "already_submitted", "This form has already been submitted")
	}

	fiberlog.Errorf("[API] %s %s: %v", c.Method(), c.Path(), err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Something went wrong")
}
