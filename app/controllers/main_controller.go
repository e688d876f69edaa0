package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach/fitcoach/internal/pkg/plans"
)

// PagesController serves the pricing page and the public plan list.
type PagesController struct {
	plans          *plans.Registry
	companyName    string
	publishableKey string
}

func NewPagesController(registry *plans.Registry, companyName, publishableKey string) *PagesController {
	return &PagesController{plans: registry, companyName: companyName, publishableKey: publishableKey}
}

func (pc *PagesController) RenderIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title":          pc.companyName,
		"Plans":          pc.plans.All(),
		"PublishableKey": pc.publishableKey,
	})
}

func (pc *PagesController) HandlePlans(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"plans": pc.plans.All()})
}
