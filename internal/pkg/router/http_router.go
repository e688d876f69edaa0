package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fitcoach/fitcoach/app/controllers"
	"github.com/fitcoach/fitcoach/internal/pkg/constants"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get(constants.PublicRoute, controllers.RenderIndex)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
