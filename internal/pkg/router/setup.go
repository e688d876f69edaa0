package router

import (
	"github.com/gofiber/fiber/v2"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// InstallRouter mounts the page router and the JSON API. Controllers must
// be initialized before.
func InstallRouter(app *fiber.App, api *ApiRouter) {
	setup(app, NewHttpRouter(), api)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
