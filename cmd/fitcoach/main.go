package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"

	"github.com/fitcoach/fitcoach/app/controllers"
	"github.com/fitcoach/fitcoach/app/repository"
	"github.com/fitcoach/fitcoach/internal/pkg/billing"
	"github.com/fitcoach/fitcoach/internal/pkg/cache"
	"github.com/fitcoach/fitcoach/internal/pkg/constants"
	"github.com/fitcoach/fitcoach/internal/pkg/database"
	"github.com/fitcoach/fitcoach/internal/pkg/env"
	"github.com/fitcoach/fitcoach/internal/pkg/forms"
	"github.com/fitcoach/fitcoach/internal/pkg/mail"
	"github.com/fitcoach/fitcoach/internal/pkg/metrics"
	"github.com/fitcoach/fitcoach/internal/pkg/plans"
	"github.com/fitcoach/fitcoach/internal/pkg/ratelimit"
	"github.com/fitcoach/fitcoach/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/fitcoach to project root
		"../../../", // Fallback
	}

	basePath := ""
	for _, path := range basePaths {
		if _, err := os.Stat(path + "views"); !os.IsNotExist(err) {
			basePath = path
			break
		}
	}

	if basePath == "" {
		panic("Could not find project root directory")
	}
	if os.Getenv("MAIL_TEMPLATE_DIR") == "" {
		_ = os.Setenv("MAIL_TEMPLATE_DIR", basePath+"templates/email")
	}

	wireControllers()

	app := fiber.New(fiber.Config{
		Views:     html.New(basePath+"views", ".html"),
		BodyLimit: 1 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// prometheus metrics
	app.Get(constants.MetricsPath, basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASS", "change-me"),
		},
	}), metrics.Handler())

	// static files
	app.Static(constants.PublicRoute, basePath+"public/assets", fiber.Static{
		CacheDuration: 15 * time.Second,
		Compress:      true,
	})

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	router.InstallRouter(app, router.NewApiRouter(ratelimit.ConfigFromEnv()))

	return app
}

func wireControllers() {
	registry := plans.NewRegistryFromEnv()
	repos := repository.GetGlobalRepositories()

	notifier, err := mail.NewNotifierFromEnv()
	if err != nil {
		log.Fatalf("[Mail] %v", err)
	}

	store := cache.NewStore(cache.GetClient())
	checkout := billing.NewCheckoutFromEnv(registry, store)
	webhooks := billing.NewServiceFromRepositories(database.GetDB(), repos, registry, notifier)

	controllers.InitializeControllers(
		controllers.NewBillingController(checkout, webhooks),
		controllers.NewFormsController(forms.NewServiceFromRepositories(repos)),
		controllers.NewPagesController(
			registry,
			env.GetEnv("COMPANY_NAME", "FitCoach"),
			env.GetEnv("STRIPE_PUBLISHABLE_KEY", ""),
		),
	)
}
