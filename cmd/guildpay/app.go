package main

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	apiv1 "github.com/ManuelReschke/GuildPay/internal/api/v1"
	"github.com/ManuelReschke/GuildPay/internal/pkg/router"
)

const openAPIFile = "public/docs/v1/openapi.yml"

// findBasePath locates the project root relative to the working directory.
func findBasePath() string {
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/guildpay to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + openAPIFile); err == nil {
			return path
		}
	}
	return ""
}

func NewApplication(deps router.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "GuildPay " + Version,
		// Stripe payloads are small; keep the limit tight
		BodyLimit: 1 << 20,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath := findBasePath(); basePath != "" {
		if _, err := apiv1.LoadDocument(basePath + openAPIFile); err != nil {
			fiberlog.Warnf("[HTTP] API docs disabled: %v", err)
		} else {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/docs/api/",
				FilePath: basePath + openAPIFile,
				Path:     "v1",
			}))
		}
	} else {
		fiberlog.Warn("[HTTP] API docs disabled: openapi.yml not found")
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}
