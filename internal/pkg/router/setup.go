package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/app/controllers"
	apiv1 "github.com/ManuelReschke/GuildPay/internal/api/v1"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// Dependencies carries the wired controllers into the routers.
type Dependencies struct {
	OAuth   *controllers.OAuthController
	Webhook *controllers.WebhookController
	Plans   apiv1.PlanLister

	// SessionStorage backs the browser session of the OAuth round trip.
	// nil keeps sessions in memory.
	SessionStorage fiber.Storage

	MetricsUser     string
	MetricsPassword string
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// The HttpRouter initializes the session store the OAuth routes use, so
	// it goes first.
	setup(app,
		NewHttpRouter(deps),
		NewWebhookRouter(deps.Webhook),
		NewApiRouter(deps.Plans),
		NewMetricsRouter(deps.MetricsUser, deps.MetricsPassword),
	)
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
