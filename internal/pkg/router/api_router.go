package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/GuildPay/internal/api/v1"
)

type ApiRouter struct {
	plans apiv1.PlanLister
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	v1 := api.Group("/v1")
	apiv1.RegisterHandlers(v1, apiv1.NewAPIServer(h.plans))
}

func NewApiRouter(plans apiv1.PlanLister) *ApiRouter {
	return &ApiRouter{plans: plans}
}
