package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/GuildPay/app/controllers"
)

type WebhookRouter struct {
	webhook *controllers.WebhookController
}

func (w WebhookRouter) InstallRouter(app *fiber.App) {
	// no CSRF, the controller verifies the Stripe signature
	stripeGroup := app.Group("/stripe", limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
	}))
	stripeGroup.Post("/webhook", w.webhook.HandleStripeWebhook)
}

func NewWebhookRouter(webhook *controllers.WebhookController) *WebhookRouter {
	return &WebhookRouter{webhook: webhook}
}
