package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/app/controllers"
)

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/", controllers.HandleIndex)

	// Stripe Connect round trip
	app.Get("/connect", h.oauth.HandleConnect)
	app.Get("/oauth/callback", h.oauth.HandleCallback)

	// Checkout landing pages
	app.Get("/checkout/success", controllers.HandleCheckoutSuccess)
	app.Get("/checkout/cancel", controllers.HandleCheckoutCancel)
}
