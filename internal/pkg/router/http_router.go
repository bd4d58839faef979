package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/GuildPay/app/controllers"
	"github.com/ManuelReschke/GuildPay/internal/pkg/session"
)

type HttpRouter struct {
	oauth          *controllers.OAuthController
	sessionStorage fiber.Storage
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewStore(h.sessionStorage)

	h.registerPublicRoutes(app)
}

func NewHttpRouter(deps Dependencies) *HttpRouter {
	return &HttpRouter{oauth: deps.OAuth, sessionStorage: deps.SessionStorage}
}
