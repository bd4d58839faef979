package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuelReschke/GuildPay/internal/pkg/metrics"
)

// MetricsRouter exposes the fiber monitor and the Prometheus registry behind
// basic auth. Without a password both routes stay unregistered.
type MetricsRouter struct {
	user     string
	password string
}

func (m MetricsRouter) InstallRouter(app *fiber.App) {
	if m.password == "" {
		return
	}

	// make sure the collectors exist before the first scrape
	metrics.Get()

	auth := basicauth.New(basicauth.Config{
		Users: map[string]string{
			m.user: m.password,
		},
	})
	app.Get("/metrics", auth, monitor.New())
	app.Get("/metrics/prometheus", auth, adaptor.HTTPHandler(promhttp.Handler()))
}

func NewMetricsRouter(user, password string) *MetricsRouter {
	if user == "" {
		user = "admin"
	}
	return &MetricsRouter{user: user, password: password}
}
