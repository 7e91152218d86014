package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers all HTTP routes on the Fiber app. nc may be nil
// when event publishing is disabled. admin guards the mutating admin routes.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, handler *RFQHandler, admin fiber.Handler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"nats": "disabled",
		}
		status := "ok"
		code := fiber.StatusOK

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	})

	// Taker-facing auction API
	app.Post("/rfq", handler.CreateRFQ)
	app.Get("/rfq/:id", handler.GetRFQ)
	app.Get("/rfqs", handler.ListRFQs)
	app.Post("/rfq/:id/fill", handler.FillRFQ)
	app.Post("/rfq/:id/cancel", admin, handler.CancelRFQ)

	// Maker directory
	app.Post("/makers", admin, handler.AddMaker)
	app.Get("/makers", handler.ListMakers)
}
