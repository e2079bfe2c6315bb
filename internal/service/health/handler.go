package health

import (
	"github.com/gofiber/fiber/v2"
)

// FiberHandler creates Fiber routes for health checks
type FiberHandler struct {
	service *Service
}

func NewFiberHandler(service *Service) *FiberHandler {
	return &FiberHandler{service: service}
}

func (h *FiberHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health/live", h.Health)
	app.Get("/health/ready", h.Ready)
}

// Health handles the liveness probe
func (h *FiberHandler) Health(c *fiber.Ctx) error {
	response := h.service.Health(c.UserContext())
	return c.Status(fiber.StatusOK).JSON(response)
}

// Ready handles the readiness probe
func (h *FiberHandler) Ready(c *fiber.Ctx) error {
	response := h.service.Ready(c.UserContext())

	status := fiber.StatusOK
	if !response.Ready {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(response)
}
