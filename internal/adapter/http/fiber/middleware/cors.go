package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	fibercors "github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/seu-repo/ai-playground/pkg/config"
)

// NewCORS lets a browser front end on another origin drive the gateway.
func NewCORS(cfg config.UIConfig) fiber.Handler {
	allowedOrigins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.AllowedOrigins, ",")
	}

	return fibercors.New(fibercors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  "GET,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,X-Request-ID",
		ExposeHeaders: "Content-Length",
		MaxAge:        86400, // 24 hours
	})
}
