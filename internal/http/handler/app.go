package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"certverify/internal/config"
	"certverify/internal/http/middleware"
	"certverify/internal/http/views"
)

// NewApp builds the Fiber app shared by the server and the handler tests,
// with panic recovery and request IDs installed.
//
// Paths are routed undecoded so that an escaped "/" inside an identifier
// stays within its segment; handlers decode their params with pathParam.
func NewApp(cfg *config.AppConfig, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "certverify",
		BodyLimit:             cfg.BodyLimit(),
		Views:                 views.New(),
		ErrorHandler:          ErrorHandler(logger),
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	return app
}

// pathParam returns the decoded value of a route param.
func pathParam(c *fiber.Ctx, name string) (string, error) {
	v, err := url.PathUnescape(c.Params(name))
	if err != nil {
		return "", fiber.ErrNotFound
	}
	return v, nil
}
