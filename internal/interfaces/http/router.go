package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName      string
	GetOperation OperationGetter
	JWTSecret    string
}

// Router registra las rutas de la API de consulta.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	operations := protected.Group("/operations")
	operationHandler := NewOperationHandler(deps.GetOperation)
	operations.Get("/:id", operationHandler.GetByID)
}
