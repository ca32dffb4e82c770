package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/focusdiff/focusdiff/app/controllers"
	"github.com/focusdiff/focusdiff/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	v1.Get("/account", middleware.RequireAPISessionAuth, controllers.HandleGetAccount)
	v1.Post("/enhance", middleware.RequireAPISessionAuth, controllers.HandleEnhancePrompt)
	v1.Post("/generate", middleware.RequireAPISessionAuth, controllers.HandleGenerateImage)
	v1.Post("/animate", middleware.RequireAPISessionAuth, controllers.HandleAnimateImage)
	v1.Get("/generations/progress", middleware.RequireAPISessionAuth, controllers.HandleGenerationProgress)
	v1.Post("/payment-intent", middleware.RequireAPISessionAuth, controllers.HandleCreatePaymentIntent)
	v1.Post("/payment-confirm", middleware.RequireAPISessionAuth, controllers.HandleConfirmPayment)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
