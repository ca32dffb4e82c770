package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/focusdiff/focusdiff/internal/pkg/generation"
	"github.com/focusdiff/focusdiff/internal/pkg/ledger"
	"github.com/focusdiff/focusdiff/internal/pkg/usercontext"
)

// HandleGenerateImage runs the costed text-to-image operation.
func HandleGenerateImage(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req generation.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	gen, balance, err := getGenerationService().Generate(c.UserContext(), userID, req)
	if err != nil {
		return generationError(c, err)
	}

	return c.JSON(fiber.Map{
		"uuid":      gen.UUID,
		"kind":      gen.Kind,
		"image_url": gen.ResultURL,
		"cost":      gen.Cost,
		"credits":   balance,
	})
}

// HandleAnimateImage runs the costed image-to-video operation.
func HandleAnimateImage(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req generation.AnimateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	gen, balance, err := getGenerationService().Animate(c.UserContext(), userID, req)
	if err != nil {
		return generationError(c, err)
	}

	return c.JSON(fiber.Map{
		"uuid":      gen.UUID,
		"kind":      gen.Kind,
		"video_url": gen.ResultURL,
		"cost":      gen.Cost,
		"credits":   balance,
	})
}

// HandleGenerationProgress returns the live log lines of the caller's
// in-flight operation. Polled by the page while a generation runs.
func HandleGenerationProgress(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	return c.JSON(fiber.Map{
		"in_flight": progressStore.InFlight(userID),
		"lines":     progressStore.Lines(userID),
	})
}

// generationError maps orchestrator failures onto the API's JSON error shape.
func generationError(c *fiber.Ctx, err error) error {
	var invalid validator.ValidationErrors
	switch {
	case errors.Is(err, ledger.ErrInsufficientCredits):
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"error":   "insufficient_credits",
			"message": "Not enough credits for this operation",
		})
	case errors.Is(err, generation.ErrNoSourceImage):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "no_source_image",
			"message": "Generate an image before animating",
		})
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": err.Error(),
		})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "generation_failed",
			"message": err.Error(),
		})
	}
}
