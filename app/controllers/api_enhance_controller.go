package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// HandleEnhancePrompt expands a raw prompt via the LLM bridge. Free, and it
// degrades to echoing the input on any upstream trouble.
func HandleEnhancePrompt(c *fiber.Ctx) error {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Prompt is required"})
	}

	return c.JSON(fiber.Map{
		"enhanced_prompt": getEnhanceClient().Enhance(c.UserContext(), prompt),
	})
}
