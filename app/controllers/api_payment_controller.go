package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/focusdiff/focusdiff/internal/pkg/payment"
	"github.com/focusdiff/focusdiff/internal/pkg/usercontext"
)

// HandleCreatePaymentIntent opens a card payment for the credit pack and
// returns the client secret for the browser checkout flow.
func HandleCreatePaymentIntent(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	intent, err := getPaymentService().BeginPurchase(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentSetupFailed) {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error":   "payment_setup_failed",
				"message": "Could not start the payment. Please try again.",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "internal_server_error",
			"message": "Could not start the payment",
		})
	}

	return c.JSON(fiber.Map{
		"payment_intent_id": intent.ID,
		"client_secret":     intent.ClientSecret,
	})
}

// HandleConfirmPayment verifies a finished card payment and credits the pack.
func HandleConfirmPayment(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	var req struct {
		PaymentIntentID string `json:"payment_intent_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if strings.TrimSpace(req.PaymentIntentID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "payment_intent_id is required"})
	}

	balance, err := getPaymentService().ConfirmPurchase(c.UserContext(), userID, req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentIncomplete) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "payment_incomplete",
				"message": "The payment has not succeeded yet",
			})
		}
		if errors.Is(err, payment.ErrAlreadyRedeemed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":   "payment_already_redeemed",
				"message": "This payment has already been credited",
			})
		}
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error":   "payment_verify_failed",
			"message": "Could not verify the payment",
		})
	}

	return c.JSON(fiber.Map{
		"credits_added": payment.PackCredits,
		"credits":       balance,
	})
}
