package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/focusdiff/focusdiff/app/models"
	"github.com/focusdiff/focusdiff/app/repository"
	"github.com/focusdiff/focusdiff/internal/pkg/env"
	"github.com/focusdiff/focusdiff/internal/pkg/generation"
	"github.com/focusdiff/focusdiff/internal/pkg/payment"
	"github.com/focusdiff/focusdiff/internal/pkg/usercontext"
)

// HandleStart renders the studio page: prompt form, credit balance and the
// user's recent generations.
func HandleStart(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	var recent []models.Generation
	if userCtx.IsLoggedIn {
		gens := repository.GetGlobalFactory().GetGenerationRepository()
		if rows, err := gens.GetByUserID(userCtx.UserID, 0, 12); err == nil {
			recent = rows
		}
	}

	return c.Render("index", fiber.Map{
		"Title":      "Studio",
		"Flash":      flash.Get(c),
		"User":       userCtx,
		"Recent":     recent,
		"ImageCost":  generation.CostImage,
		"VideoCost":  generation.CostVideo,
		"IsDev":      env.IsDev(),
		"IsLoggedIn": userCtx.IsLoggedIn,
	}, "layouts/main")
}

// HandleBuyCredits renders the checkout page for the fixed credit pack.
func HandleBuyCredits(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	return c.Render("buy_credits", fiber.Map{
		"Title":        "Buy credits",
		"Flash":        flash.Get(c),
		"User":         userCtx,
		"PackPriceUSD": payment.PackPriceUSD,
		"PackCredits":  payment.PackCredits,
		"StripePubKey": env.GetEnv("STRIPE_PUBLISHABLE_KEY", ""),
		"IsLoggedIn":   userCtx.IsLoggedIn,
	}, "layouts/main")
}
