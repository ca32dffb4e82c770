package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/focusdiff/focusdiff/app/controllers"
	"github.com/focusdiff/focusdiff/internal/pkg/database"
	"github.com/focusdiff/focusdiff/internal/pkg/ledger"
	"github.com/focusdiff/focusdiff/internal/pkg/session"
	"github.com/focusdiff/focusdiff/internal/pkg/usercontext"
)

// UserContextMiddleware sets up the complete user context for every request.
// The credit balance comes from the ledger's cached read path; every ledger
// mutation writes through that cache, so pages and API responses still show
// the post-debit value.
func UserContextMiddleware(c *fiber.Ctx) error {
	// Avoid interfering with Goth/Fiber session handling on OAuth routes.
	// Goth uses its own fiber session store and relies on per-request locals.
	// We skip our app session on /auth/* to prevent cross-store collisions.
	if strings.HasPrefix(c.Path(), "/auth/") {
		return c.Next()
	}

	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(controllers.FROM_PROTECTED, false)
		return c.Next()
	}

	userID := sess.Get(controllers.USER_ID)
	if userID == nil {
		c.Locals("USER_CONTEXT", usercontext.UserContext{IsLoggedIn: false})
		c.Locals(controllers.FROM_PROTECTED, false)
		return c.Next()
	}

	username := session.GetSessionValue(c, controllers.USER_NAME)
	email := session.GetSessionValue(c, controllers.USER_EMAIL)

	credits := 0
	if db := database.GetDB(); db != nil {
		if balance, err := ledger.NewServiceFromDB(db).Balance(c.UserContext(), userID.(uint)); err == nil {
			credits = balance
		}
	}

	userCtx := usercontext.UserContext{
		UserID:     userID.(uint),
		Username:   username,
		Email:      email,
		Credits:    credits,
		IsLoggedIn: true,
	}
	c.Locals("USER_CONTEXT", userCtx)

	c.Locals(controllers.FROM_PROTECTED, true)
	c.Locals(controllers.USER_NAME, username)
	c.Locals(controllers.USER_ID, userID.(uint))

	return c.Next()
}
