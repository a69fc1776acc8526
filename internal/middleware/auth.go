package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

const (
	localAccount = "account"
	localAdmin   = "admin"
	localToken   = "token"
)

type UserAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

type AdminAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.Admin, error)
}

func bearer(c *fiber.Ctx) (string, error) {
	token, err := utils.ExtractToken(c)
	if err != nil {
		return "", apperr.Auth("Unauthorized, token missing")
	}
	return token, nil
}

// RequireUser rejects the request unless it carries a live user token.
func RequireUser(users UserAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearer(c)
		if err != nil {
			return err
		}
		acct, err := users.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(localAccount, acct)
		c.Locals(localToken, token)
		return c.Next()
	}
}

func RequireAdmin(admins AdminAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearer(c)
		if err != nil {
			return err
		}
		admin, err := admins.Authenticate(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(localAdmin, admin)
		c.Locals(localToken, token)
		return c.Next()
	}
}

// RequireAny accepts either a user or an admin token. The two signers never
// verify each other's tokens, so at most one of the lookups can succeed.
func RequireAny(users UserAuthenticator, admins AdminAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := bearer(c)
		if err != nil {
			return err
		}
		if acct, userErr := users.Authenticate(c.UserContext(), token); userErr == nil {
			c.Locals(localAccount, acct)
		} else if admin, adminErr := admins.Authenticate(c.UserContext(), token); adminErr == nil {
			c.Locals(localAdmin, admin)
		} else {
			return userErr
		}
		c.Locals(localToken, token)
		return c.Next()
	}
}

// OptionalUser attaches the account when a valid user token is present and
// lets anonymous requests through.
func OptionalUser(users UserAuthenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := utils.ExtractToken(c)
		if err != nil {
			return c.Next()
		}
		if acct, err := users.Authenticate(c.UserContext(), token); err == nil {
			c.Locals(localAccount, acct)
			c.Locals(localToken, token)
		}
		return c.Next()
	}
}

func Account(c *fiber.Ctx) (*models.Account, bool) {
	acct, ok := c.Locals(localAccount).(*models.Account)
	return acct, ok && acct != nil
}

func Admin(c *fiber.Ctx) (*models.Admin, bool) {
	admin, ok := c.Locals(localAdmin).(*models.Admin)
	return admin, ok && admin != nil
}

func Token(c *fiber.Ctx) string {
	token, _ := c.Locals(localToken).(string)
	return token
}

// Author returns whoever authenticated the request as a question author.
func Author(c *fiber.Ctx) (models.Author, bool) {
	if acct, ok := Account(c); ok {
		return models.UserAuthor(acct.ID), true
	}
	if admin, ok := Admin(c); ok {
		return models.AdminAuthor(admin.ID), true
	}
	return models.Author{}, false
}
