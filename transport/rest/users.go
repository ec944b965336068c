package rest

import (
	"fmt"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/gofiber/fiber/v2"
)

type UserController struct {
	Scopes appsrv.ScopeFactory
}

func (c *UserController) InstallTo(app *fiber.App) {
	app.Get("/users/:user_id", c.serveProfile)
	app.Post("/users", c.serveCreateProfile)
}

func (c *UserController) serveProfile(ctx *fiber.Ctx) error {
	userId := ctx.Params("user_id")
	if userId == "" {
		return fiber.NewError(fiber.StatusBadRequest, "no user id")
	}

	profile, err := c.Scopes().Profiles.ByUserId(ctx.UserContext(), userId)
	if err != nil {
		return fmt.Errorf("get profile by user id: %w", err)
	}
	return ctx.JSON(profile)
}

type createProfileBody struct {
	Realm     string `json:"realm"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Birthday  string `json:"birthday"`
}

func (c *UserController) serveCreateProfile(ctx *fiber.Ctx) error {
	var body createProfileBody
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	profile := appsrv.UserProfile{
		RealmName: body.Realm,
		Username:  body.Username,
		Email:     body.Email,
		Firstname: body.Firstname,
		Lastname:  body.Lastname,
	}
	if body.Birthday != "" {
		birthday, err := time.Parse("2006-01-02", body.Birthday)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid birthday")
		}
		profile.Birthday = birthday
	}

	scope := c.Scopes()
	// the realm must exist before anything references it
	found, err := scope.Context.Realms().Contains(ctx.UserContext(), profile.RealmName)
	if err != nil {
		return fmt.Errorf("realm lookup: %w", err)
	}
	if !found {
		return fiber.NewError(fiber.StatusBadRequest, "unknown realm")
	}

	added, err := scope.UserProfiles.Add(ctx.UserContext(), profile)
	if err != nil {
		return fmt.Errorf("add user profile: %w", err)
	}
	if _, err := scope.Context.Commit(ctx.UserContext()); err != nil {
		return fmt.Errorf("commit user profile: %w", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(added)
}
