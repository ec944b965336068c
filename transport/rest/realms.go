package rest

import (
	"fmt"
	"time"

	"github.com/buzkaaclicker/appsrv"
	"github.com/gofiber/fiber/v2"
)

const maxRealmsPage = 100

type RealmController struct {
	Scopes appsrv.ScopeFactory
}

func (c *RealmController) InstallTo(app *fiber.App) {
	app.Get("/realms", c.serveRealms)
	app.Get("/realms/:name", c.serveRealm)
	app.Post("/realms", c.serveCreateRealm)
	app.Put("/realms/:name", c.serveUpdateRealm)
	app.Delete("/realms/:name", c.serveDeleteRealm)
}

// Lifetimes in seconds, like the profile projection.
type realmBody struct {
	Name                     string    `json:"name"`
	MaximumTicketLifetime    int64     `json:"maximumTicketLifetime"`
	MaximumRenewableLifetime int64     `json:"maximumRenewableLifetime"`
	MinimumTicketLifetime    int64     `json:"minimumTicketLifetime"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
	Version                  int64     `json:"version"`
}

func (b realmBody) realm() appsrv.Realm {
	return appsrv.Realm{
		Name:                     b.Name,
		MaximumTicketLifetime:    time.Duration(b.MaximumTicketLifetime) * time.Second,
		MaximumRenewableLifetime: time.Duration(b.MaximumRenewableLifetime) * time.Second,
		MinimumTicketLifetime:    time.Duration(b.MinimumTicketLifetime) * time.Second,
		Version:                  b.Version,
	}
}

func newRealmBody(r appsrv.Realm) realmBody {
	return realmBody{
		Name:                     r.Name,
		MaximumTicketLifetime:    int64(r.MaximumTicketLifetime / time.Second),
		MaximumRenewableLifetime: int64(r.MaximumRenewableLifetime / time.Second),
		MinimumTicketLifetime:    int64(r.MinimumTicketLifetime / time.Second),
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
		Version:                  r.Version,
	}
}

func (c *RealmController) serveRealms(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", maxRealmsPage)
	offset := ctx.QueryInt("offset", 0)
	if limit <= 0 || limit > maxRealmsPage || offset < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid paging")
	}

	realms, err := c.Scopes().Context.Realms().
		OrderBy(appsrv.RealmFieldName).
		Limit(limit).
		Offset(offset).
		List(ctx.UserContext())
	if err != nil {
		return fmt.Errorf("list realms: %w", err)
	}
	bodies := make([]realmBody, len(realms))
	for i, r := range realms {
		bodies[i] = newRealmBody(r)
	}
	return ctx.JSON(bodies)
}

func (c *RealmController) serveRealm(ctx *fiber.Ctx) error {
	realm, err := c.Scopes().Context.Realms().ByKey(ctx.UserContext(), ctx.Params("name"))
	if err != nil {
		return fmt.Errorf("get realm: %w", err)
	}
	return ctx.JSON(newRealmBody(realm))
}

func (c *RealmController) serveCreateRealm(ctx *fiber.Ctx) error {
	var body realmBody
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}

	scope := c.Scopes()
	added, err := scope.Realms.Add(ctx.UserContext(), body.realm())
	if err != nil {
		return fmt.Errorf("add realm: %w", err)
	}
	if _, err := scope.Context.Commit(ctx.UserContext()); err != nil {
		return fmt.Errorf("commit realm: %w", err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(newRealmBody(added))
}

func (c *RealmController) serveUpdateRealm(ctx *fiber.Ctx) error {
	var body realmBody
	if err := ctx.BodyParser(&body); err != nil {
		requestLog(ctx).WithError(err).Infoln("Invalid body.")
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	// realm names are immutable
	body.Name = ctx.Params("name")

	scope := c.Scopes()
	if err := scope.Realms.Update(ctx.UserContext(), body.realm()); err != nil {
		return fmt.Errorf("update realm: %w", err)
	}
	if _, err := scope.Context.Commit(ctx.UserContext()); err != nil {
		return fmt.Errorf("commit realm: %w", err)
	}
	updated, err := scope.Context.Realms().ByKey(ctx.UserContext(), body.Name)
	if err != nil {
		return fmt.Errorf("reload realm: %w", err)
	}
	return ctx.JSON(newRealmBody(updated))
}

func (c *RealmController) serveDeleteRealm(ctx *fiber.Ctx) error {
	scope := c.Scopes()
	name := ctx.Params("name")

	referenced, err := scope.Context.UserProfiles().
		Where(appsrv.UserProfileFieldRealm, name).
		Count(ctx.UserContext())
	if err != nil {
		return fmt.Errorf("count realm users: %w", err)
	}
	if referenced > 0 {
		return fiber.NewError(fiber.StatusConflict, "realm has user profiles")
	}

	if err := scope.Realms.Delete(ctx.UserContext(), appsrv.Realm{Name: name}); err != nil {
		return fmt.Errorf("delete realm: %w", err)
	}
	if _, err := scope.Context.Commit(ctx.UserContext()); err != nil {
		return fmt.Errorf("commit realm delete: %w", err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
