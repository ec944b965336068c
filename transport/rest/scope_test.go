package rest

import (
	"io"
	"io/ioutil"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buzkaaclicker/appsrv"
	"github.com/buzkaaclicker/appsrv/inmem"
	"github.com/buzkaaclicker/appsrv/profile"
	"github.com/gofiber/fiber/v2"
	"github.com/tidwall/buntdb"
)

func testScopes(t *testing.T) (*buntdb.DB, appsrv.ScopeFactory) {
	db, err := inmem.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db, func() appsrv.Scope {
		dc := inmem.NewDataContext(db)
		realms := inmem.NewRealmRepository(dc)
		profiles := inmem.NewUserProfileRepository(dc)
		return appsrv.Scope{
			Context:      dc,
			Realms:       realms,
			UserProfiles: profiles,
			Profiles:     &profile.Service{UserProfiles: profiles, Realms: realms},
		}
	}
}

func testApp(controllers ...interface{ InstallTo(*fiber.App) }) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	for _, c := range controllers {
		c.InstallTo(app)
	}
	return app
}

func doRequest(t *testing.T, app *fiber.App, method string, path string, body string) (int, string) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(respBody)
}

