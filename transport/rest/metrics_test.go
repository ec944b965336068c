package rest

import (
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCountRequests(t *testing.T) {
	assert := assert.New(t)
	_, scopes := testScopes(t)
	metrics := NewMetrics()

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(metrics.Handler())
	metrics.InstallTo(app)
	(&RealmController{Scopes: scopes}).InstallTo(app)

	status, _ := doRequest(t, app, "GET", "/realms/NOPE.COM", "")
	assert.Equal(fiber.StatusNotFound, status)
	status, _ = doRequest(t, app, "GET", "/realms", "")
	assert.Equal(fiber.StatusOK, status)

	status, body := doRequest(t, app, "GET", "/metrics", "")
	assert.Equal(fiber.StatusOK, status)
	assert.Contains(body, `appsrv_http_requests_total{method="GET",route="/realms/:name",status="404"} 1`)
	assert.Contains(body, `appsrv_http_requests_total{method="GET",route="/realms",status="200"} 1`)
	assert.Contains(body, `appsrv_http_request_duration_seconds_count{route="/realms"} 1`)
}
