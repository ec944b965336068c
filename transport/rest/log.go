package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// LogHandler logs every handled request together with its outcome.
func LogHandler() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		start := time.Now()
		err := ctx.Next()

		status := ctx.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		requestLog(ctx).
			WithField("status", status).
			WithField("took", time.Since(start)).
			Infoln("Handled request.")
		return err
	}
}
