package middleware

import (
	"time"

	"gatepay/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const HeaderRequestID = "X-Request-ID"

// RequestLogger tags each request with an id, attaches a request scoped
// logger to the user context and logs the request once it completes.
func RequestLogger(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		id := c.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(HeaderRequestID, id)

		log := base.With(zap.String("request_id", id))
		c.SetUserContext(logging.ContextWithLogger(c.UserContext(), log))

		err := c.Next()
		if err != nil {
			// Let the app error handler pick the status before logging.
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		logging.FromContext(c.UserContext()).Info("request", fields...)
		return nil
	}
}
