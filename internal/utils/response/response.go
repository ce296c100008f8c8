package response

import (
	"gatepay/internal/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// Problem is Error with a machine readable kind.
func Problem(c *fiber.Ctx, status int, kind, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
		"kind":  kind,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func ServerError(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusInternalServerError, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

// ValidationError reports field errors with status 422.
func ValidationError(c *fiber.Ctx, fields interface{}) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  "validation failed",
		"kind":   "validation",
		"fields": fields,
	})
}

func Paginated(c *fiber.Ctx, p pagination.Pagination, data interface{}) error {
	return c.JSON(pagination.Response(p, data))
}
