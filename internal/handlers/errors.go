package handlers

import (
	"errors"

	"gatepay/internal/gateways"
	"gatepay/internal/logging"
	"gatepay/internal/services/payment"
	"gatepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var kindStatus = map[string]int{
	payment.KindNotFound:       fiber.StatusNotFound,
	payment.KindUnknownGateway: fiber.StatusNotFound,
	payment.KindInvalidAction:  fiber.StatusConflict,
	payment.KindInvalidCard:    fiber.StatusUnprocessableEntity,
	payment.KindMissingField:   fiber.StatusUnprocessableEntity,
	payment.KindValidation:     fiber.StatusUnprocessableEntity,
	payment.KindNotSupported:   fiber.StatusNotImplemented,
	payment.KindUnimplemented:  fiber.StatusNotImplemented,
	payment.KindVendor:         fiber.StatusBadGateway,
}

// paymentError writes the response for an error returned by the payment
// service.
func paymentError(c *fiber.Ctx, err error) error {
	kind := payment.ErrorKind(err)
	if errors.Is(err, gateways.ErrUnknownGateway) {
		kind = payment.KindUnknownGateway
	}
	status, ok := kindStatus[kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}

	msg := err.Error()
	if kind == payment.KindVendor {
		logging.FromContext(c.UserContext()).Error("gateway request failed", zap.Error(err))
		msg = "gateway request failed"
	}
	return response.Problem(c, status, kind, msg)
}
