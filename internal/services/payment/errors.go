package payment

import (
	"errors"

	"gatepay/internal/models"
)

// Error kinds used as metric labels and journal metadata.
const (
	KindNotSupported   = "not_supported"
	KindUnimplemented  = "unimplemented"
	KindNotFound       = "not_found"
	KindInvalidAction  = "invalid_action"
	KindInvalidCard    = "invalid_card"
	KindMissingField   = "missing_field"
	KindValidation     = "validation"
	KindUnknownGateway = "unknown_gateway"
	KindVendor         = "vendor"
)

// ErrorKind classifies an action error.
func ErrorKind(err error) string {
	var (
		invalidAction *models.InvalidActionError
		invalidCard   *models.InvalidCardError
		missingField  *models.MissingFieldError
		unknown       *unknownGatewayError
	)
	switch {
	case errors.As(err, &unknown):
		return KindUnknownGateway
	case errors.Is(err, models.ErrNotSupported):
		return KindNotSupported
	case errors.Is(err, models.ErrUnimplemented):
		return KindUnimplemented
	case errors.Is(err, models.ErrNotFound):
		return KindNotFound
	case errors.Is(err, models.ErrInvalidOptions):
		return KindValidation
	case errors.As(err, &invalidAction):
		return KindInvalidAction
	case errors.As(err, &invalidCard):
		return KindInvalidCard
	case errors.As(err, &missingField):
		return KindMissingField
	}
	return KindVendor
}
