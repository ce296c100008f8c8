package spreedly

import (
	"time"

	"github.com/goccy/go-json"
)

// FieldError is a validation error attached to a payment method.
type FieldError struct {
	Attribute string `json:"attribute"`
	Key       string `json:"key"`
	Message   string `json:"message"`
}

type PaymentMethod struct {
	Token             string       `json:"token"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
	StorageState      string       `json:"storage_state"`
	PaymentMethodType string       `json:"payment_method_type"`
	CardType          string       `json:"card_type"`
	FirstName         string       `json:"first_name"`
	LastName          string       `json:"last_name"`
	FullName          string       `json:"full_name"`
	Number            string       `json:"number"`
	LastFourDigits    string       `json:"last_four_digits"`
	Month             int          `json:"month"`
	Year              int          `json:"year"`
	VerificationValue string       `json:"verification_value"`
	Errors            []FieldError `json:"errors"`
}

// GatewayResponse is the raw processor answer embedded in a transaction.
type GatewayResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ErrorCode   string `json:"error_code"`
	ErrorDetail string `json:"error_detail"`
}

type Transaction struct {
	Token           string           `json:"token"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	Succeeded       bool             `json:"succeeded"`
	State           string           `json:"state"`
	TransactionType string           `json:"transaction_type"`
	Amount          *int64           `json:"amount"`
	CurrencyCode    string           `json:"currency_code"`
	MessageKey      string           `json:"message_key"`
	Message         string           `json:"message"`
	GatewayToken    string           `json:"gateway_token"`
	Response        *GatewayResponse `json:"response"`
	PaymentMethod   *PaymentMethod   `json:"payment_method"`
}

// Gateway is a gateway descriptor. Characteristics is kept raw and parsed
// by the adapter.
type Gateway struct {
	Token           string          `json:"token"`
	GatewayType     string          `json:"gateway_type"`
	State           string          `json:"state"`
	Characteristics json.RawMessage `json:"characteristics"`
}

// GatewayRequest runs a payment method against a gateway. Amount is in
// minor units; an empty CurrencyCode leaves the gateway default.
type GatewayRequest struct {
	PaymentMethodToken string
	Amount             int64
	CurrencyCode       string
}

type apiError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}
