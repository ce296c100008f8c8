package braintree

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"gatepay/internal/config"
	"gatepay/internal/models"
	"gatepay/internal/providers"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const apiVersion = "6"

var (
	ErrNotFound = errors.New("braintree: resource not found")
)

// Client is the subset of the Braintree gateway API the adapter uses.
type Client interface {
	FindCreditCard(ctx context.Context, token string) (*CreditCard, error)
	DeleteCreditCard(ctx context.Context, token string) error
	FindTransaction(ctx context.Context, id string) (*Transaction, error)
	Sale(ctx context.Context, req SaleRequest) (*Response, error)
	Credit(ctx context.Context, token string, amount decimal.Decimal) (*Response, error)
	SubmitForSettlement(ctx context.Context, id string) (*Response, error)
	Refund(ctx context.Context, id string, amount decimal.NullDecimal) (*Response, error)
	Void(ctx context.Context, id string) (*Response, error)

	TransparentRedirectURL() string
	TransactionData(params url.Values, redirectURL string) string
	ConfirmTransparentRedirect(ctx context.Context, rawQuery string) (*Response, error)
}

// SaleRequest charges a vaulted card.
type SaleRequest struct {
	Token               string
	Amount              decimal.Decimal
	SubmitForSettlement bool
}

type Credentials struct {
	MerchantID string
	PublicKey  string
	PrivateKey string
}

// HTTPClient talks to the Braintree XML gateway API.
type HTTPClient struct {
	baseURL   string
	creds     Credentials
	transport *providers.Transport
	signer    signer
}

var _ Client = (*HTTPClient)(nil)

// BaseURL returns the gateway endpoint for env.
func BaseURL(env config.Environment) string {
	if env.Sandbox() {
		return "https://api.sandbox.braintreegateway.com:443"
	}
	return "https://api.braintreegateway.com:443"
}

// NewHTTPClient builds a client. An empty baseURL selects the endpoint for
// env.
func NewHTTPClient(env config.Environment, baseURL string, creds Credentials, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = BaseURL(env)
	}
	return &HTTPClient{
		baseURL:   baseURL,
		creds:     creds,
		transport: providers.NewTransport("gatepay-braintree", timeout),
		signer: signer{
			publicKey:  creds.PublicKey,
			privateKey: creds.PrivateKey,
			apiVersion: apiVersion,
			now:        time.Now,
		},
	}
}

func (c *HTTPClient) merchantURL(path string) string {
	return fmt.Sprintf("%s/merchants/%s%s", c.baseURL, url.PathEscape(c.creds.MerchantID), path)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	req := providers.Request{
		Method:   method,
		URL:      c.merchantURL(path),
		Username: c.creds.PublicKey,
		Password: c.creds.PrivateKey,
		Headers: map[string]string{
			"Accept":       "application/xml",
			"Content-Type": "application/xml",
			"X-ApiVersion": apiVersion,
		},
	}
	if body != nil {
		data, err := xml.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		req.Body = append([]byte(xml.Header), data...)
	}
	return c.transport.Do(ctx, req)
}

// result interprets a transaction call. Validation failures come back as an
// unsuccessful Response, everything else outside 2xx as an error.
func (c *HTTPClient) result(ctx context.Context, method, path string, body any) (*Response, error) {
	code, data, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	switch {
	case code == fiber.StatusNotFound:
		return nil, ErrNotFound
	case code == fiber.StatusUnprocessableEntity, code >= 200 && code < 300:
		return parseResponse(data)
	}
	return nil, &providers.HTTPError{Status: code, Body: data}
}

func (c *HTTPClient) FindCreditCard(ctx context.Context, token string) (*CreditCard, error) {
	code, data, err := c.do(ctx, fiber.MethodGet, "/payment_methods/credit_card/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, err
	}
	if code == fiber.StatusNotFound {
		return nil, ErrNotFound
	}
	if code != fiber.StatusOK {
		return nil, &providers.HTTPError{Status: code, Body: data}
	}
	var card CreditCard
	if err := xml.Unmarshal(data, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

func (c *HTTPClient) DeleteCreditCard(ctx context.Context, token string) error {
	code, data, err := c.do(ctx, fiber.MethodDelete, "/payment_methods/credit_card/"+url.PathEscape(token), nil)
	if err != nil {
		return err
	}
	if code == fiber.StatusNotFound {
		return ErrNotFound
	}
	if code < 200 || code >= 300 {
		return &providers.HTTPError{Status: code, Body: data}
	}
	return nil
}

func (c *HTTPClient) FindTransaction(ctx context.Context, id string) (*Transaction, error) {
	res, err := c.result(ctx, fiber.MethodGet, "/transactions/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	if res.Transaction == nil {
		return nil, ErrNotFound
	}
	return res.Transaction, nil
}

type transactionRequest struct {
	XMLName            xml.Name            `xml:"transaction"`
	Type               string              `xml:"type,omitempty"`
	Amount             string              `xml:"amount,omitempty"`
	PaymentMethodToken string              `xml:"payment-method-token,omitempty"`
	Options            *transactionOptions `xml:"options,omitempty"`
}

type transactionOptions struct {
	SubmitForSettlement bool `xml:"submit-for-settlement,omitempty"`
}

func (c *HTTPClient) Sale(ctx context.Context, req SaleRequest) (*Response, error) {
	body := transactionRequest{
		Type:               "sale",
		Amount:             req.Amount.StringFixed(2),
		PaymentMethodToken: req.Token,
	}
	if req.SubmitForSettlement {
		body.Options = &transactionOptions{SubmitForSettlement: true}
	}
	return c.result(ctx, fiber.MethodPost, "/transactions", body)
}

func (c *HTTPClient) Credit(ctx context.Context, token string, amount decimal.Decimal) (*Response, error) {
	body := transactionRequest{
		Type:               "credit",
		Amount:             amount.StringFixed(2),
		PaymentMethodToken: token,
	}
	return c.result(ctx, fiber.MethodPost, "/transactions", body)
}

func (c *HTTPClient) SubmitForSettlement(ctx context.Context, id string) (*Response, error) {
	return c.result(ctx, fiber.MethodPut, "/transactions/"+url.PathEscape(id)+"/submit_for_settlement", nil)
}

func (c *HTTPClient) Refund(ctx context.Context, id string, amount decimal.NullDecimal) (*Response, error) {
	var body any
	if amount.Valid {
		body = transactionRequest{Amount: amount.Decimal.StringFixed(2)}
	}
	return c.result(ctx, fiber.MethodPost, "/transactions/"+url.PathEscape(id)+"/refund", body)
}

func (c *HTTPClient) Void(ctx context.Context, id string) (*Response, error) {
	return c.result(ctx, fiber.MethodPut, "/transactions/"+url.PathEscape(id)+"/void", nil)
}

func (c *HTTPClient) TransparentRedirectURL() string {
	return c.merchantURL("/transparent_redirect_requests")
}

func (c *HTTPClient) TransactionData(params url.Values, redirectURL string) string {
	return c.signer.transactionData(params, redirectURL)
}

func (c *HTTPClient) ConfirmTransparentRedirect(ctx context.Context, rawQuery string) (*Response, error) {
	q, err := c.signer.verify(rawQuery)
	if err != nil {
		return nil, err
	}
	switch status, _ := strconv.Atoi(q.Get("http_status")); status {
	case fiber.StatusOK, fiber.StatusCreated, fiber.StatusUnprocessableEntity:
	default:
		return nil, &providers.HTTPError{Status: status}
	}
	id := q.Get("id")
	if id == "" {
		return nil, fmt.Errorf("braintree: redirect query has no id: %w: %w", models.ErrInvalidOptions, models.ErrMissingID)
	}
	return c.result(ctx, fiber.MethodPost, "/transparent_redirect_requests/"+url.PathEscape(id)+"/confirm", nil)
}
