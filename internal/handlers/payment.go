package handlers

import (
	"context"

	"gatepay/internal/models"
	"gatepay/internal/presenter"
	"gatepay/internal/repositories"
	"gatepay/internal/services/payment"
	"gatepay/internal/utils/pagination"
	"gatepay/internal/utils/response"
	"gatepay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// JournalReader lists journaled gateway actions.
type JournalReader interface {
	List(ctx context.Context, f repositories.JournalFilter) ([]models.OperationRecord, int64, error)
}

type PaymentHandler struct {
	paymentService payment.Service
	journal        JournalReader
}

// NewPaymentHandler creates the handler. journal may be nil, in which case
// the journal listing answers 501.
func NewPaymentHandler(svc payment.Service, journal JournalReader) *PaymentHandler {
	return &PaymentHandler{
		paymentService: svc,
		journal:        journal,
	}
}

type amountInput struct {
	Amount string `json:"amount"`
}

type submissionInput struct {
	RedirectURL string `json:"redirect_url"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Vault       bool   `json:"vault"`
	Token       string `json:"token"`
}

type confirmInput struct {
	// Query is the raw query string the gateway redirected with.
	Query   string `json:"query"`
	Execute string `json:"execute"`
	Amount  string `json:"amount"`
}

func (h *PaymentHandler) ListGateways(c *fiber.Ctx) error {
	return response.Success(c, "Gateways", h.paymentService.Gateways())
}

func (h *PaymentHandler) Capabilities(c *fiber.Ctx) error {
	caps, err := h.paymentService.Capabilities(c.UserContext(), c.Params("gateway"))
	if err != nil {
		return paymentError(c, err)
	}
	return response.Success(c, "Capabilities", caps)
}

func (h *PaymentHandler) GetInstrument(c *fiber.Ctx) error {
	in, err := h.paymentService.LookupInstrument(c.UserContext(), c.Params("gateway"), c.Params("id"))
	if err != nil {
		return paymentError(c, err)
	}
	return response.Success(c, "Instrument", presenter.FromInstrument(in))
}

func (h *PaymentHandler) DeleteInstrument(c *fiber.Ctx) error {
	return h.byID(c, h.paymentService.DeleteInstrument)
}

func (h *PaymentHandler) RetainInstrument(c *fiber.Ctx) error {
	return h.byID(c, h.paymentService.RetainInstrument)
}

func (h *PaymentHandler) Authorize(c *fiber.Ctx) error {
	return h.chargeAction(c, h.paymentService.Authorize)
}

func (h *PaymentHandler) Purchase(c *fiber.Ctx) error {
	return h.chargeAction(c, h.paymentService.Purchase)
}

func (h *PaymentHandler) Credit(c *fiber.Ctx) error {
	return h.chargeAction(c, h.paymentService.Credit)
}

func (h *PaymentHandler) GetOperation(c *fiber.Ctx) error {
	op, err := h.paymentService.LookupOperation(c.UserContext(), c.Params("gateway"), c.Params("id"))
	if err != nil {
		return paymentError(c, err)
	}
	return response.Success(c, "Operation", presenter.FromOperation(op))
}

func (h *PaymentHandler) GetOperationInstrument(c *fiber.Ctx) error {
	in, err := h.paymentService.InstrumentFromOperation(c.UserContext(), c.Params("gateway"), c.Params("id"))
	if err != nil {
		return paymentError(c, err)
	}
	return response.Success(c, "Instrument", presenter.FromInstrument(in))
}

func (h *PaymentHandler) Capture(c *fiber.Ctx) error {
	return h.byID(c, h.paymentService.Capture)
}

func (h *PaymentHandler) Void(c *fiber.Ctx) error {
	return h.byID(c, h.paymentService.Void)
}

// Refund refunds in full, or partially when the body carries an amount.
func (h *PaymentHandler) Refund(c *fiber.Ctx) error {
	var input amountInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request format")
		}
	}
	v := validation.New()
	amount := v.OptionalAmount(input.Amount, "amount")
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}

	res, err := h.paymentService.Refund(c.UserContext(), c.Params("gateway"), c.Params("id"), amount)
	if err != nil {
		return paymentError(c, err)
	}
	return respondResult(c, res)
}

func (h *PaymentHandler) PrepareSubmission(c *fiber.Ctx) error {
	var input submissionInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.AbsoluteURL(input.RedirectURL, "redirect_url")
	typ, ok := models.ParseSubmissionType(input.Type)
	v.Check(ok, "type", "must be one of purchase, authorize, store")
	amount := v.OptionalAmount(input.Amount, "amount")
	v.Check(amount.Valid || (typ != models.SubmitPurchase && typ != models.SubmitAuthorize), "amount", "is required for purchase and authorize")
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}

	sub, err := h.paymentService.PrepareSubmission(c.UserContext(), c.Params("gateway"), input.RedirectURL, models.SubmissionOptions{
		Amount: amount,
		Type:   typ,
		Vault:  input.Vault,
		Token:  input.Token,
	})
	if err != nil {
		return paymentError(c, err)
	}
	return response.Created(c, "Submission prepared", sub)
}

func (h *PaymentHandler) ConfirmSubmission(c *fiber.Ctx) error {
	var input confirmInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.Required(input.Query, "query")
	execute, ok := models.ParseSubmissionType(input.Execute)
	v.Check(ok, "execute", "must be one of purchase, authorize, store")
	amount := v.OptionalAmount(input.Amount, "amount")
	v.Check(amount.Valid || (execute != models.SubmitPurchase && execute != models.SubmitAuthorize), "amount", "is required for purchase and authorize")
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}

	res, err := h.paymentService.ConfirmSubmission(c.UserContext(), c.Params("gateway"), input.Query, models.ConfirmOptions{
		Execute: execute,
		Amount:  amount,
	})
	if err != nil {
		return paymentError(c, err)
	}
	return respondResult(c, res)
}

// Journal lists the recorded actions of one gateway.
func (h *PaymentHandler) Journal(c *fiber.Ctx) error {
	if h.journal == nil {
		return response.Problem(c, fiber.StatusNotImplemented, payment.KindNotSupported, "operation journal is not configured")
	}
	p := pagination.ParseFromRequest(c)
	recs, total, err := h.journal.List(c.UserContext(), repositories.JournalFilter{
		Gateway:      c.Params("gateway"),
		OperationID:  c.Query("operation_id"),
		InstrumentID: c.Query("instrument_id"),
		Limit:        p.Limit,
		Offset:       p.Offset,
	})
	if err != nil {
		return response.ServerError(c, "Failed to list operations")
	}
	p.Total = total
	if recs == nil {
		recs = []models.OperationRecord{}
	}
	return response.Paginated(c, p, recs)
}

func (h *PaymentHandler) byID(c *fiber.Ctx, fn func(context.Context, string, string) (*models.Result, error)) error {
	res, err := fn(c.UserContext(), c.Params("gateway"), c.Params("id"))
	if err != nil {
		return paymentError(c, err)
	}
	return respondResult(c, res)
}

func (h *PaymentHandler) chargeAction(c *fiber.Ctx, fn func(context.Context, string, string, decimal.Decimal) (*models.Result, error)) error {
	var input amountInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	amount := v.Amount(input.Amount, "amount")
	if !v.Valid() {
		return response.ValidationError(c, v.Errors)
	}

	res, err := fn(c.UserContext(), c.Params("gateway"), c.Params("id"), amount)
	if err != nil {
		return paymentError(c, err)
	}
	return respondResult(c, res)
}

// respondResult answers 200 for successful results and 402 for results the
// gateway declined or rejected.
func respondResult(c *fiber.Ctx, res *models.Result) error {
	if res.Failed() {
		return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
			"message": "Gateway rejected the request",
			"data":    presenter.FromResult(res),
		})
	}
	return response.Success(c, "OK", presenter.FromResult(res))
}
