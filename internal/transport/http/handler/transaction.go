package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/domain"
	"github.com/MarcoAS99/revolut-style-platform/internal/service"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
	"github.com/MarcoAS99/revolut-style-platform/pkg/utils"
)

const idempotencyKeyHeader = "Idempotency-Key"

type createTransactionRequest struct {
	AccountID string `json:"account_id" validate:"required,uuid"`
	Amount    string `json:"amount" validate:"required"`
	Currency  string `json:"currency" validate:"required,len=3,alpha"`
	Country   string `json:"country" validate:"required,len=2,alpha"`
}

type TransactionHandler struct {
	service  service.TransactionService
	logger   *zap.Logger
	validate *validator.Validate
}

func NewTransactionHandler(svc service.TransactionService, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		service:  svc,
		logger:   logger,
		validate: validator.New(),
	}
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	input := new(createTransactionRequest)

	if err := c.BodyParser(input); err != nil {
		h.logger.Warn(
			"failed to parse body in create transaction",
			zap.Error(err),
		)

		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "error parsing body",
		})
	}

	if err := h.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"errors": utils.FormatValidationError(err),
		})
	}

	idempotencyKey := c.Get(idempotencyKeyHeader)
	if idempotencyKey == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Idempotency-Key header is required",
		})
	}

	accountID, err := uuid.Parse(input.AccountID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account_id must be a valid UUID",
		})
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "amount must be a valid decimal",
		})
	}

	transaction, wasNew, err := h.service.Ingest(
		c.UserContext(),
		accountID,
		idempotencyKey,
		amount,
		input.Currency,
		input.Country,
	)
	if err != nil {
		var validationErr domain.ValidationError
		if errors.As(err, &validationErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"errors": validationErr.Fields,
			})
		}

		if errors.Is(err, service.ErrIdempotencyConflict) {
			mylogger.Error(
				c.UserContext(),
				h.logger,
				"Idempotency conflict surfaced to client",
				zap.String("account_id", input.AccountID),
			)

			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "idempotency conflict",
			})
		}

		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Ingest failed",
			zap.Error(err),
		)

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable, retry with the same idempotency key",
		})
	}

	c.Set("X-Idempotent-Replay", boolString(!wasNew))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":              transaction.ID,
		"account_id":      transaction.AccountID,
		"amount":          transaction.Amount.StringFixed(2),
		"currency":        transaction.Currency,
		"country":         transaction.Country,
		"idempotency_key": transaction.IdempotencyKey,
		"created_at":      transaction.CreatedAt,
	})
}

func boolString(b bool) string {
	if b {
		return "true"
	}

	return "false"
}
