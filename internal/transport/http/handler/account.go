package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/internal/service"
	"github.com/MarcoAS99/revolut-style-platform/pkg/mylogger"
)

type AccountHandler struct {
	service service.TransactionService
	logger  *zap.Logger
}

func NewAccountHandler(svc service.TransactionService, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *AccountHandler) GetBalance(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "account id must be a valid UUID",
		})
	}

	balance, err := h.service.GetBalance(c.UserContext(), accountID)
	if err != nil {
		mylogger.Error(
			c.UserContext(),
			h.logger,
			"Get balance failed",
			zap.String("account_id", accountID.String()),
			zap.Error(err),
		)

		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "store unavailable",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"account_id": accountID,
		"balance":    balance.StringFixed(2),
	})
}
