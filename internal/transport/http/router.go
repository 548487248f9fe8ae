package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/MarcoAS99/revolut-style-platform/internal/transport/http/handler"
)

type Handlers struct {
	Transaction *handler.TransactionHandler
	Account     *handler.AccountHandler
}

func RegisterRoutes(app *fiber.App, h *Handlers) {
	api := app.Group("/api")

	api.Post("/transactions", h.Transaction.Create)
	api.Get("/accounts/:id/balance", h.Account.GetBalance)
}
