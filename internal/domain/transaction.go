package domain

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Account struct {
	ID        uuid.UUID `db:"id"`
	CreatedAt time.Time `db:"created_at"`
}

type Transaction struct {
	ID             uuid.UUID       `db:"id"`
	AccountID      uuid.UUID       `db:"account_id"`
	Amount         decimal.Decimal `db:"amount"`
	Currency       string          `db:"currency"`
	Country        string          `db:"country"`
	IdempotencyKey string          `db:"idempotency_key"`
	CreatedAt      time.Time       `db:"created_at"`
}

// NewTransaction normalizes currency/country to uppercase and validates the
// business preconditions before anything touches the store.
func NewTransaction(
	accountID uuid.UUID,
	idempotencyKey string,
	amount decimal.Decimal,
	currency string,
	country string,
) (*Transaction, error) {
	ve := ValidationError{Fields: map[string]string{}}

	if accountID == uuid.Nil {
		ve.Fields["account_id"] = "account_id is required"
	}

	if idempotencyKey == "" {
		ve.Fields["idempotency_key"] = "idempotency key is required"
	}

	if !amount.IsPositive() {
		ve.Fields["amount"] = "amount must be greater than 0"
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if !isAlphaCode(currency, 3) {
		ve.Fields["currency"] = "currency must be a 3-letter code"
	}

	country = strings.ToUpper(strings.TrimSpace(country))
	if !isAlphaCode(country, 2) {
		ve.Fields["country"] = "country must be a 2-letter code"
	}

	if len(ve.Fields) > 0 {
		return nil, ve
	}

	return &Transaction{
		AccountID:      accountID,
		Amount:         amount,
		Currency:       currency,
		Country:        country,
		IdempotencyKey: idempotencyKey,
	}, nil
}

func isAlphaCode(s string, length int) bool {
	if len(s) != length {
		return false
	}

	for _, r := range s {
		if !unicode.IsUpper(r) || r > unicode.MaxASCII {
			return false
		}
	}

	return true
}
