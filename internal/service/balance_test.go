package service_test

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func (s *IntegrationTestSuite) TestGetBalance_SumsCommittedTransactions() {
	accountID := uuid.New()

	s.ingest(accountID, "k1", "10.00")
	s.ingest(accountID, "k2", "10.00")

	// Replays must not count twice.
	s.ingest(accountID, "k1", "10.00")

	balance, err := s.TransactionService.GetBalance(s.Ctx, accountID)
	s.Require().NoError(err)
	s.Require().True(balance.Equal(decimal.RequireFromString("20.00")), "got %s", balance)
}

func (s *IntegrationTestSuite) TestGetBalance_UnknownAccountIsZero() {
	balance, err := s.TransactionService.GetBalance(s.Ctx, uuid.New())
	s.Require().NoError(err)
	s.Require().True(balance.IsZero())
}
