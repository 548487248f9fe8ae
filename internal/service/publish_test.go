package service_test

import (
	"time"

	"github.com/google/uuid"
)

func (s *IntegrationTestSuite) publishedAt(eventID uuid.UUID) *time.Time {
	var publishedAt *time.Time
	err := s.DbPool.QueryRow(s.Ctx, "SELECT published_at FROM outbox WHERE id = $1", eventID).
		Scan(&publishedAt)
	s.Require().NoError(err)

	return publishedAt
}

func (s *IntegrationTestSuite) TestOutboxEventEventuallyPublished() {
	tx, _ := s.ingest(uuid.New(), "k1", "10.00")

	publishedAtQuery := `
		SELECT published_at
		FROM outbox
		WHERE payload->>'transaction_id' = $1
	`

	s.Require().Eventually(func() bool {
		var publishedAt *time.Time

		err := s.DbPool.QueryRow(s.Ctx, publishedAtQuery, tx.ID.String()).
			Scan(&publishedAt)
		if err != nil || publishedAt == nil {
			return false
		}

		return true
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestMarkEventFailed_KeepsPublicationTimestamp() {
	tx, _ := s.ingest(uuid.New(), "k1", "10.00")

	var eventID uuid.UUID
	err := s.DbPool.QueryRow(s.Ctx,
		"SELECT id FROM outbox WHERE payload->>'transaction_id' = $1", tx.ID.String()).
		Scan(&eventID)
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return s.publishedAt(eventID) != nil
	}, 10*time.Second, 100*time.Millisecond)
	published := s.publishedAt(eventID)

	dbTx, err := s.DbPool.Begin(s.Ctx)
	s.Require().NoError(err)
	s.Require().NoError(s.OutboxRepo.MarkEventFailed(s.Ctx, dbTx, eventID, "late failure"))
	s.Require().NoError(dbTx.Commit(s.Ctx))

	// Once set, the publication timestamp stays set.
	s.Require().Equal(published, s.publishedAt(eventID))
}

func (s *IntegrationTestSuite) TestMarkEventUnpublished_RequeuesExhaustedEvent() {
	eventID := uuid.New()
	payload := []byte(`{"event_id": "` + eventID.String() + `", "event_type": "TransactionCreated"}`)

	_, err := s.DbPool.Exec(s.Ctx, `
		INSERT INTO outbox (id, event_type, payload, topic, attempts, last_error)
		VALUES ($1, 'TransactionCreated', $2, 'transaction_events', 10, 'broker unreachable')
	`, eventID, payload)
	s.Require().NoError(err)

	dbTx, err := s.DbPool.Begin(s.Ctx)
	s.Require().NoError(err)

	// Ten failed attempts put the event past the scan's retry cap.
	events, err := s.OutboxRepo.GetUnpublishedEvents(s.Ctx, dbTx, 10)
	s.Require().NoError(err)
	for _, e := range events {
		s.Require().NotEqual(eventID, e.ID)
	}

	s.Require().NoError(s.OutboxRepo.MarkEventUnpublished(s.Ctx, dbTx, eventID))
	s.Require().NoError(dbTx.Commit(s.Ctx))

	var attempts int64
	var lastError *string
	err = s.DbPool.QueryRow(s.Ctx, "SELECT attempts, last_error FROM outbox WHERE id = $1", eventID).
		Scan(&attempts, &lastError)
	s.Require().NoError(err)
	s.Require().EqualValues(0, attempts)
	s.Require().Nil(lastError)

	// Back under the cap, the running worker drains it.
	s.Require().Eventually(func() bool {
		return s.publishedAt(eventID) != nil
	}, 10*time.Second, 100*time.Millisecond)
}
