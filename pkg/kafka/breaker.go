package kafka

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/MarcoAS99/revolut-style-platform/pkg/utils"
)

// breakerProducer stops hammering a dead broker; the outbox keeps the events,
// so tripped produces are retried on later worker ticks.
type breakerProducer struct {
	inner Producer
	cb    *gobreaker.CircuitBreaker
}

func NewBreakerProducer(inner Producer, logger *zap.Logger) Producer {
	settings := gobreaker.Settings{
		Name:        "KafkaProducer",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &breakerProducer{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *breakerProducer) ProduceMessage(ctx context.Context, topic string, message interface{}) error {
	_, err := utils.ExecuteWithBreaker(p.cb, func() (struct{}, error) {
		return struct{}{}, p.inner.ProduceMessage(ctx, topic, message)
	})

	return err
}

func (p *breakerProducer) Close() error {
	return p.inner.Close()
}
