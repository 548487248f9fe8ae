package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// TransactionsIngested counts ingestion outcomes; the "result" label is
	// either "created" or "replayed".
	TransactionsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_ingested_total",
			Help: "Total ingestion calls that returned a transaction, by outcome.",
		},
		[]string{"result"},
	)

	IdempotencyConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "transactions_idempotency_conflicts_total",
			Help: "Unique-key races that could not be recovered by the re-lookup.",
		},
	)

	OutboxEventsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events successfully produced to the broker.",
		},
	)

	OutboxEventsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_events_failed_total",
			Help: "Outbox events whose produce attempt failed.",
		},
	)
)

func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		TransactionsIngested,
		IdempotencyConflicts,
		OutboxEventsPublished,
		OutboxEventsFailed,
	)

	return reg
}
