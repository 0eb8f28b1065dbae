package publisher

import (
	"context"
	"log/slog"
	"time"

	r "github.com/fjod/electromart/internal/checkout/repository"
	"github.com/fjod/electromart/internal/events"
)

type OutboxStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*r.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

// Recoverer finishes checkouts that were paid but never completed.
type Recoverer interface {
	RecoverStuckSessions(ctx context.Context, olderThan time.Duration) (int, error)
}

type OutboxPoller struct {
	timeout      time.Duration
	eventTick    time.Duration
	recoveryTick time.Duration
	recoveryAge  time.Duration
	batchSize    int
	repo         OutboxStore
	recoverer    Recoverer
	writer       events.Writer
	log          *slog.Logger
}

func NewOutboxPoller(repo OutboxStore, recoverer Recoverer, writer events.Writer, recoveryAge time.Duration, log *slog.Logger) *OutboxPoller {
	if recoveryAge <= 0 {
		recoveryAge = 2 * time.Minute
	}
	return &OutboxPoller{
		timeout:      5 * time.Second,
		eventTick:    time.Second,
		recoveryTick: 30 * time.Second,
		recoveryAge:  recoveryAge,
		batchSize:    100,
		repo:         repo,
		recoverer:    recoverer,
		writer:       writer,
		log:          log.With("component", "outbox-poller"),
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer eventTicker.Stop()
	defer recoveryTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.recoverStuckSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// processUnpublishedEvents publishes in id order and stops at the first failure so a
// later event never overtakes an earlier one.
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	batch, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.log.Error("failed to fetch outbox events", "error", err)
		return 0
	}

	published := 0
	for _, event := range batch {
		if err := p.publishToKafka(ctx, event); err != nil {
			p.log.Error("failed to publish outbox event", "event_id", event.ID, "error", err)
			return published
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			// published twice at worst; consumers are idempotent
			p.log.Error("failed to mark outbox event processed", "event_id", event.ID, "error", err)
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) recoverStuckSessions(ctx context.Context) {
	n, err := p.recoverer.RecoverStuckSessions(ctx, p.recoveryAge)
	if err != nil {
		p.log.Error("failed to get stuck sessions", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("recovered stuck sessions", "count", n)
	}
}

func (p *OutboxPoller) publishToKafka(ctx context.Context, event *r.OutboxEvent) error {
	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	// keyed by checkout id for ordering; payload is already JSON
	return p.writer.WriteMessages(writeCtx, events.NewMessage(event.AggregateId, event.EventType, event.Payload))
}

// Flush publishes everything pending once. Used on shutdown and by storefrontctl flush-outbox.
func (p *OutboxPoller) Flush(ctx context.Context) int {
	return p.processUnpublishedEvents(ctx)
}
