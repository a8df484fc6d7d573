package event

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/shared"
)

// PendingOutbox is the part of the outbox store the processor polls
type PendingOutbox interface {
	FindPendingBefore(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error)
	MarkSent(ctx context.Context, eventIDs []uuid.UUID, at time.Time) error
}

// OutboxProcessorConfig holds configuration for the outbox processor
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// Grace leaves fresh entries to the request that wrote them
	Grace time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:    100,
		PollInterval: 30 * time.Second,
		Grace:        time.Minute,
	}
}

// OutboxProcessor redelivers outbox entries that stayed pending, for example
// when the process stopped between commit and in-process publishing.
// Handlers see such events at least twice, so they are expected to be idempotent.
type OutboxProcessor struct {
	repo       PendingOutbox
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger
	now        func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo PendingOutbox,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger,
		now:        time.Now,
	}
}

// Start runs the poll loop until Stop is called or ctx ends
func (p *OutboxProcessor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.processLoop(ctx)

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
		zap.Duration("grace", p.config.Grace),
	)
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch redelivers one batch of stale pending entries and returns how many were sent
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) int {
	entries, err := p.repo.FindPendingBefore(ctx, p.now().Add(-p.config.Grace), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending outbox entries", zap.Error(err))
		return 0
	}

	var sent []uuid.UUID
	for _, entry := range entries {
		if p.processEntry(ctx, entry) {
			sent = append(sent, entry.EventID)
		}
	}
	if len(sent) == 0 {
		return 0
	}

	if err := p.repo.MarkSent(ctx, sent, p.now()); err != nil {
		p.logger.Error("failed to mark outbox entries sent", zap.Error(err))
		return 0
	}
	p.logger.Info("redelivered pending outbox entries", zap.Int("count", len(sent)))
	return len(sent)
}

// processEntry publishes a single entry; failures stay pending for the next poll
func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) bool {
	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.logger.Error("failed to deserialize outbox entry",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.Error(err),
		)
		return false
	}

	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to redeliver event",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Error(err),
		)
		return false
	}
	return true
}
