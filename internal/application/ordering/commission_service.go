package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/wholesale/orderflow/internal/domain/ordering"
	"github.com/wholesale/orderflow/internal/domain/shared"
	"github.com/wholesale/orderflow/internal/infrastructure/telemetry"
)

// CommissionService handles dealer commission payouts
type CommissionService struct {
	commissions    ordering.CommissionRepository
	outbox         shared.OutboxRepository
	eventPublisher shared.EventPublisher
	metrics        *telemetry.WorkflowMetrics
	logger         *zap.Logger
}

// NewCommissionService creates a new CommissionService. outbox may be nil.
func NewCommissionService(commissions ordering.CommissionRepository, outbox shared.OutboxRepository, logger *zap.Logger) *CommissionService {
	return &CommissionService{
		commissions: commissions,
		outbox:      outbox,
		logger:      logger,
	}
}

// SetEventPublisher sets the in-process publisher notified after each payout
func (s *CommissionService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the workflow metrics recorder
func (s *CommissionService) SetMetrics(metrics *telemetry.WorkflowMetrics) {
	s.metrics = metrics
}

// ListByDealer returns a dealer's commissions, newest first
func (s *CommissionService) ListByDealer(ctx context.Context, actor shared.Actor, dealerID uuid.UUID) ([]CommissionResponse, error) {
	commissions, err := s.commissions.FindByDealer(ctx, actor.TenantID, dealerID)
	if err != nil {
		return nil, err
	}
	out := make([]CommissionResponse, len(commissions))
	for i := range commissions {
		out[i] = ToCommissionResponse(&commissions[i])
	}
	return out, nil
}

// MarkPaid pays each commission independently. Domain failures are reported per id and
// do not stop the batch. An infrastructure failure stops it: the failing and remaining ids
// are reported as INTERNAL_ERROR next to the payouts already committed, and Aborted is set.
func (s *CommissionService) MarkPaid(ctx context.Context, actor shared.Actor, req PayCommissionsRequest) (result *MarkPaidResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "commission", "mark_paid",
		attribute.Int("commission.count", len(req.CommissionIDs)),
	)
	start := time.Now()
	var abortErr error
	defer func() {
		failure := err
		if failure == nil {
			failure = abortErr
		}
		telemetry.EndSpan(span, failure)
		if s.metrics != nil {
			s.metrics.RecordOperation(ctx, "mark_commissions_paid", time.Since(start), failure)
		}
	}()

	var errs shared.FieldErrors
	if len(req.CommissionIDs) == 0 {
		errs.Add("commission_ids", "at least one commission is required")
	}
	if req.PaymentReference == "" {
		errs.Add("payment_reference", "payment reference is required")
	}
	if err := errs.Err("invalid payout"); err != nil {
		return nil, err
	}

	result = &MarkPaidResult{
		Succeeded: make([]CommissionResponse, 0, len(req.CommissionIDs)),
		Failed:    make([]MarkPaidFailure, 0),
	}
	ids := make([]uuid.UUID, 0, len(req.CommissionIDs))
	seen := make(map[uuid.UUID]bool, len(req.CommissionIDs))
	for _, id := range req.CommissionIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for i, id := range ids {
		commission, payErr := s.payOne(ctx, actor, id, req.PaymentReference)
		if payErr == nil {
			result.Succeeded = append(result.Succeeded, ToCommissionResponse(commission))
			continue
		}

		var de *shared.DomainError
		if errors.As(payErr, &de) {
			result.Failed = append(result.Failed, MarkPaidFailure{ID: id, Code: de.Code, Message: de.Message})
			continue
		}

		// Earlier payouts are committed; report them and stop before touching the rest.
		s.logger.Error("Commission payout aborted",
			zap.String("commission_id", id.String()),
			zap.String("payment_reference", req.PaymentReference),
			zap.Int("succeeded", len(result.Succeeded)),
			zap.Int("skipped", len(ids)-i-1),
			zap.Error(payErr),
		)
		abortErr = fmt.Errorf("pay commission %s: %w", id, payErr)
		result.Aborted = true
		result.Failed = append(result.Failed, MarkPaidFailure{ID: id, Code: shared.CodeInternal, Message: "payout failed due to an internal error"})
		for _, rest := range ids[i+1:] {
			result.Failed = append(result.Failed, MarkPaidFailure{ID: rest, Code: shared.CodeInternal, Message: "not processed, the batch stopped after an internal error"})
		}
		return result, nil
	}

	s.logger.Info("Commissions paid",
		zap.String("payment_reference", req.PaymentReference),
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)),
		zap.String("paid_by", actor.UserID.String()),
	)
	return result, nil
}

func (s *CommissionService) payOne(ctx context.Context, actor shared.Actor, id uuid.UUID, reference string) (*ordering.Commission, error) {
	commission, err := s.commissions.FindByIDForTenant(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := commission.MarkPaid(reference, actor.UserID); err != nil {
		return nil, err
	}

	events := commission.GetDomainEvents()
	if err := s.commissions.SaveWithLock(ctx, commission); err != nil {
		return nil, err
	}
	commission.ClearDomainEvents()

	if s.metrics != nil {
		s.metrics.RecordCommissionPaid(ctx, commission.Amount)
		for _, e := range events {
			s.metrics.RecordEvent(ctx, e.EventType())
		}
	}
	s.publish(ctx, events)
	return commission, nil
}

func (s *CommissionService) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish commission events", zap.Error(err))
		return
	}
	if s.outbox == nil {
		return
	}
	ids := make([]uuid.UUID, len(events))
	for i, e := range events {
		ids[i] = e.EventID()
	}
	if err := s.outbox.MarkSent(ctx, ids, time.Now()); err != nil {
		s.logger.Warn("Failed to mark outbox entries sent", zap.Error(err))
	}
}
