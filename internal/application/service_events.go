package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// FlushOutbox drains pending outbox records to the configured publishers.
// Called by the runtime worker on an interval; safe to call concurrently with
// request handlers because MarkSent is keyed per record.
func (s *Service) FlushOutbox(ctx context.Context) error {
	if s.outbox == nil {
		return nil
	}
	pending, err := s.outbox.ListPending(ctx, s.cfg.OutboxFlushBatchSize)
	if err != nil {
		return err
	}
	for _, rec := range pending {
		switch rec.EventClass {
		case domain.CanonicalEventClassDomain:
			if s.domainEvents != nil {
				if err := s.domainEvents.PublishDomain(ctx, rec.Envelope); err != nil {
					return err
				}
			}
		case domain.CanonicalEventClassAnalyticsOnly:
			if s.analytics != nil {
				_ = s.analytics.PublishAnalytics(ctx, rec.Envelope)
			}
		default:
			return fmt.Errorf("unsupported event class %q", rec.EventClass)
		}
		if err := s.outbox.MarkSent(ctx, rec.RecordID, s.nowFn()); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) enqueueEvent(ctx context.Context, eventType, traceID string, data any, partitionKey string, now time.Time) error {
	if s.outbox == nil {
		return nil
	}
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrInvalidInput
	}
	b, err := json.Marshal(data)
	if err != nil {
		return domain.ErrInvalidInput
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = uuid.NewString()
	}
	env := contracts.EventEnvelope{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		EventClass:       domain.CanonicalEventClass(eventType),
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath(eventType),
		PartitionKey:     partitionKey,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    "v1",
		Data:             b,
	}
	return s.outbox.Enqueue(ctx, ports.OutboxRecord{RecordID: uuid.NewString(), EventClass: env.EventClass, Envelope: env, CreatedAt: now})
}

func (s *Service) enqueueLoadBooked(ctx context.Context, load domain.Load, bidID, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventLoadBooked, traceID, contracts.LoadBookedPayload{
		LoadID:    load.LoadID,
		ShipperID: load.ShipperID,
		CarrierID: load.CarrierID,
		BidID:     bidID,
		BookedAt:  now.UTC().Format(time.RFC3339),
	}, load.LoadID, now)
}

func (s *Service) enqueuePaymentHeld(ctx context.Context, payment domain.Payment, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventPaymentHeld, traceID, contracts.PaymentHeldPayload{
		PaymentID:   payment.PaymentID,
		LoadID:      payment.LoadID,
		AmountCents: payment.AmountCents,
		HeldAt:      now.UTC().Format(time.RFC3339),
	}, payment.PaymentID, now)
}

func (s *Service) enqueuePaymentReleased(ctx context.Context, payment domain.Payment, mode, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventPaymentReleased, traceID, contracts.PaymentReleasedPayload{
		PaymentID:      payment.PaymentID,
		LoadID:         payment.LoadID,
		CapturedCents:  payment.CapturedAmountCents(),
		SettlementMode: mode,
		ReleasedAt:     now.UTC().Format(time.RFC3339),
	}, payment.PaymentID, now)
}

func (s *Service) enqueuePayoutCreated(ctx context.Context, payout domain.Payout, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventPayoutCreated, traceID, contracts.PayoutCreatedPayload{
		PayoutID:           payout.PayoutID,
		PaymentID:          payout.PaymentID,
		CarrierID:          payout.CarrierID,
		PlatformFeeCents:   payout.PlatformFeeCents,
		CarrierAmountCents: payout.CarrierAmountCents,
		CompletedAt:        now.UTC().Format(time.RFC3339),
	}, payout.PayoutID, now)
}

func (s *Service) enqueueDisputeOpened(ctx context.Context, payment domain.Payment, openedBy, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeOpened, traceID, contracts.DisputeOpenedPayload{
		PaymentID: payment.PaymentID,
		LoadID:    payment.LoadID,
		OpenedBy:  openedBy,
		Reason:    payment.DisputeReason,
		OpenedAt:  now.UTC().Format(time.RFC3339),
	}, payment.PaymentID, now)
}

func (s *Service) enqueueDisputeResolved(ctx context.Context, payment domain.Payment, releasedToCarrier bool, resolvedBy, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, domain.EventDisputeResolved, traceID, contracts.DisputeResolvedPayload{
		PaymentID:         payment.PaymentID,
		LoadID:            payment.LoadID,
		ReleasedToCarrier: releasedToCarrier,
		ResolvedBy:        resolvedBy,
		ResolvedAt:        now.UTC().Format(time.RFC3339),
	}, payment.PaymentID, now)
}
