package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// OpenDispute freezes a held or released payment pending admin resolution.
// Re-opening with the same reason is a no-op; a different reason is rejected
// so the recorded grounds cannot drift silently.
func (s *Service) OpenDispute(ctx context.Context, actor Actor, input OpenDisputeInput) (domain.Payment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payment{}, domain.ErrUnauthorized
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	input.Reason = strings.TrimSpace(input.Reason)
	if input.LoadID == "" || input.Reason == "" {
		return domain.Payment{}, domain.ErrInvalidInput
	}
	payment, err := s.payments.GetActiveByLoad(ctx, input.LoadID)
	if err != nil {
		return domain.Payment{}, err
	}
	if actor.SubjectID != payment.ShipperID && actor.SubjectID != payment.CarrierID && !actor.IsAdmin() {
		return domain.Payment{}, domain.ErrUnauthorized
	}
	if payment.Status == domain.PaymentStatusDisputed {
		if payment.DisputeReason == input.Reason {
			return payment, nil
		}
		return domain.Payment{}, domain.ErrAlreadyDisputed
	}
	if payment.Status != domain.PaymentStatusHeldInEscrow && payment.Status != domain.PaymentStatusReleased {
		return domain.Payment{}, domain.ErrInvalidState
	}

	now := s.nowFn()
	disputed := payment
	disputed.Status = domain.PaymentStatusDisputed
	disputed.DisputeReason = input.Reason
	disputed.UpdatedAt = now
	if err := s.payments.Transition(ctx, disputed, payment.Status); err != nil {
		return domain.Payment{}, err
	}
	if err := s.enqueueDisputeOpened(ctx, disputed, actor.SubjectID, actor.RequestID, now); err != nil {
		return domain.Payment{}, err
	}
	return disputed, nil
}

// ResolveDispute is the only path out of the disputed state. Releasing
// captures the hold if it is still uncaptured and settles to the carrier;
// refunding reverses the charge back to the shipper. Admin authority only.
func (s *Service) ResolveDispute(ctx context.Context, actor Actor, input ResolveDisputeInput) (domain.Payment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payment{}, domain.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return domain.Payment{}, domain.ErrForbidden
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	if input.LoadID == "" {
		return domain.Payment{}, domain.ErrInvalidInput
	}
	payment, err := s.payments.GetActiveByLoad(ctx, input.LoadID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.Status != domain.PaymentStatusDisputed {
		return domain.Payment{}, domain.ErrInvalidState
	}

	now := s.nowFn()
	resolved := payment
	resolved.DisputeReason = ""
	resolved.UpdatedAt = now

	if input.ReleaseToCarrier {
		hold, err := s.processor.GetHold(ctx, payment.HoldRef)
		if err != nil {
			return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
		}
		if hold.State == ports.HoldStateRequiresCapture {
			if _, err := s.processor.CaptureHold(ctx, payment.HoldRef, payment.AmountCents); err != nil {
				return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
			}
		}
		resolved.Status = domain.PaymentStatusReleased
		if resolved.ReleasedAt == nil {
			resolved.ReleasedAt = &now
		}
	} else {
		refundRef, err := s.processor.Refund(ctx, payment.HoldRef)
		if err != nil {
			return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
		}
		resolved.RefundRef = refundRef
		resolved.Status = domain.PaymentStatusCompleted
		resolved.CompletedAt = &now
	}

	if err := s.payments.Transition(ctx, resolved, domain.PaymentStatusDisputed); err != nil {
		ref := resolved.RefundRef
		if ref == "" {
			ref = payment.HoldRef
		}
		s.logReconciliation(ctx, "resolve_dispute", ref, payment.LoadID, err)
		return domain.Payment{}, err
	}
	if err := s.enqueueDisputeResolved(ctx, resolved, input.ReleaseToCarrier, actor.SubjectID, actor.RequestID, now); err != nil {
		return domain.Payment{}, err
	}
	return resolved, nil
}
