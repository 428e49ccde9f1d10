package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

const (
	settlementModeDirectCapture = "direct_capture"
	settlementModeSplitTransfer = "split_transfer"
)

// ReleasePayment is the direct-capture settlement path: the shipper confirms
// delivery and captures up to the originally authorized amount. The approved
// BOL/POD gate applies to everyone except admins.
func (s *Service) ReleasePayment(ctx context.Context, actor Actor, input ReleasePaymentInput) (domain.Payment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payment{}, domain.ErrUnauthorized
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	if input.LoadID == "" {
		return domain.Payment{}, domain.ErrInvalidInput
	}
	payment, err := s.payments.GetActiveByLoad(ctx, input.LoadID)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment.ShipperID != actor.SubjectID && !actor.IsAdmin() {
		return domain.Payment{}, domain.ErrUnauthorized
	}

	var finalCents *int64
	if input.FinalAmount != nil {
		cents, err := domain.AmountToCents(*input.FinalAmount, 0)
		if err != nil {
			return domain.Payment{}, err
		}
		// Values above the original authorization are rejected outright, never
		// split into a second charge.
		if cents > payment.AmountCents {
			return domain.Payment{}, domain.ErrInvalidAmount
		}
		if cents < payment.AmountCents {
			finalCents = &cents
		}
	}

	load, err := s.loads.GetByID(ctx, input.LoadID)
	if err != nil {
		return domain.Payment{}, err
	}
	if load.Status != domain.LoadStatusDelivered {
		return domain.Payment{}, domain.ErrInvalidState
	}
	if payment.Status != domain.PaymentStatusHeldInEscrow {
		return domain.Payment{}, domain.ErrInvalidState
	}
	if !actor.IsAdmin() {
		approved, err := s.documents.HasApprovedDeliveryDoc(ctx, load.LoadID)
		if err != nil {
			return domain.Payment{}, err
		}
		if !approved {
			return domain.Payment{}, domain.ErrDocumentRequired
		}
	}
	return s.releaseDirect(ctx, payment, load, finalCents, input.Notes, actor.RequestID)
}

// releaseDirect captures the hold and walks payment and load to their released
// and completed states. Shared by the shipper path and the auto-release sweep,
// which has already decided the payment is eligible.
func (s *Service) releaseDirect(ctx context.Context, payment domain.Payment, load domain.Load, finalCents *int64, notes, traceID string) (domain.Payment, error) {
	captureCents := payment.AmountCents
	if finalCents != nil {
		captureCents = *finalCents
	}
	// Gated on the processor-reported state so a retry after a lost status
	// write does not try to capture twice.
	hold, err := s.processor.GetHold(ctx, payment.HoldRef)
	if err != nil {
		return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
	}
	switch hold.State {
	case ports.HoldStateRequiresCapture:
		if _, err := s.processor.CaptureHold(ctx, payment.HoldRef, captureCents); err != nil {
			return domain.Payment{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
		}
	case ports.HoldStateSucceeded:
		// Captured by an earlier attempt.
	default:
		return domain.Payment{}, fmt.Errorf("%w: hold %s not capturable for release", domain.ErrProcessor, payment.HoldRef)
	}

	now := s.nowFn()
	released := payment
	released.Status = domain.PaymentStatusReleased
	released.FinalAmountCents = finalCents
	released.ReleaseNotes = notes
	released.ReleasedAt = &now
	released.UpdatedAt = now
	if err := s.payments.Transition(ctx, released, domain.PaymentStatusHeldInEscrow); err != nil {
		s.logReconciliation(ctx, "release_payment", payment.HoldRef, payment.LoadID, err)
		return domain.Payment{}, err
	}

	if load.Status == domain.LoadStatusDelivered {
		if err := s.loads.TransitionStatus(ctx, load.LoadID, domain.LoadStatusDelivered, domain.LoadStatusCompleted); err != nil {
			s.logReconciliation(ctx, "release_payment", payment.HoldRef, payment.LoadID, err)
			return domain.Payment{}, domain.ErrLoadUpdateFailed
		}
	} else {
		s.logger.WarnContext(ctx, "payment released before delivery confirmation",
			"operation", "release_payment",
			"load_id", load.LoadID,
			"load_status", string(load.Status),
		)
	}

	if err := s.enqueuePaymentReleased(ctx, released, settlementModeDirectCapture, traceID, now); err != nil {
		return domain.Payment{}, err
	}
	return released, nil
}

// CreateCarrierPayout settles through the marketplace split: capture the full
// hold, transfer the carrier's share to their connected account, and keep the
// payout row as the audit record and retry guard.
func (s *Service) CreateCarrierPayout(ctx context.Context, actor Actor, loadID string) (domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	loadID = strings.TrimSpace(loadID)
	if loadID == "" {
		return domain.Payout{}, domain.ErrInvalidInput
	}
	payment, err := s.payments.GetActiveByLoad(ctx, loadID)
	if err != nil {
		return domain.Payout{}, err
	}
	if payment.ShipperID != actor.SubjectID && !actor.IsAdmin() {
		return domain.Payout{}, domain.ErrUnauthorized
	}
	load, err := s.loads.GetByID(ctx, loadID)
	if err != nil {
		return domain.Payout{}, err
	}
	// Completed loads are accepted so a retry after a fully settled first
	// attempt still converges on the existing payout row.
	if !actor.IsAdmin() && load.Status != domain.LoadStatusDelivered && load.Status != domain.LoadStatusCompleted {
		return domain.Payout{}, domain.ErrInvalidState
	}

	account, err := s.carrierAccounts.Get(ctx, payment.CarrierID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Payout{}, domain.ErrPayoutAccountMissing
		}
		return domain.Payout{}, err
	}
	if !account.PayoutsEnabled {
		return domain.Payout{}, domain.ErrPayoutAccountMissing
	}
	return s.settleSplitTransfer(ctx, payment, load, account, actor.RequestID)
}

func (s *Service) settleSplitTransfer(ctx context.Context, payment domain.Payment, load domain.Load, account domain.CarrierAccount, traceID string) (domain.Payout, error) {
	// The payout row is the idempotency guard: its transfer ref is persisted
	// the moment the transfer goes out, and the transfer itself carries a
	// processor idempotency key derived from the payout id, so no retry path
	// can pay the carrier twice.
	payout, err := s.payouts.GetByPaymentID(ctx, payment.PaymentID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		feeCents, carrierCents := domain.SplitPlatformFee(payment.AmountCents, s.cfg.PlatformFeeRate)
		now := s.nowFn()
		payout = domain.Payout{
			PayoutID:           uuid.NewString(),
			PaymentID:          payment.PaymentID,
			LoadID:             payment.LoadID,
			CarrierID:          payment.CarrierID,
			AmountCents:        payment.AmountCents,
			PlatformFeeCents:   feeCents,
			CarrierAmountCents: carrierCents,
			Status:             domain.PayoutStatusPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.payouts.Create(ctx, payout); err != nil {
			return domain.Payout{}, err
		}
	default:
		return domain.Payout{}, err
	}

	completedNow := false
	if payout.Status != domain.PayoutStatusCompleted {
		// Capture is gated on what the processor reports, not on the local
		// payment row: a retry after a crash between capture and the row
		// update must not try to capture an already-captured hold.
		hold, err := s.processor.GetHold(ctx, payment.HoldRef)
		if err != nil {
			return domain.Payout{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
		}
		switch hold.State {
		case ports.HoldStateRequiresCapture:
			if _, err := s.processor.CaptureHold(ctx, payment.HoldRef, payment.AmountCents); err != nil {
				return domain.Payout{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
			}
		case ports.HoldStateSucceeded:
			// Captured by an earlier attempt.
		default:
			return domain.Payout{}, fmt.Errorf("%w: hold %s not capturable for payout", domain.ErrProcessor, payment.HoldRef)
		}

		if payout.TransferRef == "" {
			transferRef, err := s.processor.Transfer(ctx, account.ProcessorAccountID, payout.CarrierAmountCents, payment.Currency, payment.LoadID, payout.PayoutID)
			if err != nil {
				return domain.Payout{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
			}
			payout.TransferRef = transferRef
			payout.UpdatedAt = s.nowFn()
			// Persisted on its own so the pending row proves the transfer
			// went out even when the completion write below never lands.
			if err := s.payouts.Update(ctx, payout); err != nil {
				s.logReconciliation(ctx, "carrier_payout", transferRef, payment.LoadID, err)
				return domain.Payout{}, err
			}
		}

		now := s.nowFn()
		payout.Status = domain.PayoutStatusCompleted
		payout.CompletedAt = &now
		payout.UpdatedAt = now
		if err := s.payouts.Update(ctx, payout); err != nil {
			s.logReconciliation(ctx, "carrier_payout", payout.TransferRef, payment.LoadID, err)
			return domain.Payout{}, err
		}
		completedNow = true
	}

	// The payment and load repairs run even when the payout row was already
	// completed, so a retry after a failed status write still finishes.
	now := s.nowFn()
	releasedNow := false
	if payment.Status == domain.PaymentStatusHeldInEscrow {
		released := payment
		released.Status = domain.PaymentStatusReleased
		released.TransferRef = payout.TransferRef
		released.ReleasedAt = &now
		released.UpdatedAt = now
		if err := s.payments.Transition(ctx, released, domain.PaymentStatusHeldInEscrow); err != nil {
			s.logReconciliation(ctx, "carrier_payout", payout.TransferRef, payment.LoadID, err)
			return domain.Payout{}, err
		}
		payment = released
		releasedNow = true
	}
	if load.Status == domain.LoadStatusDelivered {
		if err := s.loads.TransitionStatus(ctx, load.LoadID, domain.LoadStatusDelivered, domain.LoadStatusCompleted); err != nil {
			s.logReconciliation(ctx, "carrier_payout", payout.TransferRef, payment.LoadID, err)
			return domain.Payout{}, domain.ErrLoadUpdateFailed
		}
	}

	if completedNow || releasedNow {
		if err := s.enqueuePayoutCreated(ctx, payout, traceID, now); err != nil {
			return domain.Payout{}, err
		}
		if err := s.enqueuePaymentReleased(ctx, payment, settlementModeSplitTransfer, traceID, now); err != nil {
			return domain.Payout{}, err
		}
	}
	return payout, nil
}

// AutoReleaseSweep releases every payment that has sat in escrow past the age
// threshold. The settlement strategy is picked per payment by the carrier
// account capability check; one item failing never stops the batch.
func (s *Service) AutoReleaseSweep(ctx context.Context) (SweepResult, error) {
	cutoff := s.nowFn().Add(-s.cfg.AutoReleaseAfter)
	eligible, err := s.payments.ListAutoReleasable(ctx, cutoff, s.cfg.SweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}
	result := SweepResult{Processed: len(eligible)}
	for _, payment := range eligible {
		if err := s.autoRelease(ctx, payment); err != nil {
			result.Failed++
			s.logger.ErrorContext(ctx, "auto release failed",
				"operation", "auto_release_sweep",
				"outcome", "failure",
				"payment_id", payment.PaymentID,
				"load_id", payment.LoadID,
				"error", err.Error(),
			)
			continue
		}
		result.Released++
	}
	s.logger.InfoContext(ctx, "auto release sweep completed",
		"operation", "auto_release_sweep",
		"outcome", "success",
		"processed", result.Processed,
		"released", result.Released,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) autoRelease(ctx context.Context, payment domain.Payment) error {
	load, err := s.loads.GetByID(ctx, payment.LoadID)
	if err != nil {
		return err
	}
	account, err := s.carrierAccounts.Get(ctx, payment.CarrierID)
	if err == nil && account.PayoutsEnabled {
		_, err = s.settleSplitTransfer(ctx, payment, load, account, "")
		return err
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	_, err = s.releaseDirect(ctx, payment, load, nil, "auto-released after escrow timeout", "")
	return err
}
