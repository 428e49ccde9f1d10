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

type CreateHoldOutput struct {
	Payment      domain.Payment `json:"payment"`
	ClientSecret string         `json:"client_secret"`
}

type ConfirmHoldOutput struct {
	Payment domain.Payment `json:"payment"`
	Load    domain.Load    `json:"load"`
	Bid     domain.Bid     `json:"bid"`
}

// CreateHold authorizes the shipper's funds for manual capture and records a
// pending payment. No booking mutation happens here; that is ConfirmHold's job
// once the payment method is confirmed client-side.
func (s *Service) CreateHold(ctx context.Context, actor Actor, input CreateHoldInput) (CreateHoldOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return CreateHoldOutput{}, domain.ErrUnauthorized
	}
	if strings.TrimSpace(actor.IdempotencyKey) == "" {
		return CreateHoldOutput{}, domain.ErrIdempotencyRequired
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	input.BidID = strings.TrimSpace(input.BidID)
	input.CarrierID = strings.TrimSpace(input.CarrierID)
	if input.LoadID == "" || input.BidID == "" || input.CarrierID == "" {
		return CreateHoldOutput{}, domain.ErrInvalidInput
	}
	amountCents, err := domain.AmountToCents(input.Amount, s.cfg.MaxHoldCents)
	if err != nil {
		return CreateHoldOutput{}, err
	}

	load, err := s.loads.GetByID(ctx, input.LoadID)
	if err != nil {
		return CreateHoldOutput{}, err
	}
	if load.ShipperID != actor.SubjectID && !actor.IsAdmin() {
		return CreateHoldOutput{}, domain.ErrUnauthorized
	}
	bid, err := s.bids.GetByID(ctx, input.BidID)
	if err != nil {
		return CreateHoldOutput{}, err
	}
	if bid.LoadID != load.LoadID || bid.CarrierID != input.CarrierID {
		return CreateHoldOutput{}, domain.ErrInvalidInput
	}
	if bid.Status != domain.BidStatusPending {
		return CreateHoldOutput{}, domain.ErrInvalidState
	}

	requestHash := hashJSON(input)
	var cached CreateHoldOutput
	if ok, err := s.replayIdempotent(ctx, actor.IdempotencyKey, requestHash, &cached); err != nil {
		return CreateHoldOutput{}, err
	} else if ok {
		return cached, nil
	}
	if err := s.reserveIdempotency(ctx, actor.IdempotencyKey, requestHash); err != nil {
		return CreateHoldOutput{}, err
	}

	// One active payment per load. A live pending payment left by an earlier
	// attempt is surfaced as-is rather than creating a second hold; a pending
	// payment whose hold was abandoned is retired so the load can take a
	// fresh one.
	if existing, err := s.payments.GetActiveByLoad(ctx, load.LoadID); err == nil {
		if existing.Status != domain.PaymentStatusPending {
			return CreateHoldOutput{}, domain.ErrConflict
		}
		hold, holdErr := s.processor.GetHold(ctx, existing.HoldRef)
		if holdErr != nil {
			return CreateHoldOutput{}, fmt.Errorf("%w: %s", domain.ErrProcessor, holdErr)
		}
		switch {
		case hold.State == ports.HoldStateCanceled:
			if err := s.failPendingPayment(ctx, existing); err != nil {
				return CreateHoldOutput{}, err
			}
			// Falls through to create a replacement hold.
		case existing.AmountCents == amountCents && existing.CarrierID == input.CarrierID:
			out := CreateHoldOutput{Payment: existing, ClientSecret: hold.ClientSecret}
			_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 200, out)
			return out, nil
		default:
			return CreateHoldOutput{}, domain.ErrConflict
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return CreateHoldOutput{}, err
	}

	hold, err := s.processor.CreateHold(ctx, amountCents, s.cfg.Currency, load.LoadID, load.ShipperID)
	if err != nil {
		return CreateHoldOutput{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
	}
	now := s.nowFn()
	payment := domain.Payment{
		PaymentID:   uuid.NewString(),
		LoadID:      load.LoadID,
		ShipperID:   load.ShipperID,
		CarrierID:   input.CarrierID,
		AmountCents: amountCents,
		Currency:    s.cfg.Currency,
		Status:      domain.PaymentStatusPending,
		HoldRef:     hold.Reference,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.logReconciliation(ctx, "create_hold", hold.Reference, load.LoadID, err)
		return CreateHoldOutput{}, err
	}
	out := CreateHoldOutput{Payment: payment, ClientSecret: hold.ClientSecret}
	_ = s.completeIdempotencyJSON(ctx, actor.IdempotencyKey, 201, out)
	return out, nil
}

// ConfirmHold turns a confirmed payment method into the atomic booking set:
// verify the hold is authorized, mark the payment held, accept the target bid,
// reject the rest, book the load. Every step is gated on its expected prior
// status, so a retry after partial failure converges instead of duplicating
// work, and two racing confirms cannot both book the load.
func (s *Service) ConfirmHold(ctx context.Context, actor Actor, input ConfirmHoldInput) (ConfirmHoldOutput, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return ConfirmHoldOutput{}, domain.ErrUnauthorized
	}
	input.HoldRef = strings.TrimSpace(input.HoldRef)
	input.LoadID = strings.TrimSpace(input.LoadID)
	input.BidID = strings.TrimSpace(input.BidID)
	if input.HoldRef == "" || input.LoadID == "" || input.BidID == "" {
		return ConfirmHoldOutput{}, domain.ErrInvalidInput
	}

	payment, err := s.payments.GetActiveByLoad(ctx, input.LoadID)
	if err != nil {
		return ConfirmHoldOutput{}, err
	}
	if payment.ShipperID != actor.SubjectID && !actor.IsAdmin() {
		return ConfirmHoldOutput{}, domain.ErrUnauthorized
	}
	if payment.HoldRef != input.HoldRef {
		return ConfirmHoldOutput{}, domain.ErrInvalidInput
	}
	load, err := s.loads.GetByID(ctx, input.LoadID)
	if err != nil {
		return ConfirmHoldOutput{}, err
	}
	bid, err := s.bids.GetByID(ctx, input.BidID)
	if err != nil {
		return ConfirmHoldOutput{}, err
	}
	if bid.LoadID != load.LoadID || bid.CarrierID != payment.CarrierID {
		return ConfirmHoldOutput{}, domain.ErrInvalidInput
	}

	// Booked already: either this same confirmation landed earlier (converge,
	// no second capture) or another bid won the load.
	if load.Status.CarrierAssigned() {
		if load.CarrierID == payment.CarrierID && payment.Status == domain.PaymentStatusHeldInEscrow {
			return ConfirmHoldOutput{Payment: payment, Load: load, Bid: bid}, nil
		}
		return ConfirmHoldOutput{}, domain.ErrInvalidState
	}
	// A hold implies a pending bid, and a bid implies the load reached
	// bidding; anything else here is a cancellation or a stale request.
	if load.Status != domain.LoadStatusBidding {
		return ConfirmHoldOutput{}, domain.ErrInvalidState
	}

	hold, err := s.processor.GetHold(ctx, payment.HoldRef)
	if err != nil {
		return ConfirmHoldOutput{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
	}
	if hold.State == ports.HoldStateCanceled {
		// Abandoned checkout. The row is retired so the load can take a
		// replacement hold instead of staying wedged on a dead one.
		if err := s.failPendingPayment(ctx, payment); err != nil {
			return ConfirmHoldOutput{}, err
		}
		return ConfirmHoldOutput{}, domain.ErrHoldNotConfirmable
	}
	if hold.State == ports.HoldStateRequiresConfirmation {
		hold, err = s.processor.ConfirmHold(ctx, payment.HoldRef)
		if err != nil {
			return ConfirmHoldOutput{}, fmt.Errorf("%w: %s", domain.ErrProcessor, err)
		}
	}
	if hold.State != ports.HoldStateRequiresCapture {
		return ConfirmHoldOutput{}, domain.ErrHoldNotConfirmable
	}

	now := s.nowFn()
	if payment.Status == domain.PaymentStatusPending {
		held := payment
		held.Status = domain.PaymentStatusHeldInEscrow
		held.EscrowHeldAt = &now
		held.UpdatedAt = now
		if err := s.payments.Transition(ctx, held, domain.PaymentStatusPending); err != nil {
			if !errors.Is(err, domain.ErrInvalidState) {
				s.logReconciliation(ctx, "confirm_hold", payment.HoldRef, load.LoadID, err)
				return ConfirmHoldOutput{}, err
			}
			// A parallel retry got here first; re-read and continue.
			payment, err = s.payments.GetByID(ctx, payment.PaymentID)
			if err != nil {
				return ConfirmHoldOutput{}, err
			}
		} else {
			payment = held
		}
	}
	if payment.Status != domain.PaymentStatusHeldInEscrow {
		return ConfirmHoldOutput{}, domain.ErrInvalidState
	}

	switch bid.Status {
	case domain.BidStatusAccepted:
		// converged on a retry
	case domain.BidStatusPending:
		if err := s.bids.TransitionStatus(ctx, bid.BidID, domain.BidStatusPending, domain.BidStatusAccepted); err != nil {
			if errors.Is(err, domain.ErrInvalidState) {
				return ConfirmHoldOutput{}, domain.ErrBidAcceptFailed
			}
			s.logReconciliation(ctx, "confirm_hold", payment.HoldRef, load.LoadID, err)
			return ConfirmHoldOutput{}, err
		}
		bid.Status = domain.BidStatusAccepted
		bid.UpdatedAt = now
	default:
		return ConfirmHoldOutput{}, domain.ErrBidAcceptFailed
	}

	if _, err := s.bids.RejectOtherPending(ctx, load.LoadID, bid.BidID); err != nil {
		s.logReconciliation(ctx, "confirm_hold", payment.HoldRef, load.LoadID, err)
		return ConfirmHoldOutput{}, err
	}

	if err := s.loads.Book(ctx, load.LoadID, payment.CarrierID); err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			booked, readErr := s.loads.GetByID(ctx, load.LoadID)
			if readErr == nil && booked.Status == domain.LoadStatusBooked && booked.CarrierID == payment.CarrierID {
				load = booked
			} else {
				s.logReconciliation(ctx, "confirm_hold", payment.HoldRef, load.LoadID, err)
				return ConfirmHoldOutput{}, domain.ErrLoadUpdateFailed
			}
		} else {
			s.logReconciliation(ctx, "confirm_hold", payment.HoldRef, load.LoadID, err)
			return ConfirmHoldOutput{}, domain.ErrLoadUpdateFailed
		}
	} else {
		load.Status = domain.LoadStatusBooked
		load.CarrierID = payment.CarrierID
		load.UpdatedAt = now
	}

	if err := s.enqueueLoadBooked(ctx, load, bid.BidID, actor.RequestID, now); err != nil {
		return ConfirmHoldOutput{}, err
	}
	if err := s.enqueuePaymentHeld(ctx, payment, actor.RequestID, now); err != nil {
		return ConfirmHoldOutput{}, err
	}
	return ConfirmHoldOutput{Payment: payment, Load: load, Bid: bid}, nil
}

// failPendingPayment marks a pending payment failed after its hold reached a
// terminal state at the processor. Gated on pending; a racer having already
// failed the row is fine.
func (s *Service) failPendingPayment(ctx context.Context, payment domain.Payment) error {
	now := s.nowFn()
	failed := payment
	failed.Status = domain.PaymentStatusFailed
	failed.UpdatedAt = now
	if err := s.payments.Transition(ctx, failed, domain.PaymentStatusPending); err != nil && !errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	s.logger.InfoContext(ctx, "pending payment failed after hold cancellation",
		"operation", "fail_pending_payment",
		"payment_id", payment.PaymentID,
		"load_id", payment.LoadID,
		"hold_ref", payment.HoldRef,
	)
	return nil
}
