package application

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

func (s *Service) CreateLoad(ctx context.Context, actor Actor, input CreateLoadInput) (domain.Load, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Load{}, domain.ErrUnauthorized
	}
	if actor.Role != RoleShipper && !actor.IsAdmin() {
		return domain.Load{}, domain.ErrForbidden
	}
	input.OriginCity = strings.TrimSpace(input.OriginCity)
	input.DestinationCity = strings.TrimSpace(input.DestinationCity)
	input.EquipmentType = strings.TrimSpace(input.EquipmentType)
	if input.OriginCity == "" || input.DestinationCity == "" || input.EquipmentType == "" {
		return domain.Load{}, domain.ErrInvalidInput
	}
	rateCents, err := domain.AmountToCents(input.PostedRate, s.cfg.MaxHoldCents)
	if err != nil {
		return domain.Load{}, err
	}
	now := s.nowFn()
	load := domain.Load{
		LoadID:          uuid.NewString(),
		ShipperID:       actor.SubjectID,
		OriginCity:      input.OriginCity,
		DestinationCity: input.DestinationCity,
		EquipmentType:   input.EquipmentType,
		PostedRateCents: rateCents,
		Status:          domain.LoadStatusPosted,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.loads.Create(ctx, load); err != nil {
		return domain.Load{}, err
	}
	return load, nil
}

func (s *Service) GetLoad(ctx context.Context, actor Actor, loadID string) (domain.Load, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Load{}, domain.ErrUnauthorized
	}
	return s.loads.GetByID(ctx, strings.TrimSpace(loadID))
}

// TransitionLoad applies caller-initiated moves: the assigned carrier marks
// transit progress, the shipper cancels. Booking and completion never come
// through here; those belong to ConfirmHold and the release paths.
func (s *Service) TransitionLoad(ctx context.Context, actor Actor, loadID string, next domain.LoadStatus) (domain.Load, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Load{}, domain.ErrUnauthorized
	}
	load, err := s.loads.GetByID(ctx, strings.TrimSpace(loadID))
	if err != nil {
		return domain.Load{}, err
	}
	if next == domain.LoadStatusBooked || next == domain.LoadStatusCompleted {
		return domain.Load{}, domain.ErrInvalidTransition
	}
	if err := domain.ValidateLoadTransition(load, next); err != nil {
		return domain.Load{}, err
	}
	switch next {
	case domain.LoadStatusInTransit, domain.LoadStatusDelivered:
		if actor.SubjectID != load.CarrierID && !actor.IsAdmin() {
			return domain.Load{}, domain.ErrForbidden
		}
	default:
		if actor.SubjectID != load.ShipperID && !actor.IsAdmin() {
			return domain.Load{}, domain.ErrForbidden
		}
	}
	if err := s.loads.TransitionStatus(ctx, load.LoadID, load.Status, next); err != nil {
		return domain.Load{}, err
	}
	load.Status = next
	load.UpdatedAt = s.nowFn()
	return load, nil
}

func (s *Service) PlaceBid(ctx context.Context, actor Actor, input PlaceBidInput) (domain.Bid, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Bid{}, domain.ErrUnauthorized
	}
	if actor.Role != RoleCarrier && !actor.IsAdmin() {
		return domain.Bid{}, domain.ErrForbidden
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	amountCents, err := domain.AmountToCents(input.Amount, s.cfg.MaxHoldCents)
	if err != nil {
		return domain.Bid{}, err
	}
	now := s.nowFn()
	if input.ExpiresAt.IsZero() {
		input.ExpiresAt = now.Add(s.cfg.DefaultBidTTL)
	}
	if err := domain.ValidateBidInput(input.LoadID, actor.SubjectID, amountCents, input.ExpiresAt); err != nil {
		return domain.Bid{}, err
	}
	load, err := s.loads.GetByID(ctx, input.LoadID)
	if err != nil {
		return domain.Bid{}, err
	}
	if load.Status != domain.LoadStatusPosted && load.Status != domain.LoadStatusBidding {
		return domain.Bid{}, domain.ErrInvalidState
	}
	if load.ShipperID == actor.SubjectID {
		return domain.Bid{}, domain.ErrForbidden
	}
	// First bid moves the load to bidding. A concurrent first bid may win the
	// gate; that is fine, the load is in the right state either way.
	if load.Status == domain.LoadStatusPosted {
		if err := s.loads.TransitionStatus(ctx, load.LoadID, domain.LoadStatusPosted, domain.LoadStatusBidding); err != nil &&
			!errors.Is(err, domain.ErrInvalidState) {
			return domain.Bid{}, err
		}
	}
	bid := domain.Bid{
		BidID:          uuid.NewString(),
		LoadID:         load.LoadID,
		CarrierID:      actor.SubjectID,
		BidAmountCents: amountCents,
		Status:         domain.BidStatusPending,
		ExpiresAt:      input.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.bids.Create(ctx, bid); err != nil {
		return domain.Bid{}, err
	}
	return bid, nil
}

func (s *Service) ListBids(ctx context.Context, actor Actor, loadID string) ([]domain.Bid, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	load, err := s.loads.GetByID(ctx, strings.TrimSpace(loadID))
	if err != nil {
		return nil, err
	}
	if actor.SubjectID != load.ShipperID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.bids.ListByLoad(ctx, load.LoadID)
}

// ExpireBidsSweep marks overdue pending bids expired. The status gate in the
// repository makes reruns no-ops and lets a concurrent booking win the race.
func (s *Service) ExpireBidsSweep(ctx context.Context) (SweepResult, error) {
	n, err := s.bids.ExpireOverdue(ctx, s.nowFn())
	if err != nil {
		return SweepResult{Failed: 1}, err
	}
	result := SweepResult{Processed: int(n), Expired: int(n)}
	s.logger.InfoContext(ctx, "bid expiry sweep completed",
		"operation", "expire_bids_sweep",
		"outcome", "success",
		"expired", result.Expired,
	)
	return result, nil
}

func (s *Service) AttachDocument(ctx context.Context, actor Actor, input AttachDocumentInput) (domain.LoadDocument, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.LoadDocument{}, domain.ErrUnauthorized
	}
	input.LoadID = strings.TrimSpace(input.LoadID)
	input.FileURL = strings.TrimSpace(input.FileURL)
	docType := domain.NormalizeDocumentType(input.DocType)
	if input.LoadID == "" || input.FileURL == "" || docType == "" {
		return domain.LoadDocument{}, domain.ErrInvalidInput
	}
	load, err := s.loads.GetByID(ctx, input.LoadID)
	if err != nil {
		return domain.LoadDocument{}, err
	}
	if actor.SubjectID != load.CarrierID && actor.SubjectID != load.ShipperID && !actor.IsAdmin() {
		return domain.LoadDocument{}, domain.ErrForbidden
	}
	now := s.nowFn()
	doc := domain.LoadDocument{
		DocumentID: uuid.NewString(),
		LoadID:     load.LoadID,
		UploadedBy: actor.SubjectID,
		DocType:    docType,
		FileURL:    input.FileURL,
		Status:     domain.DocumentStatusPendingReview,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return domain.LoadDocument{}, err
	}
	return doc, nil
}

func (s *Service) ReviewDocument(ctx context.Context, actor Actor, documentID string, approve bool) (domain.LoadDocument, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.LoadDocument{}, domain.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return domain.LoadDocument{}, domain.ErrForbidden
	}
	documentID = strings.TrimSpace(documentID)
	doc, err := s.documents.GetByID(ctx, documentID)
	if err != nil {
		return domain.LoadDocument{}, err
	}
	to := domain.DocumentStatusRejected
	if approve {
		to = domain.DocumentStatusApproved
	}
	if err := s.documents.Review(ctx, documentID, actor.SubjectID, to); err != nil {
		return domain.LoadDocument{}, err
	}
	doc.Status = to
	doc.ReviewedBy = actor.SubjectID
	doc.UpdatedAt = s.nowFn()
	return doc, nil
}

func (s *Service) UpsertCarrierAccount(ctx context.Context, actor Actor, carrierID, processorAccountID string, payoutsEnabled bool) (domain.CarrierAccount, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.CarrierAccount{}, domain.ErrUnauthorized
	}
	carrierID = strings.TrimSpace(carrierID)
	if carrierID == "" || strings.TrimSpace(processorAccountID) == "" {
		return domain.CarrierAccount{}, domain.ErrInvalidInput
	}
	if actor.SubjectID != carrierID && !actor.IsAdmin() {
		return domain.CarrierAccount{}, domain.ErrForbidden
	}
	now := s.nowFn()
	account := domain.CarrierAccount{
		CarrierID:          carrierID,
		ProcessorAccountID: strings.TrimSpace(processorAccountID),
		PayoutsEnabled:     payoutsEnabled,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.carrierAccounts.Upsert(ctx, account); err != nil {
		return domain.CarrierAccount{}, err
	}
	return account, nil
}

// ListCarrierPayouts is the carrier-facing reconciliation read: every payout
// row ever settled to the carrier, newest first.
func (s *Service) ListCarrierPayouts(ctx context.Context, actor Actor, carrierID string) ([]domain.Payout, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return nil, domain.ErrUnauthorized
	}
	carrierID = strings.TrimSpace(carrierID)
	if carrierID == "" {
		return nil, domain.ErrInvalidInput
	}
	if actor.SubjectID != carrierID && !actor.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	return s.payouts.ListByCarrier(ctx, carrierID)
}

func (s *Service) GetPaymentByLoad(ctx context.Context, actor Actor, loadID string) (domain.Payment, error) {
	if strings.TrimSpace(actor.SubjectID) == "" {
		return domain.Payment{}, domain.ErrUnauthorized
	}
	payment, err := s.payments.GetActiveByLoad(ctx, strings.TrimSpace(loadID))
	if err != nil {
		return domain.Payment{}, err
	}
	if actor.SubjectID != payment.ShipperID && actor.SubjectID != payment.CarrierID && !actor.IsAdmin() {
		return domain.Payment{}, domain.ErrForbidden
	}
	return payment, nil
}
