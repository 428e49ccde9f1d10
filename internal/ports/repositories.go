package ports

import (
	"context"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

type LoadRepository interface {
	Create(ctx context.Context, load domain.Load) error
	GetByID(ctx context.Context, loadID string) (domain.Load, error)
	// TransitionStatus applies a status-gated update: the write only lands when
	// the stored status still equals from. Returns domain.ErrInvalidState when
	// the gate misses so callers can distinguish a lost race from a bad id.
	TransitionStatus(ctx context.Context, loadID string, from, to domain.LoadStatus) error
	// Book atomically sets status=booked and the carrier assignment, gated on
	// the load still being in bidding with no carrier assigned.
	Book(ctx context.Context, loadID, carrierID string) error
}

type BidRepository interface {
	Create(ctx context.Context, bid domain.Bid) error
	GetByID(ctx context.Context, bidID string) (domain.Bid, error)
	ListByLoad(ctx context.Context, loadID string) ([]domain.Bid, error)
	// TransitionStatus is gated on the stored status still being from.
	TransitionStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error
	// RejectOtherPending moves every pending bid on the load except keepBidID
	// to rejected, returning how many rows moved.
	RejectOtherPending(ctx context.Context, loadID, keepBidID string) (int64, error)
	// ExpireOverdue marks pending bids whose expiry has passed as expired.
	// Gating on status=pending makes the sweep idempotent and keeps it from
	// racing a concurrent booking that already accepted the bid.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment domain.Payment) error
	GetByID(ctx context.Context, paymentID string) (domain.Payment, error)
	// GetActiveByLoad returns the one non-failed payment for a load.
	GetActiveByLoad(ctx context.Context, loadID string) (domain.Payment, error)
	// Transition persists the full row but only when the stored status still
	// equals from, so concurrent writers cannot blind-overwrite each other.
	Transition(ctx context.Context, payment domain.Payment, from domain.PaymentStatus) error
	// ListAutoReleasable selects held payments whose escrow_held_at is older
	// than the cutoff. The age policy lives in this query, not in callers.
	ListAutoReleasable(ctx context.Context, heldBefore time.Time, limit int) ([]domain.Payment, error)
}

type PayoutRepository interface {
	Create(ctx context.Context, payout domain.Payout) error
	GetByPaymentID(ctx context.Context, paymentID string) (domain.Payout, error)
	ListByCarrier(ctx context.Context, carrierID string) ([]domain.Payout, error)
	Update(ctx context.Context, payout domain.Payout) error
}

type DocumentRepository interface {
	Create(ctx context.Context, doc domain.LoadDocument) error
	GetByID(ctx context.Context, documentID string) (domain.LoadDocument, error)
	ListByLoad(ctx context.Context, loadID string) ([]domain.LoadDocument, error)
	// Review is gated on the document still being pending_review.
	Review(ctx context.Context, documentID, reviewedBy string, to domain.DocumentStatus) error
	// HasApprovedDeliveryDoc reports whether an approved BOL or POD exists.
	HasApprovedDeliveryDoc(ctx context.Context, loadID string) (bool, error)
}

type CarrierAccountRepository interface {
	Get(ctx context.Context, carrierID string) (domain.CarrierAccount, error)
	Upsert(ctx context.Context, account domain.CarrierAccount) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	// Reserve claims the key for this request hash. A live reservation with a
	// different hash is a conflict; a live reservation with the same hash and
	// no recorded response is re-claimed, so a failed attempt stays retryable.
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
}

type OutboxRecord struct {
	RecordID   string
	EventClass string
	Envelope   contracts.EventEnvelope
	CreatedAt  time.Time
	SentAt     *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, record OutboxRecord) error
	ListPending(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkSent(ctx context.Context, recordID string, at time.Time) error
}
