package domain

import "time"

type BidStatus string

const (
	BidStatusPending  BidStatus = "pending"
	BidStatusAccepted BidStatus = "accepted"
	BidStatusRejected BidStatus = "rejected"
	BidStatusExpired  BidStatus = "expired"
)

type Bid struct {
	BidID          string    `json:"bid_id"`
	LoadID         string    `json:"load_id"`
	CarrierID      string    `json:"carrier_id"`
	BidAmountCents int64     `json:"bid_amount_cents"`
	Status         BidStatus `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Only pending bids move anywhere; accepted, rejected and expired are terminal.
func (s BidStatus) CanTransitionTo(next BidStatus) bool {
	if s != BidStatusPending {
		return false
	}
	switch next {
	case BidStatusAccepted, BidStatusRejected, BidStatusExpired:
		return true
	default:
		return false
	}
}

func ValidateBidInput(loadID, carrierID string, amountCents int64, expiresAt time.Time) error {
	if loadID == "" || carrierID == "" {
		return ErrInvalidInput
	}
	if amountCents <= 0 {
		return ErrInvalidAmount
	}
	if expiresAt.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
