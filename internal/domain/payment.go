package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusHeldInEscrow PaymentStatus = "held_in_escrow"
	PaymentStatusReleased     PaymentStatus = "released"
	PaymentStatusCompleted    PaymentStatus = "completed"
	PaymentStatusFailed       PaymentStatus = "failed"
	PaymentStatusDisputed     PaymentStatus = "disputed"
)

// paymentTransitions encodes the monotonic payment state machine. A released or
// completed payment can never return to pending; disputed resolves only forward.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:      {PaymentStatusHeldInEscrow, PaymentStatusFailed},
	PaymentStatusHeldInEscrow: {PaymentStatusReleased, PaymentStatusDisputed, PaymentStatusFailed},
	PaymentStatusReleased:     {PaymentStatusCompleted, PaymentStatusDisputed, PaymentStatusFailed},
	PaymentStatusDisputed:     {PaymentStatusReleased, PaymentStatusCompleted},
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

type Payment struct {
	PaymentID        string        `json:"payment_id"`
	LoadID           string        `json:"load_id"`
	ShipperID        string        `json:"shipper_id"`
	CarrierID        string        `json:"carrier_id"`
	AmountCents      int64         `json:"amount_cents"`
	FinalAmountCents *int64        `json:"final_amount_cents,omitempty"`
	Currency         string        `json:"currency"`
	Status           PaymentStatus `json:"status"`
	HoldRef          string        `json:"hold_ref,omitempty"`
	TransferRef      string        `json:"transfer_ref,omitempty"`
	RefundRef        string        `json:"refund_ref,omitempty"`
	DisputeReason    string        `json:"dispute_reason,omitempty"`
	ReleaseNotes     string        `json:"release_notes,omitempty"`
	EscrowHeldAt     *time.Time    `json:"escrow_held_at,omitempty"`
	ReleasedAt       *time.Time    `json:"released_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// CapturedAmountCents is the amount actually captured at release: the explicit
// final amount when a partial capture happened, the original amount otherwise.
func (p Payment) CapturedAmountCents() int64 {
	if p.FinalAmountCents != nil {
		return *p.FinalAmountCents
	}
	return p.AmountCents
}
