package domain

import "time"

type PayoutStatus string

const (
	PayoutStatusPending   PayoutStatus = "pending"
	PayoutStatusCompleted PayoutStatus = "completed"
	PayoutStatusFailed    PayoutStatus = "failed"
)

// Payout is the audit record of one split-transfer settlement.
// Invariant: AmountCents = PlatformFeeCents + CarrierAmountCents. Rows are
// immutable once completed and act as the idempotency guard against issuing a
// second external transfer for the same payment.
type Payout struct {
	PayoutID           string       `json:"payout_id"`
	PaymentID          string       `json:"payment_id"`
	LoadID             string       `json:"load_id"`
	CarrierID          string       `json:"carrier_id"`
	AmountCents        int64        `json:"amount_cents"`
	PlatformFeeCents   int64        `json:"platform_fee_cents"`
	CarrierAmountCents int64        `json:"carrier_amount_cents"`
	Status             PayoutStatus `json:"status"`
	TransferRef        string       `json:"transfer_ref,omitempty"`
	CompletedAt        *time.Time   `json:"completed_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// CarrierAccount records a carrier's connected payout destination at the
// processor. PayoutsEnabled is the capability check behind settlement strategy
// selection: split transfer when enabled, direct capture otherwise.
type CarrierAccount struct {
	CarrierID          string    `json:"carrier_id"`
	ProcessorAccountID string    `json:"processor_account_id"`
	PayoutsEnabled     bool      `json:"payouts_enabled"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
