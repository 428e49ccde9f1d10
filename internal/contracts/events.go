package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	EventClass       string          `json:"event_class,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type LoadBookedPayload struct {
	LoadID    string `json:"load_id"`
	ShipperID string `json:"shipper_id"`
	CarrierID string `json:"carrier_id"`
	BidID     string `json:"bid_id"`
	BookedAt  string `json:"booked_at"`
}

type PaymentHeldPayload struct {
	PaymentID   string `json:"payment_id"`
	LoadID      string `json:"load_id"`
	AmountCents int64  `json:"amount_cents"`
	HeldAt      string `json:"held_at"`
}

type PaymentReleasedPayload struct {
	PaymentID      string `json:"payment_id"`
	LoadID         string `json:"load_id"`
	CapturedCents  int64  `json:"captured_cents"`
	SettlementMode string `json:"settlement_mode"`
	ReleasedAt     string `json:"released_at"`
}

type PayoutCreatedPayload struct {
	PayoutID           string `json:"payout_id"`
	PaymentID          string `json:"payment_id"`
	CarrierID          string `json:"carrier_id"`
	PlatformFeeCents   int64  `json:"platform_fee_cents"`
	CarrierAmountCents int64  `json:"carrier_amount_cents"`
	CompletedAt        string `json:"completed_at"`
}

type DisputeOpenedPayload struct {
	PaymentID string `json:"payment_id"`
	LoadID    string `json:"load_id"`
	OpenedBy  string `json:"opened_by"`
	Reason    string `json:"reason"`
	OpenedAt  string `json:"opened_at"`
}

type DisputeResolvedPayload struct {
	PaymentID         string `json:"payment_id"`
	LoadID            string `json:"load_id"`
	ReleasedToCarrier bool   `json:"released_to_carrier"`
	ResolvedBy        string `json:"resolved_by"`
	ResolvedAt        string `json:"resolved_at"`
}
