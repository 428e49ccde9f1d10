package domain

import "time"

type LoadStatus string

const (
	LoadStatusDraft     LoadStatus = "draft"
	LoadStatusPosted    LoadStatus = "posted"
	LoadStatusBidding   LoadStatus = "bidding"
	LoadStatusBooked    LoadStatus = "booked"
	LoadStatusInTransit LoadStatus = "in_transit"
	LoadStatusDelivered LoadStatus = "delivered"
	LoadStatusCompleted LoadStatus = "completed"
	LoadStatusCancelled LoadStatus = "cancelled"
)

// loadTransitions is the only source of truth for allowed load status moves.
// Callers never pass free-form target statuses past this table.
var loadTransitions = map[LoadStatus][]LoadStatus{
	LoadStatusDraft:     {LoadStatusPosted},
	LoadStatusPosted:    {LoadStatusBidding, LoadStatusCancelled},
	LoadStatusBidding:   {LoadStatusBooked, LoadStatusCancelled},
	LoadStatusBooked:    {LoadStatusInTransit, LoadStatusCancelled},
	LoadStatusInTransit: {LoadStatusDelivered},
	LoadStatusDelivered: {LoadStatusCompleted},
}

func (s LoadStatus) Valid() bool {
	switch s {
	case LoadStatusDraft, LoadStatusPosted, LoadStatusBidding, LoadStatusBooked,
		LoadStatusInTransit, LoadStatusDelivered, LoadStatusCompleted, LoadStatusCancelled:
		return true
	default:
		return false
	}
}

func (s LoadStatus) CanTransitionTo(next LoadStatus) bool {
	for _, allowed := range loadTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CarrierAssigned reports whether a load in this status must carry a carrier id.
// Invariant: carrier_id is set iff status is booked, in_transit, delivered or completed.
func (s LoadStatus) CarrierAssigned() bool {
	switch s {
	case LoadStatusBooked, LoadStatusInTransit, LoadStatusDelivered, LoadStatusCompleted:
		return true
	default:
		return false
	}
}

type Load struct {
	LoadID          string     `json:"load_id"`
	ShipperID       string     `json:"shipper_id"`
	CarrierID       string     `json:"carrier_id,omitempty"`
	OriginCity      string     `json:"origin_city"`
	DestinationCity string     `json:"destination_city"`
	EquipmentType   string     `json:"equipment_type"`
	PostedRateCents int64      `json:"posted_rate_cents"`
	Status          LoadStatus `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ValidateLoadTransition checks the transition table and the carrier invariant together.
func ValidateLoadTransition(load Load, next LoadStatus) error {
	if !next.Valid() {
		return ErrInvalidInput
	}
	if !load.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	if next.CarrierAssigned() && load.CarrierID == "" && next != LoadStatusBooked {
		return ErrInvalidState
	}
	return nil
}
