package domain

import "testing"

func TestLoadStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to LoadStatus
		want     bool
	}{
		{LoadStatusDraft, LoadStatusPosted, true},
		{LoadStatusPosted, LoadStatusBidding, true},
		{LoadStatusPosted, LoadStatusCancelled, true},
		{LoadStatusBidding, LoadStatusBooked, true},
		{LoadStatusBidding, LoadStatusCancelled, true},
		{LoadStatusBooked, LoadStatusInTransit, true},
		{LoadStatusBooked, LoadStatusCancelled, true},
		{LoadStatusInTransit, LoadStatusDelivered, true},
		{LoadStatusDelivered, LoadStatusCompleted, true},

		{LoadStatusPosted, LoadStatusBooked, false},
		{LoadStatusDelivered, LoadStatusCancelled, false},
		{LoadStatusInTransit, LoadStatusCancelled, false},
		{LoadStatusCompleted, LoadStatusPosted, false},
		{LoadStatusCancelled, LoadStatusPosted, false},
		{LoadStatusBooked, LoadStatusDelivered, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestCarrierAssigned(t *testing.T) {
	assigned := []LoadStatus{LoadStatusBooked, LoadStatusInTransit, LoadStatusDelivered, LoadStatusCompleted}
	for _, s := range assigned {
		if !s.CarrierAssigned() {
			t.Errorf("%s should require a carrier", s)
		}
	}
	unassigned := []LoadStatus{LoadStatusDraft, LoadStatusPosted, LoadStatusBidding, LoadStatusCancelled}
	for _, s := range unassigned {
		if s.CarrierAssigned() {
			t.Errorf("%s should not require a carrier", s)
		}
	}
}

func TestValidateLoadTransition(t *testing.T) {
	load := Load{LoadID: "l1", Status: LoadStatusBooked, CarrierID: "c1"}
	if err := ValidateLoadTransition(load, LoadStatusInTransit); err != nil {
		t.Fatalf("booked -> in_transit with carrier: %v", err)
	}
	if err := ValidateLoadTransition(load, "teleported"); err != ErrInvalidInput {
		t.Fatalf("unknown status: got %v, want ErrInvalidInput", err)
	}
	if err := ValidateLoadTransition(load, LoadStatusDelivered); err != ErrInvalidTransition {
		t.Fatalf("booked -> delivered: got %v, want ErrInvalidTransition", err)
	}

	noCarrier := Load{LoadID: "l2", Status: LoadStatusBooked}
	if err := ValidateLoadTransition(noCarrier, LoadStatusInTransit); err != ErrInvalidState {
		t.Fatalf("carrierless booked load moving forward: got %v, want ErrInvalidState", err)
	}
}

func TestBidStatusTransitions(t *testing.T) {
	for _, to := range []BidStatus{BidStatusAccepted, BidStatusRejected, BidStatusExpired} {
		if !BidStatusPending.CanTransitionTo(to) {
			t.Errorf("pending -> %s should be allowed", to)
		}
	}
	for _, from := range []BidStatus{BidStatusAccepted, BidStatusRejected, BidStatusExpired} {
		if from.CanTransitionTo(BidStatusPending) || from.CanTransitionTo(BidStatusAccepted) {
			t.Errorf("%s is terminal and must not move", from)
		}
	}
}
