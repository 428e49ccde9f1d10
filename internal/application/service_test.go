package application_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/adapters/memory"
	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

type fixture struct {
	svc    *application.Service
	stores *memory.Stores
	proc   *memory.Processor
	pub    *memory.Publisher

	shipper application.Actor
	carrier application.Actor
	admin   application.Actor

	keySeq int
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, nil)
}

// newFixtureWith lets a test swap or wrap dependencies before the service is
// built, for fault injection at the repository boundary.
func newFixtureWith(t *testing.T, tweak func(*application.Dependencies)) *fixture {
	t.Helper()
	stores := memory.NewStores()
	proc := memory.NewProcessor()
	pub := memory.NewPublisher()
	deps := application.Dependencies{
		Loads:           stores.Loads(),
		Bids:            stores.Bids(),
		Payments:        stores.Payments(),
		Payouts:         stores.Payouts(),
		Documents:       stores.Documents(),
		CarrierAccounts: stores.CarrierAccounts(),
		Idempotency:     stores.Idempotency(),
		Outbox:          stores.Outbox(),
		Processor:       proc,
		DomainEvents:    pub,
		Analytics:       pub,
		Logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if tweak != nil {
		tweak(&deps)
	}
	svc := application.NewService(deps)
	return &fixture{
		svc:     svc,
		stores:  stores,
		proc:    proc,
		pub:     pub,
		shipper: application.Actor{SubjectID: "ship_1", Role: application.RoleShipper, RequestID: "req_ship"},
		carrier: application.Actor{SubjectID: "car_1", Role: application.RoleCarrier, RequestID: "req_car"},
		admin:   application.Actor{SubjectID: "adm_1", Role: application.RoleAdmin, RequestID: "req_adm"},
	}
}

func (f *fixture) withKey(actor application.Actor) application.Actor {
	f.keySeq++
	actor.IdempotencyKey = fmt.Sprintf("idem-%d", f.keySeq)
	return actor
}

func (f *fixture) postLoad(t *testing.T, rate float64) domain.Load {
	t.Helper()
	load, err := f.svc.CreateLoad(context.Background(), f.shipper, application.CreateLoadInput{
		OriginCity:      "Dallas",
		DestinationCity: "Atlanta",
		EquipmentType:   "dry_van",
		PostedRate:      rate,
	})
	if err != nil {
		t.Fatalf("CreateLoad: %v", err)
	}
	return load
}

func (f *fixture) placeBid(t *testing.T, actor application.Actor, loadID string, amount float64) domain.Bid {
	t.Helper()
	bid, err := f.svc.PlaceBid(context.Background(), actor, application.PlaceBidInput{LoadID: loadID, Amount: amount})
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	return bid
}

func (f *fixture) holdAndConfirm(t *testing.T, load domain.Load, bid domain.Bid, amount float64) domain.Payment {
	t.Helper()
	out, err := f.svc.CreateHold(context.Background(), f.withKey(f.shipper), application.CreateHoldInput{
		LoadID:    load.LoadID,
		BidID:     bid.BidID,
		CarrierID: bid.CarrierID,
		Amount:    amount,
	})
	if err != nil {
		t.Fatalf("CreateHold: %v", err)
	}
	confirmed, err := f.svc.ConfirmHold(context.Background(), f.shipper, application.ConfirmHoldInput{
		HoldRef: out.Payment.HoldRef,
		LoadID:  load.LoadID,
		BidID:   bid.BidID,
	})
	if err != nil {
		t.Fatalf("ConfirmHold: %v", err)
	}
	return confirmed.Payment
}

func (f *fixture) deliver(t *testing.T, loadID string, carrier application.Actor) {
	t.Helper()
	if _, err := f.svc.TransitionLoad(context.Background(), carrier, loadID, domain.LoadStatusInTransit); err != nil {
		t.Fatalf("transition in_transit: %v", err)
	}
	if _, err := f.svc.TransitionLoad(context.Background(), carrier, loadID, domain.LoadStatusDelivered); err != nil {
		t.Fatalf("transition delivered: %v", err)
	}
}

func (f *fixture) approveDeliveryDoc(t *testing.T, loadID string, carrier application.Actor) {
	t.Helper()
	doc, err := f.svc.AttachDocument(context.Background(), carrier, application.AttachDocumentInput{
		LoadID:  loadID,
		DocType: "pod",
		FileURL: "https://docs.example.com/pod.pdf",
	})
	if err != nil {
		t.Fatalf("AttachDocument: %v", err)
	}
	if _, err := f.svc.ReviewDocument(context.Background(), f.admin, doc.DocumentID, true); err != nil {
		t.Fatalf("ReviewDocument: %v", err)
	}
}

// deliveredWithHeldPayment walks the whole happy path up to the point where
// funds can be released: posted, bid, hold confirmed, delivered, doc approved.
func (f *fixture) deliveredWithHeldPayment(t *testing.T) (domain.Load, domain.Bid, domain.Payment) {
	t.Helper()
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	payment := f.holdAndConfirm(t, load, bid, 950.00)
	f.deliver(t, load.LoadID, f.carrier)
	f.approveDeliveryDoc(t, load.LoadID, f.carrier)
	load, err := f.svc.GetLoad(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("GetLoad: %v", err)
	}
	return load, bid, payment
}

func (f *fixture) advanceClock(d time.Duration) {
	f.svc.WithNow(func() time.Time { return time.Now().UTC().Add(d) })
}
