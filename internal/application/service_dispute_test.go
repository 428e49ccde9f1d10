package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

func TestOpenDisputeFreezesHeldPayment(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)

	disputed, err := f.svc.OpenDispute(context.Background(), f.carrier, application.OpenDisputeInput{
		LoadID: load.LoadID,
		Reason: "damaged freight",
	})
	if err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}
	if disputed.Status != domain.PaymentStatusDisputed || disputed.DisputeReason != "damaged freight" {
		t.Fatalf("dispute not recorded: status=%s reason=%q", disputed.Status, disputed.DisputeReason)
	}

	// A frozen payment cannot be released.
	_, err = f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{LoadID: load.LoadID})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("release of disputed payment: got %v, want ErrInvalidState", err)
	}
}

func TestOpenDisputeRequiresHeldOrReleased(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	if _, err := f.svc.CreateHold(context.Background(), f.withKey(f.shipper), application.CreateHoldInput{
		LoadID: load.LoadID, BidID: bid.BidID, CarrierID: bid.CarrierID, Amount: 950.00,
	}); err != nil {
		t.Fatalf("CreateHold: %v", err)
	}

	_, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID,
		Reason: "never picked up",
	})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("pending payment: got %v, want ErrInvalidState", err)
	}
}

func TestOpenDisputeReopenSemantics(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)

	if _, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "short shipment",
	}); err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	same, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "short shipment",
	})
	if err != nil {
		t.Fatalf("reopen same reason: %v", err)
	}
	if same.Status != domain.PaymentStatusDisputed {
		t.Fatalf("reopen status: %s", same.Status)
	}

	_, err = f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "different grounds",
	})
	if !errors.Is(err, domain.ErrAlreadyDisputed) {
		t.Fatalf("reopen different reason: got %v, want ErrAlreadyDisputed", err)
	}
}

func TestOpenDisputeOnlyParties(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)

	stranger := application.Actor{SubjectID: "car_99", Role: application.RoleCarrier}
	_, err := f.svc.OpenDispute(context.Background(), stranger, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "not my load",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestResolveDisputeRefundsShipper(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "damaged freight",
	}); err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	resolved, err := f.svc.ResolveDispute(context.Background(), f.admin, application.ResolveDisputeInput{
		LoadID:           load.LoadID,
		ReleaseToCarrier: false,
	})
	if err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if resolved.Status != domain.PaymentStatusCompleted {
		t.Fatalf("refund status: %s", resolved.Status)
	}
	if resolved.RefundRef == "" {
		t.Fatal("refund ref not recorded")
	}
	if resolved.DisputeReason != "" {
		t.Fatalf("dispute reason not cleared: %q", resolved.DisputeReason)
	}
	if f.proc.CapturedTotal(payment.HoldRef) != 0 {
		t.Fatal("refund resolution captured funds")
	}
	// Refunding an uncaptured hold cancels the authorization.
	hold, err := f.proc.GetHold(context.Background(), payment.HoldRef)
	if err != nil {
		t.Fatalf("GetHold: %v", err)
	}
	if hold.State != ports.HoldStateCanceled {
		t.Fatalf("hold state after refund: %s", hold.State)
	}
}

func TestResolveDisputeRefundsCapturedCharge(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{LoadID: load.LoadID}); err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if _, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "charge disputed after release",
	}); err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	resolved, err := f.svc.ResolveDispute(context.Background(), f.admin, application.ResolveDisputeInput{
		LoadID:           load.LoadID,
		ReleaseToCarrier: false,
	})
	if err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if resolved.Status != domain.PaymentStatusCompleted {
		t.Fatalf("refund status: %s", resolved.Status)
	}
	if resolved.RefundRef == "" || resolved.RefundRef == payment.HoldRef {
		t.Fatalf("refund ref: %q", resolved.RefundRef)
	}
	// A captured charge is refunded, not canceled.
	hold, err := f.proc.GetHold(context.Background(), payment.HoldRef)
	if err != nil {
		t.Fatalf("GetHold: %v", err)
	}
	if hold.State != ports.HoldStateSucceeded {
		t.Fatalf("hold state after refund: %s", hold.State)
	}
}

func TestResolveDisputeReleasesToCarrier(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.OpenDispute(context.Background(), f.carrier, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "payment overdue",
	}); err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	resolved, err := f.svc.ResolveDispute(context.Background(), f.admin, application.ResolveDisputeInput{
		LoadID:           load.LoadID,
		ReleaseToCarrier: true,
	})
	if err != nil {
		t.Fatalf("ResolveDispute: %v", err)
	}
	if resolved.Status != domain.PaymentStatusReleased {
		t.Fatalf("release status: %s", resolved.Status)
	}
	if f.proc.CapturedTotal(payment.HoldRef) != payment.AmountCents {
		t.Fatalf("captured %d, want %d", f.proc.CapturedTotal(payment.HoldRef), payment.AmountCents)
	}
}

func TestResolveDisputeAdminOnly(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.OpenDispute(context.Background(), f.shipper, application.OpenDisputeInput{
		LoadID: load.LoadID, Reason: "damaged freight",
	}); err != nil {
		t.Fatalf("OpenDispute: %v", err)
	}

	for _, actor := range []application.Actor{f.shipper, f.carrier} {
		_, err := f.svc.ResolveDispute(context.Background(), actor, application.ResolveDisputeInput{
			LoadID: load.LoadID, ReleaseToCarrier: true,
		})
		if !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("%s: got %v, want ErrForbidden", actor.SubjectID, err)
		}
	}
}
