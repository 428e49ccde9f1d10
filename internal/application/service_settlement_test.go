package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// flakyPayoutRepo fails the next Update call once, simulating a dropped
// connection after money already moved at the processor.
type flakyPayoutRepo struct {
	ports.PayoutRepository
	failNext error
}

func (r *flakyPayoutRepo) Update(ctx context.Context, payout domain.Payout) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	return r.PayoutRepository.Update(ctx, payout)
}

// flakyPaymentRepo fails the next Transition call once.
type flakyPaymentRepo struct {
	ports.PaymentRepository
	failNext error
}

func (r *flakyPaymentRepo) Transition(ctx context.Context, payment domain.Payment, from domain.PaymentStatus) error {
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	return r.PaymentRepository.Transition(ctx, payment, from)
}

func TestReleasePaymentCapturesAndCompletesLoad(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)

	released, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{LoadID: load.LoadID})
	if err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if released.Status != domain.PaymentStatusReleased {
		t.Fatalf("payment status: %s", released.Status)
	}
	if got := f.proc.CapturedTotal(payment.HoldRef); got != payment.AmountCents {
		t.Fatalf("captured %d, want %d", got, payment.AmountCents)
	}
	completed, err := f.svc.GetLoad(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("GetLoad: %v", err)
	}
	if completed.Status != domain.LoadStatusCompleted {
		t.Fatalf("load status: %s", completed.Status)
	}
}

func TestReleasePaymentPartialCapture(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)

	finalAmount := 900.00
	released, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{
		LoadID:      load.LoadID,
		FinalAmount: &finalAmount,
		Notes:       "late delivery deduction",
	})
	if err != nil {
		t.Fatalf("ReleasePayment: %v", err)
	}
	if released.FinalAmountCents == nil || *released.FinalAmountCents != 90000 {
		t.Fatalf("final amount cents: %v", released.FinalAmountCents)
	}
	if got := f.proc.CapturedTotal(payment.HoldRef); got != 90000 {
		t.Fatalf("captured %d, want 90000", got)
	}
}

func TestReleasePaymentRejectsAmountAboveHold(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)

	tooMuch := 1000.00
	_, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{
		LoadID:      load.LoadID,
		FinalAmount: &tooMuch,
	})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("got %v, want ErrInvalidAmount", err)
	}
}

func TestReleasePaymentRequiresApprovedDocument(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	f.holdAndConfirm(t, load, bid, 950.00)
	f.deliver(t, load.LoadID, f.carrier)

	_, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{LoadID: load.LoadID})
	if !errors.Is(err, domain.ErrDocumentRequired) {
		t.Fatalf("shipper without doc: got %v, want ErrDocumentRequired", err)
	}

	// Admins can force a release without paperwork.
	released, err := f.svc.ReleasePayment(context.Background(), f.admin, application.ReleasePaymentInput{LoadID: load.LoadID})
	if err != nil {
		t.Fatalf("admin release: %v", err)
	}
	if released.Status != domain.PaymentStatusReleased {
		t.Fatalf("payment status: %s", released.Status)
	}
}

func TestReleasePaymentRequiresDeliveredLoad(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	f.holdAndConfirm(t, load, bid, 950.00)

	_, err := f.svc.ReleasePayment(context.Background(), f.shipper, application.ReleasePaymentInput{LoadID: load.LoadID})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestCarrierPayoutSplitsFeeAndIsRetrySafe(t *testing.T) {
	f := newFixture(t)
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.UpsertCarrierAccount(context.Background(), f.carrier, f.carrier.SubjectID, "acct_123", true); err != nil {
		t.Fatalf("UpsertCarrierAccount: %v", err)
	}

	payout, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("CreateCarrierPayout: %v", err)
	}
	if payout.Status != domain.PayoutStatusCompleted {
		t.Fatalf("payout status: %s", payout.Status)
	}
	if payout.PlatformFeeCents != 2850 || payout.CarrierAmountCents != 92150 {
		t.Fatalf("split: fee=%d carrier=%d", payout.PlatformFeeCents, payout.CarrierAmountCents)
	}
	if payout.PlatformFeeCents+payout.CarrierAmountCents != payment.AmountCents {
		t.Fatal("split does not sum to hold amount")
	}
	if f.proc.TransferCount() != 1 {
		t.Fatalf("transfers: %d", f.proc.TransferCount())
	}

	retry, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("CreateCarrierPayout retry: %v", err)
	}
	if retry.PayoutID != payout.PayoutID || retry.TransferRef != payout.TransferRef {
		t.Fatalf("retry created a new payout: %s vs %s", retry.PayoutID, payout.PayoutID)
	}
	if f.proc.TransferCount() != 1 {
		t.Fatalf("retry issued a second transfer: %d", f.proc.TransferCount())
	}
}

func TestCarrierPayoutNeedsPayoutAccount(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)

	_, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if !errors.Is(err, domain.ErrPayoutAccountMissing) {
		t.Fatalf("no account: got %v, want ErrPayoutAccountMissing", err)
	}

	if _, err := f.svc.UpsertCarrierAccount(context.Background(), f.carrier, f.carrier.SubjectID, "acct_123", false); err != nil {
		t.Fatalf("UpsertCarrierAccount: %v", err)
	}
	_, err = f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if !errors.Is(err, domain.ErrPayoutAccountMissing) {
		t.Fatalf("payouts disabled: got %v, want ErrPayoutAccountMissing", err)
	}
}

func TestListCarrierPayouts(t *testing.T) {
	f := newFixture(t)
	load, _, _ := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.UpsertCarrierAccount(context.Background(), f.carrier, f.carrier.SubjectID, "acct_123", true); err != nil {
		t.Fatalf("UpsertCarrierAccount: %v", err)
	}
	payout, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("CreateCarrierPayout: %v", err)
	}

	payouts, err := f.svc.ListCarrierPayouts(context.Background(), f.carrier, f.carrier.SubjectID)
	if err != nil {
		t.Fatalf("ListCarrierPayouts: %v", err)
	}
	if len(payouts) != 1 || payouts[0].PayoutID != payout.PayoutID {
		t.Fatalf("payouts: %+v", payouts)
	}

	other := application.Actor{SubjectID: "car_2", Role: application.RoleCarrier}
	if _, err := f.svc.ListCarrierPayouts(context.Background(), other, f.carrier.SubjectID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("other carrier: got %v, want ErrForbidden", err)
	}
}

func TestCarrierPayoutRetryAfterLostPayoutWrite(t *testing.T) {
	flaky := &flakyPayoutRepo{}
	f := newFixtureWith(t, func(d *application.Dependencies) {
		flaky.PayoutRepository = d.Payouts
		d.Payouts = flaky
	})
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.UpsertCarrierAccount(context.Background(), f.carrier, f.carrier.SubjectID, "acct_123", true); err != nil {
		t.Fatalf("UpsertCarrierAccount: %v", err)
	}

	// First attempt captures and transfers, then loses the payout write.
	flaky.failNext = errors.New("connection reset")
	if _, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	if f.proc.CapturedTotal(payment.HoldRef) != payment.AmountCents {
		t.Fatalf("captured %d before failure, want %d", f.proc.CapturedTotal(payment.HoldRef), payment.AmountCents)
	}
	if f.proc.TransferCount() != 1 {
		t.Fatalf("transfers before failure: %d", f.proc.TransferCount())
	}

	// The retry must finish the job without touching the processor again.
	payout, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("CreateCarrierPayout retry: %v", err)
	}
	if payout.Status != domain.PayoutStatusCompleted || payout.TransferRef == "" {
		t.Fatalf("payout after retry: status=%s transfer=%q", payout.Status, payout.TransferRef)
	}
	if f.proc.CapturedTotal(payment.HoldRef) != payment.AmountCents {
		t.Fatalf("retry changed captured total: %d", f.proc.CapturedTotal(payment.HoldRef))
	}
	if f.proc.TransferCount() != 1 {
		t.Fatalf("retry issued a second transfer: %d", f.proc.TransferCount())
	}
	released, err := f.stores.Payments().GetByID(context.Background(), payment.PaymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if released.Status != domain.PaymentStatusReleased {
		t.Fatalf("payment status after retry: %s", released.Status)
	}
	completed, err := f.svc.GetLoad(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("GetLoad: %v", err)
	}
	if completed.Status != domain.LoadStatusCompleted {
		t.Fatalf("load status after retry: %s", completed.Status)
	}
}

func TestCarrierPayoutRetryRepairsPaymentStatus(t *testing.T) {
	flaky := &flakyPaymentRepo{}
	f := newFixtureWith(t, func(d *application.Dependencies) {
		flaky.PaymentRepository = d.Payments
		d.Payments = flaky
	})
	load, _, payment := f.deliveredWithHeldPayment(t)
	if _, err := f.svc.UpsertCarrierAccount(context.Background(), f.carrier, f.carrier.SubjectID, "acct_123", true); err != nil {
		t.Fatalf("UpsertCarrierAccount: %v", err)
	}

	// The payout row completes but the payment status write is lost.
	flaky.failNext = errors.New("connection reset")
	if _, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID); err == nil {
		t.Fatal("expected first attempt to fail")
	}
	stuck, err := f.stores.Payments().GetByID(context.Background(), payment.PaymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stuck.Status != domain.PaymentStatusHeldInEscrow {
		t.Fatalf("payment status after failure: %s", stuck.Status)
	}

	payout, err := f.svc.CreateCarrierPayout(context.Background(), f.shipper, load.LoadID)
	if err != nil {
		t.Fatalf("CreateCarrierPayout retry: %v", err)
	}
	if payout.Status != domain.PayoutStatusCompleted {
		t.Fatalf("payout status: %s", payout.Status)
	}
	if f.proc.TransferCount() != 1 {
		t.Fatalf("retry issued a second transfer: %d", f.proc.TransferCount())
	}
	repaired, err := f.stores.Payments().GetByID(context.Background(), payment.PaymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if repaired.Status != domain.PaymentStatusReleased || repaired.TransferRef != payout.TransferRef {
		t.Fatalf("payment after retry: status=%s transfer=%q", repaired.Status, repaired.TransferRef)
	}
}

func TestAutoReleaseSweepReleasesAgedEscrow(t *testing.T) {
	f := newFixture(t)
	load := f.postLoad(t, 1000.00)
	bid := f.placeBid(t, f.carrier, load.LoadID, 950.00)
	payment := f.holdAndConfirm(t, load, bid, 950.00)

	// Not old enough yet.
	result, err := f.svc.AutoReleaseSweep(context.Background())
	if err != nil {
		t.Fatalf("AutoReleaseSweep: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("premature sweep processed %d", result.Processed)
	}

	f.advanceClock(80 * time.Hour)
	result, err = f.svc.AutoReleaseSweep(context.Background())
	if err != nil {
		t.Fatalf("AutoReleaseSweep aged: %v", err)
	}
	if result.Processed != 1 || result.Released != 1 || result.Failed != 0 {
		t.Fatalf("sweep result: %+v", result)
	}
	swept, err := f.stores.Payments().GetByID(context.Background(), payment.PaymentID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if swept.Status != domain.PaymentStatusReleased {
		t.Fatalf("payment status after sweep: %s", swept.Status)
	}

	// Rerun is a no-op.
	result, err = f.svc.AutoReleaseSweep(context.Background())
	if err != nil {
		t.Fatalf("AutoReleaseSweep rerun: %v", err)
	}
	if result.Processed != 0 {
		t.Fatalf("rerun processed %d", result.Processed)
	}
}
