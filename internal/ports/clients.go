package ports

import (
	"context"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
)

// HoldState mirrors the processor's payment-intent lifecycle for the subset of
// states the service acts on.
type HoldState string

const (
	HoldStateRequiresPaymentMethod HoldState = "requires_payment_method"
	HoldStateRequiresConfirmation  HoldState = "requires_confirmation"
	HoldStateRequiresCapture       HoldState = "requires_capture"
	HoldStateSucceeded             HoldState = "succeeded"
	HoldStateCanceled              HoldState = "canceled"
)

type Hold struct {
	Reference    string
	ClientSecret string
	State        HoldState
	AmountCents  int64
	Currency     string
}

// PaymentProcessor is the external money-movement boundary. Every amount is in
// integer minor units; implementations must never see decimals.
type PaymentProcessor interface {
	// CreateHold authorizes funds for manual capture and returns the hold
	// reference plus the client secret used for payment-method collection.
	CreateHold(ctx context.Context, amountCents int64, currency, loadID, shipperID string) (Hold, error)
	GetHold(ctx context.Context, reference string) (Hold, error)
	// ConfirmHold is a no-op when the hold is already authorized.
	ConfirmHold(ctx context.Context, reference string) (Hold, error)
	// CaptureHold captures up to the authorized amount. amountCents at or
	// below zero captures the full authorization.
	CaptureHold(ctx context.Context, reference string, amountCents int64) (Hold, error)
	// Transfer moves already-captured platform funds to a connected account
	// and returns the transfer reference. idempotencyKey dedupes the request
	// at the processor: replays with the same key return the original
	// transfer instead of paying out twice.
	Transfer(ctx context.Context, destinationAccount string, amountCents int64, currency, transferGroup, idempotencyKey string) (string, error)
	// Refund reverses the charge and returns the refund reference. An
	// uncaptured hold is canceled instead, which releases the authorization
	// back to the payer.
	Refund(ctx context.Context, reference string) (string, error)
}

// RateLimitStore is a shared fixed-window counter keyed by caller identity.
// Backed by a TTL'd key-value store so replicas see the same counts.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type DomainPublisher interface {
	PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error
}

type AnalyticsPublisher interface {
	PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error
}
