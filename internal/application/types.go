package application

import (
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

type Config struct {
	ServiceName string
	Currency    string
	// PlatformFeeRate is the marketplace cut applied on split-transfer payouts.
	PlatformFeeRate decimal.Decimal
	// MaxHoldCents caps a single escrow hold.
	MaxHoldCents int64
	// AutoReleaseAfter is how long a payment may sit in escrow before the
	// sweep releases it without shipper action.
	AutoReleaseAfter time.Duration
	// DefaultBidTTL is applied when a carrier places a bid without an expiry.
	DefaultBidTTL        time.Duration
	SweepBatchSize       int
	IdempotencyTTL       time.Duration
	OutboxFlushBatchSize int
}

type Actor struct {
	SubjectID      string
	Role           string
	RequestID      string
	IdempotencyKey string
}

const (
	RoleShipper = "shipper"
	RoleCarrier = "carrier"
	RoleAdmin   = "admin"
)

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type CreateLoadInput struct {
	OriginCity      string
	DestinationCity string
	EquipmentType   string
	PostedRate      float64
}

type PlaceBidInput struct {
	LoadID    string
	Amount    float64
	ExpiresAt time.Time
}

type CreateHoldInput struct {
	LoadID    string
	BidID     string
	CarrierID string
	Amount    float64
}

type ConfirmHoldInput struct {
	HoldRef string
	LoadID  string
	BidID   string
}

type ReleasePaymentInput struct {
	LoadID      string
	FinalAmount *float64
	Notes       string
}

type OpenDisputeInput struct {
	LoadID string
	Reason string
}

type ResolveDisputeInput struct {
	LoadID           string
	ReleaseToCarrier bool
}

type AttachDocumentInput struct {
	LoadID  string
	DocType string
	FileURL string
}

// SweepResult tallies a batch sweep. Sweeps never abort on a single item; a
// failure bumps Failed and processing continues.
type SweepResult struct {
	Processed int
	Released  int
	Expired   int
	Failed    int
}

type Service struct {
	cfg Config

	loads           ports.LoadRepository
	bids            ports.BidRepository
	payments        ports.PaymentRepository
	payouts         ports.PayoutRepository
	documents       ports.DocumentRepository
	carrierAccounts ports.CarrierAccountRepository
	idempotency     ports.IdempotencyRepository
	outbox          ports.OutboxRepository
	processor       ports.PaymentProcessor
	domainEvents    ports.DomainPublisher
	analytics       ports.AnalyticsPublisher

	logger *slog.Logger
	nowFn  func() time.Time
}

type Dependencies struct {
	Config Config

	Loads           ports.LoadRepository
	Bids            ports.BidRepository
	Payments        ports.PaymentRepository
	Payouts         ports.PayoutRepository
	Documents       ports.DocumentRepository
	CarrierAccounts ports.CarrierAccountRepository
	Idempotency     ports.IdempotencyRepository
	Outbox          ports.OutboxRepository
	Processor       ports.PaymentProcessor
	DomainEvents    ports.DomainPublisher
	Analytics       ports.AnalyticsPublisher

	Logger *slog.Logger
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "payments-service"
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.PlatformFeeRate.IsZero() {
		cfg.PlatformFeeRate = decimal.NewFromFloat(0.03)
	}
	if cfg.MaxHoldCents <= 0 {
		cfg.MaxHoldCents = 100_000_000 // $1,000,000
	}
	if cfg.AutoReleaseAfter <= 0 {
		cfg.AutoReleaseAfter = 72 * time.Hour
	}
	if cfg.DefaultBidTTL <= 0 {
		cfg.DefaultBidTTL = 48 * time.Hour
	}
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 100
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.OutboxFlushBatchSize <= 0 {
		cfg.OutboxFlushBatchSize = 100
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:             cfg,
		loads:           deps.Loads,
		bids:            deps.Bids,
		payments:        deps.Payments,
		payouts:         deps.Payouts,
		documents:       deps.Documents,
		carrierAccounts: deps.CarrierAccounts,
		idempotency:     deps.Idempotency,
		outbox:          deps.Outbox,
		processor:       deps.Processor,
		domainEvents:    deps.DomainEvents,
		analytics:       deps.Analytics,
		logger:          logger.With("service", cfg.ServiceName, "layer", "application"),
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
}

// WithNow overrides the clock; tests use it to drive time-based sweeps.
func (s *Service) WithNow(nowFn func() time.Time) *Service {
	s.nowFn = nowFn
	return s
}
