package postgres

import (
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

type loadModel struct {
	LoadID          string     `gorm:"column:load_id;type:uuid;primaryKey"`
	ShipperID       string     `gorm:"column:shipper_id;type:uuid"`
	CarrierID       *string    `gorm:"column:carrier_id;type:uuid"`
	OriginCity      string     `gorm:"column:origin_city"`
	DestinationCity string     `gorm:"column:destination_city"`
	EquipmentType   string     `gorm:"column:equipment_type"`
	PostedRateCents int64      `gorm:"column:posted_rate_cents"`
	Status          string     `gorm:"column:status"`
	CreatedAt       time.Time  `gorm:"column:created_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

func (loadModel) TableName() string { return "loads" }

type bidModel struct {
	BidID          string    `gorm:"column:bid_id;type:uuid;primaryKey"`
	LoadID         string    `gorm:"column:load_id;type:uuid"`
	CarrierID      string    `gorm:"column:carrier_id;type:uuid"`
	BidAmountCents int64     `gorm:"column:bid_amount_cents"`
	Status         string    `gorm:"column:status"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (bidModel) TableName() string { return "bids" }

type paymentModel struct {
	PaymentID        string     `gorm:"column:payment_id;type:uuid;primaryKey"`
	LoadID           string     `gorm:"column:load_id;type:uuid"`
	ShipperID        string     `gorm:"column:shipper_id;type:uuid"`
	CarrierID        string     `gorm:"column:carrier_id;type:uuid"`
	AmountCents      int64      `gorm:"column:amount_cents"`
	FinalAmountCents *int64     `gorm:"column:final_amount_cents"`
	Currency         string     `gorm:"column:currency"`
	Status           string     `gorm:"column:status"`
	HoldRef          string     `gorm:"column:hold_ref"`
	TransferRef      string     `gorm:"column:transfer_ref"`
	RefundRef        string     `gorm:"column:refund_ref"`
	DisputeReason    string     `gorm:"column:dispute_reason"`
	ReleaseNotes     string     `gorm:"column:release_notes"`
	EscrowHeldAt     *time.Time `gorm:"column:escrow_held_at"`
	ReleasedAt       *time.Time `gorm:"column:released_at"`
	CompletedAt      *time.Time `gorm:"column:completed_at"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	UpdatedAt        time.Time  `gorm:"column:updated_at"`
}

func (paymentModel) TableName() string { return "payments" }

type payoutModel struct {
	PayoutID           string     `gorm:"column:payout_id;type:uuid;primaryKey"`
	PaymentID          string     `gorm:"column:payment_id;type:uuid;uniqueIndex"`
	LoadID             string     `gorm:"column:load_id;type:uuid"`
	CarrierID          string     `gorm:"column:carrier_id;type:uuid"`
	AmountCents        int64      `gorm:"column:amount_cents"`
	PlatformFeeCents   int64      `gorm:"column:platform_fee_cents"`
	CarrierAmountCents int64      `gorm:"column:carrier_amount_cents"`
	Status             string     `gorm:"column:status"`
	TransferRef        string     `gorm:"column:transfer_ref"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (payoutModel) TableName() string { return "carrier_payouts" }

type documentModel struct {
	DocumentID string    `gorm:"column:document_id;type:uuid;primaryKey"`
	LoadID     string    `gorm:"column:load_id;type:uuid"`
	UploadedBy string    `gorm:"column:uploaded_by;type:uuid"`
	DocType    string    `gorm:"column:doc_type"`
	FileURL    string    `gorm:"column:file_url"`
	Status     string    `gorm:"column:status"`
	ReviewedBy string    `gorm:"column:reviewed_by"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (documentModel) TableName() string { return "load_documents" }

type carrierAccountModel struct {
	CarrierID          string    `gorm:"column:carrier_id;type:uuid;primaryKey"`
	ProcessorAccountID string    `gorm:"column:processor_account_id"`
	PayoutsEnabled     bool      `gorm:"column:payouts_enabled"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (carrierAccountModel) TableName() string { return "carrier_accounts" }

type idempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body;type:jsonb"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (idempotencyModel) TableName() string { return "payments_idempotency" }

type outboxModel struct {
	RecordID    string     `gorm:"column:record_id;type:uuid;primaryKey"`
	EventClass  string     `gorm:"column:event_class"`
	Envelope    string     `gorm:"column:envelope;type:jsonb"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string { return "payments_outbox" }

func toDomainLoad(m loadModel) domain.Load {
	carrier := ""
	if m.CarrierID != nil {
		carrier = *m.CarrierID
	}
	return domain.Load{
		LoadID:          m.LoadID,
		ShipperID:       m.ShipperID,
		CarrierID:       carrier,
		OriginCity:      m.OriginCity,
		DestinationCity: m.DestinationCity,
		EquipmentType:   m.EquipmentType,
		PostedRateCents: m.PostedRateCents,
		Status:          domain.LoadStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toDomainBid(m bidModel) domain.Bid {
	return domain.Bid{
		BidID:          m.BidID,
		LoadID:         m.LoadID,
		CarrierID:      m.CarrierID,
		BidAmountCents: m.BidAmountCents,
		Status:         domain.BidStatus(m.Status),
		ExpiresAt:      m.ExpiresAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toDomainPayment(m paymentModel) domain.Payment {
	return domain.Payment{
		PaymentID:        m.PaymentID,
		LoadID:           m.LoadID,
		ShipperID:        m.ShipperID,
		CarrierID:        m.CarrierID,
		AmountCents:      m.AmountCents,
		FinalAmountCents: m.FinalAmountCents,
		Currency:         m.Currency,
		Status:           domain.PaymentStatus(m.Status),
		HoldRef:          m.HoldRef,
		TransferRef:      m.TransferRef,
		RefundRef:        m.RefundRef,
		DisputeReason:    m.DisputeReason,
		ReleaseNotes:     m.ReleaseNotes,
		EscrowHeldAt:     m.EscrowHeldAt,
		ReleasedAt:       m.ReleasedAt,
		CompletedAt:      m.CompletedAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toDomainPayout(m payoutModel) domain.Payout {
	return domain.Payout{
		PayoutID:           m.PayoutID,
		PaymentID:          m.PaymentID,
		LoadID:             m.LoadID,
		CarrierID:          m.CarrierID,
		AmountCents:        m.AmountCents,
		PlatformFeeCents:   m.PlatformFeeCents,
		CarrierAmountCents: m.CarrierAmountCents,
		Status:             domain.PayoutStatus(m.Status),
		TransferRef:        m.TransferRef,
		CompletedAt:        m.CompletedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toDomainDocument(m documentModel) domain.LoadDocument {
	return domain.LoadDocument{
		DocumentID: m.DocumentID,
		LoadID:     m.LoadID,
		UploadedBy: m.UploadedBy,
		DocType:    domain.DocumentType(m.DocType),
		FileURL:    m.FileURL,
		Status:     domain.DocumentStatus(m.Status),
		ReviewedBy: m.ReviewedBy,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toDomainCarrierAccount(m carrierAccountModel) domain.CarrierAccount {
	return domain.CarrierAccount{
		CarrierID:          m.CarrierID,
		ProcessorAccountID: m.ProcessorAccountID,
		PayoutsEnabled:     m.PayoutsEnabled,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
