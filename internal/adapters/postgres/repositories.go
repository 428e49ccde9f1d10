package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

type Repositories struct {
	Loads           ports.LoadRepository
	Bids            ports.BidRepository
	Payments        ports.PaymentRepository
	Payouts         ports.PayoutRepository
	Documents       ports.DocumentRepository
	CarrierAccounts ports.CarrierAccountRepository
	Idempotency     ports.IdempotencyRepository
	Outbox          ports.OutboxRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Loads:           &loadRepository{db: db},
		Bids:            &bidRepository{db: db},
		Payments:        &paymentRepository{db: db},
		Payouts:         &payoutRepository{db: db},
		Documents:       &documentRepository{db: db},
		CarrierAccounts: &carrierAccountRepository{db: db},
		Idempotency:     &idempotencyRepository{db: db},
		Outbox:          &outboxRepository{db: db},
	}
}

type loadRepository struct {
	db *gorm.DB
}

func (r *loadRepository) Create(ctx context.Context, load domain.Load) error {
	rec := loadModel{
		LoadID:          load.LoadID,
		ShipperID:       load.ShipperID,
		OriginCity:      load.OriginCity,
		DestinationCity: load.DestinationCity,
		EquipmentType:   load.EquipmentType,
		PostedRateCents: load.PostedRateCents,
		Status:          string(load.Status),
		CreatedAt:       load.CreatedAt,
		UpdatedAt:       load.UpdatedAt,
	}
	if load.CarrierID != "" {
		rec.CarrierID = &load.CarrierID
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *loadRepository) GetByID(ctx context.Context, loadID string) (domain.Load, error) {
	var rec loadModel
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Load{}, domain.ErrNotFound
		}
		return domain.Load{}, err
	}
	return toDomainLoad(rec), nil
}

// TransitionStatus only writes when the stored status still equals from. A
// missed gate surfaces as ErrInvalidState (row exists) or ErrNotFound.
func (r *loadRepository) TransitionStatus(ctx context.Context, loadID string, from, to domain.LoadStatus) error {
	res := r.db.WithContext(ctx).Model(&loadModel{}).
		Where("load_id = ? AND status = ?", loadID, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.gateMiss(ctx, loadID)
	}
	return nil
}

func (r *loadRepository) Book(ctx context.Context, loadID, carrierID string) error {
	res := r.db.WithContext(ctx).Model(&loadModel{}).
		Where("load_id = ? AND status = ? AND carrier_id IS NULL",
			loadID, string(domain.LoadStatusBidding)).
		Updates(map[string]any{
			"status":     string(domain.LoadStatusBooked),
			"carrier_id": carrierID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return r.gateMiss(ctx, loadID)
	}
	return nil
}

func (r *loadRepository) gateMiss(ctx context.Context, loadID string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&loadModel{}).Where("load_id = ?", loadID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidState
}

type bidRepository struct {
	db *gorm.DB
}

func (r *bidRepository) Create(ctx context.Context, bid domain.Bid) error {
	rec := bidModel{
		BidID:          bid.BidID,
		LoadID:         bid.LoadID,
		CarrierID:      bid.CarrierID,
		BidAmountCents: bid.BidAmountCents,
		Status:         string(bid.Status),
		ExpiresAt:      bid.ExpiresAt,
		CreatedAt:      bid.CreatedAt,
		UpdatedAt:      bid.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *bidRepository) GetByID(ctx context.Context, bidID string) (domain.Bid, error) {
	var rec bidModel
	if err := r.db.WithContext(ctx).Where("bid_id = ?", bidID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Bid{}, domain.ErrNotFound
		}
		return domain.Bid{}, err
	}
	return toDomainBid(rec), nil
}

func (r *bidRepository) ListByLoad(ctx context.Context, loadID string) ([]domain.Bid, error) {
	var recs []bidModel
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Bid, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainBid(rec))
	}
	return out, nil
}

func (r *bidRepository) TransitionStatus(ctx context.Context, bidID string, from, to domain.BidStatus) error {
	res := r.db.WithContext(ctx).Model(&bidModel{}).
		Where("bid_id = ? AND status = ?", bidID, string(from)).
		Updates(map[string]any{"status": string(to), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&bidModel{}).Where("bid_id = ?", bidID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (r *bidRepository) RejectOtherPending(ctx context.Context, loadID, keepBidID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&bidModel{}).
		Where("load_id = ? AND bid_id <> ? AND status = ?", loadID, keepBidID, string(domain.BidStatusPending)).
		Updates(map[string]any{"status": string(domain.BidStatusRejected), "updated_at": time.Now().UTC()})
	return res.RowsAffected, res.Error
}

func (r *bidRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&bidModel{}).
		Where("status = ? AND expires_at < ?", string(domain.BidStatusPending), now).
		Updates(map[string]any{"status": string(domain.BidStatusExpired), "updated_at": now})
	return res.RowsAffected, res.Error
}
