package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

type paymentRepository struct {
	db *gorm.DB
}

func (r *paymentRepository) Create(ctx context.Context, payment domain.Payment) error {
	rec := paymentModel{
		PaymentID:        payment.PaymentID,
		LoadID:           payment.LoadID,
		ShipperID:        payment.ShipperID,
		CarrierID:        payment.CarrierID,
		AmountCents:      payment.AmountCents,
		FinalAmountCents: payment.FinalAmountCents,
		Currency:         payment.Currency,
		Status:           string(payment.Status),
		HoldRef:          payment.HoldRef,
		TransferRef:      payment.TransferRef,
		RefundRef:        payment.RefundRef,
		DisputeReason:    payment.DisputeReason,
		ReleaseNotes:     payment.ReleaseNotes,
		EscrowHeldAt:     payment.EscrowHeldAt,
		ReleasedAt:       payment.ReleasedAt,
		CompletedAt:      payment.CompletedAt,
		CreatedAt:        payment.CreatedAt,
		UpdatedAt:        payment.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, paymentID string) (domain.Payment, error) {
	var rec paymentModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}
	return toDomainPayment(rec), nil
}

func (r *paymentRepository) GetActiveByLoad(ctx context.Context, loadID string) (domain.Payment, error) {
	var rec paymentModel
	err := r.db.WithContext(ctx).
		Where("load_id = ? AND status <> ?", loadID, string(domain.PaymentStatusFailed)).
		Order("created_at desc").
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payment{}, domain.ErrNotFound
		}
		return domain.Payment{}, err
	}
	return toDomainPayment(rec), nil
}

// Transition persists the full row gated on the stored status still being
// from. The gate is what makes concurrent confirms and releases lose cleanly
// instead of overwriting each other.
func (r *paymentRepository) Transition(ctx context.Context, payment domain.Payment, from domain.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&paymentModel{}).
		Where("payment_id = ? AND status = ?", payment.PaymentID, string(from)).
		Updates(map[string]any{
			"status":             string(payment.Status),
			"final_amount_cents": payment.FinalAmountCents,
			"transfer_ref":       payment.TransferRef,
			"refund_ref":         payment.RefundRef,
			"dispute_reason":     payment.DisputeReason,
			"release_notes":      payment.ReleaseNotes,
			"escrow_held_at":     payment.EscrowHeldAt,
			"released_at":        payment.ReleasedAt,
			"completed_at":       payment.CompletedAt,
			"updated_at":         payment.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&paymentModel{}).Where("payment_id = ?", payment.PaymentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidState
	}
	return nil
}

// ListAutoReleasable owns the age-based eligibility policy for the sweep.
func (r *paymentRepository) ListAutoReleasable(ctx context.Context, heldBefore time.Time, limit int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []paymentModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND escrow_held_at IS NOT NULL AND escrow_held_at < ?",
			string(domain.PaymentStatusHeldInEscrow), heldBefore).
		Order("escrow_held_at asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.Payment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainPayment(rec))
	}
	return out, nil
}

type payoutRepository struct {
	db *gorm.DB
}

func (r *payoutRepository) Create(ctx context.Context, payout domain.Payout) error {
	rec := payoutModel{
		PayoutID:           payout.PayoutID,
		PaymentID:          payout.PaymentID,
		LoadID:             payout.LoadID,
		CarrierID:          payout.CarrierID,
		AmountCents:        payout.AmountCents,
		PlatformFeeCents:   payout.PlatformFeeCents,
		CarrierAmountCents: payout.CarrierAmountCents,
		Status:             string(payout.Status),
		TransferRef:        payout.TransferRef,
		CompletedAt:        payout.CompletedAt,
		CreatedAt:          payout.CreatedAt,
		UpdatedAt:          payout.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (r *payoutRepository) GetByPaymentID(ctx context.Context, paymentID string) (domain.Payout, error) {
	var rec payoutModel
	if err := r.db.WithContext(ctx).Where("payment_id = ?", paymentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Payout{}, domain.ErrNotFound
		}
		return domain.Payout{}, err
	}
	return toDomainPayout(rec), nil
}

func (r *payoutRepository) ListByCarrier(ctx context.Context, carrierID string) ([]domain.Payout, error) {
	var recs []payoutModel
	if err := r.db.WithContext(ctx).Where("carrier_id = ?", carrierID).Order("created_at desc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Payout, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainPayout(rec))
	}
	return out, nil
}

func (r *payoutRepository) Update(ctx context.Context, payout domain.Payout) error {
	res := r.db.WithContext(ctx).Model(&payoutModel{}).
		Where("payout_id = ?", payout.PayoutID).
		Updates(map[string]any{
			"status":       string(payout.Status),
			"transfer_ref": payout.TransferRef,
			"completed_at": payout.CompletedAt,
			"updated_at":   payout.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type documentRepository struct {
	db *gorm.DB
}

func (r *documentRepository) Create(ctx context.Context, doc domain.LoadDocument) error {
	rec := documentModel{
		DocumentID: doc.DocumentID,
		LoadID:     doc.LoadID,
		UploadedBy: doc.UploadedBy,
		DocType:    string(doc.DocType),
		FileURL:    doc.FileURL,
		Status:     string(doc.Status),
		ReviewedBy: doc.ReviewedBy,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}

func (r *documentRepository) GetByID(ctx context.Context, documentID string) (domain.LoadDocument, error) {
	var rec documentModel
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.LoadDocument{}, domain.ErrNotFound
		}
		return domain.LoadDocument{}, err
	}
	return toDomainDocument(rec), nil
}

func (r *documentRepository) ListByLoad(ctx context.Context, loadID string) ([]domain.LoadDocument, error) {
	var recs []documentModel
	if err := r.db.WithContext(ctx).Where("load_id = ?", loadID).Order("created_at asc").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LoadDocument, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDomainDocument(rec))
	}
	return out, nil
}

func (r *documentRepository) Review(ctx context.Context, documentID, reviewedBy string, to domain.DocumentStatus) error {
	res := r.db.WithContext(ctx).Model(&documentModel{}).
		Where("document_id = ? AND status = ?", documentID, string(domain.DocumentStatusPendingReview)).
		Updates(map[string]any{
			"status":      string(to),
			"reviewed_by": reviewedBy,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&documentModel{}).Where("document_id = ?", documentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (r *documentRepository) HasApprovedDeliveryDoc(ctx context.Context, loadID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&documentModel{}).
		Where("load_id = ? AND status = ? AND doc_type IN ?",
			loadID, string(domain.DocumentStatusApproved),
			[]string{string(domain.DocumentTypeBOL), string(domain.DocumentTypePOD)}).
		Count(&count).Error
	return count > 0, err
}

type carrierAccountRepository struct {
	db *gorm.DB
}

func (r *carrierAccountRepository) Get(ctx context.Context, carrierID string) (domain.CarrierAccount, error) {
	var rec carrierAccountModel
	if err := r.db.WithContext(ctx).Where("carrier_id = ?", carrierID).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CarrierAccount{}, domain.ErrNotFound
		}
		return domain.CarrierAccount{}, err
	}
	return toDomainCarrierAccount(rec), nil
}

func (r *carrierAccountRepository) Upsert(ctx context.Context, account domain.CarrierAccount) error {
	rec := carrierAccountModel{
		CarrierID:          account.CarrierID,
		ProcessorAccountID: account.ProcessorAccountID,
		PayoutsEnabled:     account.PayoutsEnabled,
		CreatedAt:          account.CreatedAt,
		UpdatedAt:          account.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "carrier_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"processor_account_id", "payouts_enabled", "updated_at"}),
	}).Create(&rec).Error
}
