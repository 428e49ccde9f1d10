package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var rec idempotencyModel
	if err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if now.After(rec.ExpiresAt) {
		_ = r.db.WithContext(ctx).Where("idempotency_key = ?", key).Delete(&idempotencyModel{}).Error
		return nil, nil
	}
	out := ports.IdempotencyRecord{
		Key:          rec.IdempotencyKey,
		RequestHash:  rec.RequestHash,
		ResponseCode: rec.ResponseCode,
		ExpiresAt:    rec.ExpiresAt,
	}
	if rec.ResponseBody != nil {
		out.ResponseBody = []byte(*rec.ResponseBody)
	}
	return &out, nil
}

// Reserve claims the key. A live reservation with a different hash conflicts;
// one with the same hash and no recorded response is re-claimed so that a
// request that died mid-flight stays retryable under the same key.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	var existing idempotencyModel
	err := r.db.WithContext(ctx).Where("idempotency_key = ?", key).Take(&existing).Error
	switch {
	case err == nil:
		if now.After(existing.ExpiresAt) {
			return r.db.WithContext(ctx).Model(&idempotencyModel{}).
				Where("idempotency_key = ?", key).
				Updates(map[string]any{
					"request_hash":  requestHash,
					"response_code": 0,
					"response_body": nil,
					"expires_at":    expiresAt,
					"updated_at":    now,
				}).Error
		}
		if existing.RequestHash != requestHash || existing.ResponseBody != nil {
			return domain.ErrConflict
		}
		return r.db.WithContext(ctx).Model(&idempotencyModel{}).
			Where("idempotency_key = ?", key).
			Updates(map[string]any{"expires_at": expiresAt, "updated_at": now}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec := idempotencyModel{
			IdempotencyKey: key,
			RequestHash:    requestHash,
			ExpiresAt:      expiresAt,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if createErr := r.db.WithContext(ctx).Create(&rec).Error; createErr != nil {
			if errors.Is(createErr, gorm.ErrDuplicatedKey) {
				return domain.ErrConflict
			}
			return createErr
		}
		return nil
	default:
		return err
	}
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	body := string(responseBody)
	res := r.db.WithContext(ctx).Model(&idempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"response_code": responseCode,
			"response_body": &body,
			"updated_at":    at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, record ports.OutboxRecord) error {
	envelope, err := json.Marshal(record.Envelope)
	if err != nil {
		return err
	}
	rec := outboxModel{
		RecordID:   record.RecordID,
		EventClass: record.EventClass,
		Envelope:   string(envelope),
		CreatedAt:  record.CreatedAt,
	}
	if createErr := r.db.WithContext(ctx).Create(&rec).Error; createErr != nil {
		if errors.Is(createErr, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return createErr
	}
	return nil
}

func (r *outboxRepository) ListPending(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var recs []outboxModel
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("created_at asc").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, 0, len(recs))
	for _, rec := range recs {
		var envelope contracts.EventEnvelope
		if err := json.Unmarshal([]byte(rec.Envelope), &envelope); err != nil {
			continue
		}
		out = append(out, ports.OutboxRecord{
			RecordID:   rec.RecordID,
			EventClass: rec.EventClass,
			Envelope:   envelope,
			CreatedAt:  rec.CreatedAt,
			SentAt:     rec.PublishedAt,
		})
	}
	return out, nil
}

func (r *outboxRepository) MarkSent(ctx context.Context, recordID string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("record_id = ? AND published_at IS NULL", recordID).
		Update("published_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
