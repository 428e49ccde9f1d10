package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
)

// replayIdempotent returns the cached response for the key when a completed
// record with the same request hash exists. A reservation without a recorded
// body means a prior attempt died mid-flight; the caller proceeds and the
// status-gated writes converge to the same end state.
func (s *Service) replayIdempotent(ctx context.Context, key, requestHash string, out any) (bool, error) {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return false, nil
	}
	rec, err := s.idempotency.Get(ctx, key, s.nowFn())
	if err != nil || rec == nil {
		return false, err
	}
	if rec.RequestHash != requestHash {
		return false, domain.ErrIdempotencyConflict
	}
	if len(rec.ResponseBody) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(rec.ResponseBody, out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *Service) reserveIdempotency(ctx context.Context, key, requestHash string) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	err := s.idempotency.Reserve(ctx, key, requestHash, s.nowFn().Add(s.cfg.IdempotencyTTL))
	if errors.Is(err, domain.ErrConflict) {
		return domain.ErrIdempotencyConflict
	}
	return err
}

func (s *Service) completeIdempotencyJSON(ctx context.Context, key string, code int, payload any) error {
	if s.idempotency == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	b, _ := json.Marshal(payload)
	return s.idempotency.Complete(ctx, key, code, b, s.nowFn())
}

func hashJSON(v any) string {
	b, _ := json.Marshal(v)
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// logReconciliation records the dangerous failure class: an external call
// succeeded but the local ledger write did not. The processor reference is
// logged so an operator can reconcile by hand; the hold or transfer is not
// reversed automatically.
func (s *Service) logReconciliation(ctx context.Context, operation, externalRef, loadID string, err error) {
	s.logger.ErrorContext(ctx, "ledger write failed after external call",
		"operation", operation,
		"outcome", "failure",
		"reconcile", "manual",
		"external_ref", externalRef,
		"load_id", loadID,
		"error", err.Error(),
	)
}
