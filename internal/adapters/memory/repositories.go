package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// Stores holds every repository port backed by in-process maps. One mutex
// guards all of them so cross-table operations observe a consistent view,
// which is what the status-gated updates rely on.
type Stores struct {
	mu sync.Mutex

	loads           map[string]domain.Load
	bids            map[string]domain.Bid
	payments        map[string]domain.Payment
	payouts         map[string]domain.Payout
	documents       map[string]domain.LoadDocument
	carrierAccounts map[string]domain.CarrierAccount
	idempotency     map[string]ports.IdempotencyRecord
	outbox          []ports.OutboxRecord
}

func NewStores() *Stores {
	return &Stores{
		loads:           make(map[string]domain.Load),
		bids:            make(map[string]domain.Bid),
		payments:        make(map[string]domain.Payment),
		payouts:         make(map[string]domain.Payout),
		documents:       make(map[string]domain.LoadDocument),
		carrierAccounts: make(map[string]domain.CarrierAccount),
		idempotency:     make(map[string]ports.IdempotencyRecord),
	}
}

func (s *Stores) Loads() ports.LoadRepository                 { return (*loadStore)(s) }
func (s *Stores) Bids() ports.BidRepository                   { return (*bidStore)(s) }
func (s *Stores) Payments() ports.PaymentRepository           { return (*paymentStore)(s) }
func (s *Stores) Payouts() ports.PayoutRepository             { return (*payoutStore)(s) }
func (s *Stores) Documents() ports.DocumentRepository         { return (*documentStore)(s) }
func (s *Stores) CarrierAccounts() ports.CarrierAccountRepository {
	return (*carrierAccountStore)(s)
}
func (s *Stores) Idempotency() ports.IdempotencyRepository { return (*idempotencyStore)(s) }
func (s *Stores) Outbox() ports.OutboxRepository           { return (*outboxStore)(s) }

type loadStore Stores

func (s *loadStore) Create(_ context.Context, load domain.Load) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.loads[load.LoadID]; exists {
		return domain.ErrConflict
	}
	s.loads[load.LoadID] = load
	return nil
}

func (s *loadStore) GetByID(_ context.Context, loadID string) (domain.Load, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	load, ok := s.loads[loadID]
	if !ok {
		return domain.Load{}, domain.ErrNotFound
	}
	return load, nil
}

func (s *loadStore) TransitionStatus(_ context.Context, loadID string, from, to domain.LoadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	load, ok := s.loads[loadID]
	if !ok {
		return domain.ErrNotFound
	}
	if load.Status != from {
		return domain.ErrInvalidState
	}
	load.Status = to
	load.UpdatedAt = time.Now().UTC()
	s.loads[loadID] = load
	return nil
}

func (s *loadStore) Book(_ context.Context, loadID, carrierID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	load, ok := s.loads[loadID]
	if !ok {
		return domain.ErrNotFound
	}
	if load.Status != domain.LoadStatusBidding || load.CarrierID != "" {
		return domain.ErrInvalidState
	}
	load.Status = domain.LoadStatusBooked
	load.CarrierID = carrierID
	load.UpdatedAt = time.Now().UTC()
	s.loads[loadID] = load
	return nil
}

type bidStore Stores

func (s *bidStore) Create(_ context.Context, bid domain.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bids[bid.BidID]; exists {
		return domain.ErrConflict
	}
	s.bids[bid.BidID] = bid
	return nil
}

func (s *bidStore) GetByID(_ context.Context, bidID string) (domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.bids[bidID]
	if !ok {
		return domain.Bid{}, domain.ErrNotFound
	}
	return bid, nil
}

func (s *bidStore) ListByLoad(_ context.Context, loadID string) ([]domain.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Bid
	for _, bid := range s.bids {
		if bid.LoadID == loadID {
			out = append(out, bid)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *bidStore) TransitionStatus(_ context.Context, bidID string, from, to domain.BidStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bid, ok := s.bids[bidID]
	if !ok {
		return domain.ErrNotFound
	}
	if bid.Status != from {
		return domain.ErrInvalidState
	}
	bid.Status = to
	bid.UpdatedAt = time.Now().UTC()
	s.bids[bidID] = bid
	return nil
}

func (s *bidStore) RejectOtherPending(_ context.Context, loadID, keepBidID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moved int64
	for id, bid := range s.bids {
		if bid.LoadID == loadID && id != keepBidID && bid.Status == domain.BidStatusPending {
			bid.Status = domain.BidStatusRejected
			bid.UpdatedAt = time.Now().UTC()
			s.bids[id] = bid
			moved++
		}
	}
	return moved, nil
}

func (s *bidStore) ExpireOverdue(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var moved int64
	for id, bid := range s.bids {
		if bid.Status == domain.BidStatusPending && bid.ExpiresAt.Before(now) {
			bid.Status = domain.BidStatusExpired
			bid.UpdatedAt = now
			s.bids[id] = bid
			moved++
		}
	}
	return moved, nil
}

type paymentStore Stores

func (s *paymentStore) Create(_ context.Context, payment domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[payment.PaymentID]; exists {
		return domain.ErrConflict
	}
	s.payments[payment.PaymentID] = payment
	return nil
}

func (s *paymentStore) GetByID(_ context.Context, paymentID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payment, ok := s.payments[paymentID]
	if !ok {
		return domain.Payment{}, domain.ErrNotFound
	}
	return payment, nil
}

func (s *paymentStore) GetActiveByLoad(_ context.Context, loadID string) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.Payment
	for _, payment := range s.payments {
		if payment.LoadID != loadID || payment.Status == domain.PaymentStatusFailed {
			continue
		}
		p := payment
		if found == nil || p.CreatedAt.After(found.CreatedAt) {
			found = &p
		}
	}
	if found == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *found, nil
}

func (s *paymentStore) Transition(_ context.Context, payment domain.Payment, from domain.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.payments[payment.PaymentID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.ErrInvalidState
	}
	s.payments[payment.PaymentID] = payment
	return nil
}

func (s *paymentStore) ListAutoReleasable(_ context.Context, heldBefore time.Time, limit int) ([]domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payment
	for _, payment := range s.payments {
		if payment.Status != domain.PaymentStatusHeldInEscrow || payment.EscrowHeldAt == nil {
			continue
		}
		if payment.EscrowHeldAt.Before(heldBefore) {
			out = append(out, payment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EscrowHeldAt.Before(*out[j].EscrowHeldAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type payoutStore Stores

func (s *payoutStore) Create(_ context.Context, payout domain.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payouts {
		if existing.PaymentID == payout.PaymentID {
			return domain.ErrConflict
		}
	}
	s.payouts[payout.PayoutID] = payout
	return nil
}

func (s *payoutStore) GetByPaymentID(_ context.Context, paymentID string) (domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, payout := range s.payouts {
		if payout.PaymentID == paymentID {
			return payout, nil
		}
	}
	return domain.Payout{}, domain.ErrNotFound
}

func (s *payoutStore) ListByCarrier(_ context.Context, carrierID string) ([]domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payout
	for _, payout := range s.payouts {
		if payout.CarrierID == carrierID {
			out = append(out, payout)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *payoutStore) Update(_ context.Context, payout domain.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payouts[payout.PayoutID]; !ok {
		return domain.ErrNotFound
	}
	s.payouts[payout.PayoutID] = payout
	return nil
}

type documentStore Stores

func (s *documentStore) Create(_ context.Context, doc domain.LoadDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.DocumentID] = doc
	return nil
}

func (s *documentStore) GetByID(_ context.Context, documentID string) (domain.LoadDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.LoadDocument{}, domain.ErrNotFound
	}
	return doc, nil
}

func (s *documentStore) ListByLoad(_ context.Context, loadID string) ([]domain.LoadDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LoadDocument
	for _, doc := range s.documents {
		if doc.LoadID == loadID {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *documentStore) Review(_ context.Context, documentID, reviewedBy string, to domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return domain.ErrNotFound
	}
	if doc.Status != domain.DocumentStatusPendingReview {
		return domain.ErrInvalidState
	}
	doc.Status = to
	doc.ReviewedBy = reviewedBy
	doc.UpdatedAt = time.Now().UTC()
	s.documents[documentID] = doc
	return nil
}

func (s *documentStore) HasApprovedDeliveryDoc(_ context.Context, loadID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.documents {
		if doc.LoadID == loadID && doc.Status == domain.DocumentStatusApproved &&
			(doc.DocType == domain.DocumentTypeBOL || doc.DocType == domain.DocumentTypePOD) {
			return true, nil
		}
	}
	return false, nil
}

type carrierAccountStore Stores

func (s *carrierAccountStore) Get(_ context.Context, carrierID string) (domain.CarrierAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.carrierAccounts[carrierID]
	if !ok {
		return domain.CarrierAccount{}, domain.ErrNotFound
	}
	return account, nil
}

func (s *carrierAccountStore) Upsert(_ context.Context, account domain.CarrierAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carrierAccounts[account.CarrierID] = account
	return nil
}

type idempotencyStore Stores

func (s *idempotencyStore) Get(_ context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return nil, nil
	}
	if now.After(rec.ExpiresAt) {
		delete(s.idempotency, key)
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *idempotencyStore) Reserve(_ context.Context, key, requestHash string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if ok && time.Now().UTC().Before(rec.ExpiresAt) {
		if rec.RequestHash != requestHash || rec.ResponseBody != nil {
			return domain.ErrConflict
		}
	}
	s.idempotency[key] = ports.IdempotencyRecord{
		Key:         key,
		RequestHash: requestHash,
		ExpiresAt:   expiresAt,
	}
	return nil
}

func (s *idempotencyStore) Complete(_ context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.idempotency[key]
	if !ok {
		return domain.ErrNotFound
	}
	rec.ResponseCode = responseCode
	rec.ResponseBody = responseBody
	s.idempotency[key] = rec
	return nil
}

type outboxStore Stores

func (s *outboxStore) Enqueue(_ context.Context, record ports.OutboxRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.outbox {
		if existing.RecordID == record.RecordID {
			return domain.ErrConflict
		}
	}
	s.outbox = append(s.outbox, record)
	return nil
}

func (s *outboxStore) ListPending(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.OutboxRecord
	for _, rec := range s.outbox {
		if rec.SentAt == nil {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *outboxStore) MarkSent(_ context.Context, recordID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.outbox {
		if rec.RecordID == recordID && rec.SentAt == nil {
			sentAt := at
			s.outbox[i].SentAt = &sentAt
			return nil
		}
	}
	return domain.ErrNotFound
}
