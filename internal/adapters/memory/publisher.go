package memory

import (
	"context"
	"sync"
	"time"

	"github.com/loadhaul/platform/services/payments-service/internal/contracts"
)

// Publisher records published envelopes. It serves both the domain and
// analytics publisher ports for tests and local runs without a broker.
type Publisher struct {
	mu        sync.Mutex
	domain    []contracts.EventEnvelope
	analytics []contracts.EventEnvelope

	// FailDomain makes domain publishes fail; the outbox should retry them.
	FailDomain error
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

func (p *Publisher) PublishDomain(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDomain != nil {
		return p.FailDomain
	}
	p.domain = append(p.domain, envelope)
	return nil
}

func (p *Publisher) PublishAnalytics(_ context.Context, envelope contracts.EventEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.analytics = append(p.analytics, envelope)
	return nil
}

func (p *Publisher) DomainEvents() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.domain))
	copy(out, p.domain)
	return out
}

func (p *Publisher) AnalyticsEvents() []contracts.EventEnvelope {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]contracts.EventEnvelope, len(p.analytics))
	copy(out, p.analytics)
	return out
}

// RateLimiter is a single-process fixed-window counter with the same
// semantics as the Redis-backed store.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{windows: make(map[string]rateWindow)}
}

func (r *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	w, ok := r.windows[key]
	if !ok || now.After(w.resetAt) {
		w = rateWindow{resetAt: now.Add(window)}
	}
	w.count++
	r.windows[key] = w
	return w.count <= limit, nil
}
