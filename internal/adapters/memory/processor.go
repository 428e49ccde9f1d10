package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// Processor simulates the payment processor's manual-capture lifecycle. It
// backs tests and keyless local runs; no money ever moves.
type Processor struct {
	mu             sync.Mutex
	seq            int
	holds          map[string]ports.Hold
	captured       map[string]int64
	transfers      []string
	transfersByKey map[string]string
	refunds        []string

	// FailNext, when set, makes the next processor call return the error once.
	FailNext error
}

func NewProcessor() *Processor {
	return &Processor{
		holds:          make(map[string]ports.Hold),
		captured:       make(map[string]int64),
		transfersByKey: make(map[string]string),
	}
}

func (p *Processor) fail() error {
	if p.FailNext != nil {
		err := p.FailNext
		p.FailNext = nil
		return err
	}
	return nil
}

func (p *Processor) CreateHold(_ context.Context, amountCents int64, currency, _, _ string) (ports.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return ports.Hold{}, err
	}
	p.seq++
	hold := ports.Hold{
		Reference:    fmt.Sprintf("hold_%04d", p.seq),
		ClientSecret: fmt.Sprintf("hold_%04d_secret", p.seq),
		State:        ports.HoldStateRequiresConfirmation,
		AmountCents:  amountCents,
		Currency:     currency,
	}
	p.holds[hold.Reference] = hold
	return hold, nil
}

func (p *Processor) GetHold(_ context.Context, reference string) (ports.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return ports.Hold{}, err
	}
	hold, ok := p.holds[reference]
	if !ok {
		return ports.Hold{}, fmt.Errorf("%w: unknown hold %s", domain.ErrProcessor, reference)
	}
	return hold, nil
}

func (p *Processor) ConfirmHold(_ context.Context, reference string) (ports.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return ports.Hold{}, err
	}
	hold, ok := p.holds[reference]
	if !ok {
		return ports.Hold{}, fmt.Errorf("%w: unknown hold %s", domain.ErrProcessor, reference)
	}
	switch hold.State {
	case ports.HoldStateRequiresConfirmation, ports.HoldStateRequiresPaymentMethod:
		hold.State = ports.HoldStateRequiresCapture
		p.holds[reference] = hold
	case ports.HoldStateRequiresCapture:
		// Already authorized; confirming again is a no-op.
	default:
		return ports.Hold{}, fmt.Errorf("%w: hold %s not confirmable", domain.ErrProcessor, reference)
	}
	return hold, nil
}

func (p *Processor) CaptureHold(_ context.Context, reference string, amountCents int64) (ports.Hold, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return ports.Hold{}, err
	}
	hold, ok := p.holds[reference]
	if !ok {
		return ports.Hold{}, fmt.Errorf("%w: unknown hold %s", domain.ErrProcessor, reference)
	}
	if hold.State != ports.HoldStateRequiresCapture {
		return ports.Hold{}, fmt.Errorf("%w: hold %s not capturable", domain.ErrProcessor, reference)
	}
	if amountCents <= 0 || amountCents > hold.AmountCents {
		amountCents = hold.AmountCents
	}
	hold.State = ports.HoldStateSucceeded
	hold.AmountCents = amountCents
	p.holds[reference] = hold
	p.captured[reference] += amountCents
	return hold, nil
}

func (p *Processor) Transfer(_ context.Context, _ string, _ int64, _, _, idempotencyKey string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return "", err
	}
	if idempotencyKey != "" {
		if ref, ok := p.transfersByKey[idempotencyKey]; ok {
			return ref, nil
		}
	}
	p.seq++
	ref := fmt.Sprintf("tr_%04d", p.seq)
	p.transfers = append(p.transfers, ref)
	if idempotencyKey != "" {
		p.transfersByKey[idempotencyKey] = ref
	}
	return ref, nil
}

func (p *Processor) Refund(_ context.Context, reference string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fail(); err != nil {
		return "", err
	}
	hold, ok := p.holds[reference]
	if !ok {
		return "", fmt.Errorf("%w: unknown hold %s", domain.ErrProcessor, reference)
	}
	switch hold.State {
	case ports.HoldStateSucceeded:
		p.seq++
		ref := fmt.Sprintf("re_%04d", p.seq)
		p.refunds = append(p.refunds, ref)
		return ref, nil
	case ports.HoldStateRequiresPaymentMethod, ports.HoldStateRequiresConfirmation, ports.HoldStateRequiresCapture:
		// Uncaptured holds are canceled, not refunded.
		hold.State = ports.HoldStateCanceled
		p.holds[reference] = hold
		p.refunds = append(p.refunds, reference)
		return reference, nil
	default:
		return "", fmt.Errorf("%w: hold %s not refundable", domain.ErrProcessor, reference)
	}
}

// SetHoldState forces a hold into a state; tests use it to simulate the payer
// completing or abandoning payment-method collection out of band.
func (p *Processor) SetHoldState(reference string, state ports.HoldState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if hold, ok := p.holds[reference]; ok {
		hold.State = state
		p.holds[reference] = hold
	}
}

// CapturedTotal reports the cumulative captured amount for a hold.
func (p *Processor) CapturedTotal(reference string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.captured[reference]
}

// TransferCount reports how many transfers were issued.
func (p *Processor) TransferCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.transfers)
}
