package stripeproc

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/loadhaul/platform/services/payments-service/internal/domain"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

// Processor moves money through Stripe PaymentIntents in manual-capture mode.
// Holds map to uncaptured intents, releases to captures, and carrier payouts
// to transfers against connected accounts.
type Processor struct {
	api *client.API
}

func New(secretKey string) *Processor {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &Processor{api: api}
}

func (p *Processor) CreateHold(ctx context.Context, amountCents int64, currency, loadID, shipperID string) (ports.Hold, error) {
	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("load_id", loadID)
	params.AddMetadata("shipper_id", shipperID)

	intent, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return ports.Hold{}, processorError("create hold", err)
	}
	return toHold(intent), nil
}

func (p *Processor) GetHold(ctx context.Context, reference string) (ports.Hold, error) {
	intent, err := p.api.PaymentIntents.Get(reference, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return ports.Hold{}, processorError("get hold", err)
	}
	return toHold(intent), nil
}

func (p *Processor) ConfirmHold(ctx context.Context, reference string) (ports.Hold, error) {
	intent, err := p.api.PaymentIntents.Confirm(reference, &stripe.PaymentIntentConfirmParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return ports.Hold{}, processorError("confirm hold", err)
	}
	return toHold(intent), nil
}

func (p *Processor) CaptureHold(ctx context.Context, reference string, amountCents int64) (ports.Hold, error) {
	params := &stripe.PaymentIntentCaptureParams{
		Params: stripe.Params{Context: ctx},
	}
	if amountCents > 0 {
		params.AmountToCapture = stripe.Int64(amountCents)
	}
	intent, err := p.api.PaymentIntents.Capture(reference, params)
	if err != nil {
		return ports.Hold{}, processorError("capture hold", err)
	}
	return toHold(intent), nil
}

func (p *Processor) Transfer(ctx context.Context, destinationAccount string, amountCents int64, currency, transferGroup, idempotencyKey string) (string, error) {
	params := &stripe.TransferParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		Destination:   stripe.String(destinationAccount),
		TransferGroup: stripe.String(transferGroup),
	}
	// Stripe replays the original transfer for a repeated key, so a retry
	// that lost track of the transfer ref cannot double-pay the carrier.
	if idempotencyKey != "" {
		params.IdempotencyKey = stripe.String(idempotencyKey)
	}
	transfer, err := p.api.Transfers.New(params)
	if err != nil {
		return "", processorError("transfer", err)
	}
	return transfer.ID, nil
}

func (p *Processor) Refund(ctx context.Context, reference string) (string, error) {
	intent, err := p.api.PaymentIntents.Get(reference, &stripe.PaymentIntentParams{
		Params: stripe.Params{Context: ctx},
	})
	if err != nil {
		return "", processorError("refund", err)
	}
	// Stripe refuses refunds of uncaptured intents; canceling releases the
	// authorization back to the payer instead.
	switch intent.Status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresCapture:
		canceled, err := p.api.PaymentIntents.Cancel(reference, &stripe.PaymentIntentCancelParams{
			Params: stripe.Params{Context: ctx},
		})
		if err != nil {
			return "", processorError("refund", err)
		}
		return canceled.ID, nil
	}
	refund, err := p.api.Refunds.New(&stripe.RefundParams{
		Params:        stripe.Params{Context: ctx},
		PaymentIntent: stripe.String(reference),
	})
	if err != nil {
		return "", processorError("refund", err)
	}
	return refund.ID, nil
}

func toHold(intent *stripe.PaymentIntent) ports.Hold {
	return ports.Hold{
		Reference:    intent.ID,
		ClientSecret: intent.ClientSecret,
		State:        ports.HoldState(intent.Status),
		AmountCents:  intent.Amount,
		Currency:     string(intent.Currency),
	}
}

// processorError keeps Stripe's request identifiers in the wrapped error for
// support lookups without letting the raw message reach API clients.
func processorError(operation string, err error) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return fmt.Errorf("%w: %s: %s (request %s)", domain.ErrProcessor, operation, stripeErr.Code, stripeErr.RequestID)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrProcessor, operation, err)
}
