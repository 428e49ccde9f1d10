package domain

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidState        = errors.New("invalid state")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrConflict            = errors.New("conflict")
	ErrIdempotencyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict = errors.New("idempotency conflict")
	ErrRateLimited         = errors.New("rate limited")

	ErrHoldNotConfirmable   = errors.New("hold not in a confirmable state")
	ErrBidAcceptFailed      = errors.New("bid acceptance failed")
	ErrLoadUpdateFailed     = errors.New("load booking update failed")
	ErrAlreadyDisputed      = errors.New("payment already disputed")
	ErrDocumentRequired     = errors.New("approved delivery document required")
	ErrPayoutAccountMissing = errors.New("carrier payout account missing or disabled")
	ErrProcessor            = errors.New("payment processor error")
)
