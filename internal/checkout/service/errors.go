package service

import "errors"

var (
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")
	ErrIdempotencyKeyInUse   = errors.New("idempotency key belongs to another session")
	ErrMissingSession        = errors.New("session id is required")
	ErrCheckoutNotFound      = errors.New("checkout not found")
	ErrCheckoutClosed        = errors.New("checkout is no longer open")
	ErrGatewayOrderMismatch  = errors.New("payment does not belong to this checkout")
	ErrInvalidSignature      = errors.New("invalid payment signature")
	ErrPaymentIntent         = errors.New("failed to create payment intent")
	IllegalTransitionError   = errors.New("illegal transition of checkout status")
)
