package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnavailable   = errors.New("not yet available")
	ErrTxInFlight    = errors.New("transaction already in flight")
	ErrNoSigner      = errors.New("no signer configured")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoMarket      = errors.New("no market selected")
	ErrContextDone   = errors.New("context cancelled")
)
