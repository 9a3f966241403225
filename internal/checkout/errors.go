package checkout

import "errors"

var (
	ErrEmptyOrder         = errors.New("order draft has no items")
	ErrIllegalTransition  = errors.New("illegal payment state transition")
	ErrPriceMismatch      = errors.New("client totals do not match server pricing")
	ErrOrderAlreadyPaid   = errors.New("order is already paid")
	ErrNotOrderOwner      = errors.New("order belongs to another user")
	ErrMissingAddress     = errors.New("order draft has no shipping address")
	ErrUnknownProviderRef = errors.New("no session matches the provider reference")
)
