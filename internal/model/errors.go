package model

import "errors"

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDay       = errors.New("pay day must be between 1 and 31")
	ErrInvalidName      = errors.New("invalid name")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrDeliveryFailure  = errors.New("delivery failure")
	ErrCreditNotFound   = errors.New("credit not found")
	ErrDuplicateCredit  = errors.New("credit with this name already exists")
)
