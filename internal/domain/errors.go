package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness constraint was hit.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation indicates malformed or empty caller input.
	ErrValidation = errors.New("invalid input")
	// ErrForbidden indicates the actor lacks ownership or role.
	ErrForbidden = errors.New("forbidden")
	// ErrInsufficientInventory indicates stock was exhausted for a requested quantity.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrPaymentNotSucceeded indicates the provider-side intent status is not succeeded.
	ErrPaymentNotSucceeded = errors.New("payment not succeeded")
	// ErrInvalidSignature indicates a webhook payload failed authenticity checks.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrDuplicateOrder indicates an order already exists for the payment intent.
	ErrDuplicateOrder = errors.New("order already exists for payment intent")
)
