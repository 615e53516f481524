package domain

import "errors"

var (
	// ErrOutOfStock blocks adding or transacting against an unavailable
	// variant. Recoverable by removing or changing the line.
	ErrOutOfStock = errors.New("variant is out of stock")

	// ErrInvalidAddress is the base of address field validation failures.
	ErrInvalidAddress = errors.New("invalid shipping address")

	// ErrVariantNotFound is returned by catalog lookups for unknown
	// (slug, size) identities.
	ErrVariantNotFound = errors.New("variant not found in catalog")

	// ErrUnpurchasable marks a cart that contains lines whose catalog
	// entry vanished. Checkout is blocked until those lines are removed.
	ErrUnpurchasable = errors.New("cart contains unpurchasable lines")

	// ErrPaymentNotAuthorized covers user-cancelled or provider-declined
	// payments. Nothing has been persisted; fully recoverable.
	ErrPaymentNotAuthorized = errors.New("payment was not authorized")

	// ErrCaptureVerification means the post-authorization server-side
	// checks failed (amount or stock mismatch). No order is created and
	// the payment is flagged for manual reconciliation.
	ErrCaptureVerification = errors.New("capture verification failed")
)
