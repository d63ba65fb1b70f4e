package model

import (
	"errors"
	"fmt"
)

// Sentinel failures fatal to a single row.
var (
	// ErrNoReferencePrice means no usable competitor offer exists and no
	// maximum-price fallback is configured.
	ErrNoReferencePrice = errors.New("no reference price: no competitive offer and no max price fallback")

	// ErrMinPriceRequired means a comparison was requested without a minimum price.
	ErrMinPriceRequired = errors.New("minimum price required for offer comparison")

	// ErrOfferNotFound means the listing page yielded no offers.
	ErrOfferNotFound = errors.New("no offers found on listing page")

	// ErrProductNotFound means the pricing API does not know the product.
	ErrProductNotFound = errors.New("product not found")

	// ErrVariantNotFound means the product has no usable base price or unit
	// count for variant delta resolution.
	ErrVariantNotFound = errors.New("variant base price not found")
)

// ValidationError reports missing or invalid per-row configuration.
// Fatal to that row only.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ConnectivityError wraps a network or timeout failure reaching a
// collaborator. Retryable with backoff.
type ConnectivityError struct {
	Op  string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// RateLimitError is the downstream queue-limit signal. Retryable, but
// distinguished from generic unavailability: it means we must self-throttle.
type RateLimitError struct {
	Detail string
}

func (e *RateLimitError) Error() string {
	if e.Detail == "" {
		return "rate limited: queue limit exceeded"
	}
	return "rate limited: " + e.Detail
}

// APIError is a structured non-retryable failure from the pricing API.
type APIError struct {
	Retval int
	Desc   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error retval=%d: %s", e.Retval, e.Desc)
}
