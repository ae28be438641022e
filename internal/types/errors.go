package types

import "errors"

// Error taxonomy for itinerary generation. Wrap with fmt.Errorf("...: %w", Err...)
// and match with errors.Is.
var (
	// ErrUpstreamUnavailable covers transport failures and non-2xx replies from any provider.
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
	// ErrNoSignal means none of the user's likes resolved to a usable taste entity.
	ErrNoSignal = errors.New("no usable interest entities found")
	// ErrNoInventory means no hotel could be offered for the trip.
	ErrNoInventory = errors.New("no available hotels found")
	// ErrMalformedModelOutput means the model reply had no parseable itinerary.
	ErrMalformedModelOutput = errors.New("malformed model output")
	// ErrClientInputInvalid rejects an inbound request before any external call.
	ErrClientInputInvalid = errors.New("invalid itinerary request")
)
