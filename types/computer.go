package types

import (
	"context"

	"github.com/krisalay/feecache/geo"
)

// FeeComputer is the contract between the cache and whatever prices a delivery.
type FeeComputer interface {

	/*
		ComputeFee is called on a cache miss.
		1. Cache checks memory → no valid fee for the restaurant
		2. Cache calls ComputeFee(restaurantID, location)
		3. Computer asks the pricing backend (network, may be slow, may fail)
		4. Cache stores the fee with the current location fingerprint
		5. Cache returns the fee

		It MUST be safe to call concurrently for different restaurants.
		Timeouts are the computer's business: the cache imposes none.
	*/
	ComputeFee(ctx context.Context, restaurantID string, loc geo.Location) (float64, error)
}

// FeeComputerFunc adapts a plain function to FeeComputer.
type FeeComputerFunc func(ctx context.Context, restaurantID string, loc geo.Location) (float64, error)

func (f FeeComputerFunc) ComputeFee(ctx context.Context, restaurantID string, loc geo.Location) (float64, error) {
	return f(ctx, restaurantID, loc)
}
