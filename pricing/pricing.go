// Package pricing is a concrete fee computer: it prices a delivery from the
// straight-line distance between restaurant and customer.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/geo"
)

// ErrOutOfRange is returned when no range prices the distance or a cutoff range blocks it.
var ErrOutOfRange = errors.New("pricing: delivery not available for this distance")

// surgePrecision is the geohash length of a surge zone cell (≈ 4.9 km × 4.9 km).
const surgePrecision = 5

// DistanceRange describes a pricing range based on distance. Amounts are minor units.
type DistanceRange struct {
	Min int // meters, inclusive
	Max int // meters, exclusive; 0 means delivery not available for >= Min
	A   int // flat addition
	B   int // per-10-meters addition
}

// DistanceComputer implements types.FeeComputer.
type DistanceComputer struct {
	catalog   catalog.Catalog
	basePrice int
	ranges    []DistanceRange

	// surge maps geohash cells (any length up to surgePrecision) to a fee multiplier.
	surge map[string]float64
}

// Option configures a DistanceComputer.
type Option func(*DistanceComputer)

// WithSurgeZone multiplies fees for customers inside the geohash cell.
func WithSurgeZone(cell string, multiplier float64) Option {
	return func(d *DistanceComputer) { d.surge[cell] = multiplier }
}

func NewDistanceComputer(c catalog.Catalog, basePrice int, ranges []DistanceRange, opts ...Option) *DistanceComputer {
	d := &DistanceComputer{
		catalog:   c,
		basePrice: basePrice,
		ranges:    ranges,
		surge:     make(map[string]float64),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ComputeFee returns base + A + round(B * distance / 10), in major units,
// times the surge multiplier of the customer's zone.
func (d *DistanceComputer) ComputeFee(ctx context.Context, restaurantID string, loc geo.Location) (float64, error) {
	r, err := d.catalog.Get(ctx, restaurantID)
	if err != nil {
		return 0, fmt.Errorf("pricing: restaurant %s: %w", restaurantID, err)
	}

	dist := int(math.Round(geo.DistanceMeters(loc, r.Location)))
	rng, err := selectRange(d.ranges, dist)
	if err != nil {
		return 0, err
	}

	minor := float64(d.basePrice+rng.A) + math.Round(float64(rng.B)*float64(dist)/10.0)
	minor = math.Round(minor * d.surgeFor(loc))
	return minor / 100, nil
}

// surgeFor returns the multiplier of the most specific matching zone, or 1.
func (d *DistanceComputer) surgeFor(loc geo.Location) float64 {
	if len(d.surge) == 0 {
		return 1
	}
	cell := geohash.EncodeWithPrecision(loc.Lat, loc.Lon, surgePrecision)
	for n := len(cell); n > 0; n-- {
		if m, ok := d.surge[cell[:n]]; ok {
			return m
		}
	}
	return 1
}

// selectRange returns the range pricing distance. A cutoff range (Max == 0) blocks delivery.
func selectRange(ranges []DistanceRange, distance int) (DistanceRange, error) {
	for _, r := range ranges {
		if r.Max == 0 && distance >= r.Min {
			return DistanceRange{}, ErrOutOfRange
		}
		if distance >= r.Min && distance < r.Max {
			return r, nil
		}
	}
	return DistanceRange{}, ErrOutOfRange
}
