// This file defines how customer locations are turned into cache keys.

package geo

import (
	"math"
	"strconv"
	"strings"
)

// EarthRadiusMeters is the spherical-earth radius used by DistanceMeters.
const EarthRadiusMeters = 6371000.0

// DefaultSignificantMove is the minimum movement that invalidates cached fees.
const DefaultSignificantMove = 100.0

// fingerprintDecimals controls the grid size. 3 decimals ≈ 110 m cells.
const fingerprintDecimals = 3

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

/*
Fingerprint is a coarse string key derived from a Location.

Two locations inside the same ~110 m grid cell share a fingerprint, so the
cache treats them as the same customer position. Every cached fee remembers
the fingerprint it was computed for.
*/
type Fingerprint string

// NoFingerprint represents "no location known".
const NoFingerprint Fingerprint = "none"

// FingerprintOf rounds both coordinates to 3 decimals and joins them with "_".
// Trailing zeros are dropped: (36.7501, 3.0498) => "36.75_3.05".
func FingerprintOf(lat, lon float64) Fingerprint {
	return Fingerprint(formatCoord(lat) + "_" + formatCoord(lon))
}

// FingerprintFor is FingerprintOf for an optional location.
func FingerprintFor(loc *Location) Fingerprint {
	if loc == nil {
		return NoFingerprint
	}
	return FingerprintOf(loc.Lat, loc.Lon)
}

// Location parses the rounded coordinates back out of the fingerprint.
func (f Fingerprint) Location() (Location, bool) {
	if f == NoFingerprint || f == "" {
		return Location{}, false
	}
	latStr, lonStr, ok := strings.Cut(string(f), "_")
	if !ok {
		return Location{}, false
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return Location{}, false
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return Location{}, false
	}
	return Location{Lat: lat, Lon: lon}, true
}

func (f Fingerprint) String() string { return string(f) }

func formatCoord(v float64) string {
	p := math.Pow(10, fingerprintDecimals)
	r := math.Round(v*p) / p
	if r == 0 {
		// avoid "-0"
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

// DistanceMeters returns the great-circle distance between a and b using the
// haversine formula.
func DistanceMeters(a, b Location) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180.0 }
	dlat := rad(b.Lat - a.Lat)
	dlon := rad(b.Lon - a.Lon)
	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

/*
SignificantMove reports whether moving from one fingerprint to another should
invalidate cached fees.

  - identical fingerprints never count
  - gaining or losing a location always counts
  - otherwise the distance between the two cell centers must exceed threshold
*/
func SignificantMove(from, to Fingerprint, threshold float64) bool {
	if from == to {
		return false
	}
	a, okA := from.Location()
	b, okB := to.Location()
	if !okA || !okB {
		return true
	}
	return DistanceMeters(a, b) > threshold
}
