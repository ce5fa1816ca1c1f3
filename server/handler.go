// Package server exposes the delivery-fee cache over HTTP.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	feecache "github.com/krisalay/feecache"
	"github.com/krisalay/feecache/api"
	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/location"
)

// pendingRetryAfter is what clients are told to wait when the location is still resolving.
const pendingRetryAfter = 500 * time.Millisecond

// Precalculator warms the cache for a list of restaurants.
type Precalculator interface {
	Precalculate(ctx context.Context, restaurants []catalog.Restaurant, loc *geo.Location) (feecache.BatchReport, error)
}

// Locator is the customer location as seen by the handlers.
type Locator interface {
	CurrentLocation() (geo.Location, bool)
	Refresh(ctx context.Context) (geo.Location, error)
	SetLocation(loc geo.Location)
}

// Handler holds the domain dependencies for all HTTP handlers.
type Handler struct {
	fees     api.FeeCache
	batch    Precalculator
	catalog  catalog.Catalog
	location Locator
}

// NewHandler creates a Handler with the given dependencies.
func NewHandler(
	fees api.FeeCache,
	batch Precalculator,
	cat catalog.Catalog,
	loc Locator,
) *Handler {
	return &Handler{
		fees:     fees,
		batch:    batch,
		catalog:  cat,
		location: loc,
	}
}

// coordinates is the JSON body of location-bearing requests.
type coordinates struct {
	Lat *float64 `json:"lat" binding:"required"`
	Lon *float64 `json:"lon" binding:"required"`
}

func (c coordinates) location() (geo.Location, bool) {
	loc := geo.Location{Lat: *c.Lat, Lon: *c.Lon}
	return loc, validLocation(loc)
}

// ---------------------------------------------------------------------------
// Fees
// ---------------------------------------------------------------------------

// GetFee handles GET /api/v1/fees/:id
//
// Query params (optional, both or neither):
//   - lat float64
//   - lon float64
//
// Without coordinates the last known customer location is used.
//
// Response 200: {"restaurant_id":"r1","fee":4.5,"base_fee":2.99,"failed":false,"fingerprint":"36.75_3.05"}
// Response 202: location still resolving, retry after retry_after_ms.
// Response 400: invalid coordinates.
// Response 404: unknown restaurant.
func (h *Handler) GetFee(c *gin.Context) {
	id := c.Param("id")

	loc, ok := h.queryLocation(c)
	if !ok {
		return
	}

	r, err := h.catalog.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "restaurant not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query restaurant"})
		return
	}

	fee, err := h.fees.GetFee(c.Request.Context(), r.ID, r.BaseDeliveryFee, loc)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"restaurant_id": r.ID,
		"fee":           fee,
		"base_fee":      r.BaseDeliveryFee,
		"failed":        h.fees.HasFailed(r.ID),
		"fingerprint":   h.fees.Stats().Fingerprint,
	})
}

// Precalculate handles POST /api/v1/fees/precalculate
//
// Body (optional): {"lat":36.75,"lon":3.05}. Without a body the customer
// location is resolved first.
//
// Response 200: the batch report.
// Response 503: the location could not be resolved.
func (h *Handler) Precalculate(c *gin.Context) {
	ctx := c.Request.Context()

	var body coordinates
	var loc geo.Location
	err := c.ShouldBindJSON(&body)
	switch {
	case errors.Is(err, io.EOF):
		loc, err = h.location.Refresh(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"lat\":..,\"lon\":..}"})
		return
	default:
		var valid bool
		if loc, valid = body.location(); !valid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
			return
		}
	}

	restaurants, err := h.catalog.List(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list restaurants"})
		return
	}

	report, err := h.batch.Precalculate(ctx, restaurants, &loc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// InvalidateFee handles DELETE /api/v1/fees/:id
func (h *Handler) InvalidateFee(c *gin.Context) {
	h.fees.Invalidate(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// ClearFees handles DELETE /api/v1/fees
func (h *Handler) ClearFees(c *gin.Context) {
	h.fees.ClearAll()
	c.Status(http.StatusNoContent)
}

// Stats handles GET /api/v1/fees/stats
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.fees.Stats())
}

// ---------------------------------------------------------------------------
// Lifecycle and location
// ---------------------------------------------------------------------------

// Lifecycle handles POST /api/v1/lifecycle/:state with state foreground or background.
func (h *Handler) Lifecycle(c *gin.Context) {
	switch c.Param("state") {
	case "foreground":
		h.fees.OnForeground()
	case "background":
		h.fees.OnBackground()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be foreground or background"})
		return
	}
	c.Status(http.StatusNoContent)
}

// SetLocation handles POST /api/v1/location
//
// Body: {"lat":36.75,"lon":3.05}
//
// Response 200: {"lat":..,"lon":..,"fingerprint":".."}
func (h *Handler) SetLocation(c *gin.Context) {
	var body coordinates
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be {\"lat\":..,\"lon\":..}"})
		return
	}
	loc, ok := body.location()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	h.location.SetLocation(loc)
	c.JSON(http.StatusOK, gin.H{
		"lat":         loc.Lat,
		"lon":         loc.Lon,
		"fingerprint": geo.FingerprintOf(loc.Lat, loc.Lon),
	})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// queryLocation reads lat/lon from the query string, falling back to the
// last known location. It writes a 400 and returns false on bad input.
func (h *Handler) queryLocation(c *gin.Context) (*geo.Location, bool) {
	latRaw, lonRaw := c.Query("lat"), c.Query("lon")
	if latRaw == "" && lonRaw == "" {
		if loc, ok := h.location.CurrentLocation(); ok {
			return &loc, true
		}
		return nil, true
	}

	lat, err1 := strconv.ParseFloat(latRaw, 64)
	lon, err2 := strconv.ParseFloat(lonRaw, 64)
	loc := geo.Location{Lat: lat, Lon: lon}
	if err1 != nil || err2 != nil || !validLocation(loc) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lon must be valid coordinates"})
		return nil, false
	}
	return &loc, true
}

func validLocation(loc geo.Location) bool {
	return loc.Lat >= -90 && loc.Lat <= 90 && loc.Lon >= -180 && loc.Lon <= 180
}

// writeError maps cache and location errors to responses.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, location.ErrLocationPending):
		c.JSON(http.StatusAccepted, gin.H{
			"error":          "location pending",
			"retry_after_ms": pendingRetryAfter.Milliseconds(),
		})
	case errors.Is(err, location.ErrLocationUnavailable):
		reason, _ := location.ReasonOf(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":  "location unavailable",
			"reason": reason.String(),
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request timed out"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
