package feecache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
	"github.com/krisalay/feecache/types"
)

// BatchReport summarizes one Precalculate call.
type BatchReport struct {
	ID         string `json:"id"`
	Requested  int    `json:"requested"`
	Skipped    int    `json:"skipped"`
	Computed   int    `json:"computed"`
	Failed     int    `json:"failed"`
	ChunkSizes []int  `json:"chunk_sizes"`
}

// batchResult is one member's outcome inside a chunk.
type batchResult struct {
	fee    float64
	failed bool
	err    error
}

/*
Precalculate warms the cache for a list of restaurants, typically the ones
about to be rendered.

  - the fingerprint is updated exactly as in GetFee
  - without a location nothing happens
  - restaurants with a valid fee or an in-flight computation are skipped
  - the rest are computed in chunks of ChunkSize: members of a chunk run
    concurrently, chunks run one after another
  - a failing member gets its base fee and a failure marker; the batch goes on
  - each chunk is written with one timestamp and announced with one
    BatchCompleted event

GetFee callers asking for a chunk member while it computes join it.
The only error is ctx ending, checked between chunks.
*/
func (c *DeliveryFeeCache) Precalculate(ctx context.Context, restaurants []catalog.Restaurant, loc *geo.Location) (BatchReport, error) {
	report := BatchReport{ID: uuid.NewString(), Requested: len(restaurants)}
	if loc == nil {
		report.Skipped = len(restaurants)
		return report, nil
	}
	c.adoptFingerprint(geo.FingerprintFor(loc))

	now := c.now()
	todo := make([]catalog.Restaurant, 0, len(restaurants))
	seen := make(map[string]struct{}, len(restaurants))
	c.mu.Lock()
	for _, r := range restaurants {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		if _, busy := c.pending[r.ID]; busy || c.isValidLocked(r.ID, now) {
			continue
		}
		todo = append(todo, r)
	}
	c.mu.Unlock()
	report.Skipped = len(restaurants) - len(todo)

	c.logger.Info("fee: precalculating",
		"batch", report.ID, "requested", report.Requested, "to_compute", len(todo))

	for start := 0; start < len(todo); start += c.cfg.ChunkSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+c.cfg.ChunkSize, len(todo))
		computed, failed, size := c.runChunk(ctx, todo[start:end], *loc)
		report.Computed += computed
		report.Failed += failed
		report.ChunkSizes = append(report.ChunkSizes, size)
	}

	c.logger.Info("fee: precalculation done",
		"batch", report.ID, "computed", report.Computed, "failed", report.Failed,
		"chunks", len(report.ChunkSizes))
	return report, nil
}

// runChunk claims, computes and commits one chunk. It returns how many
// members succeeded, failed, and the number actually computed.
func (c *DeliveryFeeCache) runChunk(ctx context.Context, chunk []catalog.Restaurant, loc geo.Location) (computed, failed, size int) {
	// claim every member first; one may have been started by GetFee meanwhile
	now := c.now()
	members := make([]catalog.Restaurant, 0, len(chunk))
	handles := make([]*pendingFee, 0, len(chunk))
	c.mu.Lock()
	fp := c.fingerprint
	for _, r := range chunk {
		if _, busy := c.pending[r.ID]; busy || c.isValidLocked(r.ID, now) {
			continue
		}
		p := newPendingFee()
		c.pending[r.ID] = p
		members = append(members, r)
		handles = append(handles, p)
	}
	c.mu.Unlock()

	defer func() {
		for i, r := range members {
			c.release(r.ID, handles[i])
		}
	}()

	results := make([]batchResult, len(members))
	computeCtx := context.WithoutCancel(ctx)
	var g errgroup.Group
	for i, r := range members {
		g.Go(func() error {
			fee, bad, err := c.engine.Compute(computeCtx, r.ID, loc, r.BaseDeliveryFee)
			results[i] = batchResult{fee: fee, failed: bad, err: err}
			return nil
		})
	}
	_ = g.Wait()

	c.commitChunk(members, handles, results, fp, c.now())
	for i, r := range members {
		if results[i].failed {
			failed++
			c.logger.Warn("fee: batch member failed, using base fee",
				"restaurant", r.ID, "base_fee", r.BaseDeliveryFee, "err", results[i].err)
		} else {
			computed++
		}
	}
	return computed, failed, len(members)
}

// commitChunk writes every result of a chunk with the same timestamp and
// fingerprint, then resolves the handles and notifies once.
func (c *DeliveryFeeCache) commitChunk(
	members []catalog.Restaurant,
	handles []*pendingFee,
	results []batchResult,
	fp geo.Fingerprint,
	at time.Time,
) {
	c.mu.Lock()
	for i, r := range members {
		res := results[i]
		if res.failed {
			c.failed[r.ID] = struct{}{}
		} else {
			delete(c.failed, r.ID)
		}
		c.putLocked(types.CachedFee{
			RestaurantID: r.ID,
			Fee:          res.fee,
			ComputedAt:   at,
			Fingerprint:  fp,
			Fallback:     res.failed,
		})
		handles[i].fee = res.fee
	}
	c.autoShrinkLocked()
	c.mu.Unlock()

	for i, r := range members {
		c.release(r.ID, handles[i])
	}
	if len(members) > 0 {
		c.notifyBatch()
	}
}

// notifyBatch is the single notification emitted per chunk.
func (c *DeliveryFeeCache) notifyBatch() {
	c.notifier.Notify(notify.Event{Kind: notify.BatchCompleted})
}
