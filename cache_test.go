package feecache_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	feecache "github.com/krisalay/feecache"
	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
)

//
// ================= TEST COLLABORATORS =================
//

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeComputer counts calls and can block, fail, or be slow.
type fakeComputer struct {
	mu    sync.Mutex
	calls map[string]int
	fees  map[string]float64
	fail  map[string]bool

	gate  chan struct{} // when non-nil every call waits for it to close
	delay time.Duration

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeComputer() *fakeComputer {
	return &fakeComputer{
		calls: make(map[string]int),
		fees:  make(map[string]float64),
		fail:  make(map[string]bool),
	}
}

func (f *fakeComputer) ComputeFee(ctx context.Context, id string, loc geo.Location) (float64, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls[id]++
	gate := f.gate
	fee, ok := f.fees[id]
	fail := f.fail[id]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if fail {
		return 0, errors.New("pricing backend down")
	}
	if !ok {
		fee = 4.50
	}
	return fee, nil
}

func (f *fakeComputer) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeComputer) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeComputer) SetFail(id string, fail bool) {
	f.mu.Lock()
	f.fail[id] = fail
	f.mu.Unlock()
}

// fakeSource is a LocationSource driven by the test.
type fakeSource struct {
	mu       sync.Mutex
	loc      *geo.Location
	loading  bool
	listener func(geo.Location)
}

func (s *fakeSource) CurrentLocation() (geo.Location, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc == nil {
		return geo.Location{}, false
	}
	return *s.loc, true
}

func (s *fakeSource) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

func (s *fakeSource) HasPermission() bool { return true }

func (s *fakeSource) Subscribe(fn func(geo.Location)) func() {
	s.mu.Lock()
	s.listener = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	}
}

func (s *fakeSource) Emit(loc geo.Location) {
	s.mu.Lock()
	s.loc = &loc
	l := s.listener
	s.mu.Unlock()
	if l != nil {
		l(loc)
	}
}

// eventLog records notifications by kind.
type eventLog struct {
	mu     sync.Mutex
	counts map[notify.Kind]int
}

func watchEvents(c *feecache.DeliveryFeeCache) *eventLog {
	l := &eventLog{counts: make(map[notify.Kind]int)}
	c.Subscribe(func(ev notify.Event) {
		l.mu.Lock()
		l.counts[ev.Kind]++
		l.mu.Unlock()
	})
	return l
}

func (l *eventLog) Count(k notify.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[k]
}

var (
	algiers     = geo.Location{Lat: 36.75, Lon: 3.05}
	north111m   = geo.Location{Lat: 36.751, Lon: 3.05} // ~111 m away
	east89m     = geo.Location{Lat: 36.75, Lon: 3.051} // ~89 m away
	farAwayCity = geo.Location{Lat: 48.8566, Lon: 2.3522}
)

func ptr(l geo.Location) *geo.Location { return &l }

//
// ================= GET FEE =================
//

func TestGetFeeComputesAndCaches(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	c := feecache.New(comp)

	fee, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 4.50, fee)

	ent, ok := c.Entry("r1")
	require.True(t, ok)
	assert.Equal(t, geo.Fingerprint("36.75_3.05"), ent.Fingerprint)
	assert.Equal(t, geo.Fingerprint("36.75_3.05"), c.Fingerprint())

	fee, err = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 4.50, fee)
	assert.Equal(t, 1, comp.Calls("r1"))

	s := c.Stats()
	assert.EqualValues(t, 1, s.Hits)
	assert.EqualValues(t, 1, s.Misses)
	assert.Equal(t, 1, s.Entries)
}

func TestConcurrentGetFeeSharesOneComputation(t *testing.T) {
	comp := newFakeComputer()
	comp.gate = make(chan struct{})
	c := feecache.New(comp)

	const callers = 10
	var wg sync.WaitGroup
	fees := make([]float64, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fee, err := c.GetFee(context.Background(), "r1", 2.99, ptr(algiers))
			assert.NoError(t, err)
			fees[i] = fee
		}(i)
	}

	assert.Eventually(t, func() bool {
		return c.Stats().Joins == callers-1
	}, time.Second, time.Millisecond)
	assert.True(t, c.IsComputing("r1"))

	close(comp.gate)
	wg.Wait()

	assert.Equal(t, 1, comp.Calls("r1"))
	for _, fee := range fees {
		assert.Equal(t, 4.50, fee)
	}
	assert.False(t, c.IsComputing("r1"))
	assert.Zero(t, c.Stats().Pending)
}

func TestCacheHitWithinTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now))

	_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)

	clock.Advance(29 * time.Minute)
	_, err = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 1, comp.Calls("r1"))

	clock.Advance(2 * time.Minute)
	_, err = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 2, comp.Calls("r1"))
}

func TestSignificantMoveInvalidates(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	c := feecache.New(comp)
	events := watchEvents(c)

	_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)

	// ~89 m: entry stays, and is still served for the new position
	_, err = c.GetFee(ctx, "r2", 2.99, ptr(east89m))
	require.NoError(t, err)
	_, ok := c.Entry("r1")
	assert.True(t, ok)
	_, err = c.GetFee(ctx, "r1", 2.99, ptr(east89m))
	require.NoError(t, err)
	assert.Equal(t, 1, comp.Calls("r1"))
	assert.Equal(t, geo.FingerprintOf(algiers.Lat, algiers.Lon), c.Fingerprint())

	// ~111 m: every entry computed at the old cell goes
	_, err = c.GetFee(ctx, "r3", 2.99, ptr(north111m))
	require.NoError(t, err)
	_, ok = c.Entry("r1")
	assert.False(t, ok)
	_, ok = c.Entry("r2")
	assert.False(t, ok)
	_, ok = c.Entry("r3")
	assert.True(t, ok)
	assert.Equal(t, 1, events.Count(notify.Invalidated))
	assert.EqualValues(t, 2, c.Stats().Invalidations)
}

func TestMovingAwayAndBackRecomputes(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	c := feecache.New(comp)

	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	_, _ = c.GetFee(ctx, "r2", 2.99, ptr(farAwayCity))
	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	assert.Equal(t, 2, comp.Calls("r1"))

	_, ok := c.Entry("r2")
	assert.False(t, ok)
}

func TestFailureFallsBackToBaseFee(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	comp.SetFail("r1", true)
	c := feecache.New(comp)
	events := watchEvents(c)

	fee, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 2.99, fee)
	assert.True(t, c.HasFailed("r1"))
	assert.Equal(t, 1, events.Count(notify.FeeFailed))

	_, ok := c.Entry("r1")
	assert.False(t, ok, "a fallback from a single lookup is not cached")

	comp.SetFail("r1", false)
	fee, err = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 4.50, fee)
	assert.False(t, c.HasFailed("r1"))
	assert.Equal(t, 2, comp.Calls("r1"))
	assert.EqualValues(t, 1, c.Stats().Failures)
}

func TestJoinedCallersAllGetFallback(t *testing.T) {
	comp := newFakeComputer()
	comp.gate = make(chan struct{})
	comp.SetFail("r1", true)
	c := feecache.New(comp)

	var wg sync.WaitGroup
	fees := make([]float64, 3)
	for i := range fees {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fees[i], _ = c.GetFee(context.Background(), "r1", 2.99, ptr(algiers))
		}(i)
	}
	assert.Eventually(t, func() bool { return c.Stats().Joins == 2 }, time.Second, time.Millisecond)
	close(comp.gate)
	wg.Wait()

	assert.Equal(t, []float64{2.99, 2.99, 2.99}, fees)
	assert.Equal(t, 1, comp.Calls("r1"))
}

func TestNoLocationReturnsBaseFeeWithoutNetwork(t *testing.T) {
	comp := newFakeComputer()
	src := &fakeSource{}
	c := feecache.New(comp, feecache.WithLocationSource(src))

	fee, err := c.GetFee(context.Background(), "r1", 2.99, nil)
	require.NoError(t, err)
	assert.Equal(t, 2.99, fee)
	assert.Zero(t, comp.TotalCalls())
}

func TestNoLocationWhileLoadingIsPending(t *testing.T) {
	comp := newFakeComputer()
	src := &fakeSource{loading: true}
	c := feecache.New(comp, feecache.WithLocationSource(src))

	_, err := c.GetFee(context.Background(), "r1", 2.99, nil)
	assert.ErrorIs(t, err, feecache.ErrLocationPending)
	assert.Zero(t, comp.TotalCalls())
}

func TestNoLocationStillServesCachedFee(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithLocationSource(&fakeSource{loading: true}))

	_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)

	fee, err := c.GetFee(ctx, "r1", 2.99, nil)
	require.NoError(t, err)
	assert.Equal(t, 4.50, fee)
}

func TestCallerMayStopWaitingButComputationCompletes(t *testing.T) {
	comp := newFakeComputer()
	comp.gate = make(chan struct{})
	c := feecache.New(comp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
		done <- err
	}()
	assert.Eventually(t, func() bool { return c.IsComputing("r1") }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.True(t, c.IsComputing("r1"))

	close(comp.gate)
	assert.Eventually(t, func() bool {
		_, ok := c.Entry("r1")
		return ok
	}, time.Second, time.Millisecond)
	assert.False(t, c.IsComputing("r1"))
}

//
// ================= PRECALCULATE =================
//

func restaurants(n int) []catalog.Restaurant {
	out := make([]catalog.Restaurant, n)
	for i := range out {
		out[i] = catalog.Restaurant{ID: fmt.Sprintf("r%d", i), BaseDeliveryFee: 2.99}
	}
	return out
}

func TestPrecalculateRunsBoundedSequentialChunks(t *testing.T) {
	comp := newFakeComputer()
	comp.delay = 20 * time.Millisecond
	c := feecache.New(comp)
	events := watchEvents(c)

	report, err := c.Precalculate(context.Background(), restaurants(12), ptr(algiers))
	require.NoError(t, err)

	assert.Equal(t, []int{5, 5, 2}, report.ChunkSizes)
	assert.Equal(t, 12, report.Computed)
	assert.NotEmpty(t, report.ID)
	assert.EqualValues(t, 5, comp.maxActive.Load())
	assert.Equal(t, 12, comp.TotalCalls())
	assert.Equal(t, 3, events.Count(notify.BatchCompleted))
	assert.Zero(t, events.Count(notify.FeeUpdated))
	assert.Equal(t, 12, c.Stats().Entries)
}

func TestPrecalculateChunkSharesTimestamp(t *testing.T) {
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now))

	_, err := c.Precalculate(context.Background(), restaurants(3), ptr(algiers))
	require.NoError(t, err)

	e0, _ := c.Entry("r0")
	e2, _ := c.Entry("r2")
	assert.Equal(t, e0.ComputedAt, e2.ComputedAt)
	assert.Equal(t, e0.Fingerprint, e2.Fingerprint)
}

func TestPrecalculateIsolatesFailures(t *testing.T) {
	comp := newFakeComputer()
	comp.SetFail("r2", true)
	c := feecache.New(comp)

	report, err := c.Precalculate(context.Background(), restaurants(5), ptr(algiers))
	require.NoError(t, err)
	assert.Equal(t, 4, report.Computed)
	assert.Equal(t, 1, report.Failed)

	ent, ok := c.Entry("r2")
	require.True(t, ok)
	assert.Equal(t, 2.99, ent.Fee)
	assert.True(t, ent.Fallback)
	assert.True(t, c.HasFailed("r2"))

	ent, ok = c.Entry("r3")
	require.True(t, ok)
	assert.Equal(t, 4.50, ent.Fee)
	assert.False(t, c.HasFailed("r3"))
}

func TestPrecalculateSkipsCachedAndInFlight(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	c := feecache.New(comp)

	_, err := c.GetFee(ctx, "r0", 2.99, ptr(algiers))
	require.NoError(t, err)

	// duplicates are computed once
	list := append(restaurants(3), catalog.Restaurant{ID: "r1", BaseDeliveryFee: 2.99})
	report, err := c.Precalculate(ctx, list, ptr(algiers))
	require.NoError(t, err)

	assert.Equal(t, 4, report.Requested)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, []int{2}, report.ChunkSizes)
	assert.Equal(t, 1, comp.Calls("r0"))
	assert.Equal(t, 1, comp.Calls("r1"))
}

func TestPrecalculateWithoutLocationIsNoop(t *testing.T) {
	comp := newFakeComputer()
	c := feecache.New(comp)

	report, err := c.Precalculate(context.Background(), restaurants(4), nil)
	require.NoError(t, err)
	assert.Empty(t, report.ChunkSizes)
	assert.Zero(t, comp.TotalCalls())
	assert.Equal(t, geo.NoFingerprint, c.Fingerprint())
}

func TestGetFeeJoinsBatchMember(t *testing.T) {
	comp := newFakeComputer()
	comp.gate = make(chan struct{})
	c := feecache.New(comp)

	done := make(chan struct{})
	go func() {
		_, _ = c.Precalculate(context.Background(), restaurants(2), ptr(algiers))
		close(done)
	}()
	assert.Eventually(t, func() bool { return c.IsComputing("r1") }, time.Second, time.Millisecond)

	got := make(chan float64, 1)
	go func() {
		fee, _ := c.GetFee(context.Background(), "r1", 2.99, ptr(algiers))
		got <- fee
	}()
	assert.Eventually(t, func() bool { return c.Stats().Joins == 1 }, time.Second, time.Millisecond)

	close(comp.gate)
	<-done
	assert.Equal(t, 4.50, <-got)
	assert.Equal(t, 1, comp.Calls("r1"))
}

func TestPrecalculateStopsBetweenChunksOnCancel(t *testing.T) {
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithChunkSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := c.Precalculate(ctx, restaurants(4), ptr(algiers))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.ChunkSizes)
}

//
// ================= REACTIVE LOCATION =================
//

func TestWatchDebouncesLocationUpdates(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	src := &fakeSource{}
	c := feecache.New(comp, feecache.WithDebounce(50*time.Millisecond))
	defer c.Close()
	events := watchEvents(c)

	_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)

	stop := c.Watch(src)
	defer stop()

	src.Emit(geo.Location{Lat: 36.76, Lon: 3.05})
	src.Emit(geo.Location{Lat: 36.77, Lon: 3.05})
	src.Emit(farAwayCity)

	want := geo.FingerprintOf(farAwayCity.Lat, farAwayCity.Lon)
	assert.Eventually(t, func() bool { return c.Fingerprint() == want }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, events.Count(notify.RecalculateAdvised))
	_, ok := c.Entry("r1")
	assert.False(t, ok)
}

func TestWatchIgnoresSmallMoves(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	src := &fakeSource{}
	c := feecache.New(comp, feecache.WithDebounce(10*time.Millisecond))
	defer c.Close()
	events := watchEvents(c)

	_, err := c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	require.NoError(t, err)

	c.Watch(src)
	src.Emit(east89m)
	time.Sleep(60 * time.Millisecond)

	assert.Zero(t, events.Count(notify.RecalculateAdvised))
	_, ok := c.Entry("r1")
	assert.True(t, ok)
}

func TestWatchStopCancelsPendingUpdate(t *testing.T) {
	comp := newFakeComputer()
	src := &fakeSource{}
	c := feecache.New(comp, feecache.WithDebounce(30*time.Millisecond))

	stop := c.Watch(src)
	src.Emit(algiers)
	stop()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, geo.NoFingerprint, c.Fingerprint())
}

func TestWatchSetsLocationSource(t *testing.T) {
	comp := newFakeComputer()
	src := &fakeSource{loading: true}
	c := feecache.New(comp)
	defer c.Close()

	c.Watch(src)
	_, err := c.GetFee(context.Background(), "r1", 2.99, nil)
	assert.ErrorIs(t, err, feecache.ErrLocationPending)
}

//
// ================= EXPIRATION, EVICTION, REMOVAL =================
//

func TestCleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now))
	events := watchEvents(c)

	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	clock.Advance(20 * time.Minute)
	_, _ = c.GetFee(ctx, "r2", 2.99, ptr(algiers))
	clock.Advance(15 * time.Minute)

	assert.Equal(t, 1, c.CleanupExpired())
	_, ok := c.Entry("r1")
	assert.False(t, ok)
	_, ok = c.Entry("r2")
	assert.True(t, ok)
	assert.Equal(t, 1, events.Count(notify.Expired))
	assert.EqualValues(t, 1, c.Stats().Expirations)

	assert.Zero(t, c.CleanupExpired())
}

func TestOptimizeEvictsOldest(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now), feecache.WithMaxSize(0))

	for i := 0; i <= 500; i++ {
		_, err := c.GetFee(ctx, fmt.Sprintf("r%d", i), 2.99, ptr(algiers))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}
	assert.Equal(t, 501, c.Stats().Entries)

	assert.Equal(t, 1, c.Optimize(500))
	assert.Equal(t, 500, c.Stats().Entries)
	_, ok := c.Entry("r0")
	assert.False(t, ok)
	_, ok = c.Entry("r1")
	assert.True(t, ok)
	assert.EqualValues(t, 1, c.Stats().Evictions)
}

func TestAutomaticEvictionAtMaxSize(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now), feecache.WithMaxSize(3))

	for i := 0; i < 5; i++ {
		_, _ = c.GetFee(ctx, fmt.Sprintf("r%d", i), 2.99, ptr(algiers))
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, c.Stats().Entries)
	for _, id := range []string{"r2", "r3", "r4"} {
		_, ok := c.Entry(id)
		assert.True(t, ok, id)
	}
}

func TestOptimizeDefaultSize(t *testing.T) {
	c := feecache.New(newFakeComputer())
	assert.Zero(t, c.Optimize(0))
}

func TestInvalidateAndClearAll(t *testing.T) {
	ctx := context.Background()
	comp := newFakeComputer()
	comp.SetFail("bad", true)
	c := feecache.New(comp)
	events := watchEvents(c)

	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	_, _ = c.GetFee(ctx, "r2", 2.99, ptr(algiers))
	_, _ = c.GetFee(ctx, "bad", 2.99, ptr(algiers))

	c.Invalidate("r1")
	_, ok := c.Entry("r1")
	assert.False(t, ok)
	assert.Equal(t, 1, events.Count(notify.Invalidated))

	c.ClearAll()
	assert.Zero(t, c.Stats().Entries)
	assert.False(t, c.HasFailed("bad"))
	assert.Equal(t, 1, events.Count(notify.Cleared))
}

//
// ================= LIFECYCLE =================
//

func TestOnForegroundThrottlesCleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp, feecache.WithClock(clock.Now))
	defer c.Close()

	c.Start()
	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))

	c.OnBackground()
	assert.False(t, c.RefreshRunning())

	// expired, but the last resume was too recent to clean up
	clock.Advance(31 * time.Minute)
	c.OnBackground()
	c.Start()
	clock.Advance(time.Minute)
	c.OnForeground()
	assert.True(t, c.RefreshRunning())
	_, ok := c.Entry("r1")
	assert.True(t, ok)

	clock.Advance(5 * time.Minute)
	c.OnBackground()
	c.OnForeground()
	_, ok = c.Entry("r1")
	assert.False(t, ok)
	assert.True(t, c.RefreshRunning())
}

func TestPeriodicRefreshRemovesExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	comp := newFakeComputer()
	c := feecache.New(comp,
		feecache.WithClock(clock.Now),
		feecache.WithRefreshInterval(5*time.Millisecond),
	)
	defer c.Close()

	_, _ = c.GetFee(ctx, "r1", 2.99, ptr(algiers))
	clock.Advance(31 * time.Minute)

	c.Start()
	assert.Eventually(t, func() bool { return c.Stats().Entries == 0 }, time.Second, time.Millisecond)

	c.OnBackground()
	assert.False(t, c.RefreshRunning())
}

func TestCloseStopsEverything(t *testing.T) {
	c := feecache.New(newFakeComputer(), feecache.WithRefreshInterval(time.Millisecond))
	src := &fakeSource{}
	c.Watch(src)
	c.Start()

	c.Close()
	assert.False(t, c.RefreshRunning())

	src.mu.Lock()
	assert.Nil(t, src.listener)
	src.mu.Unlock()
}
