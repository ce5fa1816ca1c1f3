package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	feecache "github.com/krisalay/feecache"
	"github.com/krisalay/feecache/catalog"
	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/types"
)

// ================= FEE COMPUTER =================

// slowComputer simulates a remote pricing call.
type slowComputer struct {
	latency time.Duration
	calls   atomic.Int64
}

func (s *slowComputer) ComputeFee(ctx context.Context, id string, loc geo.Location) (float64, error) {
	s.calls.Add(1)
	time.Sleep(s.latency)
	return 4.50, nil
}

var _ types.FeeComputer = (*slowComputer)(nil)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	// ---------------- Config ----------------
	const (
		restaurants = 500
		goroutines  = 200
		opsPerG     = 5000
		latency     = 20 * time.Millisecond
	)
	here := geo.Location{Lat: 36.75, Lon: 3.05}

	fmt.Println("\n================ FEE CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Restaurants  :", restaurants)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("Fee latency  :", latency)
	fmt.Println("---------------------------------")

	computer := &slowComputer{latency: latency}
	c := feecache.New(computer)
	defer c.Close()

	list := make([]catalog.Restaurant, restaurants)
	for i := range list {
		list[i] = catalog.Restaurant{ID: fmt.Sprintf("r%d", i), BaseDeliveryFee: 2.99}
	}

	// ---------------- Cold Start ----------------
	fmt.Println("\nCold start: every goroutine asks for the same 500 fees at once...")
	start := time.Now()
	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for j := 0; j < restaurants; j++ {
				_, _ = c.GetFee(ctx, list[j].ID, list[j].BaseDeliveryFee, &here)
			}
		}()
	}
	wg.Wait()
	cold := time.Since(start)
	fmt.Printf("Cold start took %v with %d fee computations\n", cold, computer.calls.Load())

	// ---------------- Precalculate ----------------
	fmt.Println("\nMoving 2 km and precalculating...")
	moved := geo.Location{Lat: 36.768, Lon: 3.05}
	start = time.Now()
	report, _ := c.Precalculate(ctx, list, &moved)
	fmt.Printf("Precalculated %d fees in %d chunks in %v\n",
		report.Computed, len(report.ChunkSizes), time.Since(start))

	// ---------------- Hot Reads ----------------
	fmt.Println("\nRunning concurrent hot reads...")
	start = time.Now()
	wg = sync.WaitGroup{}
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				r := list[j%restaurants]
				_, _ = c.GetFee(ctx, r.ID, r.BaseDeliveryFee, &moved)
			}
		}()
	}
	wg.Wait()
	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	stats := c.Stats()
	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Computations     : %d\n", computer.calls.Load())
	fmt.Printf("Hits/Misses/Joins: %d/%d/%d\n", stats.Hits, stats.Misses, stats.Joins)
	fmt.Printf("Invalidations    : %d\n", stats.Invalidations)
	fmt.Println("=========================================")
}
