// This file defines the periodic refresher.
// The goal of refresh is: "Keep the cache tidy while the app is in the foreground,
// and do nothing at all while it is in the background."

package refresh

import (
	"sync"
	"time"
)

/*
Hook is the work a Ticker runs on every tick.
It MUST be fast: a slow hook delays the next tick.
*/
type Hook func()

/*
Ticker runs a Hook every Interval between Start and Stop.

It can be started and stopped any number of times. Start on a running
Ticker restarts the period from now, which is what the cache wants when the
app comes back to the foreground.
*/
type Ticker struct {
	Interval time.Duration
	Hook     Hook

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

func NewTicker(interval time.Duration, hook Hook) *Ticker {
	return &Ticker{Interval: interval, Hook: hook}
}

// Start (re)starts the background goroutine.
func (t *Ticker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	if t.Interval <= 0 || t.Hook == nil {
		return
	}

	stop := make(chan struct{})
	t.stop = stop
	t.wg.Add(1)
	go t.run(t.Interval, stop)
}

// Stop halts the goroutine and waits for a running hook to return.
// Stopping a stopped Ticker is a no-op.
func (t *Ticker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// Running reports whether the background goroutine is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *Ticker) stopLocked() {
	if t.stop == nil {
		return
	}
	close(t.stop)
	t.stop = nil
	t.wg.Wait()
}

func (t *Ticker) run(interval time.Duration, stop <-chan struct{}) {
	defer t.wg.Done()

	tk := time.NewTicker(interval)
	defer tk.Stop()

	for {
		select {
		case <-tk.C:
			t.Hook()
		case <-stop:
			return
		}
	}
}
