package location

import (
	"context"
	"sync"

	"github.com/krisalay/feecache/geo"
	"github.com/krisalay/feecache/notify"
)

/*
Provider is the observable location source the fee cache reads and watches.

It keeps the last location it published, a loading flag while a fetch runs
and a permission flag that drops to false once the platform reports
PermissionDenied. Subscribers are called with the new location every time it
changes.
*/
type Provider struct {
	coord    *Coordinator
	notifier *notify.Notifier

	mu         sync.RWMutex
	loc        geo.Location
	has        bool
	loading    int
	permission bool
	lastErr    error
}

func NewProvider(coord *Coordinator) *Provider {
	return &Provider{
		coord:      coord,
		notifier:   notify.New(),
		permission: true,
	}
}

// CurrentLocation returns the last published location.
func (p *Provider) CurrentLocation() (geo.Location, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loc, p.has
}

// IsLoading reports whether a Refresh is in flight.
func (p *Provider) IsLoading() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loading > 0
}

// HasPermission is false after the platform denied access, until a fetch succeeds again.
func (p *Provider) HasPermission() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.permission
}

// Err returns the error of the last failed Refresh, nil after a success.
func (p *Provider) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastErr
}

// Subscribe calls fn with every newly published location.
func (p *Provider) Subscribe(fn func(geo.Location)) (unsubscribe func()) {
	return p.notifier.Subscribe(func(ev notify.Event) {
		if ev.Kind != notify.LocationChanged {
			return
		}
		if loc, ok := p.CurrentLocation(); ok {
			fn(loc)
		}
	})
}

// Refresh asks the coordinator for the current location and publishes it.
func (p *Provider) Refresh(ctx context.Context) (geo.Location, error) {
	p.mu.Lock()
	p.loading++
	p.mu.Unlock()

	loc, err := p.coord.CurrentLocation(ctx)

	p.mu.Lock()
	p.loading--
	if err != nil {
		p.lastErr = err
		if r, ok := ReasonOf(err); ok && r == PermissionDenied {
			p.permission = false
		}
		p.mu.Unlock()
		return geo.Location{}, err
	}
	p.lastErr = nil
	p.permission = true
	changed := p.setLocked(loc)
	p.mu.Unlock()

	if changed {
		p.notifier.Notify(notify.Event{Kind: notify.LocationChanged})
	}
	return loc, nil
}

// SetLocation publishes a location chosen by the host (for example a typed-in address).
func (p *Provider) SetLocation(loc geo.Location) {
	p.mu.Lock()
	changed := p.setLocked(loc)
	p.mu.Unlock()

	if changed {
		p.notifier.Notify(notify.Event{Kind: notify.LocationChanged})
	}
}

func (p *Provider) setLocked(loc geo.Location) bool {
	if p.has && p.loc == loc {
		return false
	}
	p.loc = loc
	p.has = true
	return true
}
