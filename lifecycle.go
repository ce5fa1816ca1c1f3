package feecache

/*
This file connects the cache to the host application's lifecycle.
The host calls OnForeground / OnBackground on its own state transitions;
the cache holds no platform dependency.
*/

// Start begins periodic cleanup. Call it once the app is in the foreground.
func (c *DeliveryFeeCache) Start() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.lastResume = c.now()
	c.refresher.Start()
	c.logger.Info("fee: periodic refresh started", "interval", c.cfg.RefreshInterval)
}

/*
OnForeground is called when the app becomes active.

If at least MinResumeInterval has passed since the last resume, expired
entries are removed and the periodic timer restarts from now. A quicker
resume only makes sure the timer is running again.
*/
func (c *DeliveryFeeCache) OnForeground() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	now := c.now()
	if c.lastResume.IsZero() || now.Sub(c.lastResume) >= c.cfg.MinResumeInterval {
		c.lastResume = now
		removed := c.CleanupExpired()
		c.refresher.Start()
		c.logger.Info("fee: resumed", "expired_removed", removed)
		return
	}
	if !c.refresher.Running() {
		c.refresher.Start()
	}
}

// OnBackground stops all periodic work until the next OnForeground.
func (c *DeliveryFeeCache) OnBackground() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.refresher.Stop()
	c.logger.Info("fee: paused")
}

// Close stops the timer, any pending debounced location and every watcher.
// Cached fees stay readable.
func (c *DeliveryFeeCache) Close() {
	c.lifeMu.Lock()
	watchers := c.watchers
	c.watchers = nil
	c.lifeMu.Unlock()

	for _, stop := range watchers {
		stop()
	}
	c.debounce.cancel()
	c.refresher.Stop()
}

// periodicCleanup is the refresher hook.
func (c *DeliveryFeeCache) periodicCleanup() {
	c.CleanupExpired()
}

// RefreshRunning reports whether the periodic timer is active.
func (c *DeliveryFeeCache) RefreshRunning() bool {
	return c.refresher.Running()
}
