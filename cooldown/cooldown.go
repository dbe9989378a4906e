// Package cooldown serialises bulk sends: one run per key at a time, and the
// key stays held for a fixed delay after the run finishes.
package cooldown

import (
	"sync"
	"time"
)

type Gate struct {
	mutex  sync.Mutex
	held   map[string]bool
	timers map[string]*time.Timer
}

func NewGate() *Gate {
	return &Gate{
		held:   make(map[string]bool),
		timers: make(map[string]*time.Timer),
	}
}

// Trigger runs send unless key is held, in which case busy runs instead.
// send executes in the calling goroutine; the release after delay does not.
func (g *Gate) Trigger(key string, delay time.Duration, busy func(), send func()) bool {
	g.mutex.Lock()
	if g.held[key] {
		g.mutex.Unlock()
		busy()
		return false
	}
	g.held[key] = true
	g.mutex.Unlock()

	defer g.release(key, delay)
	send()
	return true
}

func (g *Gate) release(key string, delay time.Duration) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if delay <= 0 {
		g.held[key] = false
		return
	}
	g.timers[key] = time.AfterFunc(delay, func() {
		g.mutex.Lock()
		defer g.mutex.Unlock()
		g.held[key] = false
		delete(g.timers, key)
	})
}

func (g *Gate) Held(key string) bool {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.held[key]
}

// Stop cancels pending releases. Keys still cooling down stay held.
func (g *Gate) Stop() {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	for key, timer := range g.timers {
		timer.Stop()
		delete(g.timers, key)
	}
}
