// Package timers runs repeating tasks with at most one active timer per purpose.
package timers

import (
	"sync"
	"time"

	"kiln_dashboard/internal/metrics"
)

// Well-known purposes.
const (
	AutoRefresh = "auto-refresh"
	StatsPoll   = "stats-poll"
	TablePoll   = "table-poll"
	ChartPoll   = "chart-poll"
)

type entry struct {
	stop chan struct{}
}

// Registry owns the repeating timers of one view.
type Registry struct {
	mu      sync.Mutex
	active  map[string]*entry
	wg      sync.WaitGroup
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Registry {
	return &Registry{active: map[string]*entry{}, metrics: m}
}

// Every runs fn every interval until stopped. A timer already running for
// purpose is cancelled first, so two calls leave exactly one timer.
func (r *Registry) Every(purpose string, interval time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked(purpose)

	e := &entry{stop: make(chan struct{})}
	r.active[purpose] = e
	r.metrics.TimerStarted()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-e.stop:
				return
			case <-t.C:
				select {
				case <-e.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
}

// Stop cancels the timer for purpose. It reports whether one was running.
func (r *Registry) Stop(purpose string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopLocked(purpose)
}

func (r *Registry) stopLocked(purpose string) bool {
	e, ok := r.active[purpose]
	if !ok {
		return false
	}
	close(e.stop)
	delete(r.active, purpose)
	r.metrics.TimerStopped()
	return true
}

// Active reports whether a timer for purpose is scheduled.
func (r *Registry) Active(purpose string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[purpose]
	return ok
}

// Count returns the number of scheduled timers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active)
}

// StopAll cancels every timer and waits for their goroutines to exit.
// Must not be called from inside a timer callback.
func (r *Registry) StopAll() {
	r.mu.Lock()
	for purpose := range r.active {
		r.stopLocked(purpose)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
