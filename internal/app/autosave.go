package app

import (
	"context"
	"log"
	"sync"
	"time"
)

// DefaultAutosaveInterval is how often the working state is saved.
const DefaultAutosaveInterval = 5 * time.Minute

// Autosaver periodically writes the session to the autosave store from a
// background goroutine. Snapshots are taken under read locks only, so a save
// never blocks an in-progress drag.
type Autosaver struct {
	state    *State
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	onSaved func(at time.Time) // Called after each successful save
}

// NewAutosaver creates an autosaver for state. A non-positive interval uses
// DefaultAutosaveInterval.
func NewAutosaver(state *State, interval time.Duration, logger *log.Logger) *Autosaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Autosaver{state: state, interval: interval, logger: logger}
}

// OnSaved sets the callback invoked after each save. The callback is called
// from a background goroutine - use appropriate synchronization if updating
// UI.
func (a *Autosaver) OnSaved(callback func(at time.Time)) {
	a.mu.Lock()
	a.onSaved = callback
	a.mu.Unlock()
}

// Start begins saving in a background goroutine. Starting a running
// autosaver restarts its timer.
func (a *Autosaver) Start() {
	a.Stop()
	a.mu.Lock()
	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.watchLoop(a.stopCh, a.doneCh)
	a.mu.Unlock()
}

// Stop stops the saver goroutine and waits for an in-flight save.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	stop, done := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// watchLoop saves on every tick until stopped.
func (a *Autosaver) watchLoop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.saveOnce()
		}
	}
}

func (a *Autosaver) saveOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), a.interval)
	defer cancel()
	if err := a.state.Save(ctx, SourceAuto); err != nil {
		a.logger.Printf("Autosave: %v", err)
		return
	}
	a.mu.Lock()
	cb := a.onSaved
	a.mu.Unlock()
	if cb != nil {
		cb(time.Now())
	}
}
