package service

import (
	"sync"
	"time"
)

// Workspaces holds one ImageSet per browser session.
// Sets live in memory only and are dropped by Sweep once idle.
type Workspaces struct {
	mu   sync.Mutex
	sets map[string]*ImageSet
}

// NewWorkspaces creates an empty registry
func NewWorkspaces() *Workspaces {
	return &Workspaces{sets: make(map[string]*ImageSet)}
}

// Get returns the image set of a session, creating it on first use
func (w *Workspaces) Get(sessionID string) *ImageSet {
	w.mu.Lock()
	defer w.mu.Unlock()

	set, ok := w.sets[sessionID]
	if !ok {
		set = NewImageSet()
		w.sets[sessionID] = set
	}
	return set
}

// Drop removes a session's image set and releases its images
func (w *Workspaces) Drop(sessionID string) {
	w.mu.Lock()
	set, ok := w.sets[sessionID]
	delete(w.sets, sessionID)
	w.mu.Unlock()

	if ok {
		set.Clear()
	}
}

// Len returns the number of live workspaces
func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.sets)
}

// Sweep drops every workspace untouched since before cutoff and returns how many were dropped
func (w *Workspaces) Sweep(cutoff time.Time) int {
	w.mu.Lock()
	var stale []*ImageSet
	for id, set := range w.sets {
		if set.LastTouched().Before(cutoff) {
			stale = append(stale, set)
			delete(w.sets, id)
		}
	}
	w.mu.Unlock()

	for _, set := range stale {
		set.Clear()
	}
	return len(stale)
}
