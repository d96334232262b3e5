// Package settings holds the live, mutable workout settings.
package settings

import (
	"sync"

	"github.com/verte-zerg/tuibeat/internal/model"
)

// ChangeFunc observes a settings change.
type ChangeFunc func(before, after model.Settings)

// Live is a settings record shared between the UI and the player.
// Readers always get the latest value.
type Live struct {
	mu        sync.RWMutex
	current   model.Settings
	observers []ChangeFunc
}

// NewLive returns a Live initialized with s.
func NewLive(s model.Settings) *Live {
	return &Live{current: s}
}

// Get returns a copy of the current settings.
func (l *Live) Get() model.Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// Settings implements the player's settings source.
func (l *Live) Settings() model.Settings {
	return l.Get()
}

// Update applies fn to the settings and notifies observers after the lock
// is released.
func (l *Live) Update(fn func(*model.Settings)) (before, after model.Settings) {
	l.mu.Lock()
	before = l.current
	fn(&l.current)
	after = l.current
	observers := append([]ChangeFunc(nil), l.observers...)
	l.mu.Unlock()

	if before == after {
		return before, after
	}
	for _, obs := range observers {
		obs(before, after)
	}
	return before, after
}

// Subscribe registers fn to run after every effective change.
func (l *Live) Subscribe(fn ChangeFunc) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}
