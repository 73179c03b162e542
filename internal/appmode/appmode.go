// Package appmode holds the admin/reader mode of a running instance as an
// observable value.
package appmode

import (
	"fmt"
	"sync"
)

// Mode selects whether content may be edited.
type Mode string

const (
	Admin  Mode = "admin"
	Reader Mode = "reader"
)

// Parse validates a mode name.
func Parse(s string) (Mode, error) {
	switch Mode(s) {
	case Admin, Reader:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown app mode %q", s)
	}
}

// Listener receives the new mode after every Set.
type Listener func(Mode)

// State is safe for concurrent use. Listeners run synchronously on the
// goroutine calling Set, outside the lock.
type State struct {
	mu        sync.RWMutex
	mode      Mode
	listeners map[uint64]Listener
	nextID    uint64
}

// New creates a state holding initial
func New(initial Mode) *State {
	return &State{mode: initial, listeners: make(map[uint64]Listener)}
}

// Get returns the current mode
func (s *State) Get() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// IsAdmin reports whether edits are allowed
func (s *State) IsAdmin() bool { return s.Get() == Admin }

// Set changes the mode and notifies every listener
func (s *State) Set(mode Mode) error {
	if _, err := Parse(string(mode)); err != nil {
		return err
	}

	s.mu.Lock()
	s.mode = mode
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(mode)
	}
	return nil
}

// Subscribe registers l and returns a func that removes it
func (s *State) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
