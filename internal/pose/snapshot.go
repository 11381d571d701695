// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

import (
	"sync"
	"time"
)

// Snapshot keeps the newest committed frame for readers on other
// goroutines (web API, websocket feed). Subscribers get every committed
// frame on a buffered channel; slow subscribers miss frames rather than
// block the tick.
type Snapshot struct {
	mu      sync.RWMutex
	pending builder
	last    Frame
	have    bool
	subs    map[chan Frame]struct{}
	now     func() time.Time
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{subs: map[chan Frame]struct{}{}, now: time.Now}
}

// ApplyLocalTransform stages one bone of the frame being built.
func (s *Snapshot) ApplyLocalTransform(bone string, t Transform) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending.apply(bone, t)
	return nil
}

// CommitFrame makes the staged bones the newest frame.
func (s *Snapshot) CommitFrame(index uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(s.pending.frame(index, s.now()))
	return nil
}

// Store replaces the newest frame with one that arrived already built, e.g.
// from the pose topic.
func (s *Snapshot) Store(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(f)
}

func (s *Snapshot) store(f Frame) {
	s.last = f
	s.have = true
	for ch := range s.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

// Latest returns the newest frame, if any.
func (s *Snapshot) Latest() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

// Subscribe returns a channel receiving every stored frame and a function
// to unsubscribe.
func (s *Snapshot) Subscribe(buffer int) (<-chan Frame, func()) {
	ch := make(chan Frame, buffer)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, ch)
			s.mu.Unlock()
			close(ch)
		})
	}
}
