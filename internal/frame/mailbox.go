// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import "sync/atomic"

// Mailbox is a single-slot handoff between one producer goroutine and the
// driver. Put overwrites whatever is there; the consumer always sees the
// newest complete frame, or nothing before the first Put.
type Mailbox struct {
	slot atomic.Pointer[entry]
}

// entry pairs a frame with the Put that stored it so both are read in one
// load.
type entry struct {
	set     Set
	version uint64
}

// Put publishes s. Readings are shared with the consumer and must not be
// modified after Put.
func (m *Mailbox) Put(s Set) {
	for {
		old := m.slot.Load()
		next := &entry{set: s, version: 1}
		if old != nil {
			next.version = old.version + 1
		}
		if m.slot.CompareAndSwap(old, next) {
			return
		}
	}
}

// Latest returns the newest frame and the number of Puts up to and
// including it. ok is false until the first Put.
func (m *Mailbox) Latest() (s Set, version uint64, ok bool) {
	e := m.slot.Load()
	if e == nil {
		return Set{}, 0, false
	}
	return e.set, e.version, true
}
