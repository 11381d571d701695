// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"context"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

type mockSource struct {
	start  time.Time
	now    func() time.Time
	seq    uint64
	ticker *time.Ticker // nil: frames are generated back to back

	done chan struct{}
	once sync.Once
}

// NewMockSource creates a mock orientation source that generates smoothly
// changing limb rotations, one frame per interval. The returned source is
// an io.Closer; after Close, Next returns io.EOF.
func NewMockSource(interval time.Duration) Source {
	m := &mockSource{start: time.Now(), now: time.Now, done: make(chan struct{})}
	if interval > 0 {
		m.ticker = time.NewTicker(interval)
	}
	return m
}

func (m *mockSource) Next(ctx context.Context) (frame.Set, error) {
	if m.ticker != nil {
		select {
		case <-ctx.Done():
			return frame.Set{}, ctx.Err()
		case <-m.done:
			return frame.Set{}, io.EOF
		case <-m.ticker.C:
		}
	} else {
		select {
		case <-m.done:
			return frame.Set{}, io.EOF
		default:
		}
	}

	now := m.now()
	m.seq++
	return mockFrame(m.seq, now, now.Sub(m.start).Seconds()), nil
}

// mockFrame swings every limb about its own axis. Each limb gets a
// different phase so the rig does not move in lockstep.
func mockFrame(seq uint64, ts time.Time, elapsed float64) frame.Set {
	s := frame.Set{Seq: seq, Timestamp: ts}
	for _, l := range skeleton.All() {
		phase := float64(l) * 0.5
		roll := 20 * math.Sin(elapsed+phase)
		pitch := 15 * math.Cos(elapsed*0.7+phase)
		yaw := math.Mod(elapsed*30+float64(l)*30, 360)

		q := mgl64.AnglesToQuat(
			mgl64.DegToRad(yaw), mgl64.DegToRad(pitch), mgl64.DegToRad(roll),
			mgl64.ZYX,
		)
		s.Readings[l] = frame.FromQuat(q)
	}
	return s
}

func (m *mockSource) Close() error {
	m.once.Do(func() {
		if m.ticker != nil {
			m.ticker.Stop()
		}
		close(m.done)
	})
	return nil
}
