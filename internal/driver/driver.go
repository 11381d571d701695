// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package driver runs the per-tick animation loop: take the newest frame,
// retarget it and hand every bone rotation to the pose applier.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
	"github.com/relabs-tech/mocap_retarget/internal/pose"
	"github.com/relabs-tech/mocap_retarget/internal/retarget"
	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// State is the animation state.
type State int32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Frames is the consumer side of the sample handoff.
type Frames interface {
	Latest() (s frame.Set, version uint64, ok bool)
}

// Default diagnostic cadence: every 250 frames up to frame 2000.
const (
	DefaultDiagEvery = 250
	DefaultDiagLimit = 2000
)

// Options tune a Driver. Zero values select the defaults.
type Options struct {
	Sink      Sink
	DiagEvery uint64
	DiagLimit uint64
	// Start in Running instead of Idle.
	Active bool
}

// Stats are running counters for the driver.
type Stats struct {
	Frames        uint64 // frames processed while Running
	StaleFrames   uint64 // Running ticks where no new frame had arrived
	EmptyFrames   uint64 // Running ticks before any frame had arrived
	ApplierErrors uint64
}

// Driver owns one engine and is driven from a single goroutine through
// Tick or Run. SetActive, State and Stats may be called from anywhere.
type Driver struct {
	engine  *retarget.Engine
	frames  Frames
	applier pose.Applier
	sink    Sink

	diagEvery uint64
	diagLimit uint64

	active      atomic.Bool
	state       atomic.Int32
	index       uint64
	lastVersion uint64

	processed, stale, empty, applyErrs atomic.Uint64
}

// New builds a driver. engine, frames and applier are required.
func New(engine *retarget.Engine, frames Frames, applier pose.Applier, opts Options) (*Driver, error) {
	if engine == nil || frames == nil || applier == nil {
		return nil, errors.New("driver: engine, frames and applier are required")
	}
	d := &Driver{
		engine:    engine,
		frames:    frames,
		applier:   applier,
		sink:      opts.Sink,
		diagEvery: opts.DiagEvery,
		diagLimit: opts.DiagLimit,
	}
	if d.diagEvery == 0 {
		d.diagEvery = DefaultDiagEvery
	}
	if d.diagLimit == 0 {
		d.diagLimit = DefaultDiagLimit
	}
	d.active.Store(opts.Active)
	return d, nil
}

// SetActive is the external "animation active" signal.
func (d *Driver) SetActive(on bool) {
	if d.active.Swap(on) != on {
		log.Printf("driver: animation signal %v", on)
	}
}

// State returns the state of the last tick.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// FrameIndex returns how many frames have been processed.
func (d *Driver) FrameIndex() uint64 {
	return d.processed.Load()
}

// Stats returns a copy of the counters.
func (d *Driver) Stats() Stats {
	return Stats{
		Frames:        d.processed.Load(),
		StaleFrames:   d.stale.Load(),
		EmptyFrames:   d.empty.Load(),
		ApplierErrors: d.applyErrs.Load(),
	}
}

// Tick runs one frame. In Idle it does nothing. The returned error only
// reports applier failures; the frame counter advances regardless.
func (d *Driver) Tick() error {
	if !d.active.Load() {
		d.state.Store(int32(Idle))
		return nil
	}
	d.state.Store(int32(Running))

	s, version, ok := d.frames.Latest()
	switch {
	case !ok:
		// Nothing delivered yet: every limb is absent.
		s = frame.Set{}
		d.empty.Add(1)
	case version == d.lastVersion:
		d.stale.Add(1)
	}
	d.lastVersion = version

	diag := d.sink != nil && d.index%d.diagEvery == 0 && d.index <= d.diagLimit
	var snap Snapshot
	if diag {
		snap = Snapshot{Frame: d.index, Seq: s.Seq, Present: s.Present()}
	}

	steps := d.engine.TraceFrame(s)
	if diag {
		snap.Steps = steps
	}

	var errs []error
	for _, l := range d.engine.Topology().Order() {
		if err := d.applier.ApplyLocalTransform(skeleton.Names[l], pose.RotationOnly(steps[l].Local)); err != nil {
			errs = append(errs, fmt.Errorf("apply %s: %w", l, err))
		}
	}
	if c, ok := d.applier.(pose.Committer); ok {
		if err := c.CommitFrame(d.index); err != nil {
			errs = append(errs, fmt.Errorf("commit frame %d: %w", d.index, err))
		}
	}
	if diag {
		d.sink.Emit(snap)
	}

	d.index++
	d.processed.Store(d.index)
	if len(errs) > 0 {
		d.applyErrs.Add(uint64(len(errs)))
		return errors.Join(errs...)
	}
	return nil
}

// Run ticks every interval until ctx is done. Tick errors are logged and
// never stop the loop.
func (d *Driver) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("driver: invalid tick interval %s", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("driver: ticking every %s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Printf("driver: stopped after %d frames", d.FrameIndex())
			return nil
		case <-ticker.C:
			if err := d.Tick(); err != nil {
				log.Printf("driver: frame %d: %v", d.FrameIndex()-1, err)
			}
		}
	}
}
