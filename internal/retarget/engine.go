// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package retarget converts raw sensor orientations into parent-relative
// local rotations for the render skeleton.
//
// For each limb the sample is normalized, corrected for its arm group,
// rotated into the render frame by the global pre-rotation and finally
// compensated by the conjugate of its parent's last output:
//
//	local = norm( norm(q) · arm · P · conj(basis) )
//	basis = prev[parent]       (raw links)
//	      = prev[parent] · P   (pre-rotated links)
//	      = identity           (no parent)
//
// An Engine is not safe for concurrent use; it is meant to be driven from a
// single tick goroutine.
package retarget

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/mocap_retarget/internal/frame"
	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// minNorm is the magnitude below which a quaternion is treated as zero.
const minNorm = 1e-9

// Step is the trace of one limb through the pipeline.
type Step struct {
	Limb skeleton.Limb
	// Present is false when the sample was absent or degenerate; the other
	// fields are then identity.
	Present bool
	Raw     mgl64.Quat // normalized sample
	Aligned mgl64.Quat // after arm correction and pre-rotation
	Basis   mgl64.Quat // compensation basis
	Local   mgl64.Quat // emitted local rotation
}

// Pose is one local rotation per limb.
type Pose [skeleton.Count]mgl64.Quat

// Engine holds the previous-output cache of one actor.
type Engine struct {
	topo *skeleton.Topology
	rot  Rotations
	prev [skeleton.Count]mgl64.Quat
}

// New returns an engine with its cache seeded to identity.
func New(topo *skeleton.Topology, rot Rotations) (*Engine, error) {
	if topo == nil {
		return nil, errors.New("retarget: nil topology")
	}
	if err := rot.validate(); err != nil {
		return nil, err
	}
	e := &Engine{topo: topo, rot: rot}
	for i := range e.prev {
		e.prev[i] = mgl64.QuatIdent()
	}
	return e, nil
}

// Topology returns the parent table the engine was built with.
func (e *Engine) Topology() *skeleton.Topology {
	return e.topo
}

// Rotations returns the engine's fixed rotation constants.
func (e *Engine) Rotations() Rotations {
	return e.rot
}

// Process retargets one limb. The caller must process a limb's parent
// before the limb itself within the same frame.
func (e *Engine) Process(l skeleton.Limb, r *frame.Reading) mgl64.Quat {
	return e.Trace(l, r).Local
}

// Trace is Process with every intermediate stage recorded.
func (e *Engine) Trace(l skeleton.Limb, r *frame.Reading) Step {
	id := mgl64.QuatIdent()
	step := Step{Limb: l, Raw: id, Aligned: id, Basis: id, Local: id}
	if !l.Valid() || r == nil || !r.Finite() {
		return step
	}
	q := r.Quat()
	if degenerate(q) {
		return step
	}

	q = q.Normalize()
	step.Raw = q

	switch l.Group() {
	case skeleton.GroupRightArm:
		q = q.Mul(e.rot.RightArm)
	case skeleton.GroupLeftArm:
		q = q.Mul(e.rot.LeftArm)
	}
	q = q.Mul(e.rot.PreRotation)
	step.Aligned = q

	step.Basis = e.basis(l)
	q = normalize(q.Mul(step.Basis.Conjugate()))

	step.Present = true
	step.Local = q
	e.prev[l] = q
	return step
}

func (e *Engine) basis(l skeleton.Limb) mgl64.Quat {
	link := e.topo.Link(l)
	if link.Parent == skeleton.NoParent {
		return mgl64.QuatIdent()
	}
	parent := e.prev[link.Parent]
	if link.Basis == skeleton.BasisPreRotated {
		return parent.Mul(e.rot.PreRotation)
	}
	return parent
}

// ProcessFrame retargets every limb of s in topological order.
func (e *Engine) ProcessFrame(s frame.Set) Pose {
	var p Pose
	for _, l := range e.topo.Order() {
		p[l] = e.Process(l, s.Reading(l))
	}
	return p
}

// TraceFrame is ProcessFrame with per-limb traces, indexed by limb.
func (e *Engine) TraceFrame(s frame.Set) [skeleton.Count]Step {
	var steps [skeleton.Count]Step
	for _, l := range e.topo.Order() {
		steps[l] = e.Trace(l, s.Reading(l))
	}
	return steps
}

// Previous returns the cached output of limb l.
func (e *Engine) Previous(l skeleton.Limb) mgl64.Quat {
	return e.prev[l]
}

// Cache returns a copy of the previous-output cache.
func (e *Engine) Cache() [skeleton.Count]mgl64.Quat {
	return e.prev
}

func degenerate(q mgl64.Quat) bool {
	n := q.Len()
	return math.IsNaN(n) || math.IsInf(n, 0) || n < minNorm
}

// normalize is Normalize with degenerate input mapped to identity.
func normalize(q mgl64.Quat) mgl64.Quat {
	if degenerate(q) {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
