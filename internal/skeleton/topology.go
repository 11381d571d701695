// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package skeleton

import (
	"errors"
	"fmt"
)

// Basis selects how a parent's cached rotation is used for compensation.
type Basis int

const (
	// BasisRaw compensates against the parent's cached output as is.
	BasisRaw Basis = iota
	// BasisPreRotated compensates against the parent's cached output
	// composed with the global pre-rotation.
	BasisPreRotated
)

func (b Basis) String() string {
	switch b {
	case BasisRaw:
		return "raw"
	case BasisPreRotated:
		return "pre-rotated"
	default:
		return fmt.Sprintf("Basis(%d)", int(b))
	}
}

// Link ties a limb to the parent it is compensated against.
type Link struct {
	Limb   Limb
	Parent Limb
	Basis  Basis
}

var (
	ErrMissingLimb   = errors.New("skeleton: limb has no link")
	ErrDuplicateLimb = errors.New("skeleton: limb linked twice")
	ErrUnknownLimb   = errors.New("skeleton: unknown limb")
	ErrUnknownParent = errors.New("skeleton: unknown parent")
	ErrUnknownBasis  = errors.New("skeleton: unknown basis mode")
	ErrCycle         = errors.New("skeleton: parent links form a cycle")
)

// Topology is a validated parent table with a processing order in which
// every parent comes before its children. It is immutable once built.
type Topology struct {
	links [Count]Link
	order []Limb
}

// NewTopology validates links and computes the processing order.
func NewTopology(links []Link) (*Topology, error) {
	t := &Topology{}
	var seen [Count]bool

	for _, l := range links {
		if !l.Limb.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnknownLimb, int(l.Limb))
		}
		if seen[l.Limb] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLimb, l.Limb)
		}
		if l.Parent != NoParent && (!l.Parent.Valid() || l.Parent == l.Limb) {
			return nil, fmt.Errorf("%w: %s -> %d", ErrUnknownParent, l.Limb, int(l.Parent))
		}
		if l.Basis != BasisRaw && l.Basis != BasisPreRotated {
			return nil, fmt.Errorf("%w: %s uses %s", ErrUnknownBasis, l.Limb, l.Basis)
		}
		seen[l.Limb] = true
		t.links[l.Limb] = l
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingLimb, Limb(i))
		}
	}

	order, err := sortLinks(t.links)
	if err != nil {
		return nil, err
	}
	t.order = order
	return t, nil
}

// sortLinks is Kahn's algorithm; ready limbs are taken lowest index first
// so the order is stable.
func sortLinks(links [Count]Link) ([]Limb, error) {
	var pending [Count]int
	var children [Count][]Limb
	for _, l := range links {
		if l.Parent != NoParent {
			pending[l.Limb]++
			children[l.Parent] = append(children[l.Parent], l.Limb)
		}
	}

	var done [Count]bool
	order := make([]Limb, 0, Count)
	for len(order) < Count {
		next := NoParent
		for i := 0; i < Count; i++ {
			if !done[i] && pending[i] == 0 {
				next = Limb(i)
				break
			}
		}
		if next == NoParent {
			var stuck []string
			for i := 0; i < Count; i++ {
				if !done[i] {
					stuck = append(stuck, Limb(i).String())
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrCycle, stuck)
		}
		done[next] = true
		order = append(order, next)
		for _, c := range children[next] {
			pending[c]--
		}
	}
	return order, nil
}

// Link returns the link of limb l.
func (t *Topology) Link(l Limb) Link {
	return t.links[l]
}

// Order returns a copy of the processing order.
func (t *Topology) Order() []Limb {
	out := make([]Limb, len(t.order))
	copy(out, t.order)
	return out
}

// Default is the production parent table. Arm roots compensate against
// identity; the upper legs compensate against the raw lower-back rotation
// while every other child uses its parent's pre-rotated rotation.
//
// The raw basis on the upper legs does not match the head, which sits just
// as close to the root. It is kept on purpose until someone who owns the rig
// confirms which one is right.
func Default() *Topology {
	return mustTopology([]Link{
		{LowerBack, NoParent, BasisRaw},
		{Head, LowerBack, BasisPreRotated},
		{RightArm, NoParent, BasisRaw},
		{RightForeArm, RightArm, BasisPreRotated},
		{RightHand, RightForeArm, BasisPreRotated},
		{LeftArm, NoParent, BasisRaw},
		{LeftForeArm, LeftArm, BasisPreRotated},
		{LeftHand, LeftForeArm, BasisPreRotated},
		{RightUpLeg, LowerBack, BasisRaw},
		{RightLeg, RightUpLeg, BasisPreRotated},
		{LeftUpLeg, LowerBack, BasisRaw},
		{LeftLeg, LeftUpLeg, BasisPreRotated},
	})
}

// Legacy is the parent table of the first capture rig: arm roots hang off
// the raw lower-back rotation and the upper legs off the pre-rotated one.
// Only useful for replaying recordings made against that rig.
func Legacy() *Topology {
	return mustTopology([]Link{
		{LowerBack, NoParent, BasisRaw},
		{Head, LowerBack, BasisPreRotated},
		{RightArm, LowerBack, BasisRaw},
		{RightForeArm, RightArm, BasisPreRotated},
		{RightHand, RightForeArm, BasisPreRotated},
		{LeftArm, LowerBack, BasisRaw},
		{LeftForeArm, LeftArm, BasisPreRotated},
		{LeftHand, LeftForeArm, BasisPreRotated},
		{RightUpLeg, LowerBack, BasisPreRotated},
		{RightLeg, RightUpLeg, BasisPreRotated},
		{LeftUpLeg, LowerBack, BasisPreRotated},
		{LeftLeg, LeftUpLeg, BasisPreRotated},
	})
}

// ByTopologyName resolves the TOPOLOGY config value.
func ByTopologyName(name string) (*Topology, error) {
	switch name {
	case "", "default":
		return Default(), nil
	case "legacy":
		return Legacy(), nil
	default:
		return nil, fmt.Errorf("skeleton: unknown topology %q", name)
	}
}

func mustTopology(links []Link) *Topology {
	t, err := NewTopology(links)
	if err != nil {
		panic(err)
	}
	return t
}
