// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package skeleton describes the 12 tracked limb segments of the capture
// suit and how they hang together.
package skeleton

import "fmt"

// Limb identifies one tracked segment. Values are also slot indices in a
// frame sample set.
type Limb int

const (
	LowerBack Limb = iota
	Head
	RightArm
	RightForeArm
	RightHand
	LeftArm
	LeftForeArm
	LeftHand
	RightUpLeg
	RightLeg
	LeftUpLeg
	LeftLeg
)

// Count is the number of tracked limbs.
const Count = 12

// NoParent marks a limb that compensates against the identity rotation.
const NoParent Limb = -1

// Names are the bone names of the render rig, indexed by Limb.
var Names = [Count]string{
	"LowerBack", "Head",
	"RightArm", "RightForeArm", "RightHand",
	"LeftArm", "LeftForeArm", "LeftHand",
	"RightUpLeg", "RightLeg",
	"LeftUpLeg", "LeftLeg",
}

// Group is the pre-rotation group a limb belongs to.
type Group int

const (
	GroupNone Group = iota
	GroupRightArm
	GroupLeftArm
)

// Valid reports whether l is one of the 12 tracked limbs.
func (l Limb) Valid() bool {
	return l >= 0 && l < Count
}

func (l Limb) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Limb(%d)", int(l))
	}
	return Names[l]
}

// Group returns the arm group of l. The right arm chain (2,3,4) and the
// left arm chain (5,6,7) get mirrored corrections; everything else none.
func (l Limb) Group() Group {
	switch l {
	case RightArm, RightForeArm, RightHand:
		return GroupRightArm
	case LeftArm, LeftForeArm, LeftHand:
		return GroupLeftArm
	default:
		return GroupNone
	}
}

// ByName looks up a limb by its bone name.
func ByName(name string) (Limb, bool) {
	for i, n := range Names {
		if n == name {
			return Limb(i), true
		}
	}
	return NoParent, false
}

// All returns the limbs in index order.
func All() []Limb {
	out := make([]Limb, Count)
	for i := range out {
		out[i] = Limb(i)
	}
	return out
}
