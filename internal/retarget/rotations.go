// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package retarget

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Angles is an Euler triple in degrees about the sensor X, Y and Z axes.
type Angles struct {
	X, Y, Z float64
}

// Rotations are the fixed corrections between the capture rig and the
// render rig. They are computed once and never change while an engine runs.
type Rotations struct {
	// PreRotation turns the model to face into the screen (-90° about X)
	// and then lays the torso horizontal (180° about Y).
	PreRotation mgl64.Quat
	// RightArm and LeftArm are the mirrored roll corrections applied to
	// every limb of the corresponding arm chain.
	RightArm mgl64.Quat
	LeftArm  mgl64.Quat
}

var (
	preRotationFirst  = Angles{X: -90}
	preRotationSecond = Angles{Y: 180}
	rightArmAngles    = Angles{Z: 90}
	leftArmAngles     = Angles{Z: -90}
)

// DefaultRotations builds the rotation constants of the production rig.
func DefaultRotations() Rotations {
	return Rotations{
		PreRotation: FromAngles(preRotationFirst).Mul(FromAngles(preRotationSecond)),
		RightArm:    FromAngles(rightArmAngles),
		LeftArm:     FromAngles(leftArmAngles),
	}
}

// FromAngles builds a unit quaternion from an Euler triple. The rotations
// are applied yaw, roll, pitch, i.e. q = Ry · Rz · Rx.
func FromAngles(a Angles) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(a.X), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(a.Y), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(a.Z), mgl64.Vec3{0, 0, 1})
	return qy.Mul(qz).Mul(qx).Normalize()
}

func (r Rotations) validate() error {
	for name, q := range map[string]mgl64.Quat{
		"pre-rotation": r.PreRotation,
		"right arm":    r.RightArm,
		"left arm":     r.LeftArm,
	} {
		if degenerate(q) {
			return fmt.Errorf("retarget: %s constant is degenerate: %v", name, q)
		}
	}
	return nil
}
