// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package frame holds the per-tick orientation samples delivered by the
// capture suit and the single-slot handoff between producer and driver.
package frame

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// Reading is one raw orientation sample (w, x, y, z) as sent by the sensor.
// It is not assumed to be normalized.
type Reading struct {
	W, X, Y, Z float64
}

// FromQuat converts a mathgl quaternion to a Reading.
func FromQuat(q mgl64.Quat) *Reading {
	return &Reading{W: q.W, X: q.V[0], Y: q.V[1], Z: q.V[2]}
}

// Quat returns the reading as a mathgl quaternion.
func (r Reading) Quat() mgl64.Quat {
	return mgl64.Quat{W: r.W, V: mgl64.Vec3{r.X, r.Y, r.Z}}
}

// Finite reports whether all four components are finite.
func (r Reading) Finite() bool {
	for _, v := range [4]float64{r.W, r.X, r.Y, r.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the reading as [w,x,y,z].
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.W, r.X, r.Y, r.Z})
}

// UnmarshalJSON decodes a [w,x,y,z] array.
func (r *Reading) UnmarshalJSON(b []byte) error {
	var v []float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("reading: %w", err)
	}
	if len(v) != 4 {
		return fmt.Errorf("reading: want 4 components, got %d", len(v))
	}
	r.W, r.X, r.Y, r.Z = v[0], v[1], v[2], v[3]
	return nil
}

// Set is one frame of samples, one optional reading per limb. A nil slot
// means the limb was not delivered this frame.
type Set struct {
	Seq       uint64                   `json:"seq"`
	Timestamp time.Time                `json:"ts"`
	Label     int                      `json:"label"`
	Readings  [skeleton.Count]*Reading `json:"q"`
}

// Reading returns the sample for limb l, or nil when absent.
func (s *Set) Reading(l skeleton.Limb) *Reading {
	if s == nil || !l.Valid() {
		return nil
	}
	return s.Readings[l]
}

// Present counts the limbs with a reading.
func (s *Set) Present() int {
	n := 0
	for _, r := range s.Readings {
		if r != nil {
			n++
		}
	}
	return n
}
