// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pose is the outbound side of the retargeter: anything that can
// put a local transform on a named bone.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// Transform is a bone's local transform relative to its parent bone. The
// retargeter only ever changes Rotation.
type Transform struct {
	Offset   mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// RotationOnly returns a transform with zero offset and unit scale.
func RotationOnly(q mgl64.Quat) Transform {
	return Transform{Rotation: q, Scale: mgl64.Vec3{1, 1, 1}}
}

// Applier applies a local transform to a named bone.
type Applier interface {
	ApplyLocalTransform(bone string, t Transform) error
}

// Committer is implemented by appliers that batch bones and need to know
// when a frame is complete.
type Committer interface {
	CommitFrame(index uint64) error
}

// Bone is one bone of a published frame.
type Bone struct {
	Name     string     `json:"name"`
	Rotation [4]float64 `json:"q"` // w, x, y, z
	Offset   [3]float64 `json:"offset"`
	Scale    [3]float64 `json:"scale"`
}

// Frame is the JSON form of one retargeted pose.
type Frame struct {
	Index uint64    `json:"frame"`
	Time  time.Time `json:"time"`
	Bones []Bone    `json:"bones"`
}

// Rotation returns the rotation of bone name, if present.
func (f Frame) Rotation(name string) (mgl64.Quat, bool) {
	for _, b := range f.Bones {
		if b.Name == name {
			q := b.Rotation
			return mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}, true
		}
	}
	return mgl64.Quat{}, false
}

// DecodeFrame parses a published pose frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("pose: decode frame: %w", err)
	}
	return f, nil
}

// builder accumulates bones in skeleton order until a frame is committed.
type builder struct {
	bones [skeleton.Count]*Bone
	extra []Bone
}

func (b *builder) apply(name string, t Transform) {
	bone := Bone{
		Name:     name,
		Rotation: [4]float64{t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2]},
		Offset:   [3]float64(t.Offset),
		Scale:    [3]float64(t.Scale),
	}
	if l, ok := skeleton.ByName(name); ok {
		b.bones[l] = &bone
		return
	}
	b.extra = append(b.extra, bone)
}

func (b *builder) frame(index uint64, now time.Time) Frame {
	f := Frame{Index: index, Time: now}
	for _, bone := range b.bones {
		if bone != nil {
			f.Bones = append(f.Bones, *bone)
		}
	}
	f.Bones = append(f.Bones, b.extra...)
	*b = builder{}
	return f
}

// Multi fans every call out to several appliers. All of them are called
// even when one fails; the errors are joined.
type Multi []Applier

func (m Multi) ApplyLocalTransform(bone string, t Transform) error {
	var errs []error
	for _, a := range m {
		if err := a.ApplyLocalTransform(bone, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) CommitFrame(index uint64) error {
	var errs []error
	for _, a := range m {
		if c, ok := a.(Committer); ok {
			if err := c.CommitFrame(index); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
