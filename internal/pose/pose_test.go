// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package pose

import (
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type doneToken struct {
	err     error
	timeout bool
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// fakeClient records publishes; every other mqtt.Client method panics.
type fakeClient struct {
	mqtt.Client
	mu        sync.Mutex
	published []publish
	token     *doneToken
}

type publish struct {
	topic    string
	retained bool
	payload  []byte
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, publish{topic, retained, payload.([]byte)})
	if c.token != nil {
		return c.token
	}
	return &doneToken{}
}

type failingApplier struct{ err error }

func (f failingApplier) ApplyLocalTransform(string, Transform) error { return f.err }

func quarterTurn() mgl64.Quat {
	return mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1})
}

func TestRotationOnly(t *testing.T) {
	t.Parallel()
	tr := RotationOnly(quarterTurn())
	assert.Equal(t, mgl64.Vec3{}, tr.Offset)
	assert.Equal(t, mgl64.Vec3{1, 1, 1}, tr.Scale)
	assert.Equal(t, quarterTurn(), tr.Rotation)
}

func TestSnapshot_CommitOrdersBonesBySkeleton(t *testing.T) {
	t.Parallel()

	s := NewSnapshot()
	s.now = func() time.Time { return fixedNow }

	_, ok := s.Latest()
	assert.False(t, ok)

	require.NoError(t, s.ApplyLocalTransform("LeftLeg", RotationOnly(quarterTurn())))
	require.NoError(t, s.ApplyLocalTransform("Hips", RotationOnly(mgl64.QuatIdent())))
	require.NoError(t, s.ApplyLocalTransform("LowerBack", RotationOnly(mgl64.QuatIdent())))
	require.NoError(t, s.CommitFrame(9))

	f, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(9), f.Index)
	assert.Equal(t, fixedNow, f.Time)

	names := make([]string, 0, len(f.Bones))
	for _, b := range f.Bones {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"LowerBack", "LeftLeg", "Hips"}, names)

	q, ok := f.Rotation("LeftLeg")
	require.True(t, ok)
	assert.Equal(t, quarterTurn(), q)
	_, ok = f.Rotation("Head")
	assert.False(t, ok)

	// The next frame starts empty.
	require.NoError(t, s.CommitFrame(10))
	f, _ = s.Latest()
	assert.Empty(t, f.Bones)
}

func TestSnapshot_Subscribe(t *testing.T) {
	t.Parallel()

	s := NewSnapshot()
	ch, cancel := s.Subscribe(1)

	s.Store(Frame{Index: 1})
	s.Store(Frame{Index: 2}) // dropped, buffer full

	got := <-ch
	assert.Equal(t, uint64(1), got.Index)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	s.Store(Frame{Index: 3})
	f, _ := s.Latest()
	assert.Equal(t, uint64(3), f.Index)
}

func TestMQTTPublisher_PublishesOneFramePerCommit(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	p := NewMQTTPublisher(client, "mocap/pose")
	p.now = func() time.Time { return fixedNow }

	require.NoError(t, p.ApplyLocalTransform("Head", RotationOnly(quarterTurn())))
	require.NoError(t, p.ApplyLocalTransform("LowerBack", RotationOnly(mgl64.QuatIdent())))
	require.NoError(t, p.CommitFrame(4))

	require.Len(t, client.published, 1)
	msg := client.published[0]
	assert.Equal(t, "mocap/pose", msg.topic)
	assert.True(t, msg.retained)

	f, err := DecodeFrame(msg.payload)
	require.NoError(t, err)

	q := quarterTurn()
	want := Frame{
		Index: 4,
		Time:  fixedNow,
		Bones: []Bone{
			{Name: "LowerBack", Rotation: [4]float64{1, 0, 0, 0}, Scale: [3]float64{1, 1, 1}},
			{Name: "Head", Rotation: [4]float64{q.W, q.V[0], q.V[1], q.V[2]}, Scale: [3]float64{1, 1, 1}},
		},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("published frame mismatch (-want +got):\n%s", diff)
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	t.Parallel()

	client := &fakeClient{token: &doneToken{err: errors.New("broker gone")}}
	p := NewMQTTPublisher(client, "mocap/pose")
	assert.ErrorContains(t, p.CommitFrame(1), "broker gone")

	client.token = &doneToken{timeout: true}
	assert.ErrorContains(t, p.CommitFrame(2), "timed out")
}

func TestMulti_CallsEveryApplier(t *testing.T) {
	t.Parallel()

	a, b := NewSnapshot(), NewSnapshot()
	boom := errors.New("boom")
	m := Multi{a, failingApplier{boom}, b}

	err := m.ApplyLocalTransform("Head", RotationOnly(quarterTurn()))
	assert.ErrorIs(t, err, boom)
	require.NoError(t, m.CommitFrame(1))

	for _, s := range []*Snapshot{a, b} {
		f, ok := s.Latest()
		require.True(t, ok)
		require.Len(t, f.Bones, 1)
		assert.Equal(t, "Head", f.Bones[0].Name)
	}
}

func TestDecodeFrame_Invalid(t *testing.T) {
	t.Parallel()
	_, err := DecodeFrame([]byte("{"))
	assert.Error(t, err)
}
