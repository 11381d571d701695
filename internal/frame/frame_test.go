// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

func TestDecode_PartialFrame(t *testing.T) {
	t.Parallel()

	s, err := Decode([]byte(`{"seq":7,"ts":"2026-01-02T03:04:05Z","label":3,"q":[[1,0,0,0],null,[0.5,0.5,0.5,0.5]]}`))
	require.NoError(t, err)

	assert.Equal(t, uint64(7), s.Seq)
	assert.Equal(t, 3, s.Label)
	assert.True(t, s.Timestamp.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	assert.Equal(t, &Reading{W: 1}, s.Reading(skeleton.LowerBack))
	assert.Nil(t, s.Reading(skeleton.Head))
	assert.Equal(t, &Reading{0.5, 0.5, 0.5, 0.5}, s.Reading(skeleton.RightArm))
	for l := skeleton.RightForeArm; l <= skeleton.LeftLeg; l++ {
		assert.Nil(t, s.Reading(l), l.String())
	}
	assert.Equal(t, 2, s.Present())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":       `{"q":`,
		"short reading":  `{"q":[[1,0,0]]}`,
		"long reading":   `{"q":[[1,0,0,0,0]]}`,
		"too many limbs": `{"q":[` + strings.TrimSuffix(strings.Repeat(`null,`, 13), ",") + `]}`,
	}
	for name, in := range cases {
		_, err := Decode([]byte(in))
		assert.Error(t, err, name)
	}
}

func TestEncodeDecode_KeepsAbsentSlots(t *testing.T) {
	t.Parallel()

	in := Set{Seq: 2, Timestamp: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), Label: 1}
	in.Readings[skeleton.LeftHand] = &Reading{W: 0.7, X: 0.1, Y: -0.2, Z: 0.3}

	b, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"q":[null,`)

	out, err := Decode(b)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("decoded frame mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCSV(t *testing.T) {
	t.Parallel()

	fields := []string{"1500"}
	for i := 0; i < skeleton.Count; i++ {
		switch i {
		case int(skeleton.Head):
			fields = append(fields, "", "", "", "")
		case int(skeleton.LeftLeg):
			fields = append(fields, "0", "0", "0", "2")
		default:
			fields = append(fields, "1", "0", "0", "0")
		}
	}
	fields = append(fields, "4")

	s, err := DecodeCSV(strings.Join(fields, ","))
	require.NoError(t, err)
	assert.Equal(t, 4, s.Label)
	assert.Equal(t, int64(1500), s.Timestamp.UnixMilli())
	assert.Nil(t, s.Reading(skeleton.Head))
	assert.Equal(t, &Reading{Z: 2}, s.Reading(skeleton.LeftLeg))
	assert.Equal(t, 11, s.Present())

	_, err = DecodeCSV("1,2,3")
	assert.Error(t, err)

	fields[3] = "abc"
	_, err = DecodeCSV(strings.Join(fields, ","))
	assert.Error(t, err)
}

func TestReading_Conversions(t *testing.T) {
	t.Parallel()

	r := Reading{W: 0.1, X: 0.2, Y: 0.3, Z: 0.4}
	q := r.Quat()
	assert.Equal(t, 0.1, q.W)
	assert.Equal(t, 0.4, q.Z())
	assert.Equal(t, &r, FromQuat(q))

	assert.True(t, r.Finite())
	assert.False(t, Reading{W: math.NaN()}.Finite())
	assert.False(t, Reading{Y: math.Inf(-1)}.Finite())
}

func TestMailbox_OverwriteOnWrite(t *testing.T) {
	t.Parallel()

	var m Mailbox
	_, _, ok := m.Latest()
	assert.False(t, ok, "empty before first put")

	m.Put(Set{Seq: 1})
	m.Put(Set{Seq: 2})

	s, v, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), s.Seq)
	assert.Equal(t, uint64(2), v)

	// Reading does not consume.
	s, v2, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(2), s.Seq)
	assert.Equal(t, v, v2)
}

func TestMailbox_ConcurrentProducer(t *testing.T) {
	t.Parallel()

	var m Mailbox
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= 1000; i++ {
			m.Put(Set{Seq: i})
		}
	}()

	var last uint64
	for i := 0; i < 1000; i++ {
		if s, v, ok := m.Latest(); ok {
			assert.GreaterOrEqual(t, s.Seq, last)
			// The n-th Put carries seq n, so the pair must never tear.
			assert.Equal(t, s.Seq, v)
			last = s.Seq
		}
	}
	wg.Wait()

	s, v, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), s.Seq)
	assert.Equal(t, uint64(1000), v)
}

func TestMailbox_VersionCountsEveryPut(t *testing.T) {
	t.Parallel()

	var m Mailbox
	var wg sync.WaitGroup
	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				m.Put(Set{})
			}
		}()
	}
	wg.Wait()

	_, v, ok := m.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(1000), v)
}
