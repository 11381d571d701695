// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package frame

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// Decode parses one JSON frame:
//
//	{"seq":1,"ts":"2026-01-02T03:04:05Z","label":0,"q":[[w,x,y,z],null,...]}
//
// The q array may be shorter than 12; missing trailing slots are absent.
// Non-finite readings are dropped to absent.
func Decode(b []byte) (Set, error) {
	var raw struct {
		Seq       uint64     `json:"seq"`
		Timestamp time.Time  `json:"ts"`
		Label     int        `json:"label"`
		Readings  []*Reading `json:"q"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return Set{}, fmt.Errorf("frame: decode: %w", err)
	}
	if len(raw.Readings) > skeleton.Count {
		return Set{}, fmt.Errorf("frame: decode: %d readings, at most %d limbs", len(raw.Readings), skeleton.Count)
	}

	s := Set{Seq: raw.Seq, Timestamp: raw.Timestamp, Label: raw.Label}
	for i, r := range raw.Readings {
		if r != nil && r.Finite() {
			s.Readings[i] = r
		}
	}
	return s, nil
}

// Encode returns the JSON form of s.
func Encode(s Set) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("frame: encode: %w", err)
	}
	return b, nil
}

// csvFields is timestamp + 12*4 components + label.
const csvFields = 1 + skeleton.Count*4 + 1

// DecodeCSV parses one line of a recorded capture session:
//
//	timestamp_ms,w0,x0,y0,z0,...,w11,x11,y11,z11,label
//
// A limb whose four fields are all empty is absent.
func DecodeCSV(line string) (Set, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != csvFields {
		return Set{}, fmt.Errorf("frame: csv: want %d fields, got %d", csvFields, len(fields))
	}

	ms, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return Set{}, fmt.Errorf("frame: csv timestamp %q: %w", fields[0], err)
	}
	label, err := strconv.Atoi(strings.TrimSpace(fields[csvFields-1]))
	if err != nil {
		return Set{}, fmt.Errorf("frame: csv label %q: %w", fields[csvFields-1], err)
	}

	s := Set{Timestamp: time.UnixMilli(ms).UTC(), Label: label}
	for i := 0; i < skeleton.Count; i++ {
		quad := fields[1+i*4 : 5+i*4]
		if allEmpty(quad) {
			continue
		}
		var v [4]float64
		for j, f := range quad {
			v[j], err = strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return Set{}, fmt.Errorf("frame: csv %s component %d: %w", skeleton.Limb(i), j, err)
			}
		}
		r := &Reading{W: v[0], X: v[1], Y: v[2], Z: v[3]}
		if r.Finite() {
			s.Readings[i] = r
		}
	}
	return s, nil
}

func allEmpty(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
