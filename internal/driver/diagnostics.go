// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"fmt"
	"io"
	"log"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/relabs-tech/mocap_retarget/internal/retarget"
	"github.com/relabs-tech/mocap_retarget/internal/skeleton"
)

// Snapshot is the diagnostic view of one frame.
type Snapshot struct {
	Frame   uint64
	Seq     uint64 // producer sequence of the frame used
	Present int    // limbs with a sample
	Steps   [skeleton.Count]retarget.Step
}

// Sink receives diagnostic snapshots. Emit runs on the tick goroutine and
// should return quickly.
type Sink interface {
	Emit(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) Emit(s Snapshot) { f(s) }

// LogSink writes one line per limb to a logger.
type LogSink struct {
	Logger *log.Logger
}

// NewLogSink logs to w with the standard flags.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{Logger: log.New(w, "", log.LstdFlags)}
}

func (s *LogSink) Emit(snap Snapshot) {
	logf := log.Printf
	if s.Logger != nil {
		logf = s.Logger.Printf
	}
	logf("diag: frame=%d seq=%d present=%d/%d", snap.Frame, snap.Seq, snap.Present, skeleton.Count)
	for _, st := range snap.Steps {
		if !st.Present {
			logf("diag:   %-12s absent", st.Limb)
			continue
		}
		logf("diag:   %-12s q=%s aligned=%s local=%s",
			st.Limb, formatQuat(st.Raw), formatQuat(st.Aligned), formatQuat(st.Local))
	}
}

func formatQuat(q mgl64.Quat) string {
	return fmt.Sprintf("(%.3f %.3f %.3f %.3f)", q.W, q.V[0], q.V[1], q.V[2])
}
